package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "super-secret-jwt-token-with-at-least-32-characters"
	testUserID = "4b8e2a3c-6f0d-4f4e-9a51-0f3f2d7c9b11"
)

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "empty", header: "", wantErr: true},
		{name: "no token", header: "Bearer ", wantErr: true},
		{name: "basic", header: "Basic abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingToken)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJWTResolver(t *testing.T) {
	r := NewJWTResolver(testSecret)
	ctx := context.Background()

	valid := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   testUserID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	userID, err := r.Resolve(ctx, valid)
	require.NoError(t, err)
	require.Equal(t, testUserID, userID)

	expired := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   testUserID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	_, err = r.Resolve(ctx, expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongSecret := signToken(t, "another-secret-that-is-also-long-enough", jwt.RegisteredClaims{Subject: testUserID})
	_, err = r.Resolve(ctx, wrongSecret)
	require.ErrorIs(t, err, ErrInvalidToken)

	noSubject := signToken(t, testSecret, jwt.RegisteredClaims{Subject: "anon"})
	_, err = r.Resolve(ctx, noSubject)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = r.Resolve(ctx, "")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestSupabaseResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT: token is expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"` + testUserID + `","aud":"authenticated","role":"authenticated"}`))
	}))
	defer srv.Close()

	r := NewSupabaseResolver(srv.URL+"/", "anon-key")
	ctx := context.Background()

	userID, err := r.Resolve(ctx, "good")
	require.NoError(t, err)
	require.Equal(t, testUserID, userID)

	_, err = r.Resolve(ctx, "bad")
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorContains(t, err, "token is expired")
}
