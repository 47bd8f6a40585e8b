package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/assistant-backend/internal/dispatcher"
	"go.uber.org/zap"
)

type dispatchFunc func(ctx context.Context, authorization string, body []byte) (any, error)

func (f dispatchFunc) Dispatch(ctx context.Context, authorization string, body []byte) (any, error) {
	return f(ctx, authorization, body)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, d Dispatcher, method, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	router := New(d, zap.NewNop()).Router("/")
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestOptionsPreflight(t *testing.T) {
	called := false
	d := dispatchFunc(func(ctx context.Context, authorization string, body []byte) (any, error) {
		called = true
		return nil, nil
	})

	rec := serve(t, d, http.MethodOptions, "this is not json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "authorization")
	require.False(t, called)
}

func TestSuccess(t *testing.T) {
	d := dispatchFunc(func(ctx context.Context, authorization string, body []byte) (any, error) {
		assert.Equal(t, "Bearer token", authorization)
		assert.JSONEq(t, `{"func":"create-thread"}`, string(body))
		return &dispatcher.CreateThreadResponse{ThreadID: "thread_1"}, nil
	})

	rec := serve(t, d, http.MethodPost, `{"func":"create-thread"}`, http.Header{"Authorization": {"Bearer token"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"thread_id":"thread_1"}`, rec.Body.String())
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMessageResponse(t *testing.T) {
	d := dispatchFunc(func(ctx context.Context, authorization string, body []byte) (any, error) {
		return &dispatcher.MessageResponse{Message: json.RawMessage(`[{"type":"text","text":{"value":"hi","annotations":[]}}]`)}, nil
	})

	rec := serve(t, d, http.MethodPost, `{"func":"send-message","message":"hello"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":[{"type":"text","text":{"value":"hi","annotations":[]}}]}`, rec.Body.String())
}

func TestInvalidMode(t *testing.T) {
	d := dispatchFunc(func(ctx context.Context, authorization string, body []byte) (any, error) {
		return nil, dispatcher.ErrInvalidMode
	})

	rec := serve(t, d, http.MethodPost, `{"func":"nope"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"Invalid mode"}`, rec.Body.String())
}

func TestDownstreamError(t *testing.T) {
	d := dispatchFunc(func(ctx context.Context, authorization string, body []byte) (any, error) {
		return nil, errors.New("no current thread")
	})

	rec := serve(t, d, http.MethodPost, `{"func":"send-message","message":"hi"}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "no current thread", decodeError(t, rec))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPropagation(t *testing.T) {
	d := dispatchFunc(func(ctx context.Context, authorization string, body []byte) (any, error) {
		return map[string]string{}, nil
	})

	rec := serve(t, d, http.MethodPost, `{}`, http.Header{"X-Request-Id": {"req-42"}})
	require.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))
}

func TestCustomPath(t *testing.T) {
	d := dispatchFunc(func(ctx context.Context, authorization string, body []byte) (any, error) {
		return &dispatcher.CreateThreadResponse{ThreadID: "thread_1"}, nil
	})
	router := New(d, zap.NewNop()).Router("/functions/v1/backend")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/functions/v1/backend", strings.NewReader(`{"func":"create-thread"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"thread_id":"thread_1"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/functions/v1/backend", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"func":"create-thread"}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
