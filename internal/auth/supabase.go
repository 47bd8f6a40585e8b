package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	supabaseauth "github.com/supabase-community/auth-go"
)

// SupabaseResolver asks the Supabase Auth API who owns the token
type SupabaseResolver struct {
	client supabaseauth.Client
}

// NewSupabaseResolver targets the auth service of the project at baseURL,
// e.g. https://<ref>.supabase.co
func NewSupabaseResolver(baseURL string, anonKey string) *SupabaseResolver {
	client := supabaseauth.New("", anonKey).
		WithCustomAuthURL(strings.TrimRight(baseURL, "/") + "/auth/v1")
	return &SupabaseResolver{client: client}
}

func (r *SupabaseResolver) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	user, err := r.client.WithToken(token).GetUser()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if user.ID == uuid.Nil {
		return "", fmt.Errorf("%w: auth api returned no user id", ErrInvalidToken)
	}
	return user.ID.String(), nil
}
