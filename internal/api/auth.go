package api

import (
	"context"
	"log/slog"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
)

// NewTokenAuth builds the JWT verifier used by the server when an HMAC
// secret is configured. Requests authenticate with HS256 bearer tokens.
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// Principal returns the acting user's ID from the verified JWT "sub"
// claim, or nil when the server runs without authentication.
func Principal(ctx context.Context) *uuid.UUID {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return nil
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		slog.Warn("Token subject is not a UUID", "sub", sub)
		return nil
	}
	return &id
}
