// Package identity turns Authorization headers into authenticated callers.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/pkg/logger"
	"github.com/heldhq/held/internal/ports"
)

const bearerPrefix = "bearer "

// Authenticator verifies the bearer token and resolves the caller's default
// billing group from their profile.
type Authenticator struct {
	Verifier ports.IdentityVerifier
	Profiles ports.ProfileRepository
	Logger   ports.Logger
}

// BearerToken extracts the token of a "Bearer <token>" header (scheme is
// case-insensitive). It returns domain.ErrMissingToken otherwise.
func BearerToken(authorization string) (string, error) {
	if len(authorization) < len(bearerPrefix) || !strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
		return "", domain.ErrMissingToken
	}
	token := strings.TrimSpace(authorization[len(bearerPrefix):])
	if token == "" {
		return "", domain.ErrMissingToken
	}
	return token, nil
}

// Authenticate rejects the request before any other work when the header is
// missing or the token is not accepted. A missing or unreadable profile
// yields a caller without a team.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (domain.Caller, error) {
	token, err := BearerToken(authorization)
	if err != nil {
		return domain.Caller{}, err
	}

	id, err := a.Verifier.Verify(ctx, token)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			a.log().Warn("token verification failed", map[string]interface{}{"error": err.Error()})
		}
		return domain.Caller{}, domain.ErrInvalidToken
	}
	if id.UserID == "" {
		return domain.Caller{}, domain.ErrInvalidToken
	}

	caller := domain.Caller{UserID: id.UserID, Email: id.Email}
	profile, err := a.Profiles.Get(ctx, id.UserID)
	switch {
	case err == nil:
		caller.TeamID = profile.DefaultTeamID
	case errors.Is(err, domain.ErrNotFound):
	default:
		a.log().Warn("profile lookup failed", map[string]interface{}{"user_id": id.UserID, "error": err.Error()})
	}
	return caller, nil
}

func (a *Authenticator) log() ports.Logger {
	if a.Logger == nil {
		return logger.NewNop()
	}
	return a.Logger
}

var _ ports.Authenticator = (*Authenticator)(nil)
