package identity

import (
	"context"
	"errors"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

// TokenVerifier accepts API tokens issued into the local database.
type TokenVerifier struct {
	Tokens ports.TokenRepository
}

func (v *TokenVerifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	id, err := v.Tokens.Lookup(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	if err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

var _ ports.IdentityVerifier = (*TokenVerifier)(nil)
