package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

const defaultVerifyTimeout = 10 * time.Second

// SupabaseVerifier validates access tokens against a Supabase auth server.
type SupabaseVerifier struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewSupabaseVerifier builds a verifier for the project at baseURL.
func NewSupabaseVerifier(baseURL, anonKey string, client *http.Client) *SupabaseVerifier {
	if client == nil {
		client = &http.Client{Timeout: defaultVerifyTimeout}
	}
	return &SupabaseVerifier{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: client,
	}
}

type supabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verify calls GET /auth/v1/user with the caller's token. Any non-2xx
// answer or a user without id is domain.ErrInvalidToken; transport failures
// are returned wrapped.
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("supabase: create request: %w", err)
	}
	req.Header.Set("apikey", v.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("supabase: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("supabase: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	var user supabaseUser
	if err := json.Unmarshal(body, &user); err != nil || user.ID == "" {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return domain.Identity{UserID: user.ID, Email: user.Email}, nil
}

var _ ports.IdentityVerifier = (*SupabaseVerifier)(nil)
