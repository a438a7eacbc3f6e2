package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/infrastructure/store"
)

type stubVerifier struct {
	id    domain.Identity
	err   error
	calls int
}

func (s *stubVerifier) Verify(context.Context, string) (domain.Identity, error) {
	s.calls++
	return s.id, s.err
}

type stubProfiles struct {
	profile domain.Profile
	err     error
}

func (s *stubProfiles) Get(context.Context, string) (domain.Profile, error) {
	return s.profile, s.err
}

func (s *stubProfiles) Upsert(context.Context, domain.Profile) error { return nil }

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = BearerToken("bEaReR xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer   ", "Token abc"} {
		_, err := BearerToken(header)
		assert.ErrorIs(t, err, domain.ErrMissingToken, header)
	}
}

func TestAuthenticateRejectsBeforeVerifying(t *testing.T) {
	verifier := &stubVerifier{}
	a := &Authenticator{Verifier: verifier, Profiles: &stubProfiles{}}

	_, err := a.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "missing bearer token", err.Error())
	assert.Zero(t, verifier.calls)
}

func TestAuthenticateInvalidToken(t *testing.T) {
	for _, verr := range []error{domain.ErrInvalidToken, errors.New("connection reset")} {
		a := &Authenticator{Verifier: &stubVerifier{err: verr}, Profiles: &stubProfiles{}}
		_, err := a.Authenticate(context.Background(), "Bearer t")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Equal(t, "invalid token", err.Error())
	}

	a := &Authenticator{Verifier: &stubVerifier{}, Profiles: &stubProfiles{}}
	_, err := a.Authenticate(context.Background(), "Bearer t")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthenticateResolvesTeam(t *testing.T) {
	verifier := &stubVerifier{id: domain.Identity{UserID: "u1", Email: "u1@example.com"}}

	withTeam := &Authenticator{Verifier: verifier, Profiles: &stubProfiles{profile: domain.Profile{UserID: "u1", DefaultTeamID: "t1"}}}
	caller, err := withTeam.Authenticate(context.Background(), "Bearer t")
	require.NoError(t, err)
	assert.Equal(t, domain.Caller{UserID: "u1", Email: "u1@example.com", TeamID: "t1"}, caller)

	noProfile := &Authenticator{Verifier: verifier, Profiles: &stubProfiles{err: domain.ErrNotFound}}
	caller, err = noProfile.Authenticate(context.Background(), "Bearer t")
	require.NoError(t, err)
	assert.False(t, caller.HasTeam())

	broken := &Authenticator{Verifier: verifier, Profiles: &stubProfiles{err: errors.New("db locked")}}
	caller, err = broken.Authenticate(context.Background(), "Bearer t")
	require.NoError(t, err)
	assert.Equal(t, "u1", caller.UserID)
	assert.False(t, caller.HasTeam())
}

func TestSupabaseVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" || r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"id":"user-1","email":"dev@example.com","aud":"authenticated"}`))
		case "Bearer noid":
			_, _ = w.Write([]byte(`{"email":"dev@example.com"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
		}
	}))
	defer srv.Close()

	v := NewSupabaseVerifier(srv.URL+"/", "anon", srv.Client())

	id, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{UserID: "user-1", Email: "dev@example.com"}, id)

	_, err = v.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = v.Verify(context.Background(), "noid")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestSupabaseVerifierTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewSupabaseVerifier(srv.URL, "anon", nil).Verify(context.Background(), "good")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestTokenVerifierAgainstStore(t *testing.T) {
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "held.db"), "")
	require.NoError(t, err)
	defer db.Close()

	token, err := db.Tokens().Issue(context.Background(), domain.Identity{UserID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)

	v := &TokenVerifier{Tokens: db.Tokens()}
	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)

	_, err = v.Verify(context.Background(), "held_unknown")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
