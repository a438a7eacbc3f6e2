package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heldhq/held/internal/application/memory"
	"github.com/heldhq/held/internal/application/recall"
	"github.com/heldhq/held/internal/application/retrieval"
	"github.com/heldhq/held/internal/application/usage"
	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/infrastructure/ai"
	"github.com/heldhq/held/internal/infrastructure/identity"
	"github.com/heldhq/held/internal/infrastructure/store"
	"github.com/heldhq/held/internal/pkg/logger"
)

type testEnv struct {
	server *Server
	db     *store.DB
	token  string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "held.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Profiles().Upsert(ctx, domain.Profile{UserID: "u1", Email: "u1@example.com", DefaultTeamID: "t1"}))
	token, err := db.Tokens().Issue(ctx, domain.Identity{UserID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)

	exit := 1
	stderr := "npm ERR! missing script: build"
	_, err = db.Commands().Insert(ctx, domain.CommandRecord{
		UserID: "u1", StartedAt: time.Now().Add(-time.Hour), Cwd: "/app", Command: "npm run build",
		ExitCode: &exit, Stderr: &stderr,
	})
	require.NoError(t, err)

	log := logger.NewNop()
	metrics := NewMetrics()
	dispatcher := ai.NewDispatcher(domain.ProviderSettings{}, nil, nil)
	dispatcher.Observe = metrics.ObserveProvider

	service := &recall.Service{
		Gate:      usage.NewGate(db.Usage(), db.Quotas(), db.Profiles(), log),
		Retriever: &retrieval.Retriever{Commands: db.Commands(), Logger: log},
		Memory:    memory.NewStore(db.Memory(), domain.DefaultChatMaxTurns, log),
		Models:    dispatcher,
		Logger:    log,
	}
	auth := &identity.Authenticator{
		Verifier: &identity.TokenVerifier{Tokens: db.Tokens()},
		Profiles: db.Profiles(),
		Logger:   log,
	}

	server, err := NewServer(service, auth, metrics, zap.NewNop(), Config{Addr: ":0"})
	require.NoError(t, err)
	return &testEnv{server: server, db: db, token: token}
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.echo.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, nil, nil, zap.NewNop(), Config{})
	assert.Error(t, err)
}

func TestHandleHealth(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPreflight(t *testing.T) {
	env := setupTestServer(t)

	for _, path := range []string{"/", "/held-chat"} {
		rec := env.do(http.MethodOptions, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "authorization, content-type, held-tty", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "POST,DELETE,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestAuthFailures(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(http.MethodPost, "/", `{"q":"ls"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing bearer token", errorOf(t, rec))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(http.MethodPost, "/", `{"q":"ls"}`, "held_not_a_token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", errorOf(t, rec))
}

func TestBadRequests(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(http.MethodPost, "/", `{"q":"   "}`, env.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty query", errorOf(t, rec))

	rec = env.do(http.MethodPost, "/", "", env.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/", `{"q":"ls","surprise":true}`, env.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec), "invalid request body")

	rec = env.do(http.MethodDelete, "/", `{}`, env.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "session_id required", errorOf(t, rec))

	day := time.Now().UTC().Format(domain.DayFormat)
	_, err := env.db.Usage().Get(context.Background(), "t1", "u1", day)
	assert.ErrorIs(t, err, domain.ErrNotFound, "rejected requests must not be metered")
}

func TestMethodNotAllowed(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(http.MethodGet, "/", "", env.token)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method not allowed", errorOf(t, rec))
}

func TestAskWithoutProvidersEchoesQuery(t *testing.T) {
	env := setupTestServer(t)
	q := "what did running `npm run build` give"

	rec := env.do(http.MethodPost, "/held-chat", `{"q":"`+strings.ReplaceAll(q, "`", "\\u0060")+`","session_id":"s1"}`, env.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, "s1", rec.Header().Get(headerHeldSession))
	assert.Equal(t,
		"⚠︎ No model provider configured (OPENAI_API_KEY or OPENROUTER_API_KEY or LLAMA_API_KEY)"+
			"\n\n(no LLM; echoing your query)\n"+q,
		rec.Body.String())

	raw, err := env.db.Memory().Get(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","content":"what did running `+"`npm run build`"+` give"}]`, string(raw))

	day := time.Now().UTC().Format(domain.DayFormat)
	row, err := env.db.Usage().Get(context.Background(), "t1", "u1", day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.APICalls)
	assert.Equal(t, int64(5), row.TokenCount)
}

func TestQuotaExceeded(t *testing.T) {
	env := setupTestServer(t)
	one := int64(1)
	require.NoError(t, env.db.Quotas().Insert(context.Background(), domain.Quota{
		TeamID: "t1", APICallsPerDay: &one, EffectiveAt: time.Now().Add(-time.Minute),
	}))

	rec := env.do(http.MethodPost, "/", `{"q":"ls"}`, env.token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Regexp(t, `^auto-[0-9a-f]{16}$`, rec.Header().Get(headerHeldSession))

	rec = env.do(http.MethodPost, "/", `{"q":"ls"}`, env.token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "You have exceeded the API calls usage for the day. Please upgrade your plan to continue using the service.", errorOf(t, rec))

	metrics := env.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `held_quota_rejections_total{dimension="calls"} 1`)
	assert.Contains(t, metrics.Body.String(), `held_http_requests_total{endpoint="/",method="POST",status="429"} 1`)
}

func TestPurge(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(http.MethodPost, "/", `{"q":"ls","session_id":"s9"}`, env.token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodDelete, "/", `{"session_id":"s9"}`, env.token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"purged":"s9"}`, rec.Body.String())

	_, err := env.db.Memory().Get(context.Background(), "u1", "s9")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	rec = env.do(http.MethodDelete, "/", `{"session_id":"s9"}`, env.token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	env := setupTestServer(t)
	env.server.config.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Run(ctx, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
