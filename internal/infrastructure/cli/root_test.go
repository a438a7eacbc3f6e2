package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heldhq/held/internal/infrastructure/cli/commands"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"OPENAI_API_KEY", "OPENROUTER_API_KEY", "LLAMA_API_KEY", "SUPABASE_URL", "SUPABASE_ANON_KEY", "HELD_IDENTITY_MODE", EnvDebug} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv("HELD_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("HELD_DB_PATH", filepath.Join(dir, "held.db"))
	t.Setenv("HELD_LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root, closeContainer := NewRootCmd()
	defer func() { require.NoError(t, closeContainer()) }()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigInit(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "config.yaml")

	out, err := execute(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	out, err = execute(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = execute(t, "", "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "", "config", "init", "--force")
	assert.NoError(t, err)

	out, err = execute(t, "", "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, commands.MsgConfigurationValid)
}

func TestConfigShowRedactsKeys(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-secret")

	out, err := execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_turns: 20")
	assert.NotContains(t, out, "sk-secret")
}

func TestTokenQuotaImportAskUsage(t *testing.T) {
	isolateEnv(t)

	token, err := execute(t, "", "token", "issue", "--user", "u1", "--email", "u1@example.com", "--team", "t1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "held_"), token)

	out, err := execute(t, "", "quota", "set", "--team", "t1", "--calls", "5", "--storage", "1MB")
	require.NoError(t, err)
	assert.Contains(t, out, "Calls:     5 per day")
	assert.Contains(t, out, "Tokens:    unlimited per day")
	assert.Contains(t, out, "Storage:   1.0 MB")

	lines := `{"ts_start":"2026-01-02T15:04:05Z","cwd":"/app","cmd":"npm run build","exit_code":1,"stderr":"missing script: build"}

{"ts_start":"2026-01-02T15:05:00Z","cwd":"/app","cmd":"ls -la","exit_code":0,"stdout":"total 0"}
`
	out, err = execute(t, lines, "import", "--user", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Imported 2 commands", strings.SplitN(out, " (", 2)[0])

	out, err = execute(t, "", "ask", "--user", "u1", "--session", "s1", "what did npm run build give")
	require.NoError(t, err)
	assert.Contains(t, out, "(no LLM; echoing your query)\nwhat did npm run build give")

	out, err = execute(t, "", "usage", "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "Team:    t1")
	assert.Contains(t, out, "Calls:   1 / 5")
	assert.Contains(t, out, "Tokens:  5 / unlimited")
	assert.NotContains(t, out, "Storage: 0 B")

	out, err = execute(t, "", "quota", "show", "--team", "t1")
	require.NoError(t, err)
	assert.Contains(t, out, "Calls:     5 per day")
}

func TestImportRejectsBadLine(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "{\"cmd\":\"ok\"}\nnot json\n", "import", "--user", "u1")
	assert.ErrorContains(t, err, "imported 1 commands before failing: line 2")
}

func TestMemoryShowAndPurge(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "", "ask", "-u", "u1", "-s", "s1", "list my docker builds")
	require.NoError(t, err)

	out, err := execute(t, "", "memory", "show", "-u", "u1", "-s", "s1")
	require.NoError(t, err)
	assert.Equal(t, "user: list my docker builds\n", out)

	out, err = execute(t, "", "memory", "purge", "-u", "u1", "-s", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Purged s1\n", out)

	out, err = execute(t, "", "memory", "show", "-u", "u1", "-s", "s1")
	require.NoError(t, err)
	assert.Equal(t, commands.MsgNoMemory+"\n", out)
}

func TestCommandValidation(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "", "ask", "hello")
	assert.ErrorContains(t, err, "--user is required")

	_, err = execute(t, "", "quota", "set", "--team", "t1")
	assert.EqualError(t, err, commands.ErrQuotaEmpty)

	_, err = execute(t, "", "memory", "purge", "-u", "u1")
	assert.EqualError(t, err, "session_id required")

	out, err := execute(t, "", "usage", "-u", "nobody")
	require.NoError(t, err)
	assert.Equal(t, commands.MsgNoTeam+"\n", out)
}

func TestDoctorAndVersion(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "", "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "[OK] Database")
	assert.Contains(t, out, "[WARN] API keys")

	out, err = execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "held version dev")
}
