package retrieval

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/heldhq/held/internal/domain"
)

func TestPackFormatsRows(t *testing.T) {
	code := 1
	stderr := "npm ERR! missing script: build"
	rows := []domain.CommandRecord{
		{
			StartedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			Cwd:       "/srv/app",
			Command:   "npm run build",
			ExitCode:  &code,
			Stderr:    &stderr,
			SSHHost:   "prod-1",
			SSHUser:   "deploy",
		},
		{
			StartedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
			Cwd:       "/srv/app",
			Command:   "git pull",
		},
	}

	want := "[1] ts=2025-06-01T10:00:00Z cwd=/srv/app ssh=deploy@prod-1\n" +
		"    cmd: npm run build\n" +
		"    exit: 1\n" +
		"    stdout: \n" +
		"    stderr: npm ERR! missing script: build\n" +
		"[2] ts=2025-06-01T09:00:00Z cwd=/srv/app ssh=\n" +
		"    cmd: git pull\n" +
		"    exit: \n" +
		"    stdout: \n" +
		"    stderr: "

	assert.Equal(t, want, Pack(rows, 60, 220))
}

func TestPackLimitsRowsAndClipsFields(t *testing.T) {
	out := strings.Repeat("y", 500)
	rows := make([]domain.CommandRecord, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, domain.CommandRecord{Command: "yes", Stdout: &out})
	}

	packed := Pack(rows, 2, 10)
	assert.Equal(t, 2, strings.Count(packed, "    cmd: "))
	assert.Contains(t, packed, "    stdout: yyyyyyyyy…")
	assert.Contains(t, packed, "ts=?")
	assert.Empty(t, Pack(nil, 60, 220))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", Clip("short", 10))
	assert.Equal(t, "exactly10!", Clip("exactly10!", 10))
	clipped := Clip("ééééééééééé", 5)
	assert.Equal(t, "éééé…", clipped)
	assert.Equal(t, 5, utf8.RuneCountInString(clipped))
}
