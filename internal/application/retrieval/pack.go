package retrieval

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/heldhq/held/internal/domain"
)

const ellipsis = "…"

// Pack renders candidate rows as numbered text blocks for the prompt. At most
// maxRows rows are rendered and every free-text field is clipped to perField
// characters.
func Pack(rows []domain.CommandRecord, maxRows, perField int) string {
	if maxRows <= 0 {
		maxRows = domain.DefaultPackRows
	}
	if perField <= 0 {
		perField = domain.DefaultPackField
	}
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	blocks := make([]string, 0, len(rows))
	for i, r := range rows {
		blocks = append(blocks, fmt.Sprintf(
			"[%d] ts=%s cwd=%s ssh=%s\n    cmd: %s\n    exit: %s\n    stdout: %s\n    stderr: %s",
			i+1,
			formatStarted(r.StartedAt),
			r.Cwd,
			r.SSHTarget(),
			Clip(r.Command, perField),
			formatExit(r.ExitCode),
			Clip(deref(r.Stdout), perField),
			Clip(deref(r.Stderr), perField),
		))
	}
	return strings.Join(blocks, "\n")
}

// Clip shortens s to n characters, replacing the tail with an ellipsis.
func Clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	keep := n - 1
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + ellipsis
}

func formatStarted(t time.Time) string {
	if t.IsZero() {
		return "?"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatExit(code *int) string {
	if code == nil {
		return ""
	}
	return strconv.Itoa(*code)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
