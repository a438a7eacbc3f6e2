package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heldhq/held/internal/app"
	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

const maxImportLine = 16 << 20

// NewImportCommand creates the import command
func NewImportCommand(lazy *app.Lazy) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "import [file.jsonl|-]",
		Short: "Import captured commands from JSON lines",
		Long: "Each line is one command record:\n" +
			`  {"ts_start":"2026-01-02T15:04:05Z","cwd":"/app","cmd":"make","exit_code":0,"stdout":"...","stderr":"..."}`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := lazy.Get(ctx)
			if err != nil {
				return err
			}
			caller, err := container.Caller(ctx, user)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer f.Close()
				in = f
			}

			count, size, err := importRecords(ctx, container.Store.Commands(), caller, in)
			if size > 0 && caller.HasTeam() {
				container.Gate.RecordStorage(ctx, caller.UserID, caller.TeamID, size)
			}
			if err != nil {
				return fmt.Errorf("imported %d commands before failing: %w", count, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s commands (%s)\n", humanize.Comma(int64(count)), humanize.Bytes(uint64(size)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, flagUser, "u", "", "Owner of the imported commands")
	return cmd
}

// importRecords inserts one record per non-blank line and returns how many
// were stored and their captured byte size.
func importRecords(ctx context.Context, repo ports.CommandRepository, caller domain.Caller, in io.Reader) (int, int64, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)

	var (
		count int
		size  int64
		line  int
	)
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec domain.CommandRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return count, size, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Command == "" {
			return count, size, fmt.Errorf("line %d: cmd is required", line)
		}
		if rec.StartedAt.IsZero() {
			rec.StartedAt = time.Now().UTC()
		}
		rec.UserID = caller.UserID
		rec.TeamID = caller.TeamID

		if _, err := repo.Insert(ctx, rec); err != nil {
			return count, size, fmt.Errorf("line %d: %w", line, err)
		}
		count++
		size += rec.SizeBytes()
	}
	if err := scanner.Err(); err != nil {
		return count, size, fmt.Errorf("read import: %w", err)
	}
	return count, size, nil
}
