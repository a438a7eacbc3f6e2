package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

const commandColumns = "id, user_id, team_id, ts_start, cwd, cmd, exit_code, stdout, stderr, ssh_host, ssh_user"

// CommandStore reads and writes the commands relation.
type CommandStore struct {
	db *sql.DB
}

// Insert stores a captured command and returns its id.
func (s *CommandStore) Insert(ctx context.Context, rec domain.CommandRecord) (int64, error) {
	var exitCode sql.NullInt64
	if rec.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*rec.ExitCode), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO commands
		(user_id, team_id, ts_start, cwd, cmd, exit_code, stdout, stderr, ssh_host, ssh_user)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID,
		nullString(rec.TeamID),
		rec.StartedAt.UTC().UnixMicro(),
		rec.Cwd,
		rec.Command,
		exitCode,
		optionalText(rec.Stdout),
		optionalText(rec.Stderr),
		nullString(rec.SSHHost),
		nullString(rec.SSHUser),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Recent returns the user's most recent commands.
func (s *CommandStore) Recent(ctx context.Context, userID string, limit int) ([]domain.CommandRecord, error) {
	return s.query(ctx, "WHERE user_id = ?", []interface{}{userID}, limit)
}

// SearchCommand returns commands whose text contains phrase, case-insensitively.
func (s *CommandStore) SearchCommand(ctx context.Context, userID, phrase string, limit int) ([]domain.CommandRecord, error) {
	pattern := likePattern(phrase)
	return s.query(ctx, `WHERE user_id = ? AND lower(cmd) LIKE lower(?) ESCAPE '\'`,
		[]interface{}{userID, pattern}, limit)
}

// SearchOutput returns commands whose stdout or stderr contains phrase, case-insensitively.
func (s *CommandStore) SearchOutput(ctx context.Context, userID, phrase string, limit int) ([]domain.CommandRecord, error) {
	pattern := likePattern(phrase)
	return s.query(ctx,
		`WHERE user_id = ? AND (lower(stdout) LIKE lower(?) ESCAPE '\' OR lower(stderr) LIKE lower(?) ESCAPE '\')`,
		[]interface{}{userID, pattern, pattern}, limit)
}

func (s *CommandStore) query(ctx context.Context, where string, args []interface{}, limit int) ([]domain.CommandRecord, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT " + commandColumns + " FROM commands ")
	builder.WriteString(where)
	builder.WriteString(" ORDER BY ts_start DESC, id DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CommandRecord
	for rows.Next() {
		var (
			rec                      domain.CommandRecord
			teamID, sshHost, sshUser sql.NullString
			stdout, stderr           sql.NullString
			exitCode                 sql.NullInt64
			startedAt                int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &teamID, &startedAt, &rec.Cwd, &rec.Command,
			&exitCode, &stdout, &stderr, &sshHost, &sshUser); err != nil {
			return nil, err
		}
		rec.TeamID = teamID.String
		rec.StartedAt = time.UnixMicro(startedAt).UTC()
		rec.SSHHost = sshHost.String
		rec.SSHUser = sshUser.String
		if exitCode.Valid {
			code := int(exitCode.Int64)
			rec.ExitCode = &code
		}
		if stdout.Valid {
			out := stdout.String
			rec.Stdout = &out
		}
		if stderr.Valid {
			errText := stderr.String
			rec.Stderr = &errText
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// likePattern wraps phrase in wildcards, escaping LIKE metacharacters so the
// phrase matches literally.
func likePattern(phrase string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(phrase) + "%"
}

func optionalText(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ ports.CommandRepository = (*CommandStore)(nil)
