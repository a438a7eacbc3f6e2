package domain

import "time"

// CommandRecord captures a single terminal invocation recorded by the capture agent.
// Records are immutable once written; the recall path only reads them.
type CommandRecord struct {
	ID        int64     `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	TeamID    string    `json:"team_id,omitempty"`
	StartedAt time.Time `json:"ts_start"`
	Cwd       string    `json:"cwd"`
	Command   string    `json:"cmd"`
	ExitCode  *int      `json:"exit_code"`
	Stdout    *string   `json:"stdout"`
	Stderr    *string   `json:"stderr"`
	SSHHost   string    `json:"ssh_host,omitempty"`
	SSHUser   string    `json:"ssh_user,omitempty"`
}

// DedupKey identifies a record across lookups: (start time, command text, working directory).
func (r CommandRecord) DedupKey() string {
	return r.StartedAt.UTC().Format(time.RFC3339Nano) + "||" + r.Command + "||" + r.Cwd
}

// SSHTarget renders user@host, or an empty string for local commands.
func (r CommandRecord) SSHTarget() string {
	if r.SSHHost == "" {
		return ""
	}
	return r.SSHUser + "@" + r.SSHHost
}

// SizeBytes approximates the storage a record occupies.
func (r CommandRecord) SizeBytes() int64 {
	size := len(r.Cwd) + len(r.Command) + len(r.SSHHost) + len(r.SSHUser)
	if r.Stdout != nil {
		size += len(*r.Stdout)
	}
	if r.Stderr != nil {
		size += len(*r.Stderr)
	}
	return int64(size)
}

// ProbeKind classifies what part of a command record a probe phrase should match.
type ProbeKind string

const (
	ProbeNone    ProbeKind = ""
	ProbeCommand ProbeKind = "cmd"
	ProbeOutput  ProbeKind = "out"
)

// Probe is a request-scoped phrase extracted from a natural-language query.
type Probe struct {
	Kind   ProbeKind
	Phrase string
}

// IsZero reports whether the probe carries nothing to search for.
func (p Probe) IsZero() bool {
	return p.Kind == ProbeNone || p.Phrase == ""
}
