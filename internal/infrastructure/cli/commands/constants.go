package commands

// Flag names shared by several commands.
const (
	flagUser    = "user"
	flagTeam    = "team"
	flagSession = "session"
)

// Error messages
const (
	ErrUserRequired    = "--user is required"
	ErrTeamRequired    = "--team is required"
	ErrSessionRequired = "--session is required"
	ErrQuotaEmpty      = "set at least one of --calls, --tokens, --storage"
)

// Success messages
const (
	MsgConfigurationValid = "Configuration valid"
	MsgNoTeam             = "No team; usage is not metered."
	MsgNoQuota            = "No quota; the team is unlimited."
	MsgNoMemory           = "No memory stored for this session."
)

// ttyCLI tags requests issued from the command line in debug logs.
const ttyCLI = "cli"
