package retrieval

import (
	"regexp"
	"strings"

	"github.com/heldhq/held/internal/domain"
)

// outputProbeMinLength is the length a backticked phrase must exceed to be
// treated as captured output rather than a command.
const outputProbeMinLength = 40

var (
	backtickPattern   = regexp.MustCompile("`([^`]+)`")
	whatDidPattern    = regexp.MustCompile(`(?i)what\s+did\s+(?:running\s+)?(.+?)\s+give`)
	gaveMePattern     = regexp.MustCompile(`(?i)(?:gave\s+me|result(?:ed)?\s+in)\s+(.+)$`)
	commandishPattern = regexp.MustCompile(`^\s*[a-zA-Z0-9_\-./]+(\s|$)`)
)

// ExtractProbe derives the search phrase of a natural-language query. Rules
// are applied in order and the first match wins:
//
//  1. the first backticked phrase (output when it has whitespace and is long, else command)
//  2. "what did (running) X give"  -> command X
//  3. "gave me Y" / "resulted in Y" -> output Y
//  4. a query starting with a command-like token -> the whole query as command
//
// Anything else yields an empty probe.
func ExtractProbe(query string) domain.Probe {
	if query == "" {
		return domain.Probe{}
	}

	for _, m := range backtickPattern.FindAllStringSubmatch(query, -1) {
		phrase := strings.TrimSpace(m[1])
		if phrase == "" {
			continue
		}
		if looksLikeOutput(phrase) {
			return domain.Probe{Kind: domain.ProbeOutput, Phrase: phrase}
		}
		return domain.Probe{Kind: domain.ProbeCommand, Phrase: phrase}
	}

	if m := whatDidPattern.FindStringSubmatch(query); m != nil {
		return domain.Probe{Kind: domain.ProbeCommand, Phrase: strings.TrimSpace(m[1])}
	}

	if m := gaveMePattern.FindStringSubmatch(query); m != nil {
		return domain.Probe{Kind: domain.ProbeOutput, Phrase: strings.TrimSpace(m[1])}
	}

	if commandishPattern.MatchString(query) {
		return domain.Probe{Kind: domain.ProbeCommand, Phrase: strings.TrimSpace(query)}
	}

	return domain.Probe{}
}

func looksLikeOutput(phrase string) bool {
	return strings.ContainsAny(phrase, "\n\r\t ") && len([]rune(phrase)) > outputProbeMinLength
}
