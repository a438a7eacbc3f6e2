package ai

import "github.com/heldhq/held/internal/domain"

const errorBodyPreview = 300

func valueOrDefault(value string, def string) string {
	if value == "" {
		return def
	}
	return value
}

// clampMaxTokens bounds max_tokens to what every provider accepts.
func clampMaxTokens(n int) int {
	if n < domain.MinMaxTokens {
		return domain.MinMaxTokens
	}
	if n > domain.MaxMaxTokens {
		return domain.MaxMaxTokens
	}
	return n
}

func preview(body []byte, n int) string {
	r := []rune(string(body))
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
