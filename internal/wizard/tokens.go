package wizard

import (
	"fmt"
	"slices"
)

// CalculateTokens returns ceil(duration/60 * rate). A non-positive rate means
// the skill has no rate of its own and DefaultTokensPerHour applies.
func CalculateTokens(durationMinutes, tokensPerHour int) int {
	if tokensPerHour <= 0 {
		tokensPerHour = DefaultTokensPerHour
	}
	if durationMinutes <= 0 {
		return 0
	}
	return (durationMinutes*tokensPerHour + 59) / 60
}

func FormatTokens(tokens int) string {
	return fmt.Sprintf("%d tokens", tokens)
}

func IsValidDuration(minutes int) bool {
	return slices.Contains(DurationOptions, minutes)
}
