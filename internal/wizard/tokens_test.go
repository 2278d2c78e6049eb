package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTokens(t *testing.T) {
	cases := []struct {
		name     string
		duration int
		rate     int
		want     int
	}{
		{name: "fractional hour rounds up", duration: 90, rate: 33, want: 50},
		{name: "default rate when skill has none", duration: 60, rate: 0, want: 50},
		{name: "two hours at low rate", duration: 120, rate: 4, want: 8},
		{name: "ninety minutes at default", duration: 90, rate: 50, want: 75},
		{name: "ninety minutes at forty", duration: 90, rate: 40, want: 60},
		{name: "negative rate falls back", duration: 120, rate: -3, want: 100},
		{name: "zero duration", duration: 0, rate: 40, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculateTokens(tc.duration, tc.rate))
		})
	}
}

func TestSkillHourlyRate(t *testing.T) {
	assert.Equal(t, 50, Skill{Name: "Guitar"}.HourlyRate())
	assert.Equal(t, 33, Skill{Name: "Guitar", TokensPerHour: 33}.HourlyRate())
}

func TestIsValidDuration(t *testing.T) {
	for _, d := range []int{60, 90, 120} {
		assert.True(t, IsValidDuration(d), "duration %d", d)
	}
	for _, d := range []int{0, 30, 45, 61, 180} {
		assert.False(t, IsValidDuration(d), "duration %d", d)
	}
}

func TestFormatTokens(t *testing.T) {
	assert.Equal(t, "60 tokens", FormatTokens(60))
}
