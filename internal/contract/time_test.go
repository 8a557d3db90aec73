package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.November, 3, 10, 0, 0, 0, time.UTC)

// TestParseRelativeTimeUnit covers various valid and invalid cases.
func TestParseRelativeTimeUnit(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    time.Time
		expectError bool
	}{
		{
			name:     "valid plural months (mixed case)",
			input:    "3 MoNtHs AgO",
			expected: fixedNow.AddDate(0, -3, 0),
		},
		{
			name:     "valid singular week (capitalized)",
			input:    "1 Week Ago",
			expected: fixedNow.Add(-7 * 24 * time.Hour),
		},
		{
			name:     "valid 10 days (upper case)",
			input:    "10 DAYS AGO",
			expected: fixedNow.Add(-10 * 24 * time.Hour),
		},
		{
			name:     "valid minutes",
			input:    "90 minutes ago",
			expected: fixedNow.Add(-90 * time.Minute),
		},
		{name: "invalid missing ago", input: "2 years", expectError: true},
		{name: "invalid bad unit (decades)", input: "4 decades ago", expectError: true},
		{name: "invalid non-numeric value", input: "one year ago", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.input, fixedNow)

			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestParseLookbackDuration covers Go durations and the human-readable forms,
// including the month and year approximations.
func TestParseLookbackDuration(t *testing.T) {
	const day = 24 * time.Hour

	tests := []struct {
		name      string
		input     string
		want      time.Duration
		expectErr bool
	}{
		{"go duration", "90s", 90 * time.Second, false},
		{"go hours", "720h", 720 * time.Hour, false},
		{"1 minute", "1 minute", time.Minute, false},
		{"3 hours", "3 hours", 3 * time.Hour, false},
		{"7 days", "7 days", 7 * day, false},
		{"4 weeks", "4 weeks", 4 * 7 * day, false},
		{"6 months approx", "6 months", 6 * 30 * day, false},
		{"2 years approx", "2 years", 2 * 365 * day, false},
		{"mixed case", "3 MoNtHs", 3 * 30 * day, false},
		{"extra space", " 1  day ", day, false},

		{"missing value", "months", 0, true},
		{"missing unit", "3", 0, true},
		{"invalid unit", "3 decades", 0, true},
		{"zero quantity", "0 days", 0, true},
		{"zero go duration", "0s", 0, true},
		{"non-integer quantity", "1.5 days", 0, true},
		{"empty string", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLookbackDuration(tt.input)

			if tt.expectErr {
				assert.Error(t, err, "Expected an error for input: %q", tt.input)
				return
			}
			require.NoError(t, err, "Did not expect an error for input: %q", tt.input)
			assert.Equal(t, tt.want, got, "Duration mismatch for input: %q", tt.input)
		})
	}
}

func TestParseAsOf(t *testing.T) {
	got, err := ParseAsOf("2025-06-01T12:00:00+02:00", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), got)

	got, err = ParseAsOf("2 days ago", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(-48*time.Hour), got)

	_, err = ParseAsOf("yesterday", fixedNow)
	assert.Error(t, err)
}

// FuzzParseRelativeTime fuzzes the ParseRelativeTime function with random inputs.
func FuzzParseRelativeTime(f *testing.F) {
	seeds := []string{
		"1 year ago",
		"2 months ago",
		"3 weeks ago",
		"4 days ago",
		"5 hours ago",
		"6 minutes ago",
		"0 years ago",
		"99999999999999999999 days ago",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(_ *testing.T, input string) {
		_, _ = ParseRelativeTime(input, fixedNow)
	})
}

// FuzzParseLookbackDuration fuzzes the ParseLookbackDuration function.
func FuzzParseLookbackDuration(f *testing.F) {
	seeds := []string{
		"1 year",
		"2 months",
		"3 weeks",
		"4 days",
		"5 hours",
		"6 minutes",
		"0 years",
		"2m30s",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(_ *testing.T, input string) {
		_, _ = ParseLookbackDuration(input)
	})
}
