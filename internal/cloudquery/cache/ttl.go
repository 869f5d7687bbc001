package cache

import (
	"fmt"
	"strconv"
	"time"
)

// TTL bounds and defaults.
const (
	// DefaultTTLSeconds is short: page listings go stale quickly.
	DefaultTTLSeconds = 60

	// MinTTLSeconds is the minimum allowed TTL.
	MinTTLSeconds = 1

	// MaxTTLSeconds is the maximum allowed TTL (1 day).
	MaxTTLSeconds = 86400

	minutesPerHour = 60
)

// ErrInvalidTTL is returned for TTLs outside [MinTTLSeconds, MaxTTLSeconds].
var ErrInvalidTTL = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)

// ValidateTTL checks seconds against the allowed range.
func ValidateTTL(seconds int) error {
	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}
	return nil
}

// ParseTTL accepts integer seconds ("90") or a duration string ("5m", "1h30m").
func ParseTTL(s string) (int, error) {
	seconds, err := strconv.Atoi(s)
	if err != nil {
		duration, parseErr := time.ParseDuration(s)
		if parseErr != nil {
			return 0, fmt.Errorf("%w: %q is neither seconds nor a duration", ErrInvalidTTL, s)
		}
		seconds = int(duration.Seconds())
	}

	if err := ValidateTTL(seconds); err != nil {
		return 0, err
	}
	return seconds, nil
}

// FormatDuration renders d compactly, e.g. "45s", "5m", "2h30m".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % minutesPerHour
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
