package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM")

// accepted layouts, "08.30" is the common Norwegian notation
var timeOfDayLayouts = []string{"15:04", "15.04", "3:04PM", "3:04 PM"}

// NormalizeTimeOfDay parses a wall clock time and returns it as HH:MM.
func NormalizeTimeOfDay(input string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(input))
	for _, layout := range timeOfDayLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, input)
}

// DateOnly returns midnight UTC of the calendar day t falls on in its own
// location, so a date picked in Oslo stays the same day.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
