package update

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func levelFromError(isErr bool) string {
	if isErr {
		return "error"
	}
	return "info"
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func trimLast(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return string(runes[:len(runes)-1])
}

// formatRemaining renders a countdown like 5h03m or 42m. Negative values
// clamp to 0m so tasks deep in the buffer show an exhausted countdown.
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Minutes())
	h := total / 60
	min := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, min)
	}
	return fmt.Sprintf("%dm", min)
}

// clockToday turns an HH:MM clock into the next instant with that wall
// time: today, or tomorrow when the clock already passed.
func clockToday(now time.Time, clock string) (time.Time, error) {
	h, min, err := parseClockParts(clock)
	if err != nil {
		return time.Time{}, err
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), h, min, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}

func parseClockParts(clock string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(clock), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("update: clock %q is not HH:MM", clock)
	}
	h, errH := strconv.Atoi(parts[0])
	min, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || h < 0 || h > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("update: clock %q is not HH:MM", clock)
	}
	return h, min, nil
}
