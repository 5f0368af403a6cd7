package dispatch

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reDuration = regexp.MustCompile(`^(-?\d+) ?(seconds?|minutes?|hours?)$`)
	reClock    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))? ?(am|pm)$`)
	reVolume   = regexp.MustCompile(`^-?\d+$`)
)

// ParseDuration parses "<n> <unit>" with unit second(s), minute(s) or
// hour(s). The space is optional and n must be positive.
func ParseDuration(s string) (time.Duration, error) {
	m := reDuration.FindStringSubmatch(strings.TrimSpace(strings.ToLower(s)))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q must be a positive number", ErrInvalidDuration, s)
	}
	unit := int64(1)
	switch strings.TrimSuffix(m[2], "s") {
	case "minute":
		unit = 60
	case "hour":
		unit = 3600
	}
	if n > math.MaxInt64/int64(time.Second)/unit {
		return 0, fmt.Errorf("%w: %q is too long", ErrInvalidDuration, s)
	}
	return time.Duration(n*unit) * time.Second, nil
}

// ParseClock parses "H:MMam", "Hpm" and the same with a space before the
// suffix. It returns the 24h hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	m := reClock.FindStringSubmatch(strings.TrimSpace(strings.ToLower(s)))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, _ := strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if h < 1 || h > 12 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h %= 12
	if m[3] == "pm" {
		h += 12
	}
	return h, minute, nil
}

// NextOccurrence returns the first hour:minute wall-clock time in loc that
// is strictly after now.
func NextOccurrence(now time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	t := time.Date(n.Year(), n.Month(), n.Day(), hour, minute, 0, 0, loc)
	if !t.After(n) {
		t = time.Date(n.Year(), n.Month(), n.Day()+1, hour, minute, 0, 0, loc)
	}
	return t
}

// ParseVolume parses an integer percent in [0,100]. A trailing % is allowed.
func ParseVolume(s string) (int, error) {
	v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if !reVolume.MatchString(v) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVolume, s)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 100 {
		return 0, fmt.Errorf("%w: %q is outside 0-100", ErrInvalidVolume, s)
	}
	return n, nil
}
