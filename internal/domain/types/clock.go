package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock is a time of day expressed in minutes since midnight.
type Clock int

// NoClock marks an absent time. It sorts before every valid Clock.
const NoClock Clock = -1

const (
	minutesPerHour = 60
	hoursPerDay    = 24
)

// ParseClock parses "H:MM" or "HH:MM". Empty or malformed input returns false.
func ParseClock(s string) (Clock, bool) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return NoClock, false
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours >= hoursPerDay {
		return NoClock, false
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 || minutes >= minutesPerHour {
		return NoClock, false
	}
	return Clock(hours*minutesPerHour + minutes), true
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustClock is ParseClock for literals; it panics on malformed input.
func MustClock(s string) Clock {
	c, ok := ParseClock(s)
	if !ok {
		panic("types: malformed clock " + strconv.Quote(s))
	}
	return c
}

// Valid reports whether c holds a time of day.
func (c Clock) Valid() bool {
	return c >= 0 && c < hoursPerDay*minutesPerHour
}

// String renders c as HH:MM, or "" when absent.
func (c Clock) String() string {
	if !c.Valid() {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", int(c)/minutesPerHour, int(c)%minutesPerHour)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text decodes to NoClock.
func (c *Clock) UnmarshalText(b []byte) error {
	if strings.TrimSpace(string(b)) == "" {
		*c = NoClock
		return nil
	}
	parsed, ok := ParseClock(string(b))
	if !ok {
		return fmt.Errorf("invalid clock %q: want HH:MM", string(b))
	}
	*c = parsed
	return nil
}
