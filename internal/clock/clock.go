// Package clock is the time source for the countdown: it reads the wall
// clock and renders it in one fixed UTC offset, never the host zone.
//
// Production code builds a Source over Real(); tests use Fixed or Func so
// that "now" is pinned.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date form used by the dataset.
const DateLayout = "2006-01-02"

// ErrMalformedTime is returned when a date or HH:MM value cannot be turned
// into an instant.
var ErrMalformedTime = errors.New("malformed date or time")

// Clock provides the current instant.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns the system clock.
func Real() Clock { return realClock{} }

// Fixed always returns T.
type Fixed struct {
	T time.Time
}

func (c Fixed) Now() time.Time { return c.T }

// Func adapts a function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// Source renders a Clock in a fixed offset.
type Source struct {
	clock Clock
	loc   *time.Location
}

// NewSource returns a Source reading c in loc. A nil clock means Real().
func NewSource(c Clock, loc *time.Location) *Source {
	if c == nil {
		c = Real()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Source{clock: c, loc: loc}
}

// Location returns the fixed zone.
func (s *Source) Location() *time.Location { return s.loc }

// Now returns the current instant in the fixed zone. Each call reads the
// underlying clock again.
func (s *Source) Now() time.Time {
	return s.clock.Now().In(s.loc)
}

// Today returns the calendar date of Now in YYYY-MM-DD form.
func (s *Source) Today() string {
	return s.Now().Format(DateLayout)
}

// At builds the instant for a date and a time of day in the fixed zone.
func (s *Source) At(date, hhmm string) (time.Time, error) {
	return Combine(date, hhmm, s.loc)
}

// Combine constructs the instant (date, HH:MM, loc). Hours must be 0-23 and
// minutes 0-59.
func Combine(date, hhmm string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrMalformedTime, date)
	}
	h, m, err := ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, loc), nil
}

// ParseClock splits "HH:MM" into hour and minute.
func ParseClock(hhmm string) (hour, minute int, err error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok || hs == "" || ms == "" || len(hs) > 2 || len(ms) != 2 {
		return 0, 0, fmt.Errorf("%w: time %q", ErrMalformedTime, hhmm)
	}
	hour, herr := strconv.Atoi(hs)
	minute, merr := strconv.Atoi(ms)
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: time %q", ErrMalformedTime, hhmm)
	}
	return hour, minute, nil
}

// ParseOffset turns "+06:00", "-03:30" or "Z" into a fixed zone named
// "UTC+06:00".
func ParseOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "Z" || s == "+00:00" || s == "-00:00" {
		return time.FixedZone("UTC", 0), nil
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("utc offset %q: missing sign", s)
	}
	h, m, err := ParseClock(s[1:])
	if err != nil {
		return nil, fmt.Errorf("utc offset %q: %w", s, err)
	}
	if h > 14 {
		return nil, fmt.Errorf("utc offset %q: out of range", s)
	}
	return time.FixedZone("UTC"+s, sign*(h*3600+m*60)), nil
}
