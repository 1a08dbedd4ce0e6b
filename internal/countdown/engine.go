// Package countdown classifies the current instant against a day sequence
// and produces the two live countdowns (fast start and fast end).
//
// Engine.Evaluate is a pure function of (now, today, sequence). Session
// layers the active selection and its single periodic timer on top.
package countdown

import (
	"fmt"
	"time"

	"fastcal/internal/clock"
	"fastcal/internal/model"
)

// Boundary is one side of the countdown display.
type Boundary struct {
	// Display is either a formatted HH:MM:SS countdown or a sentinel.
	Display string `json:"display"`
	// Counting is true when Display is a countdown.
	Counting bool `json:"counting"`
	// Tomorrow marks countdowns measured against the next entry.
	Tomorrow bool `json:"tomorrow,omitempty"`
	// Remaining is the clamped time left; zero when not counting.
	Remaining time.Duration `json:"remaining_ns,omitempty"`
	// Target is the boundary instant; zero when not counting.
	Target time.Time `json:"target,omitzero"`
}

// Result is one evaluation.
type Result struct {
	Phase Phase `json:"phase"`
	// Today is the entry matching today's date, if any and usable.
	Today *model.DayEntry `json:"today,omitempty"`
	// Next is the entry counted to in AfterEndHasNext.
	Next  *model.DayEntry `json:"next,omitempty"`
	Start Boundary        `json:"start"`
	End   Boundary        `json:"end"`
	// Err explains a NoScheduleForToday caused by a malformed entry.
	Err error `json:"-"`
}

// Engine evaluates countdowns in one fixed zone.
type Engine struct {
	loc *time.Location
}

// NewEngine returns an Engine that interprets entry times in loc.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Location returns the engine's zone.
func (e *Engine) Location() *time.Location { return e.loc }

// Evaluate classifies now. Boundaries are half-open: an instant equal to a
// boundary is on the "after" side of it.
func (e *Engine) Evaluate(now time.Time, today string, seq model.DaySequence) Result {
	if len(seq) == 0 {
		return sentinelResult(NotSelected, SentinelNotActive)
	}

	idx := seq.IndexOf(today)
	if idx < 0 {
		return sentinelResult(NoScheduleForToday, SentinelNotActive)
	}
	cur := seq[idx]

	start, end, err := e.bounds(cur)
	if err != nil {
		r := sentinelResult(NoScheduleForToday, SentinelNotActive)
		r.Err = err
		return r
	}

	switch {
	case now.Before(start):
		return Result{
			Phase: BeforeStart,
			Today: &cur,
			Start: countingBoundary(start, now, false),
			End:   countingBoundary(end, now, false),
		}
	case now.Before(end):
		return Result{
			Phase: BetweenStartAndEnd,
			Today: &cur,
			Start: Boundary{Display: SentinelPassed},
			End:   countingBoundary(end, now, false),
		}
	}

	if idx+1 >= len(seq) {
		r := sentinelResult(AfterEndNoNext, SentinelEnded)
		r.Today = &cur
		return r
	}
	next := seq[idx+1]

	nextStart, nextEnd, err := e.bounds(next)
	if err != nil {
		r := sentinelResult(NoScheduleForToday, SentinelNotActive)
		r.Err = err
		return r
	}
	return Result{
		Phase: AfterEndHasNext,
		Today: &cur,
		Next:  &next,
		Start: countingBoundary(nextStart, now, true),
		End:   countingBoundary(nextEnd, now, true),
	}
}

// bounds returns the entry's start and end instants.
func (e *Engine) bounds(d model.DayEntry) (time.Time, time.Time, error) {
	start, err := clock.Combine(d.Date, d.FastStart, e.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("fast start of %s: %w", d.Date, err)
	}
	end, err := clock.Combine(d.Date, d.FastEnd, e.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("fast end of %s: %w", d.Date, err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s fast start %s is not before fast end %s",
			clock.ErrMalformedTime, d.Date, d.FastStart, d.FastEnd)
	}
	return start, end, nil
}

func sentinelResult(p Phase, sentinel string) Result {
	return Result{
		Phase: p,
		Start: Boundary{Display: sentinel},
		End:   Boundary{Display: sentinel},
	}
}

func countingBoundary(target, now time.Time, tomorrow bool) Boundary {
	remaining := target.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Boundary{
		Display:   FormatRemaining(remaining),
		Counting:  true,
		Tomorrow:  tomorrow,
		Remaining: remaining,
		Target:    target,
	}
}

// FormatRemaining renders d as HH:MM:SS. Non-positive durations render as
// 00:00:00, fractions of a second are dropped, and hours are not wrapped
// at 24.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
