package schedule

import (
	"time"

	"github.com/teambition/rrule-go"

	"fastcal/internal/clock"
	"fastcal/internal/model"
)

// Coverage describes which calendar days a sequence spans.
type Coverage struct {
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	// Days is the number of entries with a valid date.
	Days int `json:"days"`
	// Missing lists dates between First and Last that have no entry.
	Missing []string `json:"missing,omitempty"`
	// InvalidDates lists entry dates that could not be parsed.
	InvalidDates []string `json:"invalid_dates,omitempty"`
}

// Covers reports whether date falls within [First, Last].
func (c Coverage) Covers(date string) bool {
	return c.First != "" && date >= c.First && date <= c.Last
}

// CoverageOf walks the sequence against a daily recurrence from its first to
// its last date and reports the gaps.
func CoverageOf(seq model.DaySequence) Coverage {
	var cov Coverage

	present := make(map[string]bool, len(seq))
	var first, last time.Time
	for _, e := range seq {
		d, err := time.Parse(clock.DateLayout, e.Date)
		if err != nil {
			cov.InvalidDates = append(cov.InvalidDates, e.Date)
			continue
		}
		present[e.Date] = true
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	if len(present) == 0 {
		return cov
	}

	cov.First = first.Format(clock.DateLayout)
	cov.Last = last.Format(clock.DateLayout)
	cov.Days = len(present)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: first,
		Until:   last,
	})
	if err != nil {
		return cov
	}
	for _, d := range r.All() {
		key := d.Format(clock.DateLayout)
		if !present[key] {
			cov.Missing = append(cov.Missing, key)
		}
	}
	return cov
}
