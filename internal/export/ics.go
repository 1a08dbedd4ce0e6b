// Package export renders a resolved day sequence as an iCalendar feed.
package export

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"fastcal/internal/clock"
	appLog "fastcal/internal/log"
	"fastcal/internal/model"
)

const productID = "-//fastcal//fasting schedule//EN"

// Event kinds used in UIDs.
const (
	KindStart = "start"
	KindEnd   = "end"
)

// CalendarOptions names and places the generated events.
type CalendarOptions struct {
	Region    string
	SubRegion string
	// StartLabel and EndLabel become the event summaries.
	StartLabel string
	EndLabel   string
	// Name is the calendar display name (X-WR-CALNAME).
	Name string
	// Location interprets the entries' wall-clock times.
	Location *time.Location
	// Stamp is written as DTSTAMP; zero means time.Now.
	Stamp time.Time
}

// UID returns the stable identifier of one event.
func UID(date, kind, subRegion string) string {
	return fmt.Sprintf("%s-%s-%s@fastcal", date, kind, uidSafe(subRegion))
}

// Calendar builds a VCALENDAR with two zero-length events per day: the
// fast start and the fast end. Entries with malformed times are skipped.
func Calendar(seq model.DaySequence, opts CalendarOptions) *ical.Calendar {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	startLabel := opts.StartLabel
	if startLabel == "" {
		startLabel = "Fast start"
	}
	endLabel := opts.EndLabel
	if endLabel == "" {
		endLabel = "Fast end"
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	place := opts.SubRegion
	if opts.Region != "" && opts.Region != opts.SubRegion {
		place = opts.SubRegion + ", " + opts.Region
	}

	skipped := 0
	for _, d := range seq {
		start, err := clock.Combine(d.Date, d.FastStart, loc)
		if err != nil {
			skipped++
			continue
		}
		end, err := clock.Combine(d.Date, d.FastEnd, loc)
		if err != nil {
			skipped++
			continue
		}
		addEvent(cal, UID(d.Date, KindStart, opts.SubRegion), start, stamp, summary(startLabel, d), place)
		addEvent(cal, UID(d.Date, KindEnd, opts.SubRegion), end, stamp, summary(endLabel, d), place)
	}
	if skipped > 0 {
		appLog.Warn("ics export skipped malformed entries", "sub_region", opts.SubRegion, "count", skipped)
	}
	return cal
}

// Serialize is Calendar followed by ical serialization.
func Serialize(seq model.DaySequence, opts CalendarOptions) string {
	return Calendar(seq, opts).Serialize()
}

func addEvent(cal *ical.Calendar, uid string, at, stamp time.Time, summary, place string) {
	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(stamp)
	ev.SetStartAt(at)
	ev.SetEndAt(at)
	ev.SetSummary(summary)
	if place != "" {
		ev.SetLocation(place)
	}
}

func summary(label string, d model.DayEntry) string {
	if d.SequenceIndex > 0 {
		return fmt.Sprintf("%s (day %d)", label, d.SequenceIndex)
	}
	return label
}

// uidSafe keeps UIDs free of whitespace and '@'.
func uidSafe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '@':
			return '-'
		case r == ' ' || r == '\t':
			return '_'
		}
		return r
	}, s)
}
