package countdown

// Phase classifies "now" against the selected sequence's boundaries.
type Phase int

const (
	// NotSelected: no selection, or the selection resolved to nothing.
	NotSelected Phase = iota
	// NoScheduleForToday: today has no usable entry (outside the period,
	// a gap, or malformed times).
	NoScheduleForToday
	// BeforeStart: both of today's boundaries are still ahead.
	BeforeStart
	// BetweenStartAndEnd: the fast has started; only the end is ahead.
	BetweenStartAndEnd
	// AfterEndNoNext: today is done and the period is over.
	AfterEndNoNext
	// AfterEndHasNext: today is done; counting to the next entry.
	AfterEndHasNext
)

var phaseNames = [...]string{
	NotSelected:        "not_selected",
	NoScheduleForToday: "no_schedule_for_today",
	BeforeStart:        "before_start",
	BetweenStartAndEnd: "between_start_and_end",
	AfterEndNoNext:     "after_end_no_next",
	AfterEndHasNext:    "after_end_has_next",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// MarshalText renders the phase by name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Counting reports whether the phase produces numeric countdowns.
func (p Phase) Counting() bool {
	return p == BeforeStart || p == BetweenStartAndEnd || p == AfterEndHasNext
}

// Display sentinels shown instead of a countdown.
const (
	SentinelNotActive = "Not active"
	SentinelPassed    = "Passed"
	SentinelEnded     = "Period ended"
	SentinelLoadError = "Error loading data"
)
