package model

// DayEntry is one calendar day of the fasting schedule. Times are local
// wall-clock values in the configured fixed UTC offset.
type DayEntry struct {
	// Date is the calendar date in ISO form (YYYY-MM-DD).
	Date string `json:"date"`

	// SequenceIndex is the day's ordinal within the fasting period (1..30).
	// It drives display grouping only; ordering always follows Date.
	SequenceIndex int `json:"ramadan_day"`

	// FastStart is the earlier daily boundary (sehri end), "HH:MM".
	FastStart string `json:"sahri_end"`

	// FastEnd is the later daily boundary (iftar), "HH:MM".
	FastEnd string `json:"iftar"`
}

// DaySequence is a list of entries strictly increasing by Date. Dates may
// have gaps.
type DaySequence []DayEntry

// IndexOf returns the position of the entry for date, or -1.
func (s DaySequence) IndexOf(date string) int {
	for i := range s {
		if s[i].Date == date {
			return i
		}
	}
	return -1
}

// Find returns the entry for date, if present.
func (s DaySequence) Find(date string) (DayEntry, bool) {
	i := s.IndexOf(date)
	if i < 0 {
		return DayEntry{}, false
	}
	return s[i], true
}
