package schedule

import "fastcal/internal/model"

// Group is one display block of ten fasting days.
type Group struct {
	Name string            `json:"name"`
	From int               `json:"from"`
	To   int               `json:"to"`
	Days model.DaySequence `json:"days"`
}

// Groups splits seq into the three ten-day blocks by SequenceIndex. Entries
// with an index outside 1..30 appear in no group; they still take part in
// countdown lookups by date.
func Groups(seq model.DaySequence) []Group {
	groups := []Group{
		{Name: "Rahmah", From: 1, To: 10, Days: model.DaySequence{}},
		{Name: "Maghfirah", From: 11, To: 20, Days: model.DaySequence{}},
		{Name: "Najah", From: 21, To: 30, Days: model.DaySequence{}},
	}
	for _, e := range seq {
		for i := range groups {
			if e.SequenceIndex >= groups[i].From && e.SequenceIndex <= groups[i].To {
				groups[i].Days = append(groups[i].Days, e)
				break
			}
		}
	}
	return groups
}
