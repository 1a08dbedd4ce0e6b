package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/jsonc"
	"golang.org/x/text/language"

	appLog "fastcal/internal/log"
	"fastcal/internal/model"
)

// document is the top-level dataset shape. Region and sub-region values are
// kept raw so that one malformed branch does not reject the whole file.
type document struct {
	Year  int                        `json:"year"`
	Title string                     `json:"title"`
	Data  map[string]json.RawMessage `json:"data"`
}

// Parse decodes a dataset body. Comments and trailing commas are accepted.
//
//   - A region whose value is not an object is listed with no sub-regions.
//   - A sub-region whose value is not a list resolves to an empty sequence.
//   - A list element that is not a day object is dropped; an element with
//     unparsable time strings is kept and left to the countdown engine.
//   - Entries are ordered by date; repeated dates keep the first entry.
func Parse(body []byte, lang language.Tag) (*Repository, error) {
	if len(body) == 0 {
		return nil, errors.New("empty dataset body")
	}

	var doc document
	if err := json.Unmarshal(jsonc.ToJSON(body), &doc); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	data := make(map[string]map[string]model.DaySequence, len(doc.Data))
	for region, raw := range doc.Data {
		var subs map[string]json.RawMessage
		if err := json.Unmarshal(raw, &subs); err != nil {
			appLog.Warn("dataset region is not an object", "region", region)
			data[region] = map[string]model.DaySequence{}
			continue
		}

		seqs := make(map[string]model.DaySequence, len(subs))
		for name, rawList := range subs {
			seqs[name] = parseSequence(region, name, rawList)
		}
		data[region] = seqs
	}

	repo := NewRepository(data, lang)
	repo.year = doc.Year
	repo.title = doc.Title

	appLog.Info("dataset parsed", "regions", len(data), "year", doc.Year)
	return repo, nil
}

func parseSequence(region, subRegion string, raw json.RawMessage) model.DaySequence {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		appLog.Warn("dataset sub-region is not a list", "region", region, "sub_region", subRegion)
		return model.DaySequence{}
	}

	seq := make(model.DaySequence, 0, len(items))
	for i, item := range items {
		var e model.DayEntry
		if err := json.Unmarshal(item, &e); err != nil {
			appLog.Warn("dataset day entry dropped", "region", region, "sub_region", subRegion, "index", i, "reason", err.Error())
			continue
		}
		seq = append(seq, e)
	}

	sort.SliceStable(seq, func(i, j int) bool { return seq[i].Date < seq[j].Date })

	out := seq[:0]
	for i, e := range seq {
		if i > 0 && e.Date == out[len(out)-1].Date {
			appLog.Warn("dataset duplicate date ignored", "region", region, "sub_region", subRegion, "date", e.Date)
			continue
		}
		out = append(out, e)
	}
	return out
}
