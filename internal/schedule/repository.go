// Package schedule holds the immutable region -> sub-region -> day list
// dataset and the collaborators that load it.
package schedule

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"fastcal/internal/model"
)

// Repository is a read-only view over one loaded dataset. All listings are
// collated once at construction; lookups never mutate state and return
// copies, so a Repository is safe for concurrent readers.
type Repository struct {
	year  int
	title string

	regions    []string
	subRegions map[string][]string
	sequences  map[string]map[string]model.DaySequence
}

// NewRepository builds a Repository from already-decoded sequences. Names
// are ordered with the collation rules of lang.
func NewRepository(data map[string]map[string]model.DaySequence, lang language.Tag) *Repository {
	col := collate.New(lang)

	r := &Repository{
		subRegions: make(map[string][]string, len(data)),
		sequences:  make(map[string]map[string]model.DaySequence, len(data)),
	}
	for region, subs := range data {
		r.regions = append(r.regions, region)

		names := make([]string, 0, len(subs))
		seqs := make(map[string]model.DaySequence, len(subs))
		for name, seq := range subs {
			names = append(names, name)
			seqs[name] = slices.Clone(seq)
		}
		col.SortStrings(names)
		r.subRegions[region] = names
		r.sequences[region] = seqs
	}
	col.SortStrings(r.regions)
	return r
}

// Year is the dataset's declared year, 0 if absent.
func (r *Repository) Year() int { return r.year }

// Title is the dataset's optional title.
func (r *Repository) Title() string { return r.title }

// ListRegions returns all region names in collation order.
func (r *Repository) ListRegions() []string {
	if r == nil {
		return []string{}
	}
	return slices.Clone(r.regions)
}

// ListSubRegions returns the sub-regions of region in collation order, or
// an empty slice when region is unknown.
func (r *Repository) ListSubRegions(region string) []string {
	if r == nil {
		return []string{}
	}
	names, ok := r.subRegions[region]
	if !ok {
		return []string{}
	}
	return slices.Clone(names)
}

// HasRegion reports whether region is present.
func (r *Repository) HasRegion(region string) bool {
	if r == nil {
		return false
	}
	_, ok := r.subRegions[region]
	return ok
}

// Resolve returns the day sequence for (region, subRegion). Unknown keys and
// values that were not well-formed lists resolve to an empty sequence.
func (r *Repository) Resolve(region, subRegion string) model.DaySequence {
	if r == nil {
		return model.DaySequence{}
	}
	seq, ok := r.sequences[region][subRegion]
	if !ok {
		return model.DaySequence{}
	}
	return slices.Clone(seq)
}
