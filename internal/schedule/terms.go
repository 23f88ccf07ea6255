// Package schedule resolves which academic terms are current and which rooms
// are occupied by scheduled events.
package schedule

import (
	"time"

	"github.com/example/campus-spots/internal/availability"
	"github.com/example/campus-spots/internal/catalog"
)

// Resolver answers term and occupancy questions against a fixed civil zone.
type Resolver struct {
	normalizer *availability.Normalizer
}

// NewResolver constructs a Resolver. A nil normalizer defaults to the
// America/Chicago civil zone.
func NewResolver(normalizer *availability.Normalizer) *Resolver {
	if normalizer == nil {
		normalizer = availability.NewNormalizer(nil)
	}
	return &Resolver{normalizer: normalizer}
}

// Normalizer exposes the underlying time normalizer.
func (r *Resolver) Normalizer() *availability.Normalizer {
	return r.normalizer
}

// CurrentTerms returns every term whose inclusive date range contains asOf.
// The end date is extended to 23:59:59 in the civil zone so a term remains
// current through its entire final day. Overlapping matches are expected: a
// full term and a sub-session can both be current. An empty result means "no
// scheduling data", never an error.
func (r *Resolver) CurrentTerms(asOf time.Time, terms []catalog.Term) []catalog.Term {
	matched := make([]catalog.Term, 0, len(terms))
	for _, term := range terms {
		if asOf.Before(term.StartDate) {
			continue
		}
		if asOf.After(r.normalizer.EndOfDay(term.EndDate)) {
			continue
		}
		matched = append(matched, term)
	}
	return matched
}

// CurrentTermIDs is CurrentTerms reduced to the id set used by event filters.
func (r *Resolver) CurrentTermIDs(asOf time.Time, terms []catalog.Term) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, term := range r.CurrentTerms(asOf, terms) {
		ids[term.ID] = struct{}{}
	}
	return ids
}
