package schedule

import (
	"testing"
	"time"

	"github.com/example/campus-spots/internal/availability"
	"github.com/example/campus-spots/internal/catalog"
)

func utcResolver() *Resolver {
	return NewResolver(availability.NewNormalizer(time.UTC))
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestCurrentTerms_OverlappingTerms(t *testing.T) {
	full := catalog.Term{
		ID:         1,
		Year:       2025,
		Term:       "Spring",
		YearTerm:   "2025-sp",
		PartOfTerm: "1",
		StartDate:  day(2025, time.January, 1),
		EndDate:    day(2025, time.May, 15),
	}
	sub := catalog.Term{
		ID:         2,
		Year:       2025,
		Term:       "Spring",
		YearTerm:   "2025-sp",
		PartOfTerm: "A",
		StartDate:  day(2025, time.January, 1),
		EndDate:    day(2025, time.February, 28),
	}
	resolver := utcResolver()
	terms := []catalog.Term{full, sub}

	t.Run("both terms current mid overlap", func(t *testing.T) {
		matched := resolver.CurrentTerms(day(2025, time.February, 1), terms)
		if len(matched) != 2 {
			t.Fatalf("expected 2 terms, got %d", len(matched))
		}
	})

	t.Run("only full term after sub-term ends", func(t *testing.T) {
		matched := resolver.CurrentTerms(day(2025, time.March, 1), terms)
		if len(matched) != 1 {
			t.Fatalf("expected 1 term, got %d", len(matched))
		}
		if matched[0].ID != full.ID {
			t.Fatalf("expected the full term, got id %d", matched[0].ID)
		}
	})

	t.Run("end date matches through end of day", func(t *testing.T) {
		late := time.Date(2025, time.February, 28, 22, 30, 0, 0, time.UTC)
		matched := resolver.CurrentTerms(late, terms)
		if len(matched) != 2 {
			t.Fatalf("expected the sub-term on its final evening, got %d terms", len(matched))
		}
	})

	t.Run("no match yields empty slice", func(t *testing.T) {
		matched := resolver.CurrentTerms(day(2025, time.June, 1), terms)
		if len(matched) != 0 {
			t.Fatalf("expected no terms, got %d", len(matched))
		}
	})
}

func TestCurrentTermIDs(t *testing.T) {
	resolver := utcResolver()
	terms := []catalog.Term{
		{ID: 7, StartDate: day(2025, time.January, 1), EndDate: day(2025, time.May, 15)},
		{ID: 8, StartDate: day(2025, time.August, 20), EndDate: day(2025, time.December, 18)},
	}

	ids := resolver.CurrentTermIDs(day(2025, time.March, 10), terms)
	if len(ids) != 1 {
		t.Fatalf("expected one id, got %v", ids)
	}
	if _, ok := ids[7]; !ok {
		t.Fatalf("expected id 7, got %v", ids)
	}
}
