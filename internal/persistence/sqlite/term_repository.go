package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/campus-spots/internal/persistence"
)

// TermRepository implements persistence.TermRepository on SQLite.
type TermRepository struct {
	pool *ConnectionPool
}

// NewTermRepository creates a SQLite-backed term repository.
func NewTermRepository(pool *ConnectionPool) *TermRepository {
	return &TermRepository{pool: pool}
}

// ReplaceTerms clears the term cache and inserts the full remote list in one
// transaction. The term catalog is small and changes infrequently, so full
// replacement is simpler than the incremental building policy.
func (r *TermRepository) ReplaceTerms(ctx context.Context, terms []persistence.CachedTerm) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM terms`); err != nil {
			return mapError(err)
		}
		return insertTermsTx(tx, terms)
	})
}

// InsertTerms adds terms without clearing existing rows, used when caching
// the current-term lookup result on a cache miss.
func (r *TermRepository) InsertTerms(ctx context.Context, terms []persistence.CachedTerm) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return insertTermsTx(tx, terms)
	})
}

// ListTerms returns all cached terms ordered by start date then id.
func (r *TermRepository) ListTerms(ctx context.Context) ([]persistence.CachedTerm, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, year, term, year_term, part_of_term, start_date, end_date
		FROM terms
		ORDER BY start_date ASC, id ASC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var terms []persistence.CachedTerm
	for rows.Next() {
		var term persistence.CachedTerm
		var startDate, endDate string
		if err := rows.Scan(&term.ID, &term.Year, &term.Term, &term.YearTerm, &term.PartOfTerm, &startDate, &endDate); err != nil {
			return nil, mapError(err)
		}
		if term.StartDate, err = time.Parse(time.RFC3339, startDate); err != nil {
			return nil, fmt.Errorf("sqlite: parse start_date: %w", err)
		}
		if term.EndDate, err = time.Parse(time.RFC3339, endDate); err != nil {
			return nil, fmt.Errorf("sqlite: parse end_date: %w", err)
		}
		terms = append(terms, term)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return terms, nil
}

func insertTermsTx(tx *sql.Tx, terms []persistence.CachedTerm) error {
	for _, term := range terms {
		if _, err := tx.Exec(`
			INSERT INTO terms (id, year, term, year_term, part_of_term, start_date, end_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				year = excluded.year,
				term = excluded.term,
				year_term = excluded.year_term,
				part_of_term = excluded.part_of_term,
				start_date = excluded.start_date,
				end_date = excluded.end_date
		`,
			term.ID, term.Year, term.Term, term.YearTerm, term.PartOfTerm,
			term.StartDate.UTC().Format(time.RFC3339),
			term.EndDate.UTC().Format(time.RFC3339),
		); err != nil {
			return mapError(err)
		}
	}
	return nil
}
