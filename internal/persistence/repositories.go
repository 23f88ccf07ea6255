package persistence

import "context"

// BuildingRepository stores the local mirror of the remote building catalog.
// Implementations must make UpsertBuilding atomic per building and remove
// dependent rows by foreign-key scan on delete.
type BuildingRepository interface {
	UpsertBuilding(ctx context.Context, aggregate BuildingAggregate) error
	GetBuilding(ctx context.Context, id int64) (BuildingAggregate, error)
	ListBuildings(ctx context.Context) ([]BuildingAggregate, error)
	ListBuildingIDs(ctx context.Context) ([]int64, error)
	DeleteBuilding(ctx context.Context, id int64) error
	DeleteAllBuildings(ctx context.Context) error
}

// TermRepository stores the cached academic term catalog. The term cache is
// small and refreshed wholesale, hence ReplaceTerms rather than upserts.
type TermRepository interface {
	ReplaceTerms(ctx context.Context, terms []CachedTerm) error
	InsertTerms(ctx context.Context, terms []CachedTerm) error
	ListTerms(ctx context.Context) ([]CachedTerm, error)
}
