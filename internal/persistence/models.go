package persistence

import "time"

// CachedBuilding is the denormalized local mirror of a remote building row.
// LastUpdated drives the freshness policy; a zero value means the row has
// never been refreshed and is treated as stale.
type CachedBuilding struct {
	ID           int64
	Name         string
	Description  *string
	IsAvailable  *bool
	Address      *string
	Hours        *string
	Favorites    int
	CommentCount int
	SortedID     *int
	LastUpdated  time.Time
}

// CachedRoom mirrors a remote room row, keyed by the remote integer id with
// an explicit foreign key to its building.
type CachedRoom struct {
	ID         int64
	BuildingID int64
	RoomNumber string
}

// CachedImage mirrors a remote building image row.
type CachedImage struct {
	ID           int64
	BuildingID   int64
	URL          string
	DisplayOrder *int
	IsPrimary    *bool
}

// CachedRating mirrors a remote building rating row.
type CachedRating struct {
	ID         int64
	UserID     string
	BuildingID int64
	Rating     int
	Comment    *string
}

// CachedTerm mirrors a remote academic term row. Terms carry no per-row
// staleness; the term cache is refreshed by full replacement.
type CachedTerm struct {
	ID         int64
	Year       int
	Term       string
	YearTerm   string
	PartOfTerm string
	StartDate  time.Time
	EndDate    time.Time
}

// BuildingAggregate bundles a building row with its dependent rows. Upserts
// persist the whole aggregate in one transaction so readers never observe a
// torn building.
type BuildingAggregate struct {
	Building CachedBuilding
	Rooms    []CachedRoom
	Images   []CachedImage
	Ratings  []CachedRating
}
