// Package catalog defines the remote-owned domain types mirrored by the
// local cache: buildings, rooms, academic terms, scheduled events, and the
// derived snapshot handed to presentation.
package catalog

import (
	"fmt"
	"sort"
	"time"
)

// Building is a catalog entry owned by the remote side. Optional columns are
// pointers; absence is data, not an error.
type Building struct {
	ID           int64
	Name         string
	Description  *string
	IsAvailable  *bool
	Address      *string
	Hours        *string
	Favorites    int
	CommentCount int
	SortedID     *int
}

// Room belongs to exactly one building.
type Room struct {
	ID         int64
	BuildingID int64
	RoomNumber string
}

// Term is an academic scheduling period. Terms may overlap: a full term and a
// sub-session can both be current on the same date.
type Term struct {
	ID         int64
	Year       int
	Term       string
	YearTerm   string
	PartOfTerm string
	StartDate  time.Time
	EndDate    time.Time
}

// TimeOfDay is a minute offset from midnight in the civil time zone.
type TimeOfDay int

// Minutes returns the offset as an int for arithmetic against parsed hours.
func (t TimeOfDay) Minutes() int { return int(t) }

// String renders the offset as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Event is a recurring scheduled occupation of a room during a term.
// DaysOfWeek uses single-letter codes U,M,T,W,R,F,S for Sunday..Saturday.
type Event struct {
	ID         int64
	RoomID     int64
	TermID     int64
	Name       string
	StartTime  TimeOfDay
	EndTime    TimeOfDay
	DaysOfWeek string
}

// BuildingImage is a carousel entry for a building.
type BuildingImage struct {
	ID           int64
	BuildingID   int64
	URL          string
	DisplayOrder *int
	IsPrimary    *bool
}

// BuildingRating is a user-submitted rating with an optional comment.
type BuildingRating struct {
	ID         int64
	UserID     string
	BuildingID int64
	Rating     int
	Comment    *string
}

// BuildingFavorite is the join row linking a user to a favorited building.
type BuildingFavorite struct {
	ID         int64
	UserID     string
	BuildingID int64
}

// BuildingSnapshot is the derived unit handed to presentation: the building
// plus time-dependent availability computed at read time.
type BuildingSnapshot struct {
	Building       Building
	IsOpen         bool
	TotalRooms     int
	AvailableRooms int
	Ratings        []BuildingRating
	Images         []BuildingImage
	IsFavorited    bool
}

// RoomStatusKind classifies the current state of a single room.
type RoomStatusKind string

const (
	// RoomAvailable means the building is open and no event occupies the room.
	RoomAvailable RoomStatusKind = "available"
	// RoomOccupied means a scheduled event is in progress for the room.
	RoomOccupied RoomStatusKind = "occupied"
	// RoomClosed means the building is closed; occupancy is irrelevant.
	RoomClosed RoomStatusKind = "closed"
)

// RoomStatus is the per-room availability result for a building detail view.
// Until carries the boundary minute for "available/occupied until" and is nil
// when no boundary applies (closed, or available with no further events).
type RoomStatus struct {
	Room       Room
	Kind       RoomStatusKind
	Until      *TimeOfDay
	Event      *Event
	IsOccupied bool
}

// SortImages orders images for display: primary images first, then ascending
// display order.
func SortImages(images []BuildingImage) {
	sort.SliceStable(images, func(i, j int) bool {
		iPrimary := images[i].IsPrimary != nil && *images[i].IsPrimary
		jPrimary := images[j].IsPrimary != nil && *images[j].IsPrimary
		if iPrimary != jPrimary {
			return iPrimary
		}
		return displayOrder(images[i]) < displayOrder(images[j])
	})
}

func displayOrder(image BuildingImage) int {
	if image.DisplayOrder == nil {
		return 0
	}
	return *image.DisplayOrder
}

// SortSnapshots re-establishes the stable presentation order after concurrent
// refreshes: ascending SortedID, ties broken by building id.
func SortSnapshots(snapshots []BuildingSnapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		a, b := sortedID(snapshots[i].Building), sortedID(snapshots[j].Building)
		if a == b {
			return snapshots[i].Building.ID < snapshots[j].Building.ID
		}
		return a < b
	})
}

func sortedID(building Building) int {
	if building.SortedID == nil {
		return 0
	}
	return *building.SortedID
}
