// Package testfixtures provides deterministic fixtures shared across the
// service tests: a controllable clock and sample catalog data.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/campus-spots/internal/catalog"
)

var (
	buildingCounter uint64
	roomCounter     uint64
	eventCounter    uint64
)

// referenceTime is a Monday at 12:30 in the civil zone used by availability
// math, chosen so hour-range fixtures read naturally.
var referenceTime = time.Date(2025, time.March, 3, 12, 30, 0, 0, time.UTC)

// ReferenceTime returns the shared deterministic instant used when a fixture
// does not specify its own.
func ReferenceTime() time.Time {
	return referenceTime
}

// NewBuilding produces a deterministic building with open weekday hours and a
// unique id and name.
func NewBuilding() catalog.Building {
	n := atomic.AddUint64(&buildingCounter, 1)
	hours := "Monday - Friday: 9:00AM - 10:00PM; Saturday - Sunday: Closed"
	sorted := int(n)
	return catalog.Building{
		ID:       int64(n),
		Name:     fmt.Sprintf("Building %d", n),
		Hours:    &hours,
		SortedID: &sorted,
	}
}

// NewRoom produces a deterministic room for the given building.
func NewRoom(buildingID int64) catalog.Room {
	n := atomic.AddUint64(&roomCounter, 1)
	return catalog.Room{
		ID:         int64(n),
		BuildingID: buildingID,
		RoomNumber: fmt.Sprintf("%03d", n),
	}
}

// NewEvent produces a deterministic weekday event occupying the given room
// during the given term for the hour starting at ReferenceTime.
func NewEvent(roomID, termID int64) catalog.Event {
	n := atomic.AddUint64(&eventCounter, 1)
	return catalog.Event{
		ID:         int64(n),
		RoomID:     roomID,
		TermID:     termID,
		Name:       fmt.Sprintf("Event %d", n),
		StartTime:  catalog.TimeOfDay(12 * 60),
		EndTime:    catalog.TimeOfDay(12*60 + 50),
		DaysOfWeek: "MWF",
	}
}

// SpringTerm returns a term covering ReferenceTime.
func SpringTerm(id int64) catalog.Term {
	return catalog.Term{
		ID:         id,
		Year:       2025,
		Term:       "Spring",
		YearTerm:   "2025-sp",
		PartOfTerm: "1",
		StartDate:  time.Date(2025, time.January, 21, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC),
	}
}
