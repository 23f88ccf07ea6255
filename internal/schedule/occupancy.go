package schedule

import (
	"strings"
	"time"

	"github.com/example/campus-spots/internal/catalog"
)

// weekdayLetters maps time.Weekday to the single-letter codes used by event
// day-of-week strings (U,M,T,W,R,F,S for Sunday..Saturday).
var weekdayLetters = [7]string{"U", "M", "T", "W", "R", "F", "S"}

// WeekdayLetter returns the event-schedule letter code for a weekday.
func WeekdayLetter(weekday time.Weekday) string {
	return weekdayLetters[int(weekday)%7]
}

// eventActive reports whether an event occupies its room at the given weekday
// letter and minute-of-day, restricted to the current term id set. The time
// interval is inclusive on both ends.
func eventActive(event catalog.Event, termIDs map[int64]struct{}, weekdayLetter string, minute int) bool {
	if _, ok := termIDs[event.TermID]; !ok {
		return false
	}
	if !strings.Contains(event.DaysOfWeek, weekdayLetter) {
		return false
	}
	return minute >= event.StartTime.Minutes() && minute <= event.EndTime.Minutes()
}

// OccupiedRooms returns the ids of rooms that have at least one active event.
// With no current terms there is no scheduling data, so no room is occupied.
func OccupiedRooms(events []catalog.Event, termIDs map[int64]struct{}, weekdayLetter string, minute int) map[int64]struct{} {
	occupied := make(map[int64]struct{})
	if len(termIDs) == 0 {
		return occupied
	}
	for _, event := range events {
		if eventActive(event, termIDs, weekdayLetter, minute) {
			occupied[event.RoomID] = struct{}{}
		}
	}
	return occupied
}

// RoomCounts computes (totalRooms, availableRooms) for a building. A closed
// building reports zero available rooms regardless of occupancy.
func RoomCounts(rooms []catalog.Room, events []catalog.Event, termIDs map[int64]struct{}, weekdayLetter string, minute int, buildingOpen bool) (int, int) {
	total := len(rooms)
	if !buildingOpen {
		return total, 0
	}
	occupied := OccupiedRooms(events, termIDs, weekdayLetter, minute)
	available := 0
	for _, room := range rooms {
		if _, ok := occupied[room.ID]; !ok {
			available++
		}
	}
	return total, available
}

// RoomStatuses resolves the per-room detail view for a building. For an
// occupied room the boundary is the active event's end time; for an available
// room it is the start of the room's next event today, when one exists. A
// closed building reports every room closed with no boundary.
func RoomStatuses(rooms []catalog.Room, events []catalog.Event, termIDs map[int64]struct{}, weekdayLetter string, minute int, buildingOpen bool) []catalog.RoomStatus {
	statuses := make([]catalog.RoomStatus, 0, len(rooms))

	eventsByRoom := make(map[int64][]catalog.Event, len(rooms))
	for _, event := range events {
		eventsByRoom[event.RoomID] = append(eventsByRoom[event.RoomID], event)
	}

	for _, room := range rooms {
		if !buildingOpen {
			statuses = append(statuses, catalog.RoomStatus{Room: room, Kind: catalog.RoomClosed})
			continue
		}

		var active *catalog.Event
		var nextStart *catalog.TimeOfDay
		for _, event := range eventsByRoom[room.ID] {
			if eventActive(event, termIDs, weekdayLetter, minute) {
				candidate := event
				if active == nil || candidate.EndTime > active.EndTime {
					active = &candidate
				}
				continue
			}
			if _, ok := termIDs[event.TermID]; !ok {
				continue
			}
			if !strings.Contains(event.DaysOfWeek, weekdayLetter) {
				continue
			}
			if event.StartTime.Minutes() > minute {
				start := event.StartTime
				if nextStart == nil || start < *nextStart {
					nextStart = &start
				}
			}
		}

		if active != nil {
			until := active.EndTime
			statuses = append(statuses, catalog.RoomStatus{
				Room:       room,
				Kind:       catalog.RoomOccupied,
				Until:      &until,
				Event:      active,
				IsOccupied: true,
			})
			continue
		}

		statuses = append(statuses, catalog.RoomStatus{
			Room:  room,
			Kind:  catalog.RoomAvailable,
			Until: nextStart,
		})
	}

	return statuses
}
