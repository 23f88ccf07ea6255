package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// Kind classifies a parsed daily hours entry.
type Kind int

const (
	// KindClosed means the building does not open at all on the day.
	KindClosed Kind = iota
	// KindOpenAllDay means the entry reads "Open 24 hours".
	KindOpenAllDay
	// KindRange means the entry carries an open/close time range.
	KindRange
)

// DayHours is the parsed operating hours for a single weekday. For KindRange,
// Open and Close are minutes since midnight; Close exceeds 1439 when the
// range crosses midnight (e.g. 6 PM - 2 AM parses to 1080/1560).
type DayHours struct {
	Kind  Kind
	Open  int
	Close int
}

// ErrUnparseable is returned when a day entry does not match any of the
// recognized hour formats. Callers treat it as closed; the conservative
// default never reports false availability.
var ErrUnparseable = errors.New("availability: unparseable hours entry")

// ParseDayHours selects and parses the entry for the given weekday from a
// semicolon-and-space-delimited weekly hours string. Entries are ordered
// Monday-first, so Sunday maps to the last slot.
//
// Recognized entry forms, after normalizing en/em dashes to ASCII hyphens:
//   - any entry containing "Closed"
//   - any entry containing "Open 24 hours"
//   - "<Weekday>: <open> - <close>" with 12-hour clock times; an open side
//     without an AM/PM suffix inherits the close side's suffix, covering
//     shortened entries like "Monday: 6:00 - 11:00 PM"
func ParseDayHours(hours string, weekday time.Weekday) (DayHours, error) {
	entries := strings.Split(hours, "; ")

	// Monday-first rotation: Go weekdays number Sunday 0..Saturday 6, so
	// (w+6) mod 7 puts Monday in the first slot and Sunday in the last.
	index := (int(weekday) + 6) % 7
	if index >= len(entries) {
		return DayHours{}, fmt.Errorf("%w: no entry for %s", ErrUnparseable, weekday)
	}

	entry := normalizeDashes(strings.TrimSpace(entries[index]))

	if strings.Contains(entry, "Closed") {
		return DayHours{Kind: KindClosed}, nil
	}
	if strings.Contains(entry, "Open 24 hours") {
		return DayHours{Kind: KindOpenAllDay}, nil
	}

	labelAndRange := strings.Split(entry, ": ")
	if len(labelAndRange) != 2 {
		return DayHours{}, fmt.Errorf("%w: %q", ErrUnparseable, entry)
	}

	sides := strings.Split(labelAndRange[1], " - ")
	if len(sides) != 2 {
		return DayHours{}, fmt.Errorf("%w: %q", ErrUnparseable, entry)
	}

	openRaw, openSuffix := splitMeridiem(sides[0])
	closeRaw, closeSuffix := splitMeridiem(sides[1])
	if openSuffix == "" {
		openSuffix = closeSuffix
	}

	open, err := clockToMinutes(openRaw, openSuffix)
	if err != nil {
		return DayHours{}, fmt.Errorf("%w: %q: %v", ErrUnparseable, entry, err)
	}
	closeAt, err := clockToMinutes(closeRaw, closeSuffix)
	if err != nil {
		return DayHours{}, fmt.Errorf("%w: %q: %v", ErrUnparseable, entry, err)
	}

	// Ranges that close past midnight roll the close time into the next day.
	if closeAt < open {
		closeAt += minutesPerDay
	}

	return DayHours{Kind: KindRange, Open: open, Close: closeAt}, nil
}

// Evaluate reports whether a building is open at the given minute-of-day and
// the boundary minute for "open until" / "opens at". Boundaries:
//   - open within a range: the close minute (may exceed 1439 for ranges that
//     cross midnight)
//   - closed before the range opens: the open minute
//   - otherwise: nil
func Evaluate(day DayHours, minute int) (bool, *int) {
	switch day.Kind {
	case KindOpenAllDay:
		return true, nil
	case KindRange:
		if minute >= day.Open && minute <= day.Close {
			boundary := day.Close
			return true, &boundary
		}
		// Post-midnight tail of a rolled-over range: 12:30 AM is minute 30,
		// which is 1470 in the rolled frame of a 6 PM - 2 AM entry.
		if day.Close >= minutesPerDay && minute+minutesPerDay <= day.Close {
			boundary := day.Close - minutesPerDay
			return true, &boundary
		}
		if minute < day.Open {
			boundary := day.Open
			return false, &boundary
		}
		return false, nil
	default:
		return false, nil
	}
}

// Status combines parsing and evaluation for one instant. Parse failures and
// missing hours strings report closed.
func (n *Normalizer) Status(hours string, at time.Time) (bool, *int) {
	weekday, minute := n.Resolve(at)
	day, err := ParseDayHours(hours, weekday)
	if err != nil {
		return false, nil
	}
	return Evaluate(day, minute)
}

func normalizeDashes(entry string) string {
	entry = strings.ReplaceAll(entry, "–", "-") // en dash
	entry = strings.ReplaceAll(entry, "—", "-") // em dash
	return entry
}

// splitMeridiem strips a trailing AM/PM suffix, returning the bare clock text
// and the suffix ("" when absent).
func splitMeridiem(side string) (string, string) {
	trimmed := strings.TrimSpace(side)
	upper := strings.ToUpper(trimmed)
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(upper, suffix) {
			return strings.TrimSpace(trimmed[:len(trimmed)-len(suffix)]), suffix
		}
	}
	return trimmed, ""
}

// clockToMinutes converts a 12-hour clock reading plus meridiem suffix to
// minutes since midnight: 12 AM maps to 0 and 12 PM to 720.
func clockToMinutes(clock, suffix string) (int, error) {
	if suffix != "AM" && suffix != "PM" {
		return 0, fmt.Errorf("missing AM/PM suffix in %q", clock)
	}

	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock time %q", clock)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 1 || hour > 12 {
		return 0, fmt.Errorf("invalid hour in %q", clock)
	}
	min, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || min < 0 || min > 59 {
		return 0, fmt.Errorf("invalid minute in %q", clock)
	}

	hour = hour % 12
	if suffix == "PM" {
		hour += 12
	}
	return hour*60 + min, nil
}
