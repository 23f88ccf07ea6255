package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/campus-spots/internal/catalog"
)

type buildingRow struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	IsAvailable  *bool   `json:"is_available"`
	Address      *string `json:"address"`
	Hours        *string `json:"hours"`
	Favorites    *int    `json:"favorites"`
	CommentCount *int    `json:"comment_count"`
	SortedID     *int    `json:"sorted_id"`
}

func (r buildingRow) toDomain() catalog.Building {
	building := catalog.Building{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsAvailable: r.IsAvailable,
		Address:     r.Address,
		Hours:       r.Hours,
		SortedID:    r.SortedID,
	}
	if r.Favorites != nil {
		building.Favorites = *r.Favorites
	}
	if r.CommentCount != nil {
		building.CommentCount = *r.CommentCount
	}
	return building
}

type roomRow struct {
	ID         int64  `json:"id"`
	BuildingID int64  `json:"building_id"`
	RoomNumber string `json:"room_number"`
}

type imageRow struct {
	ID           int64  `json:"id"`
	BuildingID   int64  `json:"building_id"`
	URL          string `json:"url"`
	DisplayOrder *int   `json:"display_order"`
	IsPrimary    *bool  `json:"is_primary"`
}

type ratingRow struct {
	ID         int64   `json:"id"`
	UserID     string  `json:"user_id"`
	BuildingID int64   `json:"building_id"`
	Rating     int     `json:"rating"`
	Comment    *string `json:"comment"`
}

type termRow struct {
	ID         int64  `json:"id"`
	Year       int    `json:"year"`
	Term       string `json:"term"`
	YearTerm   string `json:"year_term"`
	PartOfTerm string `json:"part_of_term"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

func (r termRow) toDomain() (catalog.Term, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return catalog.Term{}, fmt.Errorf("remote: term %d start date: %w", r.ID, err)
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return catalog.Term{}, fmt.Errorf("remote: term %d end date: %w", r.ID, err)
	}
	return catalog.Term{
		ID:         r.ID,
		Year:       r.Year,
		Term:       r.Term,
		YearTerm:   r.YearTerm,
		PartOfTerm: r.PartOfTerm,
		StartDate:  start,
		EndDate:    end,
	}, nil
}

type eventRow struct {
	ID         int64  `json:"id"`
	RoomID     int64  `json:"room_id"`
	TermID     int64  `json:"term_id"`
	Name       string `json:"name"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	DaysOfWeek string `json:"days_of_week"`
}

func (r eventRow) toDomain() (catalog.Event, error) {
	start, err := parseClock(r.StartTime)
	if err != nil {
		return catalog.Event{}, fmt.Errorf("remote: event %d start time: %w", r.ID, err)
	}
	end, err := parseClock(r.EndTime)
	if err != nil {
		return catalog.Event{}, fmt.Errorf("remote: event %d end time: %w", r.ID, err)
	}
	return catalog.Event{
		ID:         r.ID,
		RoomID:     r.RoomID,
		TermID:     r.TermID,
		Name:       r.Name,
		StartTime:  start,
		EndTime:    end,
		DaysOfWeek: r.DaysOfWeek,
	}, nil
}

type favoriteRow struct {
	ID         int64  `json:"id"`
	UserID     string `json:"user_id"`
	BuildingID int64  `json:"building_id"`
}

// parseDate accepts the backend's plain date column format and, for safety,
// full timestamps.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", value)
	}
	return t, nil
}

// parseClock converts an HH:MM:SS (or HH:MM) time column to a minute offset.
func parseClock(value string) (catalog.TimeOfDay, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("unrecognized time %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("unrecognized time %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("unrecognized time %q", value)
	}
	return catalog.TimeOfDay(hour*60 + minute), nil
}

// ListBuildings returns one catalog page ordered by presentation position.
func (c *Client) ListBuildings(ctx context.Context, limit, offset int) ([]catalog.Building, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "sorted_id.asc")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var rows []buildingRow
	if err := c.get(ctx, "buildings", query, &rows); err != nil {
		return nil, err
	}
	buildings := make([]catalog.Building, 0, len(rows))
	for _, row := range rows {
		buildings = append(buildings, row.toDomain())
	}
	return buildings, nil
}

// CountBuildings reports the catalog size for pagination.
func (c *Client) CountBuildings(ctx context.Context) (int, error) {
	return c.count(ctx, "buildings")
}

// GetRooms returns every room belonging to the building.
func (c *Client) GetRooms(ctx context.Context, buildingID int64) ([]catalog.Room, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("building_id", eqFilter(buildingID))

	var rows []roomRow
	if err := c.get(ctx, "rooms", query, &rows); err != nil {
		return nil, err
	}
	rooms := make([]catalog.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, catalog.Room(row))
	}
	return rooms, nil
}

// GetBuildingImages returns the building's carousel images in display order.
func (c *Client) GetBuildingImages(ctx context.Context, buildingID int64) ([]catalog.BuildingImage, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("building_id", eqFilter(buildingID))
	query.Set("order", "display_order.asc")

	var rows []imageRow
	if err := c.get(ctx, "building_images", query, &rows); err != nil {
		return nil, err
	}
	images := make([]catalog.BuildingImage, 0, len(rows))
	for _, row := range rows {
		images = append(images, catalog.BuildingImage(row))
	}
	return images, nil
}

// GetBuildingRatings returns the building's user ratings.
func (c *Client) GetBuildingRatings(ctx context.Context, buildingID int64) ([]catalog.BuildingRating, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("building_id", eqFilter(buildingID))

	var rows []ratingRow
	if err := c.get(ctx, "building_ratings", query, &rows); err != nil {
		return nil, err
	}
	ratings := make([]catalog.BuildingRating, 0, len(rows))
	for _, row := range rows {
		ratings = append(ratings, catalog.BuildingRating(row))
	}
	return ratings, nil
}

// GetEvents returns scheduled events for the given rooms during the given
// terms. Empty id sets match nothing and short-circuit locally.
func (c *Client) GetEvents(ctx context.Context, roomIDs, termIDs []int64) ([]catalog.Event, error) {
	if len(roomIDs) == 0 || len(termIDs) == 0 {
		return nil, nil
	}
	query := url.Values{}
	query.Set("select", "*")
	query.Set("room_id", inFilter(roomIDs))
	query.Set("term_id", inFilter(termIDs))

	var rows []eventRow
	if err := c.get(ctx, "events", query, &rows); err != nil {
		return nil, err
	}
	events := make([]catalog.Event, 0, len(rows))
	for _, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// GetAllTerms returns the full term table ordered by start date.
func (c *Client) GetAllTerms(ctx context.Context) ([]catalog.Term, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "start_date.asc")

	var rows []termRow
	if err := c.get(ctx, "terms", query, &rows); err != nil {
		return nil, err
	}
	terms := make([]catalog.Term, 0, len(rows))
	for _, row := range rows {
		term, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// GetCurrentTerms returns terms whose date range covers the given day. The
// filter is inclusive on both ends; overlapping terms all match.
func (c *Client) GetCurrentTerms(ctx context.Context, asOf time.Time) ([]catalog.Term, error) {
	day := asOf.Format("2006-01-02")
	query := url.Values{}
	query.Set("select", "*")
	query.Set("start_date", "lte."+day)
	query.Set("end_date", "gte."+day)

	var rows []termRow
	if err := c.get(ctx, "terms", query, &rows); err != nil {
		return nil, err
	}
	terms := make([]catalog.Term, 0, len(rows))
	for _, row := range rows {
		term, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// GetUserFavorites returns the building ids the user has favorited. A user
// with no favorites yields an empty slice, not an error.
func (c *Client) GetUserFavorites(ctx context.Context, userID string) ([]int64, error) {
	query := url.Values{}
	query.Set("select", "building_id")
	query.Set("user_id", "eq."+userID)

	var rows []favoriteRow
	err := c.get(ctx, "building_favorites", query, &rows)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.BuildingID)
	}
	return ids, nil
}

// InsertFavorite records that the user favorited the building.
func (c *Client) InsertFavorite(ctx context.Context, userID string, buildingID int64) error {
	body := []map[string]any{{
		"user_id":     userID,
		"building_id": buildingID,
	}}
	return c.do(ctx, "POST", "building_favorites", nil, body, "return=minimal", nil)
}

// DeleteFavorite removes the user's favorite for the building. Deleting a
// favorite that does not exist is not an error.
func (c *Client) DeleteFavorite(ctx context.Context, userID string, buildingID int64) error {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("building_id", eqFilter(buildingID))
	err := c.do(ctx, "DELETE", "building_favorites", query, nil, "", nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// UpdateBuildingFavorites writes the building's denormalized favorite count.
func (c *Client) UpdateBuildingFavorites(ctx context.Context, buildingID int64, favorites int) error {
	query := url.Values{}
	query.Set("id", eqFilter(buildingID))
	body := map[string]any{"favorites": favorites}
	return c.do(ctx, "PATCH", "buildings", query, body, "return=minimal", nil)
}
