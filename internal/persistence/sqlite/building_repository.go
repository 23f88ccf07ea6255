package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/campus-spots/internal/persistence"
)

// BuildingRepository implements persistence.BuildingRepository on SQLite.
type BuildingRepository struct {
	pool *ConnectionPool
}

// NewBuildingRepository creates a SQLite-backed building repository.
func NewBuildingRepository(pool *ConnectionPool) *BuildingRepository {
	return &BuildingRepository{pool: pool}
}

// UpsertBuilding writes the building row and replaces its dependent rooms,
// images, and ratings in a single transaction. Commit is per building so a
// crash mid-refresh leaves previously committed buildings intact.
func (r *BuildingRepository) UpsertBuilding(ctx context.Context, aggregate persistence.BuildingAggregate) error {
	building := aggregate.Building
	if building.ID == 0 {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO buildings (id, name, description, is_available, address, hours, favorites, comment_count, sorted_id, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				is_available = excluded.is_available,
				address = excluded.address,
				hours = excluded.hours,
				favorites = excluded.favorites,
				comment_count = excluded.comment_count,
				sorted_id = excluded.sorted_id,
				last_updated = excluded.last_updated
		`,
			building.ID,
			building.Name,
			nullString(building.Description),
			nullBool(building.IsAvailable),
			nullString(building.Address),
			nullString(building.Hours),
			building.Favorites,
			building.CommentCount,
			nullInt(building.SortedID),
			formatTime(building.LastUpdated),
		)
		if err != nil {
			return mapError(err)
		}

		for _, table := range []string{"rooms", "building_images", "building_ratings"} {
			if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE building_id = ?", table), building.ID); err != nil {
				return mapError(err)
			}
		}

		for _, room := range aggregate.Rooms {
			if _, err := tx.Exec(
				`INSERT INTO rooms (id, building_id, room_number) VALUES (?, ?, ?)`,
				room.ID, building.ID, room.RoomNumber,
			); err != nil {
				return mapError(err)
			}
		}
		for _, image := range aggregate.Images {
			if _, err := tx.Exec(
				`INSERT INTO building_images (id, building_id, url, display_order, is_primary) VALUES (?, ?, ?, ?, ?)`,
				image.ID, building.ID, image.URL, nullInt(image.DisplayOrder), nullBool(image.IsPrimary),
			); err != nil {
				return mapError(err)
			}
		}
		for _, rating := range aggregate.Ratings {
			if _, err := tx.Exec(
				`INSERT INTO building_ratings (id, user_id, building_id, rating, comment) VALUES (?, ?, ?, ?, ?)`,
				rating.ID, rating.UserID, building.ID, rating.Rating, nullString(rating.Comment),
			); err != nil {
				return mapError(err)
			}
		}

		return nil
	})
}

// GetBuilding retrieves one building aggregate by remote id.
func (r *BuildingRepository) GetBuilding(ctx context.Context, id int64) (persistence.BuildingAggregate, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, name, description, is_available, address, hours, favorites, comment_count, sorted_id, last_updated
		FROM buildings
		WHERE id = ?
	`, id)

	building, err := scanBuilding(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.BuildingAggregate{}, persistence.ErrNotFound
		}
		return persistence.BuildingAggregate{}, mapError(err)
	}

	aggregate := persistence.BuildingAggregate{Building: building}
	if aggregate.Rooms, err = r.roomsFor(ctx, id); err != nil {
		return persistence.BuildingAggregate{}, err
	}
	if aggregate.Images, err = r.imagesFor(ctx, id); err != nil {
		return persistence.BuildingAggregate{}, err
	}
	if aggregate.Ratings, err = r.ratingsFor(ctx, id); err != nil {
		return persistence.BuildingAggregate{}, err
	}

	return aggregate, nil
}

// ListBuildings returns every cached building aggregate ordered by sorted_id
// then id. Dependent rows are loaded in three grouped queries rather than per
// building.
func (r *BuildingRepository) ListBuildings(ctx context.Context) ([]persistence.BuildingAggregate, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, name, description, is_available, address, hours, favorites, comment_count, sorted_id, last_updated
		FROM buildings
		ORDER BY sorted_id ASC, id ASC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var aggregates []persistence.BuildingAggregate
	index := make(map[int64]int)
	for rows.Next() {
		building, err := scanBuilding(rows)
		if err != nil {
			return nil, mapError(err)
		}
		index[building.ID] = len(aggregates)
		aggregates = append(aggregates, persistence.BuildingAggregate{Building: building})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	if len(aggregates) == 0 {
		return nil, nil
	}

	if err := r.attachRooms(ctx, aggregates, index); err != nil {
		return nil, err
	}
	if err := r.attachImages(ctx, aggregates, index); err != nil {
		return nil, err
	}
	if err := r.attachRatings(ctx, aggregates, index); err != nil {
		return nil, err
	}

	return aggregates, nil
}

// ListBuildingIDs returns the ids of all cached buildings.
func (r *BuildingRepository) ListBuildingIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT id FROM buildings ORDER BY id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return ids, nil
}

// DeleteBuilding removes a building and its dependent rows in one
// transaction. Dependents are removed by foreign-key scan, not by following
// object references.
func (r *BuildingRepository) DeleteBuilding(ctx context.Context, id int64) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"rooms", "building_images", "building_ratings"} {
			if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE building_id = ?", table), id); err != nil {
				return mapError(err)
			}
		}

		result, err := tx.Exec(`DELETE FROM buildings WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// DeleteAllBuildings clears the building cache, used by the user-triggered
// cache clear. Terms are untouched.
func (r *BuildingRepository) DeleteAllBuildings(ctx context.Context) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"rooms", "building_images", "building_ratings", "buildings"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

func (r *BuildingRepository) roomsFor(ctx context.Context, buildingID int64) ([]persistence.CachedRoom, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, building_id, room_number FROM rooms WHERE building_id = ? ORDER BY room_number ASC, id ASC`, buildingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanRooms(rows)
}

func (r *BuildingRepository) imagesFor(ctx context.Context, buildingID int64) ([]persistence.CachedImage, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, building_id, url, display_order, is_primary FROM building_images WHERE building_id = ? ORDER BY display_order ASC, id ASC`, buildingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanImages(rows)
}

func (r *BuildingRepository) ratingsFor(ctx context.Context, buildingID int64) ([]persistence.CachedRating, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, user_id, building_id, rating, comment FROM building_ratings WHERE building_id = ? ORDER BY id ASC`, buildingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanRatings(rows)
}

func (r *BuildingRepository) attachRooms(ctx context.Context, aggregates []persistence.BuildingAggregate, index map[int64]int) error {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, building_id, room_number FROM rooms ORDER BY room_number ASC, id ASC`)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	rooms, err := scanRooms(rows)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		if i, ok := index[room.BuildingID]; ok {
			aggregates[i].Rooms = append(aggregates[i].Rooms, room)
		}
	}
	return nil
}

func (r *BuildingRepository) attachImages(ctx context.Context, aggregates []persistence.BuildingAggregate, index map[int64]int) error {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, building_id, url, display_order, is_primary FROM building_images ORDER BY display_order ASC, id ASC`)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	images, err := scanImages(rows)
	if err != nil {
		return err
	}
	for _, image := range images {
		if i, ok := index[image.BuildingID]; ok {
			aggregates[i].Images = append(aggregates[i].Images, image)
		}
	}
	return nil
}

func (r *BuildingRepository) attachRatings(ctx context.Context, aggregates []persistence.BuildingAggregate, index map[int64]int) error {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, user_id, building_id, rating, comment FROM building_ratings ORDER BY id ASC`)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	ratings, err := scanRatings(rows)
	if err != nil {
		return err
	}
	for _, rating := range ratings {
		if i, ok := index[rating.BuildingID]; ok {
			aggregates[i].Ratings = append(aggregates[i].Ratings, rating)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuilding(row rowScanner) (persistence.CachedBuilding, error) {
	var building persistence.CachedBuilding
	var description, address, hours, lastUpdated sql.NullString
	var isAvailable, sortedID sql.NullInt64

	err := row.Scan(
		&building.ID,
		&building.Name,
		&description,
		&isAvailable,
		&address,
		&hours,
		&building.Favorites,
		&building.CommentCount,
		&sortedID,
		&lastUpdated,
	)
	if err != nil {
		return persistence.CachedBuilding{}, err
	}

	building.Description = stringPtr(description)
	building.Address = stringPtr(address)
	building.Hours = stringPtr(hours)
	building.IsAvailable = boolPtr(isAvailable)
	building.SortedID = intPtr(sortedID)

	if lastUpdated.Valid && lastUpdated.String != "" {
		parsed, err := time.Parse(time.RFC3339, lastUpdated.String)
		if err != nil {
			return persistence.CachedBuilding{}, fmt.Errorf("sqlite: parse last_updated: %w", err)
		}
		building.LastUpdated = parsed
	}

	return building, nil
}

func scanRooms(rows *sql.Rows) ([]persistence.CachedRoom, error) {
	var rooms []persistence.CachedRoom
	for rows.Next() {
		var room persistence.CachedRoom
		if err := rows.Scan(&room.ID, &room.BuildingID, &room.RoomNumber); err != nil {
			return nil, mapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return rooms, nil
}

func scanImages(rows *sql.Rows) ([]persistence.CachedImage, error) {
	var images []persistence.CachedImage
	for rows.Next() {
		var image persistence.CachedImage
		var displayOrder, isPrimary sql.NullInt64
		if err := rows.Scan(&image.ID, &image.BuildingID, &image.URL, &displayOrder, &isPrimary); err != nil {
			return nil, mapError(err)
		}
		image.DisplayOrder = intPtr(displayOrder)
		image.IsPrimary = boolPtr(isPrimary)
		images = append(images, image)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return images, nil
}

func scanRatings(rows *sql.Rows) ([]persistence.CachedRating, error) {
	var ratings []persistence.CachedRating
	for rows.Next() {
		var rating persistence.CachedRating
		var comment sql.NullString
		if err := rows.Scan(&rating.ID, &rating.UserID, &rating.BuildingID, &rating.Rating, &comment); err != nil {
			return nil, mapError(err)
		}
		rating.Comment = stringPtr(comment)
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return ratings, nil
}

func nullString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullBool(value *bool) any {
	if value == nil {
		return nil
	}
	if *value {
		return 1
	}
	return 0
}

func formatTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339)
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	clone := value.String
	return &clone
}

func intPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	clone := int(value.Int64)
	return &clone
}

func boolPtr(value sql.NullInt64) *bool {
	if !value.Valid {
		return nil
	}
	clone := value.Int64 != 0
	return &clone
}
