package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/campus-spots/internal/persistence"
)

func openTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return pool
}

func sampleAggregate(id int64) persistence.BuildingAggregate {
	hours := "Monday: 6:00 AM - 11:00 PM"
	address := "1401 W Green St"
	sorted := int(id)
	primary := true
	return persistence.BuildingAggregate{
		Building: persistence.CachedBuilding{
			ID:           id,
			Name:         "Grainger Library",
			Description:  nil,
			Address:      &address,
			Hours:        &hours,
			Favorites:    12,
			CommentCount: 3,
			SortedID:     &sorted,
			LastUpdated:  time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC),
		},
		Rooms: []persistence.CachedRoom{
			{ID: id*100 + 1, BuildingID: id, RoomNumber: "101"},
			{ID: id*100 + 2, BuildingID: id, RoomNumber: "102"},
		},
		Images: []persistence.CachedImage{
			{ID: id*100 + 1, BuildingID: id, URL: "https://example.com/a.jpg", IsPrimary: &primary},
		},
		Ratings: []persistence.CachedRating{
			{ID: id*100 + 1, UserID: "user-1", BuildingID: id, Rating: 5},
		},
	}
}

func TestBuildingRepository_UpsertAndGet(t *testing.T) {
	pool := openTestPool(t)
	repo := NewBuildingRepository(pool)
	ctx := context.Background()

	aggregate := sampleAggregate(1)
	if err := repo.UpsertBuilding(ctx, aggregate); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	stored, err := repo.GetBuilding(ctx, 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Building.Name != "Grainger Library" {
		t.Fatalf("unexpected name %q", stored.Building.Name)
	}
	if stored.Building.Hours == nil || *stored.Building.Hours != "Monday: 6:00 AM - 11:00 PM" {
		t.Fatalf("unexpected hours %v", stored.Building.Hours)
	}
	if !stored.Building.LastUpdated.Equal(aggregate.Building.LastUpdated) {
		t.Fatalf("expected last_updated %v, got %v", aggregate.Building.LastUpdated, stored.Building.LastUpdated)
	}
	if len(stored.Rooms) != 2 || len(stored.Images) != 1 || len(stored.Ratings) != 1 {
		t.Fatalf("unexpected dependent counts: %d rooms, %d images, %d ratings",
			len(stored.Rooms), len(stored.Images), len(stored.Ratings))
	}
	if stored.Images[0].IsPrimary == nil || !*stored.Images[0].IsPrimary {
		t.Fatalf("expected primary image flag preserved, got %v", stored.Images[0].IsPrimary)
	}
}

func TestBuildingRepository_UpsertReplacesDependents(t *testing.T) {
	pool := openTestPool(t)
	repo := NewBuildingRepository(pool)
	ctx := context.Background()

	aggregate := sampleAggregate(1)
	if err := repo.UpsertBuilding(ctx, aggregate); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	aggregate.Building.Name = "Grainger Engineering Library"
	aggregate.Rooms = []persistence.CachedRoom{{ID: 999, BuildingID: 1, RoomNumber: "401"}}
	aggregate.Ratings = nil
	if err := repo.UpsertBuilding(ctx, aggregate); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	stored, err := repo.GetBuilding(ctx, 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Building.Name != "Grainger Engineering Library" {
		t.Fatalf("expected updated name, got %q", stored.Building.Name)
	}
	if len(stored.Rooms) != 1 || stored.Rooms[0].ID != 999 {
		t.Fatalf("expected dependent rooms replaced, got %+v", stored.Rooms)
	}
	if len(stored.Ratings) != 0 {
		t.Fatalf("expected ratings cleared, got %+v", stored.Ratings)
	}
}

func TestBuildingRepository_GetMissing(t *testing.T) {
	pool := openTestPool(t)
	repo := NewBuildingRepository(pool)

	_, err := repo.GetBuilding(context.Background(), 42)
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildingRepository_ListOrdersBySortedID(t *testing.T) {
	pool := openTestPool(t)
	repo := NewBuildingRepository(pool)
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		aggregate := sampleAggregate(id)
		sorted := int(10 - id) // reverse the insertion order
		aggregate.Building.SortedID = &sorted
		if err := repo.UpsertBuilding(ctx, aggregate); err != nil {
			t.Fatalf("insert %d failed: %v", id, err)
		}
	}

	aggregates, err := repo.ListBuildings(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(aggregates) != 3 {
		t.Fatalf("expected 3 buildings, got %d", len(aggregates))
	}
	var got []int64
	for _, aggregate := range aggregates {
		got = append(got, aggregate.Building.ID)
	}
	if got[0] != 3 || got[1] != 2 || got[2] != 1 {
		t.Fatalf("expected sorted_id order [3 2 1], got %v", got)
	}
	for _, aggregate := range aggregates {
		if len(aggregate.Rooms) != 2 {
			t.Fatalf("expected rooms attached to building %d, got %d", aggregate.Building.ID, len(aggregate.Rooms))
		}
	}
}

func TestBuildingRepository_DeleteRemovesDependents(t *testing.T) {
	pool := openTestPool(t)
	repo := NewBuildingRepository(pool)
	ctx := context.Background()

	if err := repo.UpsertBuilding(ctx, sampleAggregate(1)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := repo.DeleteBuilding(ctx, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.GetBuilding(ctx, 1); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	var count int
	if err := pool.DB().QueryRow(`SELECT COUNT(*) FROM rooms`).Scan(&count); err != nil {
		t.Fatalf("count rooms failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected dependent rooms removed, found %d", count)
	}

	if err := repo.DeleteBuilding(ctx, 1); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestBuildingRepository_DeleteAll(t *testing.T) {
	pool := openTestPool(t)
	repo := NewBuildingRepository(pool)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		if err := repo.UpsertBuilding(ctx, sampleAggregate(id)); err != nil {
			t.Fatalf("insert %d failed: %v", id, err)
		}
	}
	if err := repo.DeleteAllBuildings(ctx); err != nil {
		t.Fatalf("delete all failed: %v", err)
	}

	ids, err := repo.ListBuildingIDs(ctx)
	if err != nil {
		t.Fatalf("list ids failed: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty cache, got %v", ids)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	pool := openTestPool(t)
	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}
