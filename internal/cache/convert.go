package cache

import (
	"time"

	"github.com/example/campus-spots/internal/catalog"
	"github.com/example/campus-spots/internal/persistence"
)

// toAggregate packs a remote building row and its dependents into the
// persistence shape, stamping the refresh time.
func toAggregate(building catalog.Building, rooms []catalog.Room, images []catalog.BuildingImage, ratings []catalog.BuildingRating, refreshedAt time.Time) persistence.BuildingAggregate {
	aggregate := persistence.BuildingAggregate{
		Building: persistence.CachedBuilding{
			ID:           building.ID,
			Name:         building.Name,
			Description:  building.Description,
			IsAvailable:  building.IsAvailable,
			Address:      building.Address,
			Hours:        building.Hours,
			Favorites:    building.Favorites,
			CommentCount: building.CommentCount,
			SortedID:     building.SortedID,
			LastUpdated:  refreshedAt,
		},
	}
	for _, room := range rooms {
		aggregate.Rooms = append(aggregate.Rooms, persistence.CachedRoom(room))
	}
	for _, image := range images {
		aggregate.Images = append(aggregate.Images, persistence.CachedImage(image))
	}
	for _, rating := range ratings {
		aggregate.Ratings = append(aggregate.Ratings, persistence.CachedRating(rating))
	}
	return aggregate
}

// fromAggregate unpacks a cached aggregate back into catalog types.
func fromAggregate(aggregate persistence.BuildingAggregate) (catalog.Building, []catalog.Room, []catalog.BuildingImage, []catalog.BuildingRating) {
	building := catalog.Building{
		ID:           aggregate.Building.ID,
		Name:         aggregate.Building.Name,
		Description:  aggregate.Building.Description,
		IsAvailable:  aggregate.Building.IsAvailable,
		Address:      aggregate.Building.Address,
		Hours:        aggregate.Building.Hours,
		Favorites:    aggregate.Building.Favorites,
		CommentCount: aggregate.Building.CommentCount,
		SortedID:     aggregate.Building.SortedID,
	}
	rooms := make([]catalog.Room, 0, len(aggregate.Rooms))
	for _, room := range aggregate.Rooms {
		rooms = append(rooms, catalog.Room(room))
	}
	images := make([]catalog.BuildingImage, 0, len(aggregate.Images))
	for _, image := range aggregate.Images {
		images = append(images, catalog.BuildingImage(image))
	}
	ratings := make([]catalog.BuildingRating, 0, len(aggregate.Ratings))
	for _, rating := range aggregate.Ratings {
		ratings = append(ratings, catalog.BuildingRating(rating))
	}
	return building, rooms, images, ratings
}

func termsToCache(terms []catalog.Term) []persistence.CachedTerm {
	cached := make([]persistence.CachedTerm, 0, len(terms))
	for _, term := range terms {
		cached = append(cached, persistence.CachedTerm(term))
	}
	return cached
}

func termsFromCache(cached []persistence.CachedTerm) []catalog.Term {
	terms := make([]catalog.Term, 0, len(cached))
	for _, term := range cached {
		terms = append(terms, catalog.Term(term))
	}
	return terms
}
