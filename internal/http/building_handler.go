package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/campus-spots/internal/cache"
	"github.com/example/campus-spots/internal/catalog"
)

type buildingService interface {
	LoadCached(ctx context.Context) ([]catalog.BuildingSnapshot, error)
	Refresh(ctx context.Context) error
	BuildingRoomStatuses(ctx context.Context, buildingID int64) ([]catalog.RoomStatus, error)
	UserFavorites(ctx context.Context, userID string) ([]int64, error)
	SetFavorite(ctx context.Context, userID string, buildingID int64, favorited bool) error
}

type BuildingHandler struct {
	service   buildingService
	responder responder
	logger    *slog.Logger
}

func NewBuildingHandler(service buildingService, logger *slog.Logger) *BuildingHandler {
	base := defaultLogger(logger)
	return &BuildingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BuildingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BuildingHandler", operation, attrs...)
}

// List serves the cached building snapshots. With refresh=1 the remote
// catalog is merged first; a refresh failure still returns the last cached
// state with a transient-failure marker rather than an error.
func (h *BuildingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")

	refreshFailed := false
	if r.URL.Query().Get("refresh") == "1" {
		if err := h.service.Refresh(r.Context()); err != nil {
			logger.WarnContext(r.Context(), "refresh failed, serving cached state", "error", err, "error_kind", cache.ErrorKind(err))
			refreshFailed = true
		}
	}

	snapshots, err := h.service.LoadCached(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "loading cached buildings failed", "error", err, "error_kind", cache.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	favorited := make(map[int64]struct{})
	if userID := strings.TrimSpace(r.URL.Query().Get("user_id")); userID != "" {
		ids, err := h.service.UserFavorites(r.Context(), userID)
		if err != nil {
			logger.WarnContext(r.Context(), "favorites unavailable", "error", err, "error_kind", cache.ErrorKind(err))
		}
		for _, id := range ids {
			favorited[id] = struct{}{}
		}
	}

	dtos := make([]buildingDTO, 0, len(snapshots))
	for _, snapshot := range snapshots {
		_, isFavorited := favorited[snapshot.Building.ID]
		dtos = append(dtos, toBuildingDTO(snapshot, isFavorited))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, buildingListResponse{
		Buildings:     dtos,
		RefreshFailed: refreshFailed,
	})
}

// RoomStatuses serves the per-room detail view for one building.
func (h *BuildingHandler) RoomStatuses(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	buildingID, ok := buildingIDFromRequest(r)
	if !ok {
		h.log(r.Context(), "RoomStatuses", "error_kind", "bad_request").ErrorContext(r.Context(), "missing or malformed building id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBuildingID)
		return
	}

	logger := h.log(r.Context(), "RoomStatuses", "building_id", buildingID)

	statuses, err := h.service.BuildingRoomStatuses(r.Context(), buildingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "room status resolution failed", "error", err, "error_kind", cache.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]roomStatusDTO, 0, len(statuses))
	for _, status := range statuses {
		dtos = append(dtos, toRoomStatusDTO(status))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomStatusResponse{Rooms: dtos})
}

// Favorite records or removes a user's favorite for one building.
func (h *BuildingHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	buildingID, ok := buildingIDFromRequest(r)
	if !ok {
		h.log(r.Context(), "Favorite", "error_kind", "bad_request").ErrorContext(r.Context(), "missing or malformed building id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBuildingID)
		return
	}

	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Favorite", "building_id", buildingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode favorite request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Favorite", "building_id", buildingID, "favorited", req.Favorited)

	if err := h.service.SetFavorite(r.Context(), req.UserID, buildingID, req.Favorited); err != nil {
		logger.ErrorContext(r.Context(), "favorite update failed", "error", err, "error_kind", cache.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "favorite updated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func buildingIDFromRequest(r *http.Request) (int64, bool) {
	raw, ok := BuildingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type buildingListResponse struct {
	Buildings     []buildingDTO `json:"buildings"`
	RefreshFailed bool          `json:"refresh_failed,omitempty"`
}

type buildingDTO struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Description    *string     `json:"description,omitempty"`
	Address        *string     `json:"address,omitempty"`
	Hours          *string     `json:"hours,omitempty"`
	Favorites      int         `json:"favorites"`
	CommentCount   int         `json:"comment_count"`
	SortedID       *int        `json:"sorted_id,omitempty"`
	IsOpen         bool        `json:"is_open"`
	TotalRooms     int         `json:"total_rooms"`
	AvailableRooms int         `json:"available_rooms"`
	IsFavorited    bool        `json:"is_favorited"`
	Images         []imageDTO  `json:"images,omitempty"`
	Ratings        []ratingDTO `json:"ratings,omitempty"`
}

type imageDTO struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	DisplayOrder *int   `json:"display_order,omitempty"`
	IsPrimary    *bool  `json:"is_primary,omitempty"`
}

type ratingDTO struct {
	ID      int64   `json:"id"`
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

func toBuildingDTO(snapshot catalog.BuildingSnapshot, isFavorited bool) buildingDTO {
	dto := buildingDTO{
		ID:             snapshot.Building.ID,
		Name:           snapshot.Building.Name,
		Description:    snapshot.Building.Description,
		Address:        snapshot.Building.Address,
		Hours:          snapshot.Building.Hours,
		Favorites:      snapshot.Building.Favorites,
		CommentCount:   snapshot.Building.CommentCount,
		SortedID:       snapshot.Building.SortedID,
		IsOpen:         snapshot.IsOpen,
		TotalRooms:     snapshot.TotalRooms,
		AvailableRooms: snapshot.AvailableRooms,
		IsFavorited:    isFavorited,
	}
	for _, image := range snapshot.Images {
		dto.Images = append(dto.Images, imageDTO{
			ID:           image.ID,
			URL:          image.URL,
			DisplayOrder: image.DisplayOrder,
			IsPrimary:    image.IsPrimary,
		})
	}
	for _, rating := range snapshot.Ratings {
		dto.Ratings = append(dto.Ratings, ratingDTO{
			ID:      rating.ID,
			Rating:  rating.Rating,
			Comment: rating.Comment,
		})
	}
	return dto
}

type roomStatusResponse struct {
	Rooms []roomStatusDTO `json:"rooms"`
}

type roomStatusDTO struct {
	RoomID     int64     `json:"room_id"`
	RoomNumber string    `json:"room_number"`
	Status     string    `json:"status"`
	Until      *string   `json:"until,omitempty"`
	Event      *eventDTO `json:"event,omitempty"`
}

type eventDTO struct {
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toRoomStatusDTO(status catalog.RoomStatus) roomStatusDTO {
	dto := roomStatusDTO{
		RoomID:     status.Room.ID,
		RoomNumber: status.Room.RoomNumber,
		Status:     string(status.Kind),
	}
	if status.Until != nil {
		until := status.Until.String()
		dto.Until = &until
	}
	if status.Event != nil {
		dto.Event = &eventDTO{
			Name:      status.Event.Name,
			StartTime: status.Event.StartTime.String(),
			EndTime:   status.Event.EndTime.String(),
		}
	}
	return dto
}

type favoriteRequest struct {
	UserID    string `json:"user_id"`
	Favorited bool   `json:"favorited"`
}
