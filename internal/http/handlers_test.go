package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/campus-spots/internal/cache"
	"github.com/example/campus-spots/internal/catalog"
	"github.com/example/campus-spots/internal/persistence"
)

type stubBuildingService struct {
	snapshots    []catalog.BuildingSnapshot
	loadErr      error
	refreshErr   error
	refreshCalls int
	statuses     map[int64][]catalog.RoomStatus
	statusErr    error
	favorites    map[string][]int64
	setFavorites []int64
	setErr       error
}

func (s *stubBuildingService) LoadCached(_ context.Context) ([]catalog.BuildingSnapshot, error) {
	return s.snapshots, s.loadErr
}

func (s *stubBuildingService) Refresh(_ context.Context) error {
	s.refreshCalls++
	return s.refreshErr
}

func (s *stubBuildingService) BuildingRoomStatuses(_ context.Context, buildingID int64) ([]catalog.RoomStatus, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	statuses, ok := s.statuses[buildingID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return statuses, nil
}

func (s *stubBuildingService) UserFavorites(_ context.Context, userID string) ([]int64, error) {
	return s.favorites[userID], nil
}

func (s *stubBuildingService) SetFavorite(_ context.Context, _ string, buildingID int64, _ bool) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.setFavorites = append(s.setFavorites, buildingID)
	return nil
}

type stubCacheService struct {
	refreshErr   error
	termsErr     error
	clearErr     error
	refreshCalls int
	termCalls    int
	clearCalls   int
}

func (s *stubCacheService) Refresh(_ context.Context) error {
	s.refreshCalls++
	return s.refreshErr
}

func (s *stubCacheService) UpdateTermsCache(_ context.Context) error {
	s.termCalls++
	return s.termsErr
}

func (s *stubCacheService) ClearCache(_ context.Context) error {
	s.clearCalls++
	return s.clearErr
}

func newTestRouter(buildings *stubBuildingService, cacheSvc *stubCacheService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := RouterConfig{}
	if buildings != nil {
		cfg.Buildings = NewBuildingHandler(buildings, logger)
	}
	if cacheSvc != nil {
		cfg.Cache = NewCacheHandler(cacheSvc, logger)
	}
	return NewRouter(cfg)
}

func snapshotFixture(id int64, name string, open bool, available, total int) catalog.BuildingSnapshot {
	return catalog.BuildingSnapshot{
		Building:       catalog.Building{ID: id, Name: name},
		IsOpen:         open,
		TotalRooms:     total,
		AvailableRooms: available,
	}
}

func TestListBuildings(t *testing.T) {
	service := &stubBuildingService{snapshots: []catalog.BuildingSnapshot{
		snapshotFixture(1, "Grainger", true, 3, 5),
		snapshotFixture(2, "Union", false, 0, 2),
	}}
	router := newTestRouter(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/buildings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp buildingListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Buildings) != 2 {
		t.Fatalf("got %d buildings, want 2", len(resp.Buildings))
	}
	if resp.Buildings[0].Name != "Grainger" || !resp.Buildings[0].IsOpen {
		t.Errorf("first building = %+v", resp.Buildings[0])
	}
	if resp.Buildings[0].AvailableRooms != 3 || resp.Buildings[0].TotalRooms != 5 {
		t.Errorf("room counts = %d/%d, want 3/5", resp.Buildings[0].AvailableRooms, resp.Buildings[0].TotalRooms)
	}
	if resp.RefreshFailed {
		t.Error("refresh_failed should be false without a refresh")
	}
	if service.refreshCalls != 0 {
		t.Errorf("refresh calls = %d, want 0", service.refreshCalls)
	}
}

func TestListBuildingsRefreshFailureServesCache(t *testing.T) {
	service := &stubBuildingService{
		snapshots:  []catalog.BuildingSnapshot{snapshotFixture(1, "Grainger", true, 3, 5)},
		refreshErr: errors.New("remote unreachable"),
	}
	router := newTestRouter(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/buildings?refresh=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when refresh fails", rec.Code)
	}
	var resp buildingListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.RefreshFailed {
		t.Error("refresh_failed marker missing")
	}
	if len(resp.Buildings) != 1 {
		t.Errorf("cached state must still be served, got %d buildings", len(resp.Buildings))
	}
	if service.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", service.refreshCalls)
	}
}

func TestListBuildingsMarksFavorites(t *testing.T) {
	service := &stubBuildingService{
		snapshots: []catalog.BuildingSnapshot{
			snapshotFixture(1, "Grainger", true, 3, 5),
			snapshotFixture(2, "Union", false, 0, 2),
		},
		favorites: map[string][]int64{"user-1": {2}},
	}
	router := newTestRouter(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/buildings?user_id=user-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp buildingListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Buildings[0].IsFavorited {
		t.Error("building 1 should not be favorited")
	}
	if !resp.Buildings[1].IsFavorited {
		t.Error("building 2 should be favorited")
	}
}

func TestListBuildingsNotConfigured(t *testing.T) {
	service := &stubBuildingService{loadErr: cache.ErrNotConfigured}
	router := newTestRouter(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/buildings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRoomStatuses(t *testing.T) {
	until := catalog.TimeOfDay(12*60 + 50)
	service := &stubBuildingService{statuses: map[int64][]catalog.RoomStatus{
		7: {
			{
				Room:       catalog.Room{ID: 70, BuildingID: 7, RoomNumber: "100"},
				Kind:       catalog.RoomOccupied,
				Until:      &until,
				Event:      &catalog.Event{Name: "CS 225", StartTime: 720, EndTime: until},
				IsOccupied: true,
			},
			{Room: catalog.Room{ID: 71, BuildingID: 7, RoomNumber: "101"}, Kind: catalog.RoomAvailable},
		},
	}}
	router := newTestRouter(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/buildings/7/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp roomStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(resp.Rooms))
	}
	if resp.Rooms[0].Status != "occupied" || resp.Rooms[0].Until == nil || *resp.Rooms[0].Until != "12:50" {
		t.Errorf("occupied room = %+v", resp.Rooms[0])
	}
	if resp.Rooms[0].Event == nil || resp.Rooms[0].Event.Name != "CS 225" {
		t.Errorf("occupied room event = %+v", resp.Rooms[0].Event)
	}
	if resp.Rooms[1].Status != "available" || resp.Rooms[1].Until != nil {
		t.Errorf("available room = %+v", resp.Rooms[1])
	}
}

func TestRoomStatusesUnknownBuilding(t *testing.T) {
	service := &stubBuildingService{statuses: map[int64][]catalog.RoomStatus{}}
	router := newTestRouter(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/buildings/404/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRoomStatusesMalformedID(t *testing.T) {
	service := &stubBuildingService{}
	router := newTestRouter(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/buildings/abc/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFavorite(t *testing.T) {
	service := &stubBuildingService{}
	router := newTestRouter(service, nil)

	body := strings.NewReader(`{"user_id": "user-1", "favorited": true}`)
	req := httptest.NewRequest(http.MethodPut, "/api/buildings/5/favorite", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(service.setFavorites) != 1 || service.setFavorites[0] != 5 {
		t.Errorf("favorite calls = %v, want [5]", service.setFavorites)
	}
}

func TestFavoriteMissingUser(t *testing.T) {
	service := &stubBuildingService{}
	router := newTestRouter(service, nil)

	body := strings.NewReader(`{"favorited": true}`)
	req := httptest.NewRequest(http.MethodPut, "/api/buildings/5/favorite", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(service.setFavorites) != 0 {
		t.Error("service must not be called without a user id")
	}
}

func TestRefreshEndpoint(t *testing.T) {
	cacheSvc := &stubCacheService{}
	router := newTestRouter(nil, cacheSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if cacheSvc.termCalls != 1 || cacheSvc.refreshCalls != 1 {
		t.Errorf("calls = terms %d buildings %d, want 1 each", cacheSvc.termCalls, cacheSvc.refreshCalls)
	}
}

func TestClearCacheEndpoint(t *testing.T) {
	cacheSvc := &stubCacheService{}
	router := newTestRouter(nil, cacheSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if cacheSvc.clearCalls != 1 {
		t.Errorf("clear calls = %d, want 1", cacheSvc.clearCalls)
	}
}

func TestClearCacheFailureReported(t *testing.T) {
	cacheSvc := &stubCacheService{clearErr: errors.New("disk full")}
	router := newTestRouter(nil, cacheSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message == "" {
		t.Error("error message missing")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(&stubBuildingService{}, &stubCacheService{})

	req := httptest.NewRequest(http.MethodPost, "/api/buildings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodGet {
		t.Errorf("Allow header = %q, want GET", allow)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
