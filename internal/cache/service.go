// Package cache keeps the local SQLite replica of the remote building catalog
// fresh and answers availability queries from it. The synchronizer never
// deletes a building except when the remote listing no longer contains it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/example/campus-spots/internal/catalog"
	"github.com/example/campus-spots/internal/persistence"
	"github.com/example/campus-spots/internal/schedule"
)

// ErrNotConfigured is returned when the service is used before its local
// store has been attached. Refresh work must fail fast rather than silently
// drop rows.
var ErrNotConfigured = errors.New("cache: local store not configured")

const (
	// DefaultBatchSize is how many buildings one refresh batch covers.
	DefaultBatchSize = 10
	// DefaultFreshness is the window within which a cached building row is
	// served without contacting the remote catalog.
	DefaultFreshness = 24 * time.Hour
	// DefaultPageSize is how many building rows one remote listing request
	// returns during a full refresh.
	DefaultPageSize = 50

	statusCacheSize = 256
	statusCacheTTL  = time.Minute
)

// Gateway is the remote catalog surface the synchronizer consumes. The
// concrete implementation lives in internal/remote.
type Gateway interface {
	ListBuildings(ctx context.Context, limit, offset int) ([]catalog.Building, error)
	CountBuildings(ctx context.Context) (int, error)
	GetRooms(ctx context.Context, buildingID int64) ([]catalog.Room, error)
	GetBuildingImages(ctx context.Context, buildingID int64) ([]catalog.BuildingImage, error)
	GetBuildingRatings(ctx context.Context, buildingID int64) ([]catalog.BuildingRating, error)
	GetEvents(ctx context.Context, roomIDs, termIDs []int64) ([]catalog.Event, error)
	GetAllTerms(ctx context.Context) ([]catalog.Term, error)
	GetCurrentTerms(ctx context.Context, asOf time.Time) ([]catalog.Term, error)
	GetUserFavorites(ctx context.Context, userID string) ([]int64, error)
	InsertFavorite(ctx context.Context, userID string, buildingID int64) error
	DeleteFavorite(ctx context.Context, userID string, buildingID int64) error
	UpdateBuildingFavorites(ctx context.Context, buildingID int64, favorites int) error
}

// Service synchronizes the local building cache with the remote catalog and
// derives availability snapshots from it. Construct with NewService; there is
// no shared global instance.
type Service struct {
	gateway   Gateway
	buildings persistence.BuildingRepository
	terms     persistence.TermRepository
	resolver  *schedule.Resolver
	now       func() time.Time
	logger    *slog.Logger
	batchSize int
	pageSize  int
	freshness time.Duration

	// statuses is a best-effort detail-view cache. Entries may be dropped at
	// any time; the local store stays the source of truth.
	statuses *expirable.LRU[int64, []catalog.RoomStatus]
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBatchSize overrides the refresh batch size.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithPageSize overrides the remote listing page size.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithFreshness overrides the staleness window.
func WithFreshness(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.freshness = window
		}
	}
}

// WithResolver overrides the term and occupancy resolver, used to pin the
// civil zone in tests.
func WithResolver(resolver *schedule.Resolver) Option {
	return func(s *Service) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// NewService constructs the synchronizer. A nil buildings or terms repository
// is allowed at construction time and makes every operation fail with
// ErrNotConfigured until one is attached via the constructor of a new Service.
func NewService(gateway Gateway, buildings persistence.BuildingRepository, terms persistence.TermRepository, logger *slog.Logger, opts ...Option) *Service {
	service := &Service{
		gateway:   gateway,
		buildings: buildings,
		terms:     terms,
		resolver:  schedule.NewResolver(nil),
		now:       time.Now,
		logger:    defaultLogger(logger),
		batchSize: DefaultBatchSize,
		pageSize:  DefaultPageSize,
		freshness: DefaultFreshness,
		statuses:  expirable.NewLRU[int64, []catalog.RoomStatus](statusCacheSize, nil, statusCacheTTL),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *Service) checkConfigured() error {
	if s.buildings == nil || s.terms == nil {
		return ErrNotConfigured
	}
	return nil
}

// LoadCached reads every cached building and derives presentation snapshots:
// open state from the hours string and available-room counts from current
// scheduled events, both evaluated at the current civil time. Rows missing a
// name never reach the caller. An events fetch failure degrades to counting
// every room in an open building as available rather than failing the read.
func (s *Service) LoadCached(ctx context.Context) (snapshots []catalog.BuildingSnapshot, err error) {
	logger := serviceLogger(ctx, s.logger, "load_cached")
	defer func() {
		if err != nil {
			logger.Error("load cached buildings failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err := s.checkConfigured(); err != nil {
		return nil, err
	}

	aggregates, err := s.buildings.ListBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cached buildings: %w", err)
	}

	termIDs, err := s.currentTermIDs(ctx)
	if err != nil {
		logger.Warn("current terms unavailable, treating rooms as unscheduled", "error", err, "error_kind", ErrorKind(err))
		termIDs = nil
	}

	var roomIDs []int64
	for _, aggregate := range aggregates {
		for _, room := range aggregate.Rooms {
			roomIDs = append(roomIDs, room.ID)
		}
	}

	var events []catalog.Event
	if s.gateway != nil && len(termIDs) > 0 && len(roomIDs) > 0 {
		events, err = s.gateway.GetEvents(ctx, roomIDs, termIDKeys(termIDs))
		if err != nil {
			logger.Warn("events unavailable, occupancy omitted", "error", err, "error_kind", ErrorKind(err))
			events = nil
		}
	}

	now := s.now()
	weekday, minute := s.resolver.Normalizer().Resolve(now)
	letter := schedule.WeekdayLetter(weekday)

	snapshots = make([]catalog.BuildingSnapshot, 0, len(aggregates))
	for _, aggregate := range aggregates {
		if aggregate.Building.Name == "" {
			logger.Warn("skipping cached building with missing name", "building_id", aggregate.Building.ID)
			continue
		}

		building, rooms, images, ratings := fromAggregate(aggregate)
		open := false
		if building.Hours != nil {
			open, _ = s.resolver.Normalizer().Status(*building.Hours, now)
		}
		buildingEvents := eventsForRooms(events, rooms)
		total, available := schedule.RoomCounts(rooms, buildingEvents, termIDs, letter, minute, open)

		catalog.SortImages(images)
		snapshots = append(snapshots, catalog.BuildingSnapshot{
			Building:       building,
			IsOpen:         open,
			TotalRooms:     total,
			AvailableRooms: available,
			Ratings:        ratings,
			Images:         images,
		})
	}

	catalog.SortSnapshots(snapshots)
	return snapshots, nil
}

// UpdateCache merges one page of remote building rows into the local cache.
// Buildings are processed in fixed batches; within a batch every stale
// building's dependent rows are fetched concurrently and committed one
// building at a time, so an interrupted refresh keeps all completed
// buildings. A single building's fetch failure is logged and skipped. After
// the final batch, every cached building absent from the input listing is
// deleted; this is the only path that removes cached buildings.
func (s *Service) UpdateCache(ctx context.Context, buildings []catalog.Building) (err error) {
	logger := serviceLogger(ctx, s.logger, "update_cache", "count", len(buildings))
	defer func() {
		if err != nil {
			logger.Error("cache update failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err := s.checkConfigured(); err != nil {
		return err
	}
	if s.gateway == nil {
		return ErrNotConfigured
	}

	for start := 0; start < len(buildings); start += s.batchSize {
		end := start + s.batchSize
		if end > len(buildings) {
			end = len(buildings)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.refreshBatch(ctx, logger, buildings[start:end])
	}

	if err := s.collectRemoved(ctx, logger, buildings); err != nil {
		return err
	}

	logger.Info("cache update complete")
	return nil
}

// refreshBatch refreshes every stale building of one batch and waits for all
// of them before returning.
func (s *Service) refreshBatch(ctx context.Context, logger *slog.Logger, batch []catalog.Building) {
	var wg sync.WaitGroup
	for _, building := range batch {
		stale, err := s.isStale(ctx, building.ID)
		if err != nil {
			logger.Warn("staleness check failed, refreshing anyway", "building_id", building.ID, "error", err, "error_kind", ErrorKind(err))
			stale = true
		}
		if !stale {
			continue
		}

		wg.Add(1)
		go func(building catalog.Building) {
			defer wg.Done()
			if err := s.refreshBuilding(ctx, building); err != nil {
				logger.Warn("building refresh skipped", "building_id", building.ID, "error", err, "error_kind", ErrorKind(err))
			}
		}(building)
	}
	wg.Wait()
}

func (s *Service) isStale(ctx context.Context, id int64) (bool, error) {
	aggregate, err := s.buildings.GetBuilding(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	last := aggregate.Building.LastUpdated
	if last.IsZero() {
		return true, nil
	}
	return s.now().Sub(last) >= s.freshness, nil
}

// refreshBuilding fetches the building's dependent rows and commits the whole
// aggregate in one repository transaction.
func (s *Service) refreshBuilding(ctx context.Context, building catalog.Building) error {
	var (
		wg      sync.WaitGroup
		rooms   []catalog.Room
		images  []catalog.BuildingImage
		ratings []catalog.BuildingRating
		errs    = make([]error, 3)
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		rooms, errs[0] = s.gateway.GetRooms(ctx, building.ID)
	}()
	go func() {
		defer wg.Done()
		images, errs[1] = s.gateway.GetBuildingImages(ctx, building.ID)
	}()
	go func() {
		defer wg.Done()
		ratings, errs[2] = s.gateway.GetBuildingRatings(ctx, building.ID)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("fetch dependents for building %d: %w", building.ID, err)
		}
	}

	aggregate := toAggregate(building, rooms, images, ratings, s.now())
	if err := s.buildings.UpsertBuilding(ctx, aggregate); err != nil {
		return fmt.Errorf("persist building %d: %w", building.ID, err)
	}
	s.statuses.Remove(building.ID)
	return nil
}

// collectRemoved deletes cached buildings the remote listing no longer
// contains.
func (s *Service) collectRemoved(ctx context.Context, logger *slog.Logger, buildings []catalog.Building) error {
	cachedIDs, err := s.buildings.ListBuildingIDs(ctx)
	if err != nil {
		return fmt.Errorf("list cached building ids: %w", err)
	}

	wanted := make(map[int64]struct{}, len(buildings))
	for _, building := range buildings {
		wanted[building.ID] = struct{}{}
	}

	for _, id := range cachedIDs {
		if _, ok := wanted[id]; ok {
			continue
		}
		if err := s.buildings.DeleteBuilding(ctx, id); err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("delete removed building %d: %w", id, err)
		}
		s.statuses.Remove(id)
		logger.Info("removed building no longer in remote catalog", "building_id", id)
	}
	return nil
}

// Refresh pulls the complete remote building listing page by page and merges
// it through UpdateCache. The whole listing is gathered first so the removal
// pass never sees a partial input.
func (s *Service) Refresh(ctx context.Context) (err error) {
	logger := serviceLogger(ctx, s.logger, "refresh")
	defer func() {
		if err != nil {
			logger.Error("refresh failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err := s.checkConfigured(); err != nil {
		return err
	}
	if s.gateway == nil {
		return ErrNotConfigured
	}

	total, err := s.gateway.CountBuildings(ctx)
	if err != nil {
		return fmt.Errorf("count remote buildings: %w", err)
	}
	logger.Info("refresh started", "remote_count", total)

	buildings := make([]catalog.Building, 0, total)
	for offset := 0; ; offset += s.pageSize {
		page, err := s.gateway.ListBuildings(ctx, s.pageSize, offset)
		if err != nil {
			return fmt.Errorf("list remote buildings at offset %d: %w", offset, err)
		}
		buildings = append(buildings, page...)
		if len(page) < s.pageSize {
			break
		}
	}

	return s.UpdateCache(ctx, buildings)
}

// CurrentTerms returns the cached terms whose date range covers the current
// civil time. When none match, the remote current terms are fetched and
// cached before returning.
func (s *Service) CurrentTerms(ctx context.Context) (terms []catalog.Term, err error) {
	logger := serviceLogger(ctx, s.logger, "current_terms")
	defer func() {
		if err != nil {
			logger.Error("current term resolution failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err := s.checkConfigured(); err != nil {
		return nil, err
	}

	cached, err := s.terms.ListTerms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cached terms: %w", err)
	}

	now := s.now()
	matched := s.resolver.CurrentTerms(now, termsFromCache(cached))
	if len(matched) > 0 {
		return matched, nil
	}

	if s.gateway == nil {
		return nil, ErrNotConfigured
	}
	fetched, err := s.gateway.GetCurrentTerms(ctx, now.In(s.resolver.Normalizer().Location()))
	if err != nil {
		return nil, fmt.Errorf("fetch current terms: %w", err)
	}
	if len(fetched) == 0 {
		return nil, nil
	}
	if err := s.terms.InsertTerms(ctx, termsToCache(fetched)); err != nil {
		return nil, fmt.Errorf("cache current terms: %w", err)
	}
	return fetched, nil
}

// UpdateTermsCache replaces the entire cached term table with the remote one.
func (s *Service) UpdateTermsCache(ctx context.Context) (err error) {
	logger := serviceLogger(ctx, s.logger, "update_terms_cache")
	defer func() {
		if err != nil {
			logger.Error("term cache update failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err := s.checkConfigured(); err != nil {
		return err
	}
	if s.gateway == nil {
		return ErrNotConfigured
	}

	fetched, err := s.gateway.GetAllTerms(ctx)
	if err != nil {
		return fmt.Errorf("fetch terms: %w", err)
	}
	if err := s.terms.ReplaceTerms(ctx, termsToCache(fetched)); err != nil {
		return fmt.Errorf("replace cached terms: %w", err)
	}
	logger.Info("term cache replaced", "count", len(fetched))
	return nil
}

// ClearCache deletes every cached building. Terms are kept; they are small
// and refreshed on their own schedule.
func (s *Service) ClearCache(ctx context.Context) (err error) {
	logger := serviceLogger(ctx, s.logger, "clear_cache")
	defer func() {
		if err != nil {
			logger.Error("cache clear failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err := s.checkConfigured(); err != nil {
		return err
	}
	if err := s.buildings.DeleteAllBuildings(ctx); err != nil {
		return fmt.Errorf("delete cached buildings: %w", err)
	}
	s.statuses.Purge()
	logger.Info("building cache cleared")
	return nil
}

// BuildingRoomStatuses resolves the per-room detail view for one cached
// building: each room's open/occupied/available state with its next boundary.
// Results are held briefly in an in-memory cache keyed by building id.
func (s *Service) BuildingRoomStatuses(ctx context.Context, buildingID int64) (statuses []catalog.RoomStatus, err error) {
	logger := serviceLogger(ctx, s.logger, "room_statuses", "building_id", buildingID)
	defer func() {
		if err != nil {
			logger.Error("room status resolution failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err := s.checkConfigured(); err != nil {
		return nil, err
	}

	if cached, ok := s.statuses.Get(buildingID); ok {
		return cached, nil
	}

	aggregate, err := s.buildings.GetBuilding(ctx, buildingID)
	if err != nil {
		return nil, fmt.Errorf("load cached building %d: %w", buildingID, err)
	}

	building, rooms, _, _ := fromAggregate(aggregate)

	termIDs, err := s.currentTermIDs(ctx)
	if err != nil {
		return nil, err
	}

	var events []catalog.Event
	if len(termIDs) > 0 && len(rooms) > 0 && s.gateway != nil {
		roomIDs := make([]int64, 0, len(rooms))
		for _, room := range rooms {
			roomIDs = append(roomIDs, room.ID)
		}
		events, err = s.gateway.GetEvents(ctx, roomIDs, termIDKeys(termIDs))
		if err != nil {
			return nil, fmt.Errorf("fetch events for building %d: %w", buildingID, err)
		}
	}

	now := s.now()
	weekday, minute := s.resolver.Normalizer().Resolve(now)
	letter := schedule.WeekdayLetter(weekday)

	open := false
	if building.Hours != nil {
		open, _ = s.resolver.Normalizer().Status(*building.Hours, now)
	}

	statuses = schedule.RoomStatuses(rooms, events, termIDs, letter, minute, open)
	s.statuses.Add(buildingID, statuses)
	return statuses, nil
}

// UserFavorites returns the building ids the user has favorited on the
// remote side.
func (s *Service) UserFavorites(ctx context.Context, userID string) ([]int64, error) {
	if s.gateway == nil {
		return nil, ErrNotConfigured
	}
	return s.gateway.GetUserFavorites(ctx, userID)
}

// SetFavorite records or removes a user's favorite for a building and writes
// the building's new favorite count both remotely and into the local cache.
func (s *Service) SetFavorite(ctx context.Context, userID string, buildingID int64, favorited bool) (err error) {
	logger := serviceLogger(ctx, s.logger, "set_favorite", "building_id", buildingID, "favorited", favorited)
	defer func() {
		if err != nil {
			logger.Error("favorite update failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err := s.checkConfigured(); err != nil {
		return err
	}
	if s.gateway == nil {
		return ErrNotConfigured
	}

	if favorited {
		err = s.gateway.InsertFavorite(ctx, userID, buildingID)
	} else {
		err = s.gateway.DeleteFavorite(ctx, userID, buildingID)
	}
	if err != nil {
		return fmt.Errorf("write favorite: %w", err)
	}

	aggregate, err := s.buildings.GetBuilding(ctx, buildingID)
	if errors.Is(err, persistence.ErrNotFound) {
		// Not cached yet; the count converges on the next refresh.
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cached building %d: %w", buildingID, err)
	}

	count := aggregate.Building.Favorites
	if favorited {
		count++
	} else if count > 0 {
		count--
	}
	if err := s.gateway.UpdateBuildingFavorites(ctx, buildingID, count); err != nil {
		return fmt.Errorf("update remote favorite count: %w", err)
	}

	aggregate.Building.Favorites = count
	if err := s.buildings.UpsertBuilding(ctx, aggregate); err != nil {
		return fmt.Errorf("update cached favorite count: %w", err)
	}
	s.statuses.Remove(buildingID)
	return nil
}

func (s *Service) currentTermIDs(ctx context.Context) (map[int64]struct{}, error) {
	terms, err := s.CurrentTerms(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]struct{}, len(terms))
	for _, term := range terms {
		ids[term.ID] = struct{}{}
	}
	return ids, nil
}

func termIDKeys(ids map[int64]struct{}) []int64 {
	keys := make([]int64, 0, len(ids))
	for id := range ids {
		keys = append(keys, id)
	}
	return keys
}

func eventsForRooms(events []catalog.Event, rooms []catalog.Room) []catalog.Event {
	if len(events) == 0 || len(rooms) == 0 {
		return nil
	}
	ids := make(map[int64]struct{}, len(rooms))
	for _, room := range rooms {
		ids[room.ID] = struct{}{}
	}
	filtered := make([]catalog.Event, 0, len(events))
	for _, event := range events {
		if _, ok := ids[event.RoomID]; ok {
			filtered = append(filtered, event)
		}
	}
	return filtered
}
