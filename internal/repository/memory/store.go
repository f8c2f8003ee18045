package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"zone-coverage-backend/internal/domain"
)

// Store keeps every rule table in process memory. It implements the zone,
// schedule, band and exception repositories and is used by STORE_DRIVER=memory
// and by tests. Values are copied in and out so callers never share slices
// with the store.
type Store struct {
	mu         sync.RWMutex
	zones      map[int32]domain.Zone
	schedules  map[int64]domain.ScheduleEntry
	bands      map[int64]domain.DistanceBand
	exceptions map[int64]domain.Exception
	nextZone   int32
	nextID     int64
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		zones:      make(map[int32]domain.Zone),
		schedules:  make(map[int64]domain.ScheduleEntry),
		bands:      make(map[int64]domain.DistanceBand),
		exceptions: make(map[int64]domain.Exception),
		now:        time.Now,
	}
}

// SaveZone inserts the zone, assigning an id when it has none.
func (s *Store) SaveZone(z domain.Zone) domain.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	if z.ID == 0 {
		s.nextZone++
		z.ID = s.nextZone
	} else if z.ID > s.nextZone {
		s.nextZone = z.ID
	}
	now := s.now()
	if z.CreatedAt.IsZero() {
		z.CreatedAt = now
	}
	z.UpdatedAt = now
	s.zones[z.ID] = z
	return z
}

func (s *Store) newID() int64 {
	s.nextID++
	return s.nextID
}

func copyWindow(w *domain.TimeWindow) *domain.TimeWindow {
	if w == nil {
		return nil
	}
	c := *w
	return &c
}

func copySchedule(e domain.ScheduleEntry) domain.ScheduleEntry {
	e.Window = copyWindow(e.Window)
	return e
}

func copyException(e domain.Exception) domain.Exception {
	e.Bound = copyWindow(e.Bound)
	return e
}

// --- Zones ---

func (s *Store) GetZoneByID(ctx context.Context, id int32) (*domain.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zones[id]
	if !ok {
		return nil, fmt.Errorf("zone %d: %w", id, domain.ErrNotFound)
	}
	return &z, nil
}

func (s *Store) ListZones(ctx context.Context) ([]domain.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Zone, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Schedules ---

func (s *Store) listSchedules(match func(domain.ScheduleEntry) bool) []domain.ScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ScheduleEntry, 0)
	for _, e := range s.schedules {
		if match(e) {
			out = append(out, copySchedule(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZoneID != out[j].ZoneID {
			return out[i].ZoneID < out[j].ZoneID
		}
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListSchedulesByZone(ctx context.Context, zoneID int32) ([]domain.ScheduleEntry, error) {
	return s.listSchedules(func(e domain.ScheduleEntry) bool { return e.ZoneID == zoneID }), nil
}

func (s *Store) ListAllSchedules(ctx context.Context) ([]domain.ScheduleEntry, error) {
	return s.listSchedules(func(domain.ScheduleEntry) bool { return true }), nil
}

func (s *Store) GetScheduleByID(ctx context.Context, id int64) (*domain.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.schedules[id]
	if !ok {
		return nil, fmt.Errorf("schedule %d: %w", id, domain.ErrNotFound)
	}
	e = copySchedule(e)
	return &e, nil
}

func (s *Store) CreateSchedule(ctx context.Context, entry *domain.ScheduleEntry) (*domain.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := copySchedule(*entry)
	e.ID = s.newID()
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	s.schedules[e.ID] = e
	e = copySchedule(e)
	return &e, nil
}

func (s *Store) UpdateSchedule(ctx context.Context, entry *domain.ScheduleEntry) (*domain.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.schedules[entry.ID]
	if !ok {
		return nil, fmt.Errorf("update schedule %d: %w", entry.ID, domain.ErrNotFound)
	}
	e := copySchedule(*entry)
	e.ZoneID = old.ZoneID
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = s.now()
	s.schedules[e.ID] = e
	e = copySchedule(e)
	return &e, nil
}

func (s *Store) DeleteSchedule(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[id]; !ok {
		return fmt.Errorf("delete schedule %d: %w", id, domain.ErrNotFound)
	}
	delete(s.schedules, id)
	return nil
}

// --- Bands ---

func (s *Store) listBands(match func(domain.DistanceBand) bool) []domain.DistanceBand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DistanceBand, 0)
	for _, b := range s.bands {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZoneID != out[j].ZoneID {
			return out[i].ZoneID < out[j].ZoneID
		}
		if out[i].FromKm != out[j].FromKm {
			return out[i].FromKm < out[j].FromKm
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListBandsByZone(ctx context.Context, zoneID int32) ([]domain.DistanceBand, error) {
	return s.listBands(func(b domain.DistanceBand) bool { return b.ZoneID == zoneID }), nil
}

func (s *Store) ListAllBands(ctx context.Context) ([]domain.DistanceBand, error) {
	return s.listBands(func(domain.DistanceBand) bool { return true }), nil
}

func (s *Store) GetBandByID(ctx context.Context, id int64) (*domain.DistanceBand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bands[id]
	if !ok {
		return nil, fmt.Errorf("band %d: %w", id, domain.ErrNotFound)
	}
	return &b, nil
}

func (s *Store) CreateBand(ctx context.Context, band *domain.DistanceBand) (*domain.DistanceBand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := *band
	b.ID = s.newID()
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.bands[b.ID] = b
	return &b, nil
}

func (s *Store) UpdateBand(ctx context.Context, band *domain.DistanceBand) (*domain.DistanceBand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.bands[band.ID]
	if !ok {
		return nil, fmt.Errorf("update band %d: %w", band.ID, domain.ErrNotFound)
	}
	b := *band
	b.ZoneID = old.ZoneID
	b.CreatedAt = old.CreatedAt
	b.UpdatedAt = s.now()
	s.bands[b.ID] = b
	return &b, nil
}

func (s *Store) DeleteBand(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bands[id]; !ok {
		return fmt.Errorf("delete band %d: %w", id, domain.ErrNotFound)
	}
	delete(s.bands, id)
	return nil
}

// --- Exceptions ---

func (s *Store) listExceptions(match func(domain.Exception) bool) []domain.Exception {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Exception, 0)
	for _, e := range s.exceptions {
		if match(e) {
			out = append(out, copyException(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListExceptionsByZone(ctx context.Context, zoneID int32) ([]domain.Exception, error) {
	return s.listExceptions(func(e domain.Exception) bool { return e.ZoneID == zoneID }), nil
}

func (s *Store) FindExceptionsForDate(ctx context.Context, zoneID int32, date domain.Date) ([]domain.Exception, error) {
	return s.listExceptions(func(e domain.Exception) bool { return e.ZoneID == zoneID && e.Date == date }), nil
}

func (s *Store) GetExceptionByID(ctx context.Context, id int64) (*domain.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exceptions[id]
	if !ok {
		return nil, fmt.Errorf("exception %d: %w", id, domain.ErrNotFound)
	}
	e = copyException(e)
	return &e, nil
}

func (s *Store) CreateException(ctx context.Context, exc *domain.Exception) (*domain.Exception, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := copyException(*exc)
	e.ID = s.newID()
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	s.exceptions[e.ID] = e
	e = copyException(e)
	return &e, nil
}

func (s *Store) UpdateException(ctx context.Context, exc *domain.Exception) (*domain.Exception, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.exceptions[exc.ID]
	if !ok {
		return nil, fmt.Errorf("update exception %d: %w", exc.ID, domain.ErrNotFound)
	}
	e := copyException(*exc)
	e.ZoneID = old.ZoneID
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = s.now()
	s.exceptions[e.ID] = e
	e = copyException(e)
	return &e, nil
}

func (s *Store) DeleteException(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exceptions[id]; !ok {
		return fmt.Errorf("delete exception %d: %w", id, domain.ErrNotFound)
	}
	delete(s.exceptions, id)
	return nil
}

// FindMalformedExceptions always returns nil: the store only holds typed exceptions.
func (s *Store) FindMalformedExceptions(ctx context.Context, zoneID int32) ([]domain.MalformedException, error) {
	return nil, nil
}

// TransactionManager runs fn directly. Writers are already serialized per
// zone by the ZoneLocker, and each store call is atomic on its own.
type TransactionManager struct{}

func NewTransactionManager() domain.TransactionManager {
	return TransactionManager{}
}

func (TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	_ domain.ZoneRepository      = (*Store)(nil)
	_ domain.ScheduleRepository  = (*Store)(nil)
	_ domain.BandRepository      = (*Store)(nil)
	_ domain.ExceptionRepository = (*Store)(nil)
)
