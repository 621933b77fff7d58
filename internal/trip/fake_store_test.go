package trip

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
)

// fakeStore 内存实现，Create 模拟 ActiveKey 唯一索引。
type fakeStore struct {
	mu     sync.Mutex
	trips  map[string]*Trip
	active map[string]string // ActiveKey -> trip ID

	failCreate bool // 注入落库失败，验证占车回滚
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		trips:  make(map[string]*Trip),
		active: make(map[string]string),
	}
}

func copyTrip(tr *Trip) *Trip {
	cp := *tr
	if tr.ActiveKey != nil {
		k := *tr.ActiveKey
		cp.ActiveKey = &k
	}
	if tr.EndLocation != nil {
		l := *tr.EndLocation
		cp.EndLocation = &l
	}
	if tr.Rating != nil {
		r := *tr.Rating
		cp.Rating = &r
	}
	return &cp
}

func (f *fakeStore) Create(_ context.Context, tr *Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return apperr.Internal("storage unavailable", nil)
	}
	if tr.ActiveKey != nil {
		if _, taken := f.active[*tr.ActiveKey]; taken {
			return apperr.Conflict("driver already has an active trip")
		}
		f.active[*tr.ActiveKey] = tr.ID
	}
	f.trips[tr.ID] = copyTrip(tr)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr, ok := f.trips[id]
	if !ok {
		return nil, apperr.NotFound("trip not found")
	}
	return copyTrip(tr), nil
}

func (f *fakeStore) FindActiveByDriver(_ context.Context, driverID string) (*Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tr := range f.trips {
		if tr.DriverID == driverID && tr.Status == StatusActive {
			return copyTrip(tr), nil
		}
	}
	return nil, apperr.NotFound("no active trip")
}

func (f *fakeStore) Update(_ context.Context, tr *Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.trips[tr.ID]
	if !ok {
		return apperr.NotFound("trip not found")
	}
	if old.ActiveKey != nil && tr.ActiveKey == nil {
		delete(f.active, *old.ActiveKey)
	}
	f.trips[tr.ID] = copyTrip(tr)
	return nil
}

func (f *fakeStore) ListByDriver(_ context.Context, driverID string, start, end time.Time, offset, limit int) ([]Trip, int64, error) {
	all, err := f.AllByDriver(context.Background(), driverID, start, end)
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 20
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	e := offset + limit
	if e > len(all) {
		e = len(all)
	}
	return all[offset:e], total, nil
}

func (f *fakeStore) AllByDriver(_ context.Context, driverID string, start, end time.Time) ([]Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Trip
	for _, tr := range f.trips {
		if tr.DriverID != driverID {
			continue
		}
		if !start.IsZero() && tr.StartTime.Before(start) {
			continue
		}
		if !end.IsZero() && tr.StartTime.After(end) {
			continue
		}
		out = append(out, *copyTrip(tr))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

// fakeShifts 在班检查桩。
type fakeShifts struct {
	mu      sync.Mutex
	onShift map[string]bool
}

var _ ShiftDirectory = (*fakeShifts)(nil)

func newFakeShifts() *fakeShifts {
	return &fakeShifts{onShift: make(map[string]bool)}
}

func (f *fakeShifts) HasActiveShift(_ context.Context, driverID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onShift[driverID], nil
}

func (f *fakeShifts) set(driverID string, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onShift[driverID] = on
}

// fakeFleet 条件占用/释放桩，语义与车辆存储一致。
type fakeFleet struct {
	mu    sync.Mutex
	inUse map[string]bool // vehicleID -> claimed
	known map[string]bool
}

var _ VehicleFleet = (*fakeFleet)(nil)

func newFakeFleet(vehicleIDs ...string) *fakeFleet {
	f := &fakeFleet{inUse: make(map[string]bool), known: make(map[string]bool)}
	for _, id := range vehicleIDs {
		f.known[id] = true
	}
	return f
}

func (f *fakeFleet) Claim(_ context.Context, vehicleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[vehicleID] {
		return apperr.NotFound("vehicle not found")
	}
	if f.inUse[vehicleID] {
		return apperr.Conflict("vehicle is not available")
	}
	f.inUse[vehicleID] = true
	return nil
}

func (f *fakeFleet) Release(_ context.Context, vehicleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[vehicleID] {
		return apperr.NotFound("vehicle not found")
	}
	if !f.inUse[vehicleID] {
		return apperr.Conflict("vehicle is not in use")
	}
	f.inUse[vehicleID] = false
	return nil
}

func (f *fakeFleet) claimed(vehicleID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inUse[vehicleID]
}
