package vehicle

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
)

// fakeStore 内存实现，锁保护，条件更新语义与真实存储一致。
type fakeStore struct {
	mu       sync.Mutex
	vehicles map[string]*Vehicle // key: VehicleID
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{vehicles: make(map[string]*Vehicle)}
}

func (f *fakeStore) Create(_ context.Context, v *Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vehicles[v.VehicleID]; ok {
		return apperr.Conflict("a vehicle with this id or license plate already exists")
	}
	for _, existing := range f.vehicles {
		if existing.LicensePlate == v.LicensePlate {
			return apperr.Conflict("a vehicle with this id or license plate already exists")
		}
	}
	cp := *v
	f.vehicles[v.VehicleID] = &cp
	return nil
}

func (f *fakeStore) FindByVehicleID(_ context.Context, vehicleID string) (*Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return nil, apperr.NotFound("vehicle not found")
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) Update(_ context.Context, v *Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vehicles[v.VehicleID]; !ok {
		return apperr.NotFound("vehicle not found")
	}
	cp := *v
	f.vehicles[v.VehicleID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, vehicleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return apperr.NotFound("vehicle not found")
	}
	if v.Status == StatusInUse {
		return apperr.Conflict("vehicle is in use and cannot be deleted")
	}
	delete(f.vehicles, vehicleID)
	return nil
}

func (f *fakeStore) FindAvailable(_ context.Context, vehicleType string) ([]Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Vehicle
	for _, v := range f.vehicles {
		if v.Status != StatusAvailable {
			continue
		}
		if vehicleType != "" && v.Type != vehicleType {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}

func (f *fakeStore) Search(_ context.Context, query string, offset, limit int) ([]Vehicle, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(query)
	var all []Vehicle
	for _, v := range f.vehicles {
		if q == "" ||
			strings.Contains(strings.ToLower(v.VehicleID), q) ||
			strings.Contains(strings.ToLower(v.LicensePlate), q) ||
			strings.Contains(strings.ToLower(v.Type), q) ||
			strings.Contains(strings.ToLower(v.Model), q) {
			all = append(all, *v)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].VehicleID < all[j].VehicleID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeStore) Claim(_ context.Context, vehicleID string) error {
	return f.transition(vehicleID, StatusAvailable, StatusInUse, "vehicle is not available")
}

func (f *fakeStore) Release(_ context.Context, vehicleID string) error {
	return f.transition(vehicleID, StatusInUse, StatusAvailable, "vehicle is not in use")
}

func (f *fakeStore) transition(vehicleID string, from, to Status, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[vehicleID]
	if !ok {
		return apperr.NotFound("vehicle not found")
	}
	if v.Status != from {
		return apperr.Conflict(msg)
	}
	v.Status = to
	return nil
}
