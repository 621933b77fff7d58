package shift

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
)

// fakeStore 内存实现。Create 模拟 ActiveKey 唯一索引：
// 同键的第二个 INSERT 直接冲突，保证并发开班测试有真实语义。
type fakeStore struct {
	mu     sync.Mutex
	shifts map[string]*Shift // key: ID
	active map[string]string // ActiveKey -> shift ID
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		shifts: make(map[string]*Shift),
		active: make(map[string]string),
	}
}

func copyShift(sh *Shift) *Shift {
	cp := *sh
	cp.Breaks = append([]Break(nil), sh.Breaks...)
	if sh.CurrentBreak != nil {
		b := *sh.CurrentBreak
		cp.CurrentBreak = &b
	}
	if sh.ActiveKey != nil {
		k := *sh.ActiveKey
		cp.ActiveKey = &k
	}
	return &cp
}

func (f *fakeStore) Create(_ context.Context, sh *Shift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sh.ActiveKey != nil {
		if _, taken := f.active[*sh.ActiveKey]; taken {
			return apperr.Conflict("driver already has an active shift")
		}
		f.active[*sh.ActiveKey] = sh.ID
	}
	f.shifts[sh.ID] = copyShift(sh)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sh, ok := f.shifts[id]
	if !ok {
		return nil, apperr.NotFound("shift not found")
	}
	return copyShift(sh), nil
}

func (f *fakeStore) FindActiveByDriver(_ context.Context, driverID string) (*Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sh := range f.shifts {
		if sh.DriverID == driverID && sh.Status == StatusActive {
			return copyShift(sh), nil
		}
	}
	return nil, apperr.NotFound("no active shift")
}

func (f *fakeStore) Update(_ context.Context, sh *Shift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.shifts[sh.ID]
	if !ok {
		return apperr.NotFound("shift not found")
	}
	if old.ActiveKey != nil && sh.ActiveKey == nil {
		delete(f.active, *old.ActiveKey)
	}
	f.shifts[sh.ID] = copyShift(sh)
	return nil
}

func (f *fakeStore) History(_ context.Context, driverID string, start, end time.Time, offset, limit int) ([]Shift, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	var all []Shift
	for _, sh := range f.shifts {
		if sh.DriverID != driverID {
			continue
		}
		if !start.IsZero() && sh.StartTime.Before(start) {
			continue
		}
		if !end.IsZero() && sh.StartTime.After(end) {
			continue
		}
		all = append(all, *copyShift(sh))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.After(all[j].StartTime) })
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

func (f *fakeStore) FinishedInRange(_ context.Context, driverID string, start, end time.Time) ([]Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Shift
	for _, sh := range f.shifts {
		if sh.DriverID != driverID {
			continue
		}
		if sh.Status != StatusCompleted && sh.Status != StatusCancelled {
			continue
		}
		if !start.IsZero() && sh.StartTime.Before(start) {
			continue
		}
		if !end.IsZero() && sh.StartTime.After(end) {
			continue
		}
		out = append(out, *copyShift(sh))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}
