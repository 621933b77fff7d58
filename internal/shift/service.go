package shift

import (
	"context"
	"strings"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/google/uuid"
)

// Service 班次领域用例。
// 所有修改班次的操作都要求调用方就是班次的司机本人。
type Service struct {
	store Store
	log   logger.Logger
}

func NewService(store Store, log logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// StartShift 开班。唯一性交给存储层的条件写入保证，
// 这里不做 find-then-create。
func (s *Service) StartShift(ctx context.Context, driverID string) (*Shift, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, apperr.Validation("driverId is required")
	}

	key := driverID
	sh := &Shift{
		ID:        uuid.NewString(),
		DriverID:  driverID,
		Status:    StatusActive,
		ActiveKey: &key,
		StartTime: time.Now().UTC(),
		Breaks:    []Break{},
	}
	if err := s.store.Create(ctx, sh); err != nil {
		return nil, err
	}
	s.log.Infof("shift started: %s driver=%s", sh.ID, driverID)
	return sh, nil
}

// StartBreak 开始休息。已有进行中的休息时拒绝。
func (s *Service) StartBreak(ctx context.Context, driverID, shiftID string, breakType BreakType) (*Shift, error) {
	if !ValidBreakType(breakType) {
		return nil, apperr.Validation("break type must be rest, lunch or other")
	}
	sh, err := s.ownedActiveShift(ctx, driverID, shiftID)
	if err != nil {
		return nil, err
	}
	if sh.OnBreak() {
		return nil, apperr.Conflict("a break is already in progress")
	}

	b := Break{Type: breakType, StartTime: time.Now().UTC()}
	sh.Breaks = append(sh.Breaks, b)
	sh.CurrentBreak = &b
	if err := s.store.Update(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// EndBreak 结束当前休息。找不到对应的打开记录说明数据被绕过
// 状态机改过，按内部错误上报。
func (s *Service) EndBreak(ctx context.Context, driverID, shiftID string) (*Shift, error) {
	sh, err := s.ownedActiveShift(ctx, driverID, shiftID)
	if err != nil {
		return nil, err
	}
	if !sh.OnBreak() {
		return nil, apperr.Conflict("no break in progress")
	}

	now := time.Now().UTC()
	cur := sh.CurrentBreak
	found := false
	for i := range sh.Breaks {
		b := &sh.Breaks[i]
		if b.EndTime == nil && b.Type == cur.Type && b.StartTime.Equal(cur.StartTime) {
			t := now
			b.EndTime = &t
			found = true
			break
		}
	}
	if !found {
		s.log.Errorf("shift %s: current break has no matching open record", sh.ID)
		return nil, apperr.Internal("break record inconsistent", nil)
	}

	sh.CurrentBreak = nil
	if err := s.store.Update(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// EndShift 收班。要求先结束进行中的休息；收班时重算总休息时长。
func (s *Service) EndShift(ctx context.Context, driverID, shiftID string) (*Shift, error) {
	sh, err := s.ownedActiveShift(ctx, driverID, shiftID)
	if err != nil {
		return nil, err
	}
	if sh.OnBreak() {
		return nil, apperr.Conflict("end the current break before ending the shift")
	}

	now := time.Now().UTC()
	if err := ApplyTransition(sh, StatusCompleted, now); err != nil {
		return nil, apperr.Conflict(err.Error())
	}
	sh.TotalBreakMinutes = closedBreakMinutes(sh.Breaks)
	if err := s.store.Update(ctx, sh); err != nil {
		return nil, err
	}
	s.log.Infof("shift completed: %s driver=%s breakMinutes=%d", sh.ID, driverID, sh.TotalBreakMinutes)
	return sh, nil
}

// CancelShift 取消班次。休息中也允许取消。
func (s *Service) CancelShift(ctx context.Context, driverID, shiftID, reason string) (*Shift, error) {
	sh, err := s.ownedActiveShift(ctx, driverID, shiftID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := ApplyTransition(sh, StatusCancelled, now); err != nil {
		return nil, apperr.Conflict(err.Error())
	}
	if sh.CurrentBreak != nil {
		// 取消时顺手闭合打开的休息记录
		for i := range sh.Breaks {
			b := &sh.Breaks[i]
			if b.EndTime == nil {
				t := now
				b.EndTime = &t
			}
		}
		sh.CurrentBreak = nil
	}
	sh.CancellationReason = strings.TrimSpace(reason)
	sh.TotalBreakMinutes = closedBreakMinutes(sh.Breaks)
	if err := s.store.Update(ctx, sh); err != nil {
		return nil, err
	}
	s.log.Infof("shift cancelled: %s driver=%s", sh.ID, driverID)
	return sh, nil
}

// GetActiveShift 查询司机当前活跃班次，没有则返回 NotFound。
func (s *Service) GetActiveShift(ctx context.Context, driverID string) (*Shift, error) {
	return s.store.FindActiveByDriver(ctx, driverID)
}

// HasActiveShift 行程创建前置检查。
func (s *Service) HasActiveShift(ctx context.Context, driverID string) (bool, error) {
	_, err := s.store.FindActiveByDriver(ctx, driverID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// History 按开班时间倒序分页。page 从 1 起。
func (s *Service) History(ctx context.Context, driverID string, start, end time.Time, page, limit int) ([]Shift, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.History(ctx, driverID, start, end, (page-1)*limit, limit)
}

// Stats 班次统计结果。
type Stats struct {
	ShiftCount      int     `json:"shiftCount"`
	TotalHours      float64 `json:"totalHours"`
	AverageHours    float64 `json:"averageHours"`
	TotalBreakHours float64 `json:"totalBreakHours"`
	CompletedShifts int     `json:"completedShifts"`
	CancelledShifts int     `json:"cancelledShifts"`
}

// GetStats 统计区间内已结束班次的工时与休息时长。
func (s *Service) GetStats(ctx context.Context, driverID string, start, end time.Time) (*Stats, error) {
	shifts, err := s.store.FinishedInRange(ctx, driverID, start, end)
	if err != nil {
		return nil, err
	}

	st := &Stats{}
	var totalMinutes float64
	var breakMinutes int
	for i := range shifts {
		sh := &shifts[i]
		st.ShiftCount++
		switch sh.Status {
		case StatusCompleted:
			st.CompletedShifts++
		case StatusCancelled:
			st.CancelledShifts++
		}
		if sh.EndTime != nil {
			totalMinutes += sh.EndTime.Sub(sh.StartTime).Minutes()
		}
		breakMinutes += closedBreakMinutes(sh.Breaks)
	}
	st.TotalHours = totalMinutes / 60
	if st.ShiftCount > 0 {
		st.AverageHours = st.TotalHours / float64(st.ShiftCount)
	}
	st.TotalBreakHours = float64(breakMinutes) / 60
	return st, nil
}

// ownedActiveShift 拿到班次并校验归属与活跃状态。
func (s *Service) ownedActiveShift(ctx context.Context, driverID, shiftID string) (*Shift, error) {
	sh, err := s.store.FindByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if sh.DriverID != driverID {
		return nil, apperr.NotFound("shift not found")
	}
	if sh.Status != StatusActive {
		return nil, apperr.Conflict("shift is not active")
	}
	return sh, nil
}

// closedBreakMinutes 只累计已闭合的休息记录。先累加时长再取整，避免短休息被逐条抹零。
func closedBreakMinutes(breaks []Break) int {
	var total time.Duration
	for i := range breaks {
		b := &breaks[i]
		if b.EndTime != nil {
			total += b.EndTime.Sub(b.StartTime)
		}
	}
	return int(total.Round(time.Minute) / time.Minute)
}
