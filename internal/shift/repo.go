package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"gorm.io/gorm"
)

// Store 班次存储。
// Create 依赖 ActiveKey 的唯一索引：并发为同一司机开班时
// 只有一个 INSERT 能落库，其余拿到重复键并被翻译成冲突。
type Store interface {
	Create(ctx context.Context, sh *Shift) error
	FindByID(ctx context.Context, id string) (*Shift, error)
	FindActiveByDriver(ctx context.Context, driverID string) (*Shift, error)
	Update(ctx context.Context, sh *Shift) error
	History(ctx context.Context, driverID string, start, end time.Time, offset, limit int) ([]Shift, int64, error)
	FinishedInRange(ctx context.Context, driverID string, start, end time.Time) ([]Shift, error)
}

type Repo struct {
	db *gorm.DB
}

var _ Store = (*Repo)(nil)

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, sh *Shift) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(sh).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("driver already has an active shift")
		}
		return err
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Shift, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var sh Shift
	if err := db.Where("id = ?", id).First(&sh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("shift not found")
		}
		return nil, err
	}
	return &sh, nil
}

func (r *Repo) FindActiveByDriver(ctx context.Context, driverID string) (*Shift, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var sh Shift
	err := db.Where("driver_id = ? AND status = ?", driverID, StatusActive).First(&sh).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no active shift")
		}
		return nil, err
	}
	return &sh, nil
}

func (r *Repo) Update(ctx context.Context, sh *Shift) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(sh).Error
}

// History 按开班时间倒序分页，区间为 [start, end]。
func (r *Repo) History(ctx context.Context, driverID string, start, end time.Time, offset, limit int) ([]Shift, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&Shift{}).Where("driver_id = ?", driverID)
	if !start.IsZero() {
		q = q.Where("start_time >= ?", start)
	}
	if !end.IsZero() {
		q = q.Where("start_time <= ?", end)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var shifts []Shift
	if err := q.Order("start_time DESC").Offset(offset).Limit(limit).Find(&shifts).Error; err != nil {
		return nil, 0, err
	}
	return shifts, total, nil
}

// FinishedInRange 统计用：completed + cancelled。
func (r *Repo) FinishedInRange(ctx context.Context, driverID string, start, end time.Time) ([]Shift, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	q := db.Where("driver_id = ? AND status IN ?", driverID, []Status{StatusCompleted, StatusCancelled})
	if !start.IsZero() {
		q = q.Where("start_time >= ?", start)
	}
	if !end.IsZero() {
		q = q.Where("start_time <= ?", end)
	}
	var shifts []Shift
	if err := q.Order("start_time DESC").Find(&shifts).Error; err != nil {
		return nil, err
	}
	return shifts, nil
}
