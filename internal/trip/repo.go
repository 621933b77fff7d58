package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"gorm.io/gorm"
)

// Store 行程存储。Create 与班次一样依赖 ActiveKey 唯一索引。
type Store interface {
	Create(ctx context.Context, tr *Trip) error
	FindByID(ctx context.Context, id string) (*Trip, error)
	FindActiveByDriver(ctx context.Context, driverID string) (*Trip, error)
	Update(ctx context.Context, tr *Trip) error
	ListByDriver(ctx context.Context, driverID string, start, end time.Time, offset, limit int) ([]Trip, int64, error)
	AllByDriver(ctx context.Context, driverID string, start, end time.Time) ([]Trip, error)
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

func (r *Repo) Create(ctx context.Context, tr *Trip) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(tr).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("driver already has an active trip")
		}
		return err
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Trip, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var tr Trip
	if err := db.Where("id = ?", id).First(&tr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("trip not found")
		}
		return nil, err
	}
	return &tr, nil
}

func (r *Repo) FindActiveByDriver(ctx context.Context, driverID string) (*Trip, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var tr Trip
	err := db.Where("driver_id = ? AND status = ?", driverID, StatusActive).First(&tr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no active trip")
		}
		return nil, err
	}
	return &tr, nil
}

func (r *Repo) Update(ctx context.Context, tr *Trip) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(tr).Error
}

// ListByDriver 按开始时间倒序分页，区间为 [start, end]。
func (r *Repo) ListByDriver(ctx context.Context, driverID string, start, end time.Time, offset, limit int) ([]Trip, int64, error) {
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

	q := db.Model(&Trip{}).Where("driver_id = ?", driverID)
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
	var trips []Trip
	if err := q.Order("start_time DESC").Offset(offset).Limit(limit).Find(&trips).Error; err != nil {
		return nil, 0, err
	}
	return trips, total, nil
}

// AllByDriver 统计用，不分页。
func (r *Repo) AllByDriver(ctx context.Context, driverID string, start, end time.Time) ([]Trip, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	q := db.Where("driver_id = ?", driverID)
	if !start.IsZero() {
		q = q.Where("start_time >= ?", start)
	}
	if !end.IsZero() {
		q = q.Where("start_time <= ?", end)
	}
	var trips []Trip
	if err := q.Order("start_time DESC").Find(&trips).Error; err != nil {
		return nil, err
	}
	return trips, nil
}
