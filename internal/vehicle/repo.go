package vehicle

import (
	"context"
	"errors"
	"fmt"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"gorm.io/gorm"
)

// Store 车辆目录存储。
// Claim/Release 是条件更新：available->in-use 与 in-use->available
// 只在当前状态匹配时生效，0 行受影响即为冲突。行程创建依赖这一原子性。
type Store interface {
	Create(ctx context.Context, v *Vehicle) error
	FindByVehicleID(ctx context.Context, vehicleID string) (*Vehicle, error)
	Update(ctx context.Context, v *Vehicle) error
	Delete(ctx context.Context, vehicleID string) error
	FindAvailable(ctx context.Context, vehicleType string) ([]Vehicle, error)
	Search(ctx context.Context, query string, offset, limit int) ([]Vehicle, int64, error)
	Claim(ctx context.Context, vehicleID string) error
	Release(ctx context.Context, vehicleID string) error
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

func (r *Repo) Create(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("a vehicle with this id or license plate already exists")
		}
		return err
	}
	return nil
}

func (r *Repo) FindByVehicleID(ctx context.Context, vehicleID string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := db.Where("vehicle_id = ?", vehicleID).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("vehicle not found")
		}
		return nil, err
	}
	return &v, nil
}

func (r *Repo) Update(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(v).Error
}

// Delete 占用中的车辆不允许删除；条件删除避免 check-then-act 竞态。
func (r *Repo) Delete(ctx context.Context, vehicleID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Where("vehicle_id = ? AND status <> ?", vehicleID, StatusInUse).Delete(&Vehicle{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// 区分“不存在”和“占用中”
		if _, err := r.FindByVehicleID(ctx, vehicleID); err != nil {
			return err
		}
		return apperr.Conflict("vehicle is in use and cannot be deleted")
	}
	return nil
}

func (r *Repo) FindAvailable(ctx context.Context, vehicleType string) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	q := db.Where("status = ?", StatusAvailable)
	if vehicleType != "" {
		q = q.Where("type = ?", vehicleType)
	}
	var vs []Vehicle
	if err := q.Order("created_at DESC").Find(&vs).Error; err != nil {
		return nil, err
	}
	return vs, nil
}

// Search 按 vehicleId / 车牌 / 类型 / 型号模糊匹配（大小写不敏感）。
func (r *Repo) Search(ctx context.Context, query string, offset, limit int) ([]Vehicle, int64, error) {
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

	q := db.Model(&Vehicle{})
	if query != "" {
		like := "%" + query + "%"
		q = q.Where(
			"vehicle_id LIKE ? OR license_plate LIKE ? OR type LIKE ? OR model LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var vs []Vehicle
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&vs).Error; err != nil {
		return nil, 0, err
	}
	return vs, total, nil
}

// Claim 原子占用：available -> in-use。
func (r *Repo) Claim(ctx context.Context, vehicleID string) error {
	return r.transition(ctx, vehicleID, StatusAvailable, StatusInUse, "vehicle is not available")
}

// Release 原子释放：in-use -> available。
func (r *Repo) Release(ctx context.Context, vehicleID string) error {
	return r.transition(ctx, vehicleID, StatusInUse, StatusAvailable, "vehicle is not in use")
}

func (r *Repo) transition(ctx context.Context, vehicleID string, from, to Status, conflictMsg string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&Vehicle{}).
		Where("vehicle_id = ? AND status = ?", vehicleID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByVehicleID(ctx, vehicleID); err != nil {
			return err
		}
		return apperr.Conflict(conflictMsg)
	}
	return nil
}
