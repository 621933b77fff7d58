package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/ansaralyh/AX-server/internal/common/apperr"
	"gorm.io/gorm"
)

// ListFilter 列表查询条件。
type ListFilter struct {
	Status     Status
	IsApproved *bool
	Offset     int
	Limit      int
}

// Store 申请存储。
type Store interface {
	Create(ctx context.Context, a *Application) error
	FindByID(ctx context.Context, id string) (*Application, error)
	FindByEmail(ctx context.Context, email string) (*Application, error)
	Update(ctx context.Context, a *Application) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]Application, int64, error)
	Search(ctx context.Context, query string, offset, limit int) ([]Application, int64, error)
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

func (r *Repo) Create(ctx context.Context, a *Application) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("an application with this email already exists")
		}
		return err
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Application, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Application
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application not found")
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (*Application, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Application
	if err := db.Where("email = ?", email).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application not found")
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repo) Update(ctx context.Context, a *Application) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(a).Error
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Where("id = ?", id).Delete(&Application{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("application not found")
	}
	return nil
}

// List 按提交时间倒序分页。
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Application, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := db.Model(&Application{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.IsApproved != nil {
		q = q.Where("is_approved = ?", *f.IsApproved)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var apps []Application
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&apps).Error; err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// Search 姓名 / 邮箱 / 驾照号 / 州 的模糊匹配。
// CDL 存为 json 列，这里直接对序列化文本做 LIKE。
func (r *Repo) Search(ctx context.Context, query string, offset, limit int) ([]Application, int64, error) {
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

	q := db.Model(&Application{})
	if query != "" {
		like := "%" + query + "%"
		q = q.Where(
			"first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR cdl LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var apps []Application
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&apps).Error; err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}
