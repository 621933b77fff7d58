package shift

import "time"

// Status 班次状态枚举（持久化为字符串）。
type Status string

const (
	StatusActive    Status = "active"    // 上班中
	StatusCompleted Status = "completed" // 正常收班
	StatusCancelled Status = "cancelled" // 取消（运营/司机原因）
)

// BreakType 休息类型。
type BreakType string

const (
	BreakRest  BreakType = "rest"
	BreakLunch BreakType = "lunch"
	BreakOther BreakType = "other"
)

// ValidBreakType 是否为已知休息类型。
func ValidBreakType(t BreakType) bool {
	switch t {
	case BreakRest, BreakLunch, BreakOther:
		return true
	}
	return false
}

// Break 班次内的一段休息；EndTime 为空表示进行中。
type Break struct {
	Type      BreakType  `json:"type"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// Shift 班次 GORM 模型。
// ActiveKey 活跃期间等于 DriverID，收班/取消后置空。
// 其上的唯一索引把“一个司机同时只有一个活跃班次”变成原子的
// insert-if-absent（MySQL 唯一索引忽略 NULL），重复键即冲突。
type Shift struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	DriverID string `gorm:"index;size:36;not null" json:"driverId"`
	Status   Status `gorm:"type:varchar(16);index;not null" json:"status"`

	ActiveKey *string `gorm:"uniqueIndex;size:36" json:"-"`

	StartTime time.Time  `gorm:"not null" json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	Breaks       []Break `gorm:"serializer:json" json:"breaks"`
	CurrentBreak *Break  `gorm:"serializer:json" json:"currentBreak,omitempty"`

	TotalBreakMinutes  int    `gorm:"not null;default:0" json:"totalBreakMinutes"`
	CancellationReason string `gorm:"size:255" json:"cancellationReason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// OnBreak 当前是否处于休息中。
func (s *Shift) OnBreak() bool {
	return s != nil && s.CurrentBreak != nil
}
