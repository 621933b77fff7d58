package trip

import "time"

// Status 行程状态枚举（持久化为字符串）。
type Status string

const (
	StatusActive    Status = "active"    // 行程进行中
	StatusCompleted Status = "completed" // 已完成
	StatusCancelled Status = "cancelled" // 已取消
)

// Location 行程起/终点坐标。
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Address   string  `json:"address,omitempty"`
}

// Trip 行程 GORM 模型。
// ActiveKey 与班次同一套唯一索引手法：活跃期间等于 DriverID，
// 终态置空，保证一个司机同时只有一个活跃行程。
type Trip struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	DriverID  string `gorm:"index;size:36;not null" json:"driverId"`
	VehicleID string `gorm:"index;size:40;not null" json:"vehicleId"`
	Status    Status `gorm:"type:varchar(16);index;not null" json:"status"`

	ActiveKey *string `gorm:"uniqueIndex;size:36" json:"-"`

	StartLocation Location  `gorm:"serializer:json" json:"startLocation"`
	EndLocation   *Location `gorm:"serializer:json" json:"endLocation,omitempty"`

	StartTime time.Time  `gorm:"not null" json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	// 完成时写入
	Distance float64 `gorm:"not null;default:0" json:"distance"`
	Fare     float64 `gorm:"not null;default:0" json:"fare"`

	// 评价只允许一次
	Rating *int   `json:"rating,omitempty"`
	Review string `gorm:"size:500" json:"review,omitempty"`

	CancellationReason string `gorm:"size:255" json:"cancellationReason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Rated 是否已评价。
func (t *Trip) Rated() bool {
	return t != nil && t.Rating != nil
}
