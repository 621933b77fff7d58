package vehicle

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Status 车辆状态。
type Status string

const (
	StatusAvailable   Status = "available"   // 可派
	StatusInUse       Status = "in-use"      // 行程占用
	StatusMaintenance Status = "maintenance" // 维保停运
)

// ValidStatus 是否为已知状态。
func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusMaintenance:
		return true
	}
	return false
}

// Vehicle 是 vehicles 表的 GORM 模型。
// VehicleID 是对外业务键（VEH-...），LicensePlate 同样唯一。
type Vehicle struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	VehicleID    string `gorm:"uniqueIndex;size:40;not null" json:"vehicleId"`
	Type         string `gorm:"size:32;not null" json:"type"`
	Model        string `gorm:"size:64;not null" json:"model"`
	LicensePlate string `gorm:"uniqueIndex;size:32;not null" json:"licensePlate"`
	Status       Status `gorm:"type:varchar(16);index;not null" json:"status"`

	// 位置（未上报前为空）
	Longitude *float64 `json:"longitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`

	LastMaintenance time.Time `gorm:"not null" json:"lastMaintenance"`
	FuelCapacity    float64   `gorm:"not null" json:"fuelCapacity"`
	CurrentFuel     float64   `gorm:"not null" json:"currentFuel"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// NewVehicleID 生成 VEH- 前缀的业务键。
func NewVehicleID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("VEH-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}

// HasLocation 是否已上报位置。
func (v *Vehicle) HasLocation() bool {
	return v != nil && v.Longitude != nil && v.Latitude != nil
}
