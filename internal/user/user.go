package user

import (
	"time"
)

// Role 账号角色。
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
	RoleDriver     Role = "driver"
)

// ValidRole 是否为已知角色。
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin, RoleDriver:
		return true
	}
	return false
}

// User 是 users 表的 GORM 模型。
// 密码散列与重置令牌永远不出现在 JSON 序列化结果里。
type User struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Email        string `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string `gorm:"size:128;not null" json:"-"`
	Role         Role   `gorm:"type:varchar(16);index;not null" json:"role"`
	FirstName    string `gorm:"size:64" json:"firstName"`
	LastName     string `gorm:"size:64" json:"lastName"`
	Phone        string `gorm:"size:32" json:"phone"`

	// 密码重置：存 sha256(token) 与过期时间，明文只出现在邮件里
	ResetTokenHash      string     `gorm:"size:64" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// FullName 展示名。
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
