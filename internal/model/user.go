package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User 由外部身份系统维护，本服务只读取
// swagger:model User
type User struct {
	BaseModel
	Name     string    `gorm:"size:100;not null" json:"name"`
	Email    string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role     UserRole  `gorm:"size:20;default:'student'" json:"role"`
	Avatar   string    `gorm:"size:255" json:"avatar"`
	Disabled bool      `gorm:"default:false" json:"disabled"`
	LastSeen time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin 管理员不能通过扫码为自己签到
func (r UserRole) IsAdmin() bool {
	return r == Admin
}
