package model

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationBadge       NotificationType = "badge"
	NotificationAchievement NotificationType = "achievement"
	NotificationCourse      NotificationType = "course"
	NotificationAssignment  NotificationType = "assignment"
	NotificationWorkshop    NotificationType = "workshop"
	NotificationSystem      NotificationType = "system"
)

// Notification 站内通知，由通知分发器创建，收件箱只读
// swagger:model Notification
type Notification struct {
	ID        uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint             `gorm:"index;not null" json:"userId"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Link      string           `gorm:"size:512" json:"link,omitempty"`
	Metadata  datatypes.JSON   `json:"metadata,omitempty"`
	IsRead    bool             `gorm:"default:false;index" json:"isRead"`
	ReadAt    *time.Time       `json:"readAt,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
