package model

import "time"

// Badge 徽章定义，按名称唯一
type Badge struct {
	BaseModel
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Icon        string `gorm:"size:255" json:"icon"`
}

func (Badge) TableName() string {
	return "badges"
}

// UserBadge 用户获得的徽章，(user_id, badge_id) 唯一
type UserBadge struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_badge,priority:1" json:"userId"`
	BadgeID   uint      `gorm:"not null;uniqueIndex:idx_user_badge,priority:2" json:"badgeId"`
	AwardedAt time.Time `gorm:"not null" json:"awardedAt"`

	Badge Badge `gorm:"foreignKey:BadgeID" json:"badge"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
