package model

import "time"

const XPPerLevel = 500

// UserProgress 经验值是唯一存储的量，等级始终由经验值推导
type UserProgress struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	XP        int       `gorm:"not null;default:0" json:"xp"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// LevelForXP level = floor(xp / 500) + 1
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// NextLevelXP 升到下一级所需的累计经验值
func NextLevelXP(xp int) int {
	return LevelForXP(xp) * XPPerLevel
}

// LeaderboardRow 排行榜行
type LeaderboardRow struct {
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	XP     int    `json:"xp"`
}
