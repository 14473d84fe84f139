package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Workshop 线下/线上工作坊，每个工作坊持有一个当前有效的签到令牌
// swagger:model Workshop
type Workshop struct {
	BaseModel
	Title          string    `gorm:"size:200;not null" json:"title"`
	Description    string    `gorm:"type:text" json:"description"`
	ScheduledAt    time.Time `gorm:"not null;index" json:"scheduledAt"`
	HostID         uint      `gorm:"index;not null" json:"hostId"`
	CheckinToken   string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	TokenExpiresAt time.Time `gorm:"not null" json:"tokenExpiresAt"`
	XPReward       int       `gorm:"default:0" json:"xpReward"`
}

func (Workshop) TableName() string {
	return "workshops"
}

// Expired 令牌过期后工作坊不再接受签到，但记录保留
func (w *Workshop) Expired(now time.Time) bool {
	return now.After(w.TokenExpiresAt)
}

// NewCheckinToken 生成不透明的签到令牌，不同工作坊之间不复用
func NewCheckinToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WorkshopSummary 签到页面展示用的工作坊摘要
type WorkshopSummary struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	HostID         uint      `json:"hostId"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
	XPReward       int       `json:"xpReward"`
}

func (w *Workshop) Summary() WorkshopSummary {
	return WorkshopSummary{
		ID:             w.ID,
		Title:          w.Title,
		ScheduledAt:    w.ScheduledAt,
		HostID:         w.HostID,
		TokenExpiresAt: w.TokenExpiresAt,
		XPReward:       w.XPReward,
	}
}
