package service

import (
	"context"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
)

// 以下接口由 repository 包中的 gorm 实现满足，服务层只依赖接口以便替换存储

type WorkshopStore interface {
	Create(ctx context.Context, w *model.Workshop) error
	FindByID(ctx context.Context, id uint) (*model.Workshop, error)
	FindByToken(ctx context.Context, token string) (*model.Workshop, error)
	UpdateToken(ctx context.Context, id uint, token string, expiresAt time.Time) error
}

type UserStore interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type AttendanceStore interface {
	Create(ctx context.Context, record *model.AttendanceRecord) error
	FindByWorkshopAndUser(ctx context.Context, workshopID, userID uint) (*model.AttendanceRecord, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	ListByWorkshop(ctx context.Context, workshopID uint) ([]model.AttendeeRow, error)
}

type ProgressStore interface {
	ApplyXP(ctx context.Context, userID uint, amount int) (oldXP, newXP int, err error)
	FindXP(ctx context.Context, userID uint) (int, error)
	Top(ctx context.Context, limit int) ([]model.LeaderboardRow, error)
}

type BadgeStore interface {
	FindByName(ctx context.Context, name string) (*model.Badge, error)
	Create(ctx context.Context, badge *model.Badge) error
	CreateUserBadge(ctx context.Context, ub *model.UserBadge) error
	ListByUser(ctx context.Context, userID uint) ([]model.UserBadge, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

// Caller 当前请求的身份，来自外部签发的 JWT
type Caller struct {
	UserID uint
	Role   model.UserRole
}
