package repository

import (
	"context"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return translateError(r.DB.WithContext(ctx).Create(n).Error)
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	var list []model.Notification
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&list).Error
	if err != nil {
		return nil, translateError(err)
	}
	return list, nil
}

// MarkRead 只能标记自己的通知
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uint) error {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})
	return res.RowsAffected, translateError(res.Error)
}
