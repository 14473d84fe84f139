package repository

import (
	"context"
	"errors"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"gorm.io/gorm"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

// FindByName 不存在时返回 nil, nil
func (r *BadgeRepository) FindByName(ctx context.Context, name string) (*model.Badge, error) {
	var badge model.Badge
	err := r.DB.WithContext(ctx).Where("name = ?", name).First(&badge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &badge, nil
}

func (r *BadgeRepository) Create(ctx context.Context, badge *model.Badge) error {
	return translateError(r.DB.WithContext(ctx).Create(badge).Error)
}

// CreateUserBadge 重复授予时返回 util.ErrDuplicate
func (r *BadgeRepository) CreateUserBadge(ctx context.Context, ub *model.UserBadge) error {
	return translateError(r.DB.WithContext(ctx).Omit("Badge").Create(ub).Error)
}

func (r *BadgeRepository) ListByUser(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	err := r.DB.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("awarded_at ASC").
		Find(&badges).Error
	if err != nil {
		return nil, translateError(err)
	}
	return badges, nil
}
