package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"gorm.io/gorm"
)

type WorkshopRepository struct {
	DB *gorm.DB
}

func NewWorkshopRepository(db *gorm.DB) *WorkshopRepository {
	return &WorkshopRepository{DB: db}
}

func (r *WorkshopRepository) Create(ctx context.Context, w *model.Workshop) error {
	return translateError(r.DB.WithContext(ctx).Create(w).Error)
}

func (r *WorkshopRepository) FindByID(ctx context.Context, id uint) (*model.Workshop, error) {
	var w model.Workshop
	err := r.DB.WithContext(ctx).First(&w, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrWorkshopNotFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &w, nil
}

func (r *WorkshopRepository) FindByToken(ctx context.Context, token string) (*model.Workshop, error) {
	var w model.Workshop
	err := r.DB.WithContext(ctx).Where("checkin_token = ?", token).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrWorkshopNotFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &w, nil
}

// UpdateToken 轮换签到令牌，旧令牌立即失效
func (r *WorkshopRepository) UpdateToken(ctx context.Context, id uint, token string, expiresAt time.Time) error {
	res := r.DB.WithContext(ctx).Model(&model.Workshop{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"checkin_token":    token,
			"token_expires_at": expiresAt,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return util.ErrWorkshopNotFound
	}
	return nil
}
