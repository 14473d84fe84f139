package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB          *gorm.DB
	schemaReady atomic.Bool
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) ensureSchema(ctx context.Context) error {
	if r.schemaReady.Load() {
		return nil
	}
	if !r.DB.WithContext(ctx).Migrator().HasTable(&model.UserProgress{}) {
		return util.ErrProgressionSchemaMissing
	}
	r.schemaReady.Store(true)
	return nil
}

// ApplyXP 在同一事务内加行锁累加经验值，返回累加前后的值
func (r *ProgressRepository) ApplyXP(ctx context.Context, userID uint, amount int) (int, int, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return 0, 0, err
	}

	var oldXP int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.UserProgress{UserID: userID}).Error; err != nil {
			return err
		}

		var p model.UserProgress
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&p).Error; err != nil {
			return err
		}
		oldXP = p.XP

		return tx.Model(&model.UserProgress{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"xp":         gorm.Expr("xp + ?", amount),
				"updated_at": time.Now(),
			}).Error
	})
	if err != nil {
		return 0, 0, translateError(err)
	}
	return oldXP, oldXP + amount, nil
}

// FindXP 用户没有进度记录时返回 0
func (r *ProgressRepository) FindXP(ctx context.Context, userID uint) (int, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return 0, err
	}
	var p model.UserProgress
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, translateError(err)
	}
	return p.XP, nil
}

func (r *ProgressRepository) Top(ctx context.Context, limit int) ([]model.LeaderboardRow, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var rows []model.LeaderboardRow
	err := r.DB.WithContext(ctx).
		Table("user_progress AS p").
		Select("p.user_id, u.name, u.avatar, p.xp").
		Joins("LEFT JOIN users u ON u.id = p.user_id").
		Order("p.xp DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}
