package repository

import (
	"context"
	"errors"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"gorm.io/gorm"
)

type AttendanceRepository struct {
	DB *gorm.DB
}

// NewAttendanceRepository 创建签到记录仓库
func NewAttendanceRepository(db *gorm.DB) *AttendanceRepository {
	return &AttendanceRepository{DB: db}
}

// Create 插入签到记录，唯一索引冲突时返回 util.ErrDuplicate
func (r *AttendanceRepository) Create(ctx context.Context, record *model.AttendanceRecord) error {
	return translateError(r.DB.WithContext(ctx).Create(record).Error)
}

func (r *AttendanceRepository) FindByWorkshopAndUser(ctx context.Context, workshopID, userID uint) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.DB.WithContext(ctx).
		Where("workshop_id = ? AND user_id = ?", workshopID, userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &record, nil
}

// CountByUser 用户累计参加的工作坊数量
func (r *AttendanceRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.AttendanceRecord{}).Where("user_id = ?", userID).Count(&count).Error
	return count, translateError(err)
}

// ListByWorkshop 按签到时间返回工作坊的签到名单
func (r *AttendanceRepository) ListByWorkshop(ctx context.Context, workshopID uint) ([]model.AttendeeRow, error) {
	var rows []model.AttendeeRow
	err := r.DB.WithContext(ctx).
		Table("attendance_records AS a").
		Select("a.user_id, u.name, u.email, a.checked_in_at, a.method").
		Joins("LEFT JOIN users u ON u.id = a.user_id").
		Where("a.workshop_id = ?", workshopID).
		Order("a.checked_in_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}
