package model

import (
	"time"
)

type CheckinMethod string

const (
	CheckinQR     CheckinMethod = "qr"
	CheckinManual CheckinMethod = "manual"
)

// AttendanceRecord 签到记录，(workshop_id, user_id) 唯一，只追加不修改
// swagger:model AttendanceRecord
type AttendanceRecord struct {
	ID          uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkshopID  uint          `gorm:"not null;uniqueIndex:idx_attendance_workshop_user,priority:1" json:"workshopId"`
	UserID      uint          `gorm:"not null;uniqueIndex:idx_attendance_workshop_user,priority:2;index" json:"userId"`
	CheckedInAt time.Time     `gorm:"not null" json:"checkedInAt"`
	Method      CheckinMethod `gorm:"size:10;not null" json:"method"`
	RecordedBy  *uint         `json:"recordedBy,omitempty"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// AttendeeRow 签到记录与用户基本信息的联合视图，用于列表和导出
type AttendeeRow struct {
	UserID      uint          `json:"userId"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	CheckedInAt time.Time     `json:"checkedInAt"`
	Method      CheckinMethod `json:"method"`
}
