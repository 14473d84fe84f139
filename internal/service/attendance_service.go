package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"go.uber.org/zap"
)

// Uploader 归档导出文件的存储，StorageService 满足该接口
type Uploader interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
}

// AttendanceService 签到台账：每个 (工作坊, 用户) 至多一条记录
type AttendanceService struct {
	Repo    AttendanceStore
	Users   UserStore
	Storage Uploader
	Now     func() time.Time
}

func NewAttendanceService(repo AttendanceStore, users UserStore, storage Uploader) *AttendanceService {
	return &AttendanceService{
		Repo:    repo,
		Users:   users,
		Storage: storage,
		Now:     time.Now,
	}
}

// RecordResult Created 为 false 表示此前已签到，仍视为成功
type RecordResult struct {
	Created bool
	Record  *model.AttendanceRecord
}

// Record 幂等写入签到记录。唯一性由数据库唯一索引保证，并发签到只有一个 Created=true。
func (s *AttendanceService) Record(ctx context.Context, workshopID, userID uint, method model.CheckinMethod, recordedBy *uint) (*RecordResult, error) {
	record := &model.AttendanceRecord{
		WorkshopID:  workshopID,
		UserID:      userID,
		CheckedInAt: s.Now(),
		Method:      method,
		RecordedBy:  recordedBy,
	}

	err := s.Repo.Create(ctx, record)
	if err == nil {
		return &RecordResult{Created: true, Record: record}, nil
	}
	if !errors.Is(err, util.ErrDuplicate) {
		if !errors.Is(err, util.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
		}
		return nil, err
	}

	existing, findErr := s.Repo.FindByWorkshopAndUser(ctx, workshopID, userID)
	if findErr != nil {
		logger.Log.Warn("load existing attendance failed",
			zap.Uint("workshopId", workshopID), zap.Uint("userId", userID), zap.Error(findErr))
	}
	return &RecordResult{Created: false, Record: existing}, nil
}

// ResolveTarget 手动签到时定位目标用户，优先使用 ID，其次邮箱
func (s *AttendanceService) ResolveTarget(ctx context.Context, userID uint, email string) (*model.User, error) {
	if userID != 0 {
		return s.Users.FindByID(ctx, userID)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, util.ErrUserNotFound
	}
	return s.Users.FindByEmail(ctx, email)
}

func (s *AttendanceService) CountForUser(ctx context.Context, userID uint) (int64, error) {
	return s.Repo.CountByUser(ctx, userID)
}

func (s *AttendanceService) ListForWorkshop(ctx context.Context, workshopID uint) ([]model.AttendeeRow, error) {
	rows, err := s.Repo.ListByWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.AttendeeRow{}
	}
	return rows, nil
}

var csvHeader = []string{"name", "email", "check-in time", "method"}

// ExportCSV 导出签到名单，列为 name, email, check-in time, method
func (s *AttendanceService) ExportCSV(ctx context.Context, workshopID uint, w io.Writer) error {
	rows, err := s.ListForWorkshop(ctx, workshopID)
	if err != nil {
		return err
	}
	return writeAttendanceCSV(w, rows)
}

func writeAttendanceCSV(w io.Writer, rows []model.AttendeeRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.Name,
			r.Email,
			r.CheckedInAt.Format(time.RFC3339),
			string(r.Method),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ArchiveCSV 将导出文件写入存储（本地或 MinIO），返回访问地址
func (s *AttendanceService) ArchiveCSV(ctx context.Context, workshopID uint) (string, error) {
	var buf bytes.Buffer
	if err := s.ExportCSV(ctx, workshopID, &buf); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("exports/attendance/workshop-%d-%s.csv", workshopID, s.Now().Format("20060102-150405"))
	return s.Storage.Upload(ctx, filename, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv")
}
