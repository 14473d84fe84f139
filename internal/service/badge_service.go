package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"github.com/gannfg/obelisk-learning-sub002/pkg/monitoring"
	"go.uber.org/zap"
)

const (
	BadgeFirstCheckin    = "First Check-in"
	BadgeWorkshopRegular = "Workshop Regular"
	BadgeWorkshopVeteran = "Workshop Veteran"
	BadgeRisingStar      = "Rising Star"
	BadgeSeasonedLearner = "Seasoned Learner"
	BadgeCourseFinisher  = "Course Finisher"
)

type badgeRule struct {
	Threshold int
	Name      string
}

var (
	// 按累计签到次数授予
	attendanceBadgeRules = []badgeRule{
		{1, BadgeFirstCheckin},
		{5, BadgeWorkshopRegular},
		{10, BadgeWorkshopVeteran},
	}
	levelBadgeRules = []badgeRule{
		{5, BadgeRisingStar},
		{10, BadgeSeasonedLearner},
	}
	badgeDescriptions = map[string]string{
		BadgeFirstCheckin:    "Attended your first workshop",
		BadgeWorkshopRegular: "Attended 5 workshops",
		BadgeWorkshopVeteran: "Attended 10 workshops",
		BadgeRisingStar:      "Reached level 5",
		BadgeSeasonedLearner: "Reached level 10",
		BadgeCourseFinisher:  "Completed your first course",
	}
)

// AttendanceCounter 统计用户签到次数
type AttendanceCounter interface {
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

// BadgeService 徽章授予，每个 (用户, 徽章) 至多一次
type BadgeService struct {
	Repo       BadgeStore
	Attendance AttendanceCounter
	Notifier   Notifier
	Now        func() time.Time
}

func NewBadgeService(repo BadgeStore, attendance AttendanceCounter, notifier Notifier) *BadgeService {
	return &BadgeService{
		Repo:       repo,
		Attendance: attendance,
		Notifier:   notifier,
		Now:        time.Now,
	}
}

// getOrCreate 按名称获取徽章定义，不存在则创建；并发创建时以唯一索引为准重新读取
func (s *BadgeService) getOrCreate(ctx context.Context, name string) (*model.Badge, error) {
	badge, err := s.Repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if badge != nil {
		return badge, nil
	}

	badge = &model.Badge{Name: name, Description: badgeDescriptions[name]}
	err = s.Repo.Create(ctx, badge)
	if errors.Is(err, util.ErrDuplicate) {
		badge, err = s.Repo.FindByName(ctx, name)
		if err == nil && badge == nil {
			err = fmt.Errorf("badge %q vanished after duplicate insert", name)
		}
	}
	if err != nil {
		return nil, err
	}
	return badge, nil
}

// Grant 授予徽章。已拥有时返回 false 而不是错误。
func (s *BadgeService) Grant(ctx context.Context, userID uint, badgeName, reason string) (bool, error) {
	badge, err := s.getOrCreate(ctx, badgeName)
	if err != nil {
		return false, err
	}

	err = s.Repo.CreateUserBadge(ctx, &model.UserBadge{
		UserID:    userID,
		BadgeID:   badge.ID,
		AwardedAt: s.Now(),
	})
	if errors.Is(err, util.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	monitoring.BadgesGranted.WithLabelValues(badge.Name).Inc()
	logger.Log.Info("badge granted", zap.Uint("userId", userID), zap.String("badge", badge.Name))

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, NewNotification(userID, model.NotificationBadge,
			fmt.Sprintf("New badge: %s", badge.Name),
			badge.Description,
			"/profile/badges",
			map[string]interface{}{"badgeId": badge.ID, "badge": badge.Name, "context": reason},
		))
	}
	return true, nil
}

// grantRules 逐条尝试，单条失败不影响其余规则
func (s *BadgeService) grantRules(ctx context.Context, userID uint, value int, rules []badgeRule, reason string) ([]string, error) {
	var granted []string
	var errs []error
	for _, rule := range rules {
		if value < rule.Threshold {
			continue
		}
		ok, err := s.Grant(ctx, userID, rule.Name, reason)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rule.Name, err))
			continue
		}
		if ok {
			granted = append(granted, rule.Name)
		}
	}
	return granted, errors.Join(errs...)
}

// CheckAttendanceBadges 根据累计签到次数授予里程碑徽章，计数实时统计而非存储
func (s *BadgeService) CheckAttendanceBadges(ctx context.Context, userID uint) ([]string, error) {
	count, err := s.Attendance.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.grantRules(ctx, userID, int(count), attendanceBadgeRules, fmt.Sprintf("attended %d workshops", count))
}

func (s *BadgeService) CheckLevelBadges(ctx context.Context, userID uint, level int) ([]string, error) {
	return s.grantRules(ctx, userID, level, levelBadgeRules, fmt.Sprintf("reached level %d", level))
}

func (s *BadgeService) ListForUser(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	badges, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if badges == nil {
		badges = []model.UserBadge{}
	}
	return badges, nil
}
