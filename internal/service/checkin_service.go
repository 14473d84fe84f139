package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"github.com/gannfg/obelisk-learning-sub002/pkg/monitoring"
	"github.com/gannfg/obelisk-learning-sub002/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type CheckInRequest struct {
	// Token 签到页面绑定的会话令牌（链接中的 token 或完整链接）
	Token string `json:"token" binding:"required"`
	// Payload 摄像头/扫码枪解码得到的原始文本，为空表示直接打开了签到链接
	Payload string `json:"payload"`
}

type ManualCheckInRequest struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email" binding:"omitempty,email"`
}

// CheckInResult AlreadyCheckedIn 为 true 时不会重复发放经验值
type CheckInResult struct {
	WorkshopID       uint                `json:"workshopId"`
	WorkshopTitle    string              `json:"workshopTitle"`
	UserID           uint                `json:"userId"`
	Method           model.CheckinMethod `json:"method"`
	CheckedInAt      time.Time           `json:"checkedInAt"`
	AlreadyCheckedIn bool                `json:"alreadyCheckedIn"`
	XPAwarded        int                 `json:"xpAwarded"`
	TotalXP          int                 `json:"totalXp"`
	Level            int                 `json:"level"`
	LeveledUp        bool                `json:"leveledUp"`
	Milestones       []int               `json:"milestones,omitempty"`
	BadgesGranted    []string            `json:"badgesGranted,omitempty"`
}

// CheckInService 串联令牌校验、签到台账与签到后的奖励。
// 台账写入必须成功；经验值、徽章、通知均为尽力而为。
type CheckInService struct {
	Workshops   *WorkshopService
	Verifier    *TokenVerifier
	Ledger      *AttendanceService
	Progression *ProgressionService
	Badges      *BadgeService
	Notifier    Notifier
	Now         func() time.Time

	defaultXP atomic.Int64
}

func NewCheckInService(
	workshops *WorkshopService,
	verifier *TokenVerifier,
	ledger *AttendanceService,
	progression *ProgressionService,
	badges *BadgeService,
	notifier Notifier,
	defaultXP int,
) *CheckInService {
	s := &CheckInService{
		Workshops:   workshops,
		Verifier:    verifier,
		Ledger:      ledger,
		Progression: progression,
		Badges:      badges,
		Notifier:    notifier,
		Now:         time.Now,
	}
	s.SetDefaultXP(defaultXP)
	return s
}

// SetDefaultXP 配置热更新时调用
func (s *CheckInService) SetDefaultXP(xp int) {
	s.defaultXP.Store(int64(xp))
}

func (s *CheckInService) xpFor(w *model.Workshop) int {
	if w.XPReward > 0 {
		return w.XPReward
	}
	return int(s.defaultXP.Load())
}

// VerifyToken 签到页面加载时调用，返回工作坊摘要；过期令牌返回 ErrTokenExpired
func (s *CheckInService) VerifyToken(ctx context.Context, token string) (*model.WorkshopSummary, error) {
	w, err := s.Workshops.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if w.Expired(s.Now()) {
		return nil, util.ErrTokenExpired
	}
	summary := w.Summary()
	summary.XPReward = s.xpFor(w)
	return &summary, nil
}

// CheckIn 扫码签到。管理员无论令牌是否有效都会被拒绝。
func (s *CheckInService) CheckIn(ctx context.Context, caller Caller, req CheckInRequest) (*CheckInResult, error) {
	ctx, span := tracing.StartSpan(ctx, "checkin.qr", attribute.Int64("user.id", int64(caller.UserID)))
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if err = s.Verifier.CheckRole(caller); err != nil {
		monitoring.CheckinCounter.WithLabelValues(string(model.CheckinQR), "rejected").Inc()
		return nil, err
	}

	workshop, err := s.Workshops.FindByToken(ctx, req.Token)
	if err != nil {
		s.countFailure(model.CheckinQR, err)
		return nil, err
	}

	workshopID, err := s.Verifier.Verify(caller, workshop, req.Token, req.Payload, s.Now())
	if err != nil {
		monitoring.CheckinCounter.WithLabelValues(string(model.CheckinQR), "rejected").Inc()
		return nil, err
	}

	var res *CheckInResult
	res, err = s.record(ctx, workshop, workshopID, caller.UserID, model.CheckinQR, nil)
	return res, err
}

// ManualCheckIn 管理员代为签到，跳过令牌流程但仍经过签到台账
func (s *CheckInService) ManualCheckIn(ctx context.Context, admin Caller, workshopID uint, req ManualCheckInRequest) (*CheckInResult, error) {
	ctx, span := tracing.StartSpan(ctx, "checkin.manual", attribute.Int64("workshop.id", int64(workshopID)))
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if !admin.Role.IsAdmin() {
		err = util.ErrPermissionDenied
		return nil, err
	}

	workshop, err := s.Workshops.Get(ctx, workshopID)
	if err != nil {
		return nil, err
	}

	target, err := s.Ledger.ResolveTarget(ctx, req.UserID, req.Email)
	if err != nil {
		return nil, err
	}
	// 管理员不能为自己或其他管理员签到
	if target.ID == admin.UserID || target.Role.IsAdmin() {
		err = util.ErrRoleForbidden
		s.countFailure(model.CheckinManual, err)
		return nil, err
	}

	recordedBy := admin.UserID
	var res *CheckInResult
	res, err = s.record(ctx, workshop, workshop.ID, target.ID, model.CheckinManual, &recordedBy)
	return res, err
}

func (s *CheckInService) record(ctx context.Context, workshop *model.Workshop, workshopID, userID uint, method model.CheckinMethod, recordedBy *uint) (*CheckInResult, error) {
	rec, err := s.Ledger.Record(ctx, workshopID, userID, method, recordedBy)
	if err != nil {
		s.countFailure(method, err)
		return nil, err
	}

	res := &CheckInResult{
		WorkshopID:       workshopID,
		WorkshopTitle:    workshop.Title,
		UserID:           userID,
		Method:           method,
		AlreadyCheckedIn: !rec.Created,
	}
	if rec.Record != nil {
		res.CheckedInAt = rec.Record.CheckedInAt
		res.Method = rec.Record.Method
	}

	if !rec.Created {
		monitoring.CheckinCounter.WithLabelValues(string(method), "duplicate").Inc()
		res.TotalXP = s.Progression.CurrentXP(ctx, userID)
		res.Level = model.LevelForXP(res.TotalXP)
		return res, nil
	}

	monitoring.CheckinCounter.WithLabelValues(string(method), "created").Inc()
	logger.Log.Info("workshop check-in recorded",
		zap.Uint("workshopId", workshopID), zap.Uint("userId", userID), zap.String("method", string(method)))

	s.reward(ctx, workshop, userID, res)
	return res, nil
}

// reward 仅在首次签到后执行，所有失败都在此处吞掉
func (s *CheckInService) reward(ctx context.Context, workshop *model.Workshop, userID uint, res *CheckInResult) {
	ctx, span := tracing.StartSpan(ctx, "checkin.reward")
	defer span.End()

	xp := s.xpFor(workshop)
	if xp > 0 {
		award, err := s.Progression.AwardXP(ctx, userID, xp, fmt.Sprintf("workshop:%d", workshop.ID))
		if err != nil {
			logger.Log.Warn("xp award after check-in failed", zap.Uint("userId", userID), zap.Error(err))
		} else if award.Applied {
			res.XPAwarded = award.Amount
			res.TotalXP = award.NewXP
			res.LeveledUp = award.LeveledUp
			res.Milestones = award.Milestones
			res.BadgesGranted = append(res.BadgesGranted, award.LevelBadges...)
		}
	}
	if res.TotalXP == 0 {
		res.TotalXP = s.Progression.CurrentXP(ctx, userID)
	}
	res.Level = model.LevelForXP(res.TotalXP)

	granted, err := s.Badges.CheckAttendanceBadges(ctx, userID)
	if err != nil {
		logger.Log.Warn("attendance badge check failed", zap.Uint("userId", userID), zap.Error(err))
	}
	res.BadgesGranted = append(res.BadgesGranted, granted...)

	message := fmt.Sprintf("You checked in to %s.", workshop.Title)
	if res.XPAwarded > 0 {
		message = fmt.Sprintf("You checked in to %s and earned %d XP.", workshop.Title, res.XPAwarded)
	}
	s.Notifier.Notify(ctx, NewNotification(userID, model.NotificationWorkshop,
		"Workshop check-in confirmed",
		message,
		fmt.Sprintf("/workshops/%d", workshop.ID),
		map[string]interface{}{"workshopId": workshop.ID, "xp": res.XPAwarded},
	))
}

func (s *CheckInService) countFailure(method model.CheckinMethod, err error) {
	outcome := "rejected"
	if errors.Is(err, util.ErrStoreUnavailable) {
		outcome = "failed"
	}
	monitoring.CheckinCounter.WithLabelValues(string(method), outcome).Inc()
}

// ListAttendance 管理端签到名单
func (s *CheckInService) ListAttendance(ctx context.Context, workshopID uint) ([]model.AttendeeRow, error) {
	if _, err := s.Workshops.Get(ctx, workshopID); err != nil {
		return nil, err
	}
	return s.Ledger.ListForWorkshop(ctx, workshopID)
}
