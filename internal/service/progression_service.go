package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"github.com/gannfg/obelisk-learning-sub002/pkg/monitoring"
	"go.uber.org/zap"
)

// XPMilestones 固定的经验值里程碑，升序
var XPMilestones = []int{1000, 5000, 10000, 25000, 50000, 100000}

// ProgressionService 经验值与等级。user_progress.xp 只由这里修改。
type ProgressionService struct {
	Repo     ProgressStore
	Badges   *BadgeService
	Notifier Notifier

	milestoneMode atomic.Value
}

func NewProgressionService(repo ProgressStore, badges *BadgeService, notifier Notifier, milestoneMode string) *ProgressionService {
	s := &ProgressionService{
		Repo:     repo,
		Badges:   badges,
		Notifier: notifier,
	}
	s.SetMilestoneMode(milestoneMode)
	return s
}

// SetMilestoneMode 配置热更新时调用
func (s *ProgressionService) SetMilestoneMode(mode string) {
	if mode != util.MilestoneModeCrossing {
		mode = util.MilestoneModeExact
	}
	s.milestoneMode.Store(mode)
}

func (s *ProgressionService) MilestoneMode() string {
	mode, _ := s.milestoneMode.Load().(string)
	if mode == "" {
		return util.MilestoneModeExact
	}
	return mode
}

// AwardResult Applied 为 false 表示进度表未建，本次奖励被跳过
type AwardResult struct {
	Applied     bool     `json:"applied"`
	Source      string   `json:"source"`
	Amount      int      `json:"amount"`
	OldXP       int      `json:"oldXp"`
	NewXP       int      `json:"newXp"`
	OldLevel    int      `json:"oldLevel"`
	NewLevel    int      `json:"newLevel"`
	LeveledUp   bool     `json:"leveledUp"`
	Milestones  []int    `json:"milestones,omitempty"`
	LevelBadges []string `json:"levelBadges,omitempty"`
}

// Milestones 返回本次变化触发的里程碑。
// exact: 新经验值恰好等于里程碑；crossing: oldXP < m <= newXP。
func Milestones(oldXP, newXP int, mode string) []int {
	var hit []int
	for _, m := range XPMilestones {
		switch mode {
		case util.MilestoneModeCrossing:
			if oldXP < m && m <= newXP {
				hit = append(hit, m)
			}
		default:
			if newXP == m {
				hit = append(hit, m)
			}
		}
	}
	return hit
}

// AwardXP 原子累加经验值并推导等级变化。升级、里程碑通知与等级徽章都是尽力而为，
// 失败不会影响返回结果。
func (s *ProgressionService) AwardXP(ctx context.Context, userID uint, amount int, source string) (*AwardResult, error) {
	if amount <= 0 {
		return nil, util.ErrInvalidXPAmount
	}

	oldXP, newXP, err := s.Repo.ApplyXP(ctx, userID, amount)
	if errors.Is(err, util.ErrProgressionSchemaMissing) {
		logger.Log.Warn("progression schema missing, skipping xp award",
			zap.Uint("userId", userID), zap.Int("amount", amount), zap.String("source", source))
		return &AwardResult{Applied: false, Source: source, Amount: amount}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("award xp: %w", err)
	}

	res := &AwardResult{
		Applied:  true,
		Source:   source,
		Amount:   amount,
		OldXP:    oldXP,
		NewXP:    newXP,
		OldLevel: model.LevelForXP(oldXP),
		NewLevel: model.LevelForXP(newXP),
	}
	res.LeveledUp = res.NewLevel > res.OldLevel
	res.Milestones = Milestones(oldXP, newXP, s.MilestoneMode())

	monitoring.XPAwarded.WithLabelValues(sourceLabel(source)).Add(float64(amount))

	var notes []*model.Notification
	if res.LeveledUp {
		monitoring.LevelUps.Inc()
		notes = append(notes, NewNotification(userID, model.NotificationAchievement,
			fmt.Sprintf("Level up! You reached level %d", res.NewLevel),
			fmt.Sprintf("You now have %d XP. Keep going!", newXP),
			"/profile",
			map[string]interface{}{"event": "level_up", "oldLevel": res.OldLevel, "newLevel": res.NewLevel, "xp": newXP},
		))

		if s.Badges != nil {
			granted, err := s.Badges.CheckLevelBadges(ctx, userID, res.NewLevel)
			if err != nil {
				logger.Log.Warn("level badge check failed", zap.Uint("userId", userID), zap.Error(err))
			}
			res.LevelBadges = granted
		}
	}
	for _, m := range res.Milestones {
		notes = append(notes, NewNotification(userID, model.NotificationAchievement,
			fmt.Sprintf("Milestone reached: %d XP", m),
			fmt.Sprintf("You have earned %d XP in total.", newXP),
			"/profile",
			map[string]interface{}{"event": "milestone", "milestone": m, "xp": newXP},
		))
	}
	if s.Notifier != nil {
		s.Notifier.NotifyAll(ctx, notes)
	}

	return res, nil
}

// sourceLabel 指标标签只保留来源类别，避免 workshop:123 之类的高基数
func sourceLabel(source string) string {
	if source == "" {
		return "unknown"
	}
	kind, _, _ := strings.Cut(source, ":")
	return kind
}

// ProgressSummary 个人进度概览
type ProgressSummary struct {
	UserID      uint              `json:"userId"`
	XP          int               `json:"xp"`
	Level       int               `json:"level"`
	NextLevelXP int               `json:"nextLevelXp"`
	Badges      []model.UserBadge `json:"badges"`
}

func (s *ProgressionService) GetProgress(ctx context.Context, userID uint) (*ProgressSummary, error) {
	xp, err := s.Repo.FindXP(ctx, userID)
	if err != nil && !errors.Is(err, util.ErrProgressionSchemaMissing) {
		return nil, err
	}

	summary := &ProgressSummary{
		UserID:      userID,
		XP:          xp,
		Level:       model.LevelForXP(xp),
		NextLevelXP: model.NextLevelXP(xp),
		Badges:      []model.UserBadge{},
	}

	if s.Badges != nil {
		badges, err := s.Badges.ListForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		summary.Badges = badges
	}
	return summary, nil
}

// CurrentXP 查询失败时返回 0，仅用于展示
func (s *ProgressionService) CurrentXP(ctx context.Context, userID uint) int {
	xp, err := s.Repo.FindXP(ctx, userID)
	if err != nil {
		return 0
	}
	return xp
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID uint   `json:"userId"`
	User   string `json:"user"`
	Avatar string `json:"avatar,omitempty"`
	XP     int    `json:"xp"`
	Level  int    `json:"level"`
}

func (s *ProgressionService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.Repo.Top(ctx, limit)
	if errors.Is(err, util.ErrProgressionSchemaMissing) {
		return []LeaderboardEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	board := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		board[i] = LeaderboardEntry{
			Rank:   i + 1,
			UserID: row.UserID,
			User:   row.Name,
			Avatar: row.Avatar,
			XP:     row.XP,
			Level:  model.LevelForXP(row.XP),
		}
	}
	return board, nil
}
