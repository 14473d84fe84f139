package service

import (
	"context"
	"fmt"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"go.uber.org/zap"
)

const (
	CompletionCourse = "course"
	CompletionModule = "module"
)

// CompletionRequest 课程/模块完成事件，由外部课程系统触发
type CompletionRequest struct {
	UserID uint   `json:"userId" binding:"required"`
	Kind   string `json:"kind" binding:"required,oneof=course module"`
	RefID  uint   `json:"refId"`
	Title  string `json:"title" binding:"max=200"`
	XP     int    `json:"xp" binding:"min=0,max=100000"`
}

type CompletionResult struct {
	Award         *AwardResult `json:"award,omitempty"`
	BadgesGranted []string     `json:"badgesGranted,omitempty"`
}

// CompletionService 与签到共用经验值、徽章与通知契约
type CompletionService struct {
	Progression *ProgressionService
	Badges      *BadgeService
	Notifier    Notifier
}

func NewCompletionService(progression *ProgressionService, badges *BadgeService, notifier Notifier) *CompletionService {
	return &CompletionService{
		Progression: progression,
		Badges:      badges,
		Notifier:    notifier,
	}
}

// Complete 奖励都是尽力而为，本方法只会因参数问题失败
func (s *CompletionService) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	if req.Kind != CompletionCourse && req.Kind != CompletionModule {
		return nil, fmt.Errorf("unknown completion kind %q", req.Kind)
	}

	res := &CompletionResult{}
	source := fmt.Sprintf("%s:%d", req.Kind, req.RefID)

	if req.XP > 0 {
		award, err := s.Progression.AwardXP(ctx, req.UserID, req.XP, source)
		if err != nil {
			logger.Log.Warn("xp award after completion failed", zap.Uint("userId", req.UserID), zap.String("source", source), zap.Error(err))
		} else {
			res.Award = award
			res.BadgesGranted = append(res.BadgesGranted, award.LevelBadges...)
		}
	}

	if req.Kind == CompletionCourse {
		granted, err := s.Badges.Grant(ctx, req.UserID, BadgeCourseFinisher, source)
		if err != nil {
			logger.Log.Warn("course badge grant failed", zap.Uint("userId", req.UserID), zap.Error(err))
		} else if granted {
			res.BadgesGranted = append(res.BadgesGranted, BadgeCourseFinisher)
		}
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s #%d", req.Kind, req.RefID)
	}
	s.Notifier.Notify(ctx, NewNotification(req.UserID, model.NotificationCourse,
		fmt.Sprintf("Completed: %s", title),
		fmt.Sprintf("Congratulations on finishing this %s!", req.Kind),
		fmt.Sprintf("/%ss/%d", req.Kind, req.RefID),
		map[string]interface{}{"kind": req.Kind, "refId": req.RefID, "xp": req.XP},
	))

	return res, nil
}
