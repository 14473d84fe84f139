package controller

import (
	"strconv"

	"github.com/gannfg/obelisk-learning-sub002/internal/service"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressionService *service.ProgressionService
	BadgeService       *service.BadgeService
}

func NewProgressController(progressionService *service.ProgressionService, badgeService *service.BadgeService) *ProgressController {
	return &ProgressController{
		ProgressionService: progressionService,
		BadgeService:       badgeService,
	}
}

// @Summary 获取个人进度
// @Description 获取经验值、等级与已获得的徽章
// @Tags 成长体系
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ProgressSummary}
// @Router /progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.ProgressionService.GetProgress(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary 获取排行榜
// @Description 获取用户经验值排行榜
// @Tags 成长体系
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /progress/leaderboard [get]
func (c *ProgressController) GetLeaderboard(ctx *gin.Context) {
	limit := 10
	if limitStr := ctx.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	leaderboard, err := c.ProgressionService.Leaderboard(ctx.Request.Context(), limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, leaderboard)
}

// @Summary 获取我的徽章
// @Tags 成长体系
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.UserBadge}
// @Router /badges [get]
func (c *ProgressController) GetBadges(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	badges, err := c.BadgeService.ListForUser(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, badges)
}
