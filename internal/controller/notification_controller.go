package controller

import (
	"strconv"

	"github.com/gannfg/obelisk-learning-sub002/internal/service"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationController struct {
	NotificationService *service.NotificationService
	Hub                 *service.NotificationHub
}

func NewNotificationController(notificationService *service.NotificationService, hub *service.NotificationHub) *NotificationController {
	return &NotificationController{
		NotificationService: notificationService,
		Hub:                 hub,
	}
}

// @Summary 通知列表
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Param unread query bool false "只看未读"
// @Param limit query int false "返回数量" default(50)
// @Success 200 {object} util.Response{data=[]model.Notification}
// @Router /notifications [get]
func (c *NotificationController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	unreadOnly, _ := strconv.ParseBool(ctx.Query("unread"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))

	list, err := c.NotificationService.List(ctx.Request.Context(), user.UserID, unreadOnly, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, list)
}

// @Summary 标记通知已读
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "通知ID"
// @Success 200 {object} util.Response
// @Router /notifications/{id}/read [patch]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	if err := c.NotificationService.MarkRead(ctx.Request.Context(), user.UserID, id); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// @Summary 全部标记已读
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /notifications/read-all [post]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	n, err := c.NotificationService.MarkAllRead(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"updated": n})
}

// @Summary 通知推送 WebSocket
// @Description 通过 access_token 查询参数鉴权
// @Tags 通知
// @Security ApiKeyAuth
// @Router /notifications/ws [get]
func (c *NotificationController) WebSocket(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Hub.ServeWS(ctx.Writer, ctx.Request, user.UserID); err != nil {
		// 升级失败时 websocket 已写出响应
		logger.Log.Debug("notification websocket upgrade failed", zap.Uint("userId", user.UserID), zap.Error(err))
	}
}
