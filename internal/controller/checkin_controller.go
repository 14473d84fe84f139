package controller

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gannfg/obelisk-learning-sub002/internal/service"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gin-gonic/gin"
)

type CheckInController struct {
	CheckInService *service.CheckInService
	FrontendURL    string
}

func NewCheckInController(checkInService *service.CheckInService, frontendURL string) *CheckInController {
	return &CheckInController{
		CheckInService: checkInService,
		FrontendURL:    strings.TrimRight(frontendURL, "/"),
	}
}

func callerFrom(ctx *gin.Context) (service.Caller, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return service.Caller{}, false
	}
	return service.Caller{UserID: user.UserID, Role: user.Role}, true
}

// Redirect 二维码中的链接，跳转到前端签到页面。
// 挂在根路径而非 /api 下，不出现在接口文档中
func (c *CheckInController) Redirect(ctx *gin.Context) {
	token := service.ExtractToken(ctx.Param("token"))
	if token == "" {
		util.NotFound(ctx)
		return
	}
	ctx.Redirect(http.StatusFound, c.FrontendURL+util.CheckinPathSegment+url.PathEscape(token))
}

// @Summary 校验签到令牌
// @Description 签到页面加载时获取工作坊信息
// @Tags 工作坊签到
// @Produce json
// @Security ApiKeyAuth
// @Param token path string true "签到令牌"
// @Success 200 {object} util.Response{data=model.WorkshopSummary}
// @Failure 404 {object} util.Response
// @Failure 410 {object} util.Response
// @Router /checkin/{token} [get]
func (c *CheckInController) VerifyToken(ctx *gin.Context) {
	if _, ok := callerFrom(ctx); !ok {
		return
	}

	summary, err := c.CheckInService.VerifyToken(ctx.Request.Context(), ctx.Param("token"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}

// @Summary 扫码签到
// @Description 提交扫码结果完成签到，重复签到返回 alreadyCheckedIn=true
// @Tags 工作坊签到
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.CheckInRequest true "签到请求"
// @Success 200 {object} util.Response{data=service.CheckInResult}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Failure 410 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /checkin [post]
func (c *CheckInController) CheckIn(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	var req service.CheckInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.CheckInService.CheckIn(ctx.Request.Context(), caller, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 手动签到
// @Description 管理员按用户 ID 或邮箱为学员签到
// @Tags 工作坊签到
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "工作坊ID"
// @Param request body service.ManualCheckInRequest true "目标用户"
// @Success 200 {object} util.Response{data=service.CheckInResult}
// @Router /admin/workshops/{id}/attendance [post]
func (c *CheckInController) ManualCheckIn(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}
	workshopID, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	var req service.ManualCheckInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.UserID == 0 && strings.TrimSpace(req.Email) == "" {
		util.BadRequest(ctx, "userId or email is required")
		return
	}

	result, err := c.CheckInService.ManualCheckIn(ctx.Request.Context(), caller, workshopID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
