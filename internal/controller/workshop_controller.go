package controller

import (
	"net/http"
	"strconv"

	"github.com/gannfg/obelisk-learning-sub002/internal/service"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gin-gonic/gin"
)

type WorkshopController struct {
	WorkshopService *service.WorkshopService
}

func NewWorkshopController(workshopService *service.WorkshopService) *WorkshopController {
	return &WorkshopController{WorkshopService: workshopService}
}

// @Summary 创建工作坊
// @Description 创建工作坊并生成签到令牌
// @Tags 工作坊
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.CreateWorkshopRequest true "工作坊信息"
// @Success 201 {object} util.Response{data=service.WorkshopAdminView}
// @Router /admin/workshops [post]
func (c *WorkshopController) Create(ctx *gin.Context) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return
	}

	var req service.CreateWorkshopRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	w, err := c.WorkshopService.Create(ctx.Request.Context(), caller, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, c.WorkshopService.AdminView(w))
}

// @Summary 获取工作坊
// @Tags 工作坊
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "工作坊ID"
// @Success 200 {object} util.Response{data=model.Workshop}
// @Router /workshops/{id} [get]
func (c *WorkshopController) Get(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	w, err := c.WorkshopService.Get(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	if user := util.GetUserFromContext(ctx); user != nil && user.Role.IsAdmin() {
		util.Success(ctx, c.WorkshopService.AdminView(w))
		return
	}
	util.Success(ctx, w)
}

// @Summary 轮换签到令牌
// @Description 生成新的签到令牌，旧二维码立即失效
// @Tags 工作坊
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "工作坊ID"
// @Success 200 {object} util.Response{data=service.WorkshopAdminView}
// @Router /admin/workshops/{id}/rotate-token [post]
func (c *WorkshopController) RotateToken(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	w, err := c.WorkshopService.RotateToken(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, c.WorkshopService.AdminView(w))
}

// @Summary 签到二维码
// @Description 返回签到链接的二维码 PNG
// @Tags 工作坊
// @Produce png
// @Security ApiKeyAuth
// @Param id path int true "工作坊ID"
// @Param size query int false "边长像素" default(256)
// @Success 200 {file} binary
// @Router /admin/workshops/{id}/qrcode [get]
func (c *WorkshopController) QRCode(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	size, _ := strconv.Atoi(ctx.DefaultQuery("size", "256"))

	png, err := c.WorkshopService.QRCode(ctx.Request.Context(), id, size)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.Data(http.StatusOK, "image/png", png)
}
