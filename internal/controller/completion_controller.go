package controller

import (
	"github.com/gannfg/obelisk-learning-sub002/internal/service"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gin-gonic/gin"
)

type CompletionController struct {
	CompletionService *service.CompletionService
}

func NewCompletionController(completionService *service.CompletionService) *CompletionController {
	return &CompletionController{CompletionService: completionService}
}

// @Summary 上报课程/模块完成
// @Description 外部课程系统在学员完成课程或模块后调用，发放经验值与徽章
// @Tags 成长体系
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.CompletionRequest true "完成事件"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Router /admin/completions [post]
func (c *CompletionController) Complete(ctx *gin.Context) {
	var req service.CompletionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.CompletionService.Complete(ctx.Request.Context(), req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, result)
}
