package controller

import (
	"fmt"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/service"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gin-gonic/gin"
)

type AttendanceController struct {
	CheckInService    *service.CheckInService
	AttendanceService *service.AttendanceService
}

func NewAttendanceController(checkInService *service.CheckInService, attendanceService *service.AttendanceService) *AttendanceController {
	return &AttendanceController{
		CheckInService:    checkInService,
		AttendanceService: attendanceService,
	}
}

// @Summary 签到名单
// @Description 工作坊签到名单，format=csv 时以 CSV 下载
// @Tags 工作坊签到
// @Produce json
// @Produce text/csv
// @Security ApiKeyAuth
// @Param id path int true "工作坊ID"
// @Param format query string false "json 或 csv"
// @Success 200 {object} util.Response{data=[]model.AttendeeRow}
// @Router /admin/workshops/{id}/attendance [get]
func (c *AttendanceController) List(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}

	if ctx.Query("format") == "csv" {
		c.exportCSV(ctx, id)
		return
	}

	rows, err := c.CheckInService.ListAttendance(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"items": rows,
		"total": len(rows),
	})
}

func (c *AttendanceController) exportCSV(ctx *gin.Context, id uint) {
	// 先确认工作坊存在，避免写出响应头后才发现错误
	if _, err := c.CheckInService.Workshops.Get(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}

	filename := fmt.Sprintf("workshop-%d-attendance-%s.csv", id, time.Now().Format("20060102"))
	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := c.AttendanceService.ExportCSV(ctx.Request.Context(), id, ctx.Writer); err != nil {
		util.LogInternalError(ctx, err)
	}
}

// @Summary 归档签到名单
// @Description 将 CSV 名单保存到文件存储并返回地址
// @Tags 工作坊签到
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "工作坊ID"
// @Success 200 {object} util.Response
// @Router /admin/workshops/{id}/attendance/archive [post]
func (c *AttendanceController) Archive(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if _, err := c.CheckInService.Workshops.Get(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}

	fileURL, err := c.AttendanceService.ArchiveCSV(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"url": fileURL})
}
