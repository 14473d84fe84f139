package util

import (
	"errors"
	"net/http"

	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// StatusForError 将业务错误映射为 HTTP 状态码
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrRoleForbidden), errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrTokenMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrTokenExpired):
		return http.StatusGone
	case errors.Is(err, ErrWorkshopNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidXPAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError 按错误类型返回响应，未知错误记录日志并隐藏细节
func HandleError(c *gin.Context, err error) {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		LogInternalError(c, err)
		return
	}
	if status == http.StatusServiceUnavailable {
		logger.Log.Warn("store unavailable", zap.Error(err), zap.String("path", c.FullPath()))
		Error(c, status, ErrStoreUnavailable.Error())
		return
	}
	Error(c, status, err.Error())
}
