package util

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrWorkshopNotFound = errors.New("workshop not found")
	ErrNotFound         = errors.New("resource not found")

	// 签到被拒绝，用户可重试或跳转，不自动重试
	ErrTokenMismatch = errors.New("check-in token does not match this workshop")
	ErrTokenExpired  = errors.New("check-in token has expired")
	ErrRoleForbidden = errors.New("administrators cannot check themselves in by QR code")

	ErrCaptureUnavailable = errors.New("camera or scanner is unavailable, enter the check-in code manually")
	ErrStoreUnavailable   = errors.New("data store unavailable")

	// 以下错误只记录日志，不暴露给终端用户
	ErrProgressionSchemaMissing = errors.New("progression schema not provisioned")
	ErrNotificationFailure      = errors.New("notification delivery failed")

	ErrInvalidXPAmount = errors.New("xp amount must be positive")
	ErrDuplicate       = errors.New("duplicate record")
)
