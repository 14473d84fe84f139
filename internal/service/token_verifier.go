package service

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
)

// TokenVerifier 校验扫码得到的签到令牌，纯函数，无副作用
type TokenVerifier struct{}

func NewTokenVerifier() *TokenVerifier {
	return &TokenVerifier{}
}

// ExtractToken 从任意扫码文本中取出令牌：支持裸令牌或包含 /checkin/{token} 的链接，
// 去掉查询串和锚点
func ExtractToken(text string) string {
	s := strings.TrimSpace(text)
	// 先去掉查询串，避免参数中的 /checkin/ 覆盖路径
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, util.CheckinPathSegment); i >= 0 {
		s = s[i+len(util.CheckinPathSegment):]
	}
	s = strings.Trim(s, "/")
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// CheckRole 管理员只能为他人手动签到，不能扫码为自己签到
func (v *TokenVerifier) CheckRole(caller Caller) error {
	if caller.Role.IsAdmin() {
		return util.ErrRoleForbidden
	}
	return nil
}

// Verify 依次校验角色、令牌一致性与有效期，成功时返回工作坊 ID。
// scanned 为空时视为直接打开了签到链接，以会话令牌本身作为扫码结果。
func (v *TokenVerifier) Verify(caller Caller, workshop *model.Workshop, sessionToken, scanned string, now time.Time) (uint, error) {
	if err := v.CheckRole(caller); err != nil {
		return 0, err
	}
	if workshop == nil {
		return 0, util.ErrWorkshopNotFound
	}

	session := ExtractToken(sessionToken)
	extracted := session
	if strings.TrimSpace(scanned) != "" {
		extracted = ExtractToken(scanned)
	}

	if extracted == "" || !tokensEqual(extracted, session) || !tokensEqual(extracted, workshop.CheckinToken) {
		return 0, util.ErrTokenMismatch
	}

	if workshop.Expired(now) {
		return 0, util.ErrTokenExpired
	}

	return workshop.ID, nil
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
