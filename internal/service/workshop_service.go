package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"github.com/go-redis/redis/v8"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

type CreateWorkshopRequest struct {
	Title         string    `json:"title" binding:"required,max=200"`
	Description   string    `json:"description"`
	ScheduledAt   time.Time `json:"scheduledAt" binding:"required"`
	TokenTTLHours int       `json:"tokenTtlHours" binding:"min=0,max=720"`
	XPReward      int       `json:"xpReward" binding:"min=0,max=10000"`
}

// WorkshopService 工作坊与签到令牌管理。按令牌查询的结果可缓存在 Redis 中。
type WorkshopService struct {
	Repo      WorkshopStore
	Redis     *redis.Client
	PublicURL string
	TokenTTL  time.Duration
	CacheTTL  time.Duration
	Now       func() time.Time
}

func NewWorkshopService(repo WorkshopStore, rdb *redis.Client, publicURL string, tokenTTL, cacheTTL time.Duration) *WorkshopService {
	return &WorkshopService{
		Repo:      repo,
		Redis:     rdb,
		PublicURL: strings.TrimRight(publicURL, "/"),
		TokenTTL:  tokenTTL,
		CacheTTL:  cacheTTL,
		Now:       time.Now,
	}
}

func (s *WorkshopService) Create(ctx context.Context, host Caller, req CreateWorkshopRequest) (*model.Workshop, error) {
	ttl := s.TokenTTL
	if req.TokenTTLHours > 0 {
		ttl = time.Duration(req.TokenTTLHours) * time.Hour
	}

	w := &model.Workshop{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		ScheduledAt:    req.ScheduledAt,
		HostID:         host.UserID,
		CheckinToken:   model.NewCheckinToken(),
		TokenExpiresAt: req.ScheduledAt.Add(ttl),
		XPReward:       req.XPReward,
	}
	if err := s.Repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkshopService) Get(ctx context.Context, id uint) (*model.Workshop, error) {
	return s.Repo.FindByID(ctx, id)
}

// workshopCacheEntry 工作坊结构体不序列化令牌，缓存时单独保存
type workshopCacheEntry struct {
	Workshop model.WorkshopSummary `json:"workshop"`
	Token    string                `json:"token"`
}

func tokenCacheKey(token string) string {
	return "workshop:token:" + token
}

// FindByToken 令牌查找工作坊，缓存异常时回退到数据库
func (s *WorkshopService) FindByToken(ctx context.Context, token string) (*model.Workshop, error) {
	token = ExtractToken(token)
	if token == "" {
		return nil, util.ErrWorkshopNotFound
	}

	if w := s.fromCache(ctx, token); w != nil {
		return w, nil
	}

	w, err := s.Repo.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, w)
	return w, nil
}

func (s *WorkshopService) fromCache(ctx context.Context, token string) *model.Workshop {
	if s.Redis == nil {
		return nil
	}
	raw, err := s.Redis.Get(ctx, tokenCacheKey(token)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Debug("workshop cache read failed", zap.Error(err))
		}
		return nil
	}
	var entry workshopCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Token != token {
		return nil
	}
	w := &model.Workshop{
		Title:          entry.Workshop.Title,
		ScheduledAt:    entry.Workshop.ScheduledAt,
		HostID:         entry.Workshop.HostID,
		CheckinToken:   entry.Token,
		TokenExpiresAt: entry.Workshop.TokenExpiresAt,
		XPReward:       entry.Workshop.XPReward,
	}
	w.ID = entry.Workshop.ID
	return w
}

func (s *WorkshopService) toCache(ctx context.Context, w *model.Workshop) {
	if s.Redis == nil || s.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(workshopCacheEntry{Workshop: w.Summary(), Token: w.CheckinToken})
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, tokenCacheKey(w.CheckinToken), raw, s.CacheTTL).Err(); err != nil {
		logger.Log.Debug("workshop cache write failed", zap.Error(err))
	}
}

// RotateToken 生成新令牌并使旧令牌失效，有效期从开始时间或当前时间（取较晚者）起算
func (s *WorkshopService) RotateToken(ctx context.Context, id uint) (*model.Workshop, error) {
	w, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldToken := w.CheckinToken

	start := s.Now()
	if w.ScheduledAt.After(start) {
		start = w.ScheduledAt
	}
	w.CheckinToken = model.NewCheckinToken()
	w.TokenExpiresAt = start.Add(s.TokenTTL)

	if err := s.Repo.UpdateToken(ctx, w.ID, w.CheckinToken, w.TokenExpiresAt); err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if err := s.Redis.Del(ctx, tokenCacheKey(oldToken)).Err(); err != nil {
			logger.Log.Warn("workshop cache invalidation failed", zap.Uint("workshopId", id), zap.Error(err))
		}
	}
	return w, nil
}

// CheckinURL 二维码中编码的签到链接
func (s *WorkshopService) CheckinURL(token string) string {
	return s.PublicURL + util.CheckinPathSegment + token
}

// QRCode 生成签到二维码 PNG
func (s *WorkshopService) QRCode(ctx context.Context, id uint, size int) ([]byte, error) {
	w, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if size < 128 || size > 1024 {
		size = 256
	}
	png, err := qrcode.Encode(s.CheckinURL(w.CheckinToken), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// WorkshopAdminView 管理端查看工作坊时包含令牌与签到链接
type WorkshopAdminView struct {
	*model.Workshop
	CheckinToken string `json:"checkinToken"`
	CheckinURL   string `json:"checkinUrl"`
}

func (s *WorkshopService) AdminView(w *model.Workshop) WorkshopAdminView {
	return WorkshopAdminView{
		Workshop:     w,
		CheckinToken: w.CheckinToken,
		CheckinURL:   s.CheckinURL(w.CheckinToken),
	}
}
