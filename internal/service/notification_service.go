package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/gannfg/obelisk-learning-sub002/pkg/logger"
	"github.com/gannfg/obelisk-learning-sub002/pkg/monitoring"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const deliveryTimeout = 5 * time.Second

// Notifier 尽力而为的通知出口，永远不向调用方返回错误
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification)
	NotifyAll(ctx context.Context, list []*model.Notification)
}

// Publisher 实时推送通道（WebSocket / Redis），可为空
type Publisher interface {
	Publish(ctx context.Context, n *model.Notification) error
}

// NotificationService 通知分发器。workers > 0 时通过缓冲队列异步投递，
// 否则在调用方 goroutine 中同步投递。任何失败只记录日志和指标。
type NotificationService struct {
	Repo      NotificationStore
	Publisher Publisher

	queue   chan *model.Notification
	workers int
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

func NewNotificationService(repo NotificationStore, publisher Publisher, workers, queueSize int) *NotificationService {
	s := &NotificationService{
		Repo:      repo,
		Publisher: publisher,
		workers:   workers,
	}
	if workers > 0 {
		if queueSize <= 0 {
			queueSize = 256
		}
		s.queue = make(chan *model.Notification, queueSize)
	}
	return s
}

// Start 启动投递协程，同步模式下为空操作
func (s *NotificationService) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for n := range s.queue {
				monitoring.NotificationQueueDepth.Dec()
				ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
				s.deliver(ctx, n)
				cancel()
			}
		}()
	}
}

// Stop 关闭队列并等待积压通知投递完，超过 ctx 期限则放弃
func (s *NotificationService) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.queue != nil {
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Log.Warn("notification queue not drained before shutdown", zap.Int("pending", len(s.queue)))
	}
}

func (s *NotificationService) Notify(ctx context.Context, n *model.Notification) {
	if n == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.fail(n, "closed", util.ErrNotificationFailure)
		return
	}

	if s.queue == nil {
		s.deliver(ctx, n)
		return
	}

	select {
	case s.queue <- n:
		monitoring.NotificationQueueDepth.Inc()
	default:
		s.fail(n, "queue_full", util.ErrNotificationFailure)
	}
}

// NotifyAll 多个通知相互独立：异步模式逐个入队，同步模式并发投递并等待完成
func (s *NotificationService) NotifyAll(ctx context.Context, list []*model.Notification) {
	if len(list) == 0 {
		return
	}
	if s.queue != nil {
		for _, n := range list {
			s.Notify(ctx, n)
		}
		return
	}

	var wg sync.WaitGroup
	for _, n := range list {
		wg.Add(1)
		go func(n *model.Notification) {
			defer wg.Done()
			s.Notify(ctx, n)
		}(n)
	}
	wg.Wait()
}

func (s *NotificationService) deliver(ctx context.Context, n *model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(n, "panic", fmt.Errorf("%w: %v", util.ErrNotificationFailure, r))
		}
	}()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if err := s.Repo.Create(ctx, n); err != nil {
		s.fail(n, "store", err)
		return
	}

	if s.Publisher != nil {
		if err := s.Publisher.Publish(ctx, n); err != nil {
			s.fail(n, "publish", err)
		}
	}
}

func (s *NotificationService) fail(n *model.Notification, stage string, err error) {
	monitoring.NotificationFailures.WithLabelValues(string(n.Type), stage).Inc()
	logger.Log.Warn("notification dropped",
		zap.Uint("userId", n.UserID),
		zap.String("type", string(n.Type)),
		zap.String("stage", stage),
		zap.Error(err),
	)
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	list, err := s.Repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	return s.Repo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.Repo.MarkAllRead(ctx, userID)
}

// NewNotification 构造通知，metadata 序列化失败时忽略元数据
func NewNotification(userID uint, typ model.NotificationType, title, message, link string, metadata map[string]interface{}) *model.Notification {
	n := &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			n.Metadata = datatypes.JSON(raw)
		}
	}
	return n
}
