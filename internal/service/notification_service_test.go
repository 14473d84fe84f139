package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/pkg/monitoring"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	err       error
	panicWith interface{}
	published []*model.Notification
}

func (p *recordingPublisher) Publish(ctx context.Context, n *model.Notification) error {
	if p.panicWith != nil {
		panic(p.panicWith)
	}
	p.published = append(p.published, n)
	return p.err
}

func failures(typ model.NotificationType, stage string) float64 {
	return testutil.ToFloat64(monitoring.NotificationFailures.WithLabelValues(string(typ), stage))
}

func TestNotificationService_DeliverSync(t *testing.T) {
	notes := &fakeNotificationStore{}
	pub := &recordingPublisher{}
	s := NewNotificationService(notes, pub, 0, 0)

	s.Notify(context.Background(), NewNotification(7, model.NotificationWorkshop, "t", "m", "/w/1", nil))

	require.Equal(t, 1, notes.count())
	require.Len(t, pub.published, 1)
	assert.False(t, pub.published[0].CreatedAt.IsZero())
}

func TestNotificationService_StoreErrorSwallowed(t *testing.T) {
	notes := &fakeNotificationStore{failWith: errors.New("connection refused")}
	pub := &recordingPublisher{}
	s := NewNotificationService(notes, pub, 0, 0)

	before := failures(model.NotificationSystem, "store")
	assert.NotPanics(t, func() {
		s.Notify(context.Background(), NewNotification(7, model.NotificationSystem, "t", "m", "", nil))
	})
	assert.Equal(t, before+1, failures(model.NotificationSystem, "store"))
	// 未入库的通知不推送
	assert.Empty(t, pub.published)
}

func TestNotificationService_PublishErrorSwallowed(t *testing.T) {
	notes := &fakeNotificationStore{}
	s := NewNotificationService(notes, &recordingPublisher{err: errors.New("redis down")}, 0, 0)

	before := failures(model.NotificationCourse, "publish")
	s.Notify(context.Background(), NewNotification(7, model.NotificationCourse, "t", "m", "", nil))

	assert.Equal(t, 1, notes.count())
	assert.Equal(t, before+1, failures(model.NotificationCourse, "publish"))
}

func TestNotificationService_PanicRecovered(t *testing.T) {
	notes := &fakeNotificationStore{}
	s := NewNotificationService(notes, &recordingPublisher{panicWith: "boom"}, 0, 0)

	before := failures(model.NotificationAssignment, "panic")
	assert.NotPanics(t, func() {
		s.Notify(context.Background(), NewNotification(7, model.NotificationAssignment, "t", "m", "", nil))
	})
	assert.Equal(t, before+1, failures(model.NotificationAssignment, "panic"))
}

func TestNotificationService_NilIgnored(t *testing.T) {
	notes := &fakeNotificationStore{}
	s := NewNotificationService(notes, nil, 0, 0)

	s.Notify(context.Background(), nil)
	s.NotifyAll(context.Background(), nil)
	assert.Equal(t, 0, notes.count())
}

func TestNotificationService_AsyncDrainOnStop(t *testing.T) {
	notes := &fakeNotificationStore{}
	s := NewNotificationService(notes, nil, 2, 16)
	s.Start()

	for i := 0; i < 5; i++ {
		s.Notify(context.Background(), NewNotification(uint(i+1), model.NotificationWorkshop, "t", "m", "", nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.Equal(t, 5, notes.count())

	before := failures(model.NotificationWorkshop, "closed")
	s.Notify(context.Background(), NewNotification(9, model.NotificationWorkshop, "t", "m", "", nil))
	assert.Equal(t, 5, notes.count())
	assert.Equal(t, before+1, failures(model.NotificationWorkshop, "closed"))

	// 重复 Stop 无副作用
	s.Stop(ctx)
}

func TestNotificationService_QueueFull(t *testing.T) {
	notes := &fakeNotificationStore{}
	// 不启动 worker，队列容量为 1
	s := NewNotificationService(notes, nil, 1, 1)

	before := failures(model.NotificationBadge, "queue_full")
	s.Notify(context.Background(), NewNotification(7, model.NotificationBadge, "a", "m", "", nil))
	s.Notify(context.Background(), NewNotification(7, model.NotificationBadge, "b", "m", "", nil))
	assert.Equal(t, before+1, failures(model.NotificationBadge, "queue_full"))
}

func TestNotificationService_NotifyAllSync(t *testing.T) {
	notes := &fakeNotificationStore{}
	s := NewNotificationService(notes, nil, 0, 0)

	s.NotifyAll(context.Background(), []*model.Notification{
		NewNotification(7, model.NotificationAchievement, "a", "m", "", nil),
		NewNotification(7, model.NotificationAchievement, "b", "m", "", nil),
		NewNotification(7, model.NotificationAchievement, "c", "m", "", nil),
	})
	assert.Equal(t, 3, notes.count())
}

func TestNotificationService_Inbox(t *testing.T) {
	notes := &fakeNotificationStore{}
	s := NewNotificationService(notes, nil, 0, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Notify(ctx, NewNotification(7, model.NotificationWorkshop, "t", "m", "", nil))
	}
	s.Notify(ctx, NewNotification(8, model.NotificationWorkshop, "t", "m", "", nil))

	list, err := s.List(ctx, 7, true, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, s.MarkRead(ctx, 7, list[0].ID))
	list, err = s.List(ctx, 7, true, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err := s.MarkAllRead(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err = s.List(ctx, 99, false, 10)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestNewNotification_Metadata(t *testing.T) {
	n := NewNotification(7, model.NotificationBadge, "title", "msg", "/x", map[string]interface{}{"badge": "Rising Star"})
	assert.Equal(t, uint(7), n.UserID)
	assert.JSONEq(t, `{"badge":"Rising Star"}`, string(n.Metadata))

	n = NewNotification(7, model.NotificationBadge, "title", "msg", "", map[string]interface{}{"bad": make(chan int)})
	assert.Empty(t, n.Metadata)

	n = NewNotification(7, model.NotificationBadge, "title", "msg", "", nil)
	assert.Empty(t, n.Metadata)
}
