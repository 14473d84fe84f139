package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/stretchr/testify/require"
)

type fakeWorkshopStore struct {
	mu     sync.Mutex
	byID   map[uint]model.Workshop
	nextID uint
}

func newFakeWorkshopStore() *fakeWorkshopStore {
	return &fakeWorkshopStore{byID: make(map[uint]model.Workshop)}
}

func (s *fakeWorkshopStore) Create(ctx context.Context, w *model.Workshop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	w.ID = s.nextID
	s.byID[w.ID] = *w
	return nil
}

func (s *fakeWorkshopStore) FindByID(ctx context.Context, id uint) (*model.Workshop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byID[id]
	if !ok {
		return nil, util.ErrWorkshopNotFound
	}
	return &w, nil
}

func (s *fakeWorkshopStore) FindByToken(ctx context.Context, token string) (*model.Workshop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.byID {
		if w.CheckinToken == token {
			w := w
			return &w, nil
		}
	}
	return nil, util.ErrWorkshopNotFound
}

func (s *fakeWorkshopStore) UpdateToken(ctx context.Context, id uint, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byID[id]
	if !ok {
		return util.ErrWorkshopNotFound
	}
	w.CheckinToken = token
	w.TokenExpiresAt = expiresAt
	s.byID[id] = w
	return nil
}

type fakeUserStore struct {
	users map[uint]*model.User
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uint]*model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, util.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, util.ErrUserNotFound
}

type fakeAttendanceStore struct {
	mu      sync.Mutex
	records []model.AttendanceRecord
	users   *fakeUserStore
	failWith error
}

func (s *fakeAttendanceStore) Create(ctx context.Context, record *model.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	for _, r := range s.records {
		if r.WorkshopID == record.WorkshopID && r.UserID == record.UserID {
			return util.ErrDuplicate
		}
	}
	record.ID = uint(len(s.records) + 1)
	s.records = append(s.records, *record)
	return nil
}

func (s *fakeAttendanceStore) FindByWorkshopAndUser(ctx context.Context, workshopID, userID uint) (*model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.WorkshopID == workshopID && r.UserID == userID {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (s *fakeAttendanceStore) CountByUser(ctx context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.records {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *fakeAttendanceStore) ListByWorkshop(ctx context.Context, workshopID uint) ([]model.AttendeeRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []model.AttendeeRow
	for _, r := range s.records {
		if r.WorkshopID != workshopID {
			continue
		}
		row := model.AttendeeRow{UserID: r.UserID, CheckedInAt: r.CheckedInAt, Method: r.Method}
		if s.users != nil {
			if u, ok := s.users.users[r.UserID]; ok {
				row.Name = u.Name
				row.Email = u.Email
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *fakeAttendanceStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type fakeProgressStore struct {
	mu            sync.Mutex
	xp            map[uint]int
	schemaMissing bool
	failWith      error
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{xp: make(map[uint]int)}
}

func (s *fakeProgressStore) ApplyXP(ctx context.Context, userID uint, amount int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaMissing {
		return 0, 0, util.ErrProgressionSchemaMissing
	}
	if s.failWith != nil {
		return 0, 0, s.failWith
	}
	old := s.xp[userID]
	s.xp[userID] = old + amount
	return old, old + amount, nil
}

func (s *fakeProgressStore) FindXP(ctx context.Context, userID uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaMissing {
		return 0, util.ErrProgressionSchemaMissing
	}
	return s.xp[userID], nil
}

func (s *fakeProgressStore) Top(ctx context.Context, limit int) ([]model.LeaderboardRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaMissing {
		return nil, util.ErrProgressionSchemaMissing
	}
	var rows []model.LeaderboardRow
	for id, xp := range s.xp {
		rows = append(rows, model.LeaderboardRow{UserID: id, XP: xp})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].XP > rows[j].XP })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *fakeProgressStore) get(userID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.xp[userID]
}

type fakeBadgeStore struct {
	mu         sync.Mutex
	badges     map[string]model.Badge
	userBadges []model.UserBadge
	nextID     uint
	// preempt 模拟另一个请求抢先创建了同名徽章
	preempt bool
}

func newFakeBadgeStore() *fakeBadgeStore {
	return &fakeBadgeStore{badges: make(map[string]model.Badge)}
}

func (s *fakeBadgeStore) FindByName(ctx context.Context, name string) (*model.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[name]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *fakeBadgeStore) Create(ctx context.Context, badge *model.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preempt {
		s.preempt = false
		s.nextID++
		s.badges[badge.Name] = model.Badge{BaseModel: model.BaseModel{ID: s.nextID}, Name: badge.Name}
		return util.ErrDuplicate
	}
	if _, ok := s.badges[badge.Name]; ok {
		return util.ErrDuplicate
	}
	s.nextID++
	badge.ID = s.nextID
	s.badges[badge.Name] = *badge
	return nil
}

func (s *fakeBadgeStore) CreateUserBadge(ctx context.Context, ub *model.UserBadge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.userBadges {
		if existing.UserID == ub.UserID && existing.BadgeID == ub.BadgeID {
			return util.ErrDuplicate
		}
	}
	ub.ID = uint(len(s.userBadges) + 1)
	s.userBadges = append(s.userBadges, *ub)
	return nil
}

func (s *fakeBadgeStore) ListByUser(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []model.UserBadge
	for _, ub := range s.userBadges {
		if ub.UserID != userID {
			continue
		}
		for _, b := range s.badges {
			if b.ID == ub.BadgeID {
				ub.Badge = b
			}
		}
		list = append(list, ub)
	}
	return list, nil
}

func (s *fakeBadgeStore) names(userID uint) []string {
	list, _ := s.ListByUser(context.Background(), userID)
	var names []string
	for _, ub := range list {
		names = append(names, ub.Badge.Name)
	}
	sort.Strings(names)
	return names
}

type fakeNotificationStore struct {
	mu       sync.Mutex
	list     []model.Notification
	failWith error
}

func (s *fakeNotificationStore) Create(ctx context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	n.ID = uint(len(s.list) + 1)
	s.list = append(s.list, *n)
	return nil
}

func (s *fakeNotificationStore) ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.list {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeNotificationStore) MarkRead(ctx context.Context, userID, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == id && s.list[i].UserID == userID {
			s.list[i].IsRead = true
			return nil
		}
	}
	return util.ErrNotFound
}

func (s *fakeNotificationStore) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.list {
		if s.list[i].UserID == userID && !s.list[i].IsRead {
			s.list[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *fakeNotificationStore) ofType(typ model.NotificationType) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.list {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func (s *fakeNotificationStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

var fixedNow = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

var (
	student = &model.User{BaseModel: model.BaseModel{ID: 7}, Name: "Ada", Email: "ada@example.com", Role: model.Student}
	teacher = &model.User{BaseModel: model.BaseModel{ID: 8}, Name: "Grace", Email: "grace@example.com", Role: model.Teacher}
	admin   = &model.User{BaseModel: model.BaseModel{ID: 1}, Name: "Root", Email: "root@example.com", Role: model.Admin}
)

func callerOf(u *model.User) Caller {
	return Caller{UserID: u.ID, Role: u.Role}
}

// checkinFixture 用内存存储组装完整的签到链路，通知同步投递
type checkinFixture struct {
	workshopStore *fakeWorkshopStore
	users         *fakeUserStore
	attendance    *fakeAttendanceStore
	progress      *fakeProgressStore
	badgeStore    *fakeBadgeStore
	notes         *fakeNotificationStore

	notifier    *NotificationService
	workshops   *WorkshopService
	ledger      *AttendanceService
	badges      *BadgeService
	progression *ProgressionService
	checkIn     *CheckInService
}

func newCheckinFixture(t *testing.T) *checkinFixture {
	t.Helper()
	f := &checkinFixture{
		workshopStore: newFakeWorkshopStore(),
		users:         newFakeUserStore(student, teacher, admin),
		progress:      newFakeProgressStore(),
		badgeStore:    newFakeBadgeStore(),
		notes:         &fakeNotificationStore{},
	}
	f.attendance = &fakeAttendanceStore{users: f.users}

	f.notifier = NewNotificationService(f.notes, nil, 0, 0)
	f.workshops = NewWorkshopService(f.workshopStore, nil, "https://learn.example.com", 4*time.Hour, 0)
	f.workshops.Now = func() time.Time { return fixedNow }
	f.ledger = NewAttendanceService(f.attendance, f.users, nil)
	f.ledger.Now = func() time.Time { return fixedNow }
	f.badges = NewBadgeService(f.badgeStore, f.attendance, f.notifier)
	f.badges.Now = func() time.Time { return fixedNow }
	f.progression = NewProgressionService(f.progress, f.badges, f.notifier, util.MilestoneModeExact)
	f.checkIn = NewCheckInService(f.workshops, NewTokenVerifier(), f.ledger, f.progression, f.badges, f.notifier, 100)
	f.checkIn.Now = func() time.Time { return fixedNow }
	return f
}

// addWorkshop 创建一个从 fixedNow 前一小时开始、expiresIn 后过期的工作坊
func (f *checkinFixture) addWorkshop(t *testing.T, xpReward int, expiresIn time.Duration) *model.Workshop {
	t.Helper()
	w := &model.Workshop{
		Title:          "Intro to Go",
		ScheduledAt:    fixedNow.Add(-time.Hour),
		HostID:         teacher.ID,
		CheckinToken:   model.NewCheckinToken(),
		TokenExpiresAt: fixedNow.Add(expiresIn),
		XPReward:       xpReward,
	}
	require.NoError(t, f.workshopStore.Create(context.Background(), w))
	return w
}
