package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInService_FirstCheckIn(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)
	f.progress.xp[student.ID] = 950

	res, err := f.checkIn.CheckIn(context.Background(), callerOf(student), CheckInRequest{Token: w.CheckinToken, Payload: w.CheckinToken})
	require.NoError(t, err)

	assert.Equal(t, w.ID, res.WorkshopID)
	assert.Equal(t, "Intro to Go", res.WorkshopTitle)
	assert.Equal(t, model.CheckinQR, res.Method)
	assert.Equal(t, fixedNow, res.CheckedInAt)
	assert.False(t, res.AlreadyCheckedIn)
	assert.Equal(t, 100, res.XPAwarded)
	assert.Equal(t, 1050, res.TotalXP)
	assert.Equal(t, 3, res.Level)
	assert.True(t, res.LeveledUp)
	assert.Empty(t, res.Milestones)
	assert.Equal(t, []string{BadgeFirstCheckin}, res.BadgesGranted)

	assert.Equal(t, 1050, f.progress.get(student.ID))
	assert.Len(t, f.notes.ofType(model.NotificationWorkshop), 1)
	assert.Len(t, f.notes.ofType(model.NotificationAchievement), 1)
	assert.Len(t, f.notes.ofType(model.NotificationBadge), 1)
}

func TestCheckInService_RepeatIsIdempotent(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)
	ctx := context.Background()

	_, err := f.checkIn.CheckIn(ctx, callerOf(student), CheckInRequest{Token: w.CheckinToken})
	require.NoError(t, err)
	notesAfterFirst := f.notes.count()

	res, err := f.checkIn.CheckIn(ctx, callerOf(student), CheckInRequest{Token: w.CheckinToken})
	require.NoError(t, err)
	assert.True(t, res.AlreadyCheckedIn)
	assert.Equal(t, 0, res.XPAwarded)
	assert.Equal(t, 100, res.TotalXP)
	assert.Equal(t, fixedNow, res.CheckedInAt)

	assert.Equal(t, 1, f.attendance.count())
	assert.Equal(t, 100, f.progress.get(student.ID))
	assert.Equal(t, notesAfterFirst, f.notes.count())
}

func TestCheckInService_WorkshopXPOverride(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 250, time.Hour)

	res, err := f.checkIn.CheckIn(context.Background(), callerOf(teacher), CheckInRequest{Token: w.CheckinToken})
	require.NoError(t, err)
	assert.Equal(t, 250, res.XPAwarded)
}

func TestCheckInService_ZeroDefaultXP(t *testing.T) {
	f := newCheckinFixture(t)
	f.checkIn.SetDefaultXP(0)
	w := f.addWorkshop(t, 0, time.Hour)

	res, err := f.checkIn.CheckIn(context.Background(), callerOf(student), CheckInRequest{Token: w.CheckinToken})
	require.NoError(t, err)
	assert.False(t, res.AlreadyCheckedIn)
	assert.Equal(t, 0, res.XPAwarded)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, []string{BadgeFirstCheckin}, res.BadgesGranted)
}

func TestCheckInService_AdminBlocked(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)

	_, err := f.checkIn.CheckIn(context.Background(), callerOf(admin), CheckInRequest{Token: w.CheckinToken})
	assert.ErrorIs(t, err, util.ErrRoleForbidden)

	// 令牌无效时同样先拒绝角色
	_, err = f.checkIn.CheckIn(context.Background(), callerOf(admin), CheckInRequest{Token: "bogus"})
	assert.ErrorIs(t, err, util.ErrRoleForbidden)

	assert.Equal(t, 0, f.attendance.count())
	assert.Equal(t, 0, f.notes.count())
}

func TestCheckInService_Rejections(t *testing.T) {
	f := newCheckinFixture(t)
	open := f.addWorkshop(t, 0, time.Hour)
	other := f.addWorkshop(t, 0, time.Hour)
	closed := f.addWorkshop(t, 0, -time.Minute)
	ctx := context.Background()

	_, err := f.checkIn.CheckIn(ctx, callerOf(student), CheckInRequest{Token: closed.CheckinToken})
	assert.ErrorIs(t, err, util.ErrTokenExpired)

	_, err = f.checkIn.CheckIn(ctx, callerOf(student), CheckInRequest{Token: open.CheckinToken, Payload: other.CheckinToken})
	assert.ErrorIs(t, err, util.ErrTokenMismatch)

	_, err = f.checkIn.CheckIn(ctx, callerOf(student), CheckInRequest{Token: "no-such-token"})
	assert.ErrorIs(t, err, util.ErrWorkshopNotFound)

	assert.Equal(t, 0, f.attendance.count())
	assert.Equal(t, 0, f.progress.get(student.ID))
}

func TestCheckInService_LinkPayload(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)

	res, err := f.checkIn.CheckIn(context.Background(), callerOf(student), CheckInRequest{
		Token:   f.workshops.CheckinURL(w.CheckinToken),
		Payload: "https://learn.example.com/checkin/" + w.CheckinToken + "?src=poster",
	})
	require.NoError(t, err)
	assert.Equal(t, w.ID, res.WorkshopID)
}

func TestCheckInService_LedgerFailure(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)
	f.attendance.failWith = errors.New("connection reset")

	_, err := f.checkIn.CheckIn(context.Background(), callerOf(student), CheckInRequest{Token: w.CheckinToken})
	assert.ErrorIs(t, err, util.ErrStoreUnavailable)
	assert.Equal(t, 0, f.progress.get(student.ID))
	assert.Equal(t, 0, f.notes.count())
}

func TestCheckInService_RewardFailuresDoNotBlock(t *testing.T) {
	t.Run("xp store error", func(t *testing.T) {
		f := newCheckinFixture(t)
		w := f.addWorkshop(t, 0, time.Hour)
		f.progress.failWith = util.ErrStoreUnavailable

		res, err := f.checkIn.CheckIn(context.Background(), callerOf(student), CheckInRequest{Token: w.CheckinToken})
		require.NoError(t, err)
		assert.False(t, res.AlreadyCheckedIn)
		assert.Equal(t, 0, res.XPAwarded)
		assert.Equal(t, 1, f.attendance.count())
		assert.Len(t, f.notes.ofType(model.NotificationWorkshop), 1)
	})

	t.Run("progression schema missing", func(t *testing.T) {
		f := newCheckinFixture(t)
		w := f.addWorkshop(t, 0, time.Hour)
		f.progress.schemaMissing = true

		res, err := f.checkIn.CheckIn(context.Background(), callerOf(student), CheckInRequest{Token: w.CheckinToken})
		require.NoError(t, err)
		assert.Equal(t, 0, res.XPAwarded)
		assert.Equal(t, 1, res.Level)
		assert.Equal(t, []string{BadgeFirstCheckin}, res.BadgesGranted)
	})

	t.Run("notification store error", func(t *testing.T) {
		f := newCheckinFixture(t)
		w := f.addWorkshop(t, 0, time.Hour)
		f.notes.failWith = errors.New("disk full")

		res, err := f.checkIn.CheckIn(context.Background(), callerOf(student), CheckInRequest{Token: w.CheckinToken})
		require.NoError(t, err)
		assert.Equal(t, 100, res.XPAwarded)
	})
}

func TestCheckInService_ManualByEmail(t *testing.T) {
	f := newCheckinFixture(t)
	// 令牌已过期不影响手动签到
	w := f.addWorkshop(t, 0, -time.Hour)

	res, err := f.checkIn.ManualCheckIn(context.Background(), callerOf(admin), w.ID, ManualCheckInRequest{Email: student.Email})
	require.NoError(t, err)
	assert.Equal(t, student.ID, res.UserID)
	assert.Equal(t, model.CheckinManual, res.Method)
	assert.Equal(t, 100, res.XPAwarded)

	rec, err := f.attendance.FindByWorkshopAndUser(context.Background(), w.ID, student.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.RecordedBy)
	assert.Equal(t, admin.ID, *rec.RecordedBy)
}

func TestCheckInService_ManualAfterQR(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)
	ctx := context.Background()

	_, err := f.checkIn.CheckIn(ctx, callerOf(student), CheckInRequest{Token: w.CheckinToken})
	require.NoError(t, err)

	res, err := f.checkIn.ManualCheckIn(ctx, callerOf(admin), w.ID, ManualCheckInRequest{UserID: student.ID})
	require.NoError(t, err)
	assert.True(t, res.AlreadyCheckedIn)
	// 返回的是最初的签到方式
	assert.Equal(t, model.CheckinQR, res.Method)
	assert.Equal(t, 100, f.progress.get(student.ID))
}

func TestCheckInService_ManualRequiresAdmin(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)
	ctx := context.Background()

	_, err := f.checkIn.ManualCheckIn(ctx, callerOf(teacher), w.ID, ManualCheckInRequest{UserID: student.ID})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = f.checkIn.ManualCheckIn(ctx, callerOf(admin), w.ID, ManualCheckInRequest{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	_, err = f.checkIn.ManualCheckIn(ctx, callerOf(admin), 999, ManualCheckInRequest{UserID: student.ID})
	assert.ErrorIs(t, err, util.ErrWorkshopNotFound)

	assert.Equal(t, 0, f.attendance.count())
}

func TestCheckInService_ManualSelfRejected(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)
	ctx := context.Background()

	other := &model.User{BaseModel: model.BaseModel{ID: 2}, Name: "Ops", Email: "ops@example.com", Role: model.Admin}
	f.users.users[other.ID] = other

	tests := []struct {
		name string
		req  ManualCheckInRequest
	}{
		{"self by id", ManualCheckInRequest{UserID: admin.ID}},
		{"self by email", ManualCheckInRequest{Email: admin.Email}},
		{"another admin", ManualCheckInRequest{UserID: other.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.checkIn.ManualCheckIn(ctx, callerOf(admin), w.ID, tt.req)
			assert.ErrorIs(t, err, util.ErrRoleForbidden)
			assert.Nil(t, res)
		})
	}

	assert.Equal(t, 0, f.attendance.count())
	assert.Equal(t, 0, f.progress.get(admin.ID))
	assert.Equal(t, 0, f.progress.get(other.ID))
}

func TestCheckInService_ConcurrentCheckIns(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.checkIn.CheckIn(context.Background(), callerOf(student), CheckInRequest{Token: w.CheckinToken})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if !res.AlreadyCheckedIn {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, f.attendance.count())
	assert.Equal(t, 100, f.progress.get(student.ID))
	assert.Len(t, f.notes.ofType(model.NotificationWorkshop), 1)
}

func TestCheckInService_VerifyToken(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)
	expired := f.addWorkshop(t, 0, -time.Second)

	summary, err := f.checkIn.VerifyToken(context.Background(), w.CheckinToken)
	require.NoError(t, err)
	assert.Equal(t, w.ID, summary.ID)
	assert.Equal(t, 100, summary.XPReward)

	_, err = f.checkIn.VerifyToken(context.Background(), expired.CheckinToken)
	assert.ErrorIs(t, err, util.ErrTokenExpired)
}

func TestCheckInService_ListAttendance(t *testing.T) {
	f := newCheckinFixture(t)
	w := f.addWorkshop(t, 0, time.Hour)
	ctx := context.Background()

	rows, err := f.checkIn.ListAttendance(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = f.checkIn.CheckIn(ctx, callerOf(student), CheckInRequest{Token: w.CheckinToken})
	require.NoError(t, err)

	rows, err = f.checkIn.ListAttendance(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada", rows[0].Name)

	_, err = f.checkIn.ListAttendance(ctx, 999)
	assert.ErrorIs(t, err, util.ErrWorkshopNotFound)
}
