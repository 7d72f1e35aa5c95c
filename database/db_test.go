package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	logModel "github.com/VersatileFusion/sangshekkan/models/log"
	"github.com/VersatileFusion/sangshekkan/models/otp"
	"github.com/VersatileFusion/sangshekkan/models/user"
	"github.com/VersatileFusion/sangshekkan/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store, err := NewGormStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

var base = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func seedOTP(t *testing.T, s *GormStore, code string, createdAt time.Time) *otp.OTP {
	t.Helper()
	rec := &otp.OTP{
		Phone:     "09123456789",
		Code:      code,
		Purpose:   otp.PurposeSignup,
		ExpiresAt: createdAt.Add(2 * time.Minute),
		CreatedAt: createdAt,
	}
	require.NoError(t, s.OTPs().Create(context.Background(), rec))
	require.NotEmpty(t, rec.ID)
	return rec
}

func TestOTPLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := seedOTP(t, s, "111111", base)
	second := seedOTP(t, s, "222222", base.Add(30*time.Second))

	got, err := s.OTPs().FindLatestSince(ctx, "09123456789", otp.PurposeSignup, base.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = s.OTPs().FindLatestSince(ctx, "09123456789", otp.PurposeSignup, second.CreatedAt)
	assert.ErrorIs(t, err, repository.ErrNotFound, "bound is exclusive")

	_, err = s.OTPs().FindLatestSince(ctx, "09123456789", otp.PurposeLogin, base.Add(-time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err = s.OTPs().FindActive(ctx, "09123456789", otp.PurposeSignup, "111111", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.OTPs().FindActive(ctx, "09123456789", otp.PurposeSignup, "111111", first.ExpiresAt)
	assert.ErrorIs(t, err, repository.ErrNotFound, "expired at the boundary")
}

func TestOTPIncrementAttemptsTargetsNewestActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := seedOTP(t, s, "111111", base)
	newer := seedOTP(t, s, "222222", base.Add(10*time.Second))
	now := base.Add(20 * time.Second)

	require.NoError(t, s.OTPs().IncrementAttempts(ctx, "09123456789", otp.PurposeSignup, now))
	require.NoError(t, s.OTPs().IncrementAttempts(ctx, "09123456789", otp.PurposeSignup, now))

	got, err := s.OTPs().FindActive(ctx, "09123456789", otp.PurposeSignup, newer.Code, now)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)

	got, err = s.OTPs().FindActive(ctx, "09123456789", otp.PurposeSignup, older.Code, now)
	require.NoError(t, err)
	assert.Zero(t, got.Attempts)

	// nothing active, nothing to charge
	require.NoError(t, s.OTPs().IncrementAttempts(ctx, "09120000000", otp.PurposeSignup, now))
}

func TestOTPMarkUsedOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec := seedOTP(t, s, "111111", base)

	ok, err := s.OTPs().MarkUsed(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.OTPs().MarkUsed(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.OTPs().FindActive(ctx, rec.Phone, rec.Purpose, rec.Code, base.Add(time.Second))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOTPDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec := seedOTP(t, s, "111111", base)

	require.NoError(t, s.OTPs().Delete(ctx, rec.ID))
	_, err := s.OTPs().FindLatestSince(ctx, rec.Phone, rec.Purpose, base.Add(-time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash := "hash"
	u := &user.User{Phone: "09123456789", Name: "سارا", PasswordHash: &hash, Role: user.RoleStudent, Status: user.StatusActive, IsVerified: true}
	require.NoError(t, s.Users().Create(ctx, u))
	require.NotEmpty(t, u.ID)

	dup := &user.User{Phone: "09123456789", Name: "دیگری", Role: user.RoleStudent, Status: user.StatusActive}
	assert.ErrorIs(t, s.Users().Create(ctx, dup), repository.ErrDuplicate)

	got, err := s.Users().FindByPhone(ctx, "09123456789")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsVerified)

	_, err = s.Users().FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	suspended := user.StatusSuspended
	lastLogin := base.Add(time.Hour)
	require.NoError(t, s.Users().UpdateByID(ctx, u.ID, repository.UserUpdate{Status: &suspended, LastLogin: &lastLogin}, base.Add(time.Hour)))

	got, err = s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, user.StatusSuspended, got.Status)
	require.NotNil(t, got.LastLogin)
	assert.True(t, lastLogin.Equal(*got.LastLogin))
	assert.Equal(t, "سارا", got.Name)

	err = s.Users().UpdateByID(ctx, "missing", repository.UserUpdate{Status: &suspended}, base)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, s.Users().UpdateByID(ctx, "missing", repository.UserUpdate{}, base), "empty update is a no-op")
}

func TestUserList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	accounts := []*user.User{
		{Phone: "09120000001", Name: "الف", Role: user.RoleStudent, Status: user.StatusActive, CreatedAt: base},
		{Phone: "09120000002", Name: "ب", Role: user.RoleAdmin, Status: user.StatusActive, CreatedAt: base.Add(time.Minute)},
		{Phone: "09120000003", Name: "پ", Role: user.RoleStudent, Status: user.StatusActive, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, u := range accounts {
		require.NoError(t, s.Users().Create(ctx, u))
	}

	all, err := s.Users().List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "09120000003", all[0].Phone)

	students, err := s.Users().List(ctx, user.RoleStudent)
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestSaveLog(t *testing.T) {
	s := newTestStore(t)

	entry := &logModel.Log{Method: "POST", URL: "/api/auth/otp/send", StatusCode: 200, CreatedAt: base}
	require.NoError(t, s.Logs().SaveLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)

	var count int64
	require.NoError(t, s.DB().Model(&logModel.Log{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

type lineRecorder struct {
	lines []string
}

func (r *lineRecorder) Printf(format string, args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	rec := &lineRecorder{}
	l := newGormLogger(rec)
	query := func() (string, int64) { return "SELECT * FROM users WHERE phone = '09120000000'", 0 }

	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, rec.lines)

	l.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))
	require.Len(t, rec.lines, 1)
	assert.Contains(t, rec.lines[0], "connection reset")

	_, err := newTestStore(t).Users().FindByPhone(context.Background(), "09120000000")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
