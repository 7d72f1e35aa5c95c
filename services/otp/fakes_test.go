package otp

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	otpModel "github.com/VersatileFusion/sangshekkan/models/otp"
	"github.com/VersatileFusion/sangshekkan/models/user"
	"github.com/VersatileFusion/sangshekkan/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type memoryOTPs struct {
	mu      sync.Mutex
	records []*otpModel.OTP
	deleted []string
}

func (m *memoryOTPs) Create(_ context.Context, rec *otpModel.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *memoryOTPs) newestFirst(match func(*otpModel.OTP) bool) *otpModel.OTP {
	var hits []*otpModel.OTP
	for _, r := range m.records {
		if match(r) {
			hits = append(hits, r)
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].CreatedAt.After(hits[j].CreatedAt) })
	return hits[0]
}

func (m *memoryOTPs) FindLatestSince(_ context.Context, phone string, purpose otpModel.Purpose, since time.Time) (*otpModel.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.newestFirst(func(r *otpModel.OTP) bool {
		return r.Phone == phone && r.Purpose == purpose && r.CreatedAt.After(since)
	})
	if r == nil {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryOTPs) FindActive(_ context.Context, phone string, purpose otpModel.Purpose, code string, now time.Time) (*otpModel.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.newestFirst(func(r *otpModel.OTP) bool {
		return r.Phone == phone && r.Purpose == purpose && r.Code == code && r.IsActive(now)
	})
	if r == nil {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryOTPs) IncrementAttempts(_ context.Context, phone string, purpose otpModel.Purpose, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.newestFirst(func(r *otpModel.OTP) bool {
		return r.Phone == phone && r.Purpose == purpose && r.IsActive(now)
	})
	if r != nil {
		r.Attempts++
	}
	return nil
}

func (m *memoryOTPs) MarkUsed(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id && !r.IsUsed {
			r.IsUsed = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryOTPs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			m.deleted = append(m.deleted, id)
			return nil
		}
	}
	return nil
}

func (m *memoryOTPs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memoryOTPs) latest() *otpModel.OTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.newestFirst(func(*otpModel.OTP) bool { return true })
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newMemoryUsers(seed ...*user.User) *memoryUsers {
	m := &memoryUsers{users: map[string]*user.User{}}
	for _, u := range seed {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryUsers) FindByPhone(_ context.Context, phone string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Phone == u.Phone {
			return repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memoryUsers) UpdateByID(_ context.Context, id string, upd repository.UserUpdate, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.LastLogin != nil {
		u.LastLogin = upd.LastLogin
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	if upd.PasswordHash != nil {
		hash := *upd.PasswordHash
		u.PasswordHash = &hash
	}
	u.UpdatedAt = now
	return nil
}

func (m *memoryUsers) List(_ context.Context, _ user.Role) ([]user.User, error) {
	return nil, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	err   error
	sent  []string
	codes []string
}

func (n *recordingNotifier) SendOTP(_ context.Context, phone, code, purpose string, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, phone+"|"+purpose)
	n.codes = append(n.codes, code)
	return nil
}

type stubSessions struct {
	err error
}

func (s stubSessions) Issue(u *user.User) (*fiber.Cookie, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &fiber.Cookie{Name: "authjs.session-token", Value: "token-for-" + u.ID}, nil
}

var errGateway = errors.New("gateway unavailable")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
