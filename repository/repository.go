// Package repository declares the persistence capabilities the auth flow
// depends on. database provides the GORM and MongoDB bindings.
package repository

import (
	"context"
	"errors"
	"time"

	logModel "github.com/VersatileFusion/sangshekkan/models/log"
	"github.com/VersatileFusion/sangshekkan/models/otp"
	"github.com/VersatileFusion/sangshekkan/models/user"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// OTPRepository stores issued one-time codes.
type OTPRepository interface {
	Create(ctx context.Context, rec *otp.OTP) error
	// FindLatestSince returns the newest record for (phone, purpose) created after since.
	FindLatestSince(ctx context.Context, phone string, purpose otp.Purpose, since time.Time) (*otp.OTP, error)
	// FindActive returns the newest unused, unexpired record matching code.
	FindActive(ctx context.Context, phone string, purpose otp.Purpose, code string, now time.Time) (*otp.OTP, error)
	// IncrementAttempts bumps the counter of the newest active record for (phone, purpose).
	// It is a no-op when no such record exists.
	IncrementAttempts(ctx context.Context, phone string, purpose otp.Purpose, now time.Time) error
	// MarkUsed flips isUsed from false to true. It returns false when the record
	// was already consumed.
	MarkUsed(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// UserUpdate lists the mutable user fields; nil fields are left untouched.
type UserUpdate struct {
	Name         *string
	PasswordHash *string
	Status       *user.Status
	Grade        *string
	Field        *string
	City         *string
	LastLogin    *time.Time
}

// Empty reports whether the update carries no fields.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.PasswordHash == nil && u.Status == nil && u.Grade == nil &&
		u.Field == nil && u.City == nil && u.LastLogin == nil
}

// UserRepository is the user directory.
type UserRepository interface {
	FindByPhone(ctx context.Context, phone string) (*user.User, error)
	FindByID(ctx context.Context, id string) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
	UpdateByID(ctx context.Context, id string, upd UserUpdate, now time.Time) error
	List(ctx context.Context, role user.Role) ([]user.User, error)
}

// LogRepository persists request audit entries.
type LogRepository interface {
	SaveLog(ctx context.Context, entry *logModel.Log) error
}

// Store bundles every repository behind one connection.
type Store interface {
	OTPs() OTPRepository
	Users() UserRepository
	Logs() LogRepository
	Close(ctx context.Context) error
}
