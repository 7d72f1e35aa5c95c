package seeders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/VersatileFusion/sangshekkan/logger"
	"github.com/VersatileFusion/sangshekkan/models/user"
	"github.com/VersatileFusion/sangshekkan/repository"
	"github.com/VersatileFusion/sangshekkan/utils"
)

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	Phone    string
	Name     string
	Password string
}

var ErrInvalidAdminPhone = errors.New("ADMIN_PHONE is not a valid mobile number")

// SeedAdmin makes sure the bootstrap administrator exists. An existing
// account with the same phone is left untouched. It reports whether a new
// account was created.
func SeedAdmin(ctx context.Context, users repository.UserRepository, seed AdminSeed, now time.Time) (bool, error) {
	if strings.TrimSpace(seed.Phone) == "" {
		logger.Debug("ADMIN_PHONE not set, skipping admin seeding")
		return false, nil
	}
	if !utils.ValidatePhoneNumber(seed.Phone) {
		return false, ErrInvalidAdminPhone
	}
	phone := utils.NormalizePhone(seed.Phone)

	existing, err := users.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		if !existing.IsAdmin() {
			logger.Warning("Account " + utils.MaskPhone(phone) + " exists but is not an admin, leaving it unchanged")
		} else {
			logger.Info("Admin account " + utils.MaskPhone(phone) + " already present. No seeding needed.")
		}
		return false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, fmt.Errorf("look up admin: %w", err)
	}

	admin := &user.User{
		Phone:           phone,
		Name:            strings.TrimSpace(seed.Name),
		Role:            user.RoleAdmin,
		Status:          user.StatusActive,
		IsVerified:      true,
		PhoneVerifiedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if admin.Name == "" {
		admin.Name = "مدیر سیستم"
	}
	if seed.Password != "" {
		hash, err := utils.HashPassword(seed.Password)
		if err != nil {
			return false, fmt.Errorf("hash admin password: %w", err)
		}
		admin.PasswordHash = &hash
	}

	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}

	logger.Success("🌱 Seeded admin account " + utils.MaskPhone(phone))
	return true, nil
}
