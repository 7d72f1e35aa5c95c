package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/VersatileFusion/sangshekkan/logger"
	"github.com/VersatileFusion/sangshekkan/middleware"
	"github.com/VersatileFusion/sangshekkan/models/user"
	"github.com/VersatileFusion/sangshekkan/repository"
	"github.com/VersatileFusion/sangshekkan/types"
	userTypes "github.com/VersatileFusion/sangshekkan/types/user"
	"github.com/VersatileFusion/sangshekkan/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	MsgStatusUpdated   = "وضعیت حساب کاربری به‌روزرسانی شد"
	MsgInvalidPayload  = "اطلاعات ارسالی نامعتبر است"
	MsgUserNotFound    = "کاربر یافت نشد"
	MsgInvalidRole     = "نقش کاربری نامعتبر است"
	MsgOwnStatus       = "امکان تغییر وضعیت حساب خودتان وجود ندارد"
	MsgServerError     = "خطای سرور"
	suspensionTemplate = "ACCOUNT_SUSPENDED"
	defaultDuration    = "نامشخص"
	defaultReason      = "عدم رعایت قوانین"
)

// TemplateSender delivers a catalogue message.
type TemplateSender interface {
	SendTemplate(ctx context.Context, phone, key string, vars map[string]string) error
}

type UserController struct {
	users repository.UserRepository
	sms   TemplateSender
	now   func() time.Time
}

func NewUserController(users repository.UserRepository, sms TemplateSender, now func() time.Time) *UserController {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &UserController{users: users, sms: sms, now: now}
}

// GetUserInfo returns the account behind the session cookie
func (uc *UserController) GetUserInfo(c *fiber.Ctx) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ErrorResponse{Error: middleware.MsgLoginRequired})
	}
	return c.Status(fiber.StatusOK).JSON(userTypes.MeResponse{Success: true, User: userTypes.NewProfile(u)})
}

// ListUsers returns every account, optionally filtered by ?role=
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	role := user.Role(strings.ToUpper(strings.TrimSpace(c.Query("role"))))
	if role != "" && role != user.RoleStudent && role != user.RoleAdmin {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: MsgInvalidRole, ErrorCode: "VALIDATION_ERROR"})
	}

	users, err := uc.users.List(c.UserContext(), role)
	if err != nil {
		logger.Error("Failed to list users", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: MsgServerError})
	}

	profiles := make([]userTypes.Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, userTypes.NewProfile(&users[i]))
	}
	return c.Status(fiber.StatusOK).JSON(userTypes.ListUsersResponse{Success: true, Count: len(profiles), Users: profiles})
}

// UpdateStatus suspends or reactivates an account. A suspension notice is
// sent by SMS when possible; a failed notice does not undo the change.
func (uc *UserController) UpdateStatus(c *fiber.Ctx) error {
	var req userTypes.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Warning("Failed to parse status update body: " + err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: MsgInvalidPayload, ErrorCode: "VALIDATION_ERROR"})
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := req.Validate(); err != nil {
		logger.Info("Rejected status update: " + err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: MsgInvalidPayload, ErrorCode: "VALIDATION_ERROR"})
	}

	id := c.Params("id")
	if admin, ok := middleware.CurrentUser(c); ok && admin.ID == id {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: MsgOwnStatus, ErrorCode: "VALIDATION_ERROR"})
	}

	status := user.Status(req.Status)
	ctx := c.UserContext()
	if err := uc.users.UpdateByID(ctx, id, repository.UserUpdate{Status: &status}, uc.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ErrorResponse{Error: MsgUserNotFound, ErrorCode: "USER_NOT_FOUND"})
		}
		logger.Error("Failed to update status of user "+id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: MsgServerError})
	}

	u, err := uc.users.FindByID(ctx, id)
	if err != nil {
		logger.Error("Failed to reload user "+id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: MsgServerError})
	}
	logger.Success("User " + id + " status set to " + string(status))

	notified := false
	if status == user.StatusSuspended {
		vars := map[string]string{
			"duration": orDefault(req.Duration, defaultDuration),
			"reason":   orDefault(req.Reason, defaultReason),
		}
		if err := uc.sms.SendTemplate(ctx, u.Phone, suspensionTemplate, vars); err != nil {
			logger.Error("Suspension notice to "+utils.MaskPhone(u.Phone)+" failed", err)
		} else {
			notified = true
		}
	}

	return c.Status(fiber.StatusOK).JSON(userTypes.UpdateStatusResponse{
		Message:  MsgStatusUpdated,
		User:     userTypes.NewUserPayload(u),
		Notified: notified,
	})
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
