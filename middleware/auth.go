package middleware

import (
	"errors"

	"github.com/VersatileFusion/sangshekkan/logger"
	"github.com/VersatileFusion/sangshekkan/models/user"
	"github.com/VersatileFusion/sangshekkan/repository"
	"github.com/VersatileFusion/sangshekkan/services/session"
	"github.com/VersatileFusion/sangshekkan/types"

	"github.com/gofiber/fiber/v2"
)

const (
	MsgLoginRequired = "لطفاً وارد حساب کاربری خود شوید"
	MsgForbidden     = "شما دسترسی به این بخش را ندارید"
	MsgServerError   = "خطای سرور"

	localsClaims = "claims"
	localsUser   = "user"
)

// SessionParser verifies the session cookie value.
type SessionParser interface {
	CookieName() string
	Parse(token string) (*session.Claims, error)
}

// RequireSession resolves the session cookie to a stored user and exposes
// both through c.Locals.
func RequireSession(sessions SessionParser, users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(sessions.CookieName())
		if token == "" {
			return unauthorized(c)
		}

		claims, err := sessions.Parse(token)
		if err != nil {
			logger.Info("Rejected session cookie on " + c.Path() + ": " + err.Error())
			return unauthorized(c)
		}

		u, err := users.FindByID(c.UserContext(), claims.Subject)
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warning("Session refers to missing user " + claims.Subject)
			return unauthorized(c)
		}
		if err != nil {
			logger.Error("Failed to load session user", err)
			return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: MsgServerError})
		}

		c.Locals(localsClaims, claims)
		c.Locals(localsUser, u)
		return c.Next()
	}
}

// OptionalSession exposes the verified claims of a valid session cookie and
// never rejects the request. The user record is not loaded.
func OptionalSession(sessions SessionParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := c.Cookies(sessions.CookieName()); token != "" {
			if claims, err := sessions.Parse(token); err == nil {
				c.Locals(localsClaims, claims)
			}
		}
		return c.Next()
	}
}

// RequireRole lets through active users holding one of roles. It must run after RequireSession.
func RequireRole(roles ...user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, ok := CurrentUser(c)
		if !ok {
			return unauthorized(c)
		}
		if u.IsSuspended() {
			return c.Status(fiber.StatusForbidden).JSON(types.ErrorResponse{Error: MsgForbidden, ErrorCode: "USER_SUSPENDED"})
		}
		for _, role := range roles {
			if u.Role == role {
				return c.Next()
			}
		}
		logger.Warning("User " + u.ID + " denied access to " + c.Path())
		return c.Status(fiber.StatusForbidden).JSON(types.ErrorResponse{Error: MsgForbidden, ErrorCode: "FORBIDDEN"})
	}
}

// CurrentUser returns the user stored by RequireSession.
func CurrentUser(c *fiber.Ctx) (*user.User, bool) {
	u, ok := c.Locals(localsUser).(*user.User)
	return u, ok && u != nil
}

// CurrentClaims returns the verified session claims.
func CurrentClaims(c *fiber.Ctx) (*session.Claims, bool) {
	claims, ok := c.Locals(localsClaims).(*session.Claims)
	return claims, ok && claims != nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(types.ErrorResponse{Error: MsgLoginRequired})
}
