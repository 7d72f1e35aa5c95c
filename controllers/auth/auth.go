package auth

import (
	"github.com/VersatileFusion/sangshekkan/logger"
	"github.com/VersatileFusion/sangshekkan/middleware"
	"github.com/VersatileFusion/sangshekkan/types"

	"github.com/gofiber/fiber/v2"
)

const MsgLoggedOut = "خروج با موفقیت انجام شد"

// CookieClearer produces the expired session cookie.
type CookieClearer interface {
	Clear() *fiber.Cookie
}

type AuthController struct {
	sessions CookieClearer
}

func NewAuthController(sessions CookieClearer) *AuthController {
	return &AuthController{sessions: sessions}
}

// LogOut expires the session cookie. Tokens are stateless, so nothing is revoked server side.
func (h *AuthController) LogOut(c *fiber.Ctx) error {
	c.Cookie(h.sessions.Clear())

	if claims, ok := middleware.CurrentClaims(c); ok {
		logger.Success("User " + claims.Subject + " logged out")
	} else {
		logger.Success("Logout successful")
	}
	return c.Status(fiber.StatusOK).JSON(types.MessageResponse{Message: MsgLoggedOut})
}
