package routes

import (
	"time"

	"github.com/VersatileFusion/sangshekkan/controllers/auth"
	"github.com/VersatileFusion/sangshekkan/controllers/otp"
	"github.com/VersatileFusion/sangshekkan/controllers/server"
	"github.com/VersatileFusion/sangshekkan/controllers/sms"
	"github.com/VersatileFusion/sangshekkan/controllers/user"
	"github.com/VersatileFusion/sangshekkan/middleware"
	userModel "github.com/VersatileFusion/sangshekkan/models/user"
	"github.com/VersatileFusion/sangshekkan/repository"
	"github.com/VersatileFusion/sangshekkan/services/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// Per-IP budgets of the public auth endpoints.
var (
	RegisterRule             = ratelimit.Rule{Name: "register", Limit: 10, Window: time.Minute}
	OTPLoginRule             = ratelimit.Rule{Name: "otp_login", Limit: 10, Window: time.Minute}
	OTPResetRule             = ratelimit.Rule{Name: "otp_reset", Limit: 10, Window: time.Minute}
	VerifyRule               = ratelimit.Rule{Name: "verify", Limit: 10, Window: time.Minute}
	OTPLoginVerifyRule       = ratelimit.Rule{Name: "otp_login_verify", Limit: 10, Window: time.Minute}
	CompleteRegistrationRule = ratelimit.Rule{Name: "complete_registration", Limit: 5, Window: time.Minute}
	CredentialsLoginRule     = ratelimit.Rule{Name: "credentials_login", Limit: 10, Window: time.Minute}
	ResetPasswordRule        = ratelimit.Rule{Name: "reset_password", Limit: 5, Window: time.Minute}
)

// Dependencies are the wired controllers and guards. Audit is optional.
type Dependencies struct {
	OTP      *otp.Controller
	Auth     *auth.AuthController
	Users    *user.UserController
	SMS      *sms.SMSController
	Limiter  *ratelimit.Limiter
	Sessions middleware.SessionParser
	UserRepo repository.UserRepository
	Audit    middleware.AuditSink
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", server.Health)

	api := app.Group("/api")
	if deps.Audit != nil {
		api.Use(middleware.Audit(deps.Audit))
	}
	api.Get("/health", server.Health)

	limit := func(rule ratelimit.Rule) fiber.Handler {
		return middleware.RateLimit(deps.Limiter, rule)
	}
	requireSession := middleware.RequireSession(deps.Sessions, deps.UserRepo)

	/*=============================================================================
	| OTP Routes
	===============================================================================*/
	authGroup := api.Group("/auth")
	authGroup.Post("/otp/send", limit(RegisterRule), deps.OTP.SendOTP)
	authGroup.Post("/otp/login", limit(OTPLoginRule), deps.OTP.SendLoginOTP)
	authGroup.Post("/otp/reset", limit(OTPResetRule), deps.OTP.SendResetOTP)
	authGroup.Post("/otp/verify", limit(VerifyRule), deps.OTP.VerifyOTP)
	authGroup.Post("/otp/login/verify", limit(OTPLoginVerifyRule), deps.OTP.VerifyLoginOTP)
	authGroup.Post("/complete-registration", limit(CompleteRegistrationRule), deps.OTP.CompleteRegistration)
	authGroup.Post("/credentials-login", limit(CredentialsLoginRule), deps.OTP.CredentialsLogin)
	authGroup.Post("/reset-password", limit(ResetPasswordRule), deps.OTP.ResetPassword)
	authGroup.Post("/logout", middleware.OptionalSession(deps.Sessions), deps.Auth.LogOut)

	/*=============================================================================
	| User Routes
	===============================================================================*/
	api.Get("/users/me", requireSession, deps.Users.GetUserInfo)

	/*=============================================================================
	| Admin Routes
	===============================================================================*/
	admin := api.Group("/admin", requireSession, middleware.RequireRole(userModel.RoleAdmin))
	admin.Get("/users", deps.Users.ListUsers)
	admin.Get("/sms/templates", deps.SMS.Templates)
	admin.Post("/sms/send", deps.SMS.Send)
	admin.Patch("/users/:id/status", deps.Users.UpdateStatus)
}
