package otp

import (
	"errors"
	"strconv"

	"github.com/VersatileFusion/sangshekkan/logger"
	otpModel "github.com/VersatileFusion/sangshekkan/models/otp"
	otpService "github.com/VersatileFusion/sangshekkan/services/otp"
	"github.com/VersatileFusion/sangshekkan/types"
	otpTypes "github.com/VersatileFusion/sangshekkan/types/otp"
	userTypes "github.com/VersatileFusion/sangshekkan/types/user"

	"github.com/gofiber/fiber/v2"
)

const (
	MsgSignupCodeSent  = "کد تایید ارسال شد"
	MsgLoginCodeSent   = "کد تایید برای ورود ارسال شد"
	MsgResetCodeSent   = "کد بازیابی رمز عبور ارسال شد"
	MsgCodeVerified    = "کد تایید صحیح است"
	MsgLoggedIn        = "ورود با موفقیت انجام شد"
	MsgRegistered      = "ثبت‌نام با موفقیت انجام شد و شما به صورت خودکار وارد شدید."
	MsgRegisteredLogin = "ثبت‌نام با موفقیت انجام شد. لطفاً وارد شوید."
	MsgPasswordReset   = "رمز عبور با موفقیت تغییر کرد"
	MsgInvalidBody     = "درخواست نامعتبر است"
	MsgInvalidPurpose  = "نوع کد تایید نامعتبر است"
)

// Controller handles the OTP send, verify, login and registration endpoints
type Controller struct {
	OTPService *otpService.Service
}

// NewOTPController creates a new OTP controller
func NewOTPController(service *otpService.Service) *Controller {
	return &Controller{OTPService: service}
}

// SendOTP sends a signup code to an unregistered phone
func (oc *Controller) SendOTP(c *fiber.Ctx) error {
	return oc.send(c, otpModel.PurposeSignup, MsgSignupCodeSent)
}

// SendLoginOTP sends a login code to a registered, active account
func (oc *Controller) SendLoginOTP(c *fiber.Ctx) error {
	return oc.send(c, otpModel.PurposeLogin, MsgLoginCodeSent)
}

// SendResetOTP sends a password reset code to a registered, active account
func (oc *Controller) SendResetOTP(c *fiber.Ctx) error {
	return oc.send(c, otpModel.PurposeResetPassword, MsgResetCodeSent)
}

func (oc *Controller) send(c *fiber.Ctx, purpose otpModel.Purpose, message string) error {
	var req otpTypes.SendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Warning("Failed to parse OTP send body: " + err.Error())
		return badRequest(c, MsgInvalidBody)
	}

	res, err := oc.OTPService.SendCode(c.UserContext(), req.PhoneNumber(), purpose)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(otpTypes.SendOTPResponse{
		Message:   message,
		Phone:     res.Phone,
		ExpiresIn: res.ExpiresIn,
		DebugCode: res.DebugCode,
	})
}

// VerifyOTP checks a signup (or, when requested, reset_password) code
func (oc *Controller) VerifyOTP(c *fiber.Ctx) error {
	var req otpTypes.VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Warning("Failed to parse OTP verify body: " + err.Error())
		return badRequest(c, MsgInvalidBody)
	}

	purpose := otpModel.PurposeSignup
	switch otpModel.Purpose(req.Purpose) {
	case "", otpModel.PurposeSignup:
	case otpModel.PurposeResetPassword:
		purpose = otpModel.PurposeResetPassword
	default:
		return badRequest(c, MsgInvalidPurpose)
	}

	res, err := oc.OTPService.VerifyCode(c.UserContext(), req.PhoneNumber(), req.OTPCode(), purpose)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(otpTypes.VerifyOTPResponse{
		Message:  MsgCodeVerified,
		Phone:    res.Phone,
		Verified: res.Verified,
	})
}

// VerifyLoginOTP completes an OTP login and sets the session cookie
func (oc *Controller) VerifyLoginOTP(c *fiber.Ctx) error {
	var req otpTypes.VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Warning("Failed to parse login verify body: " + err.Error())
		return badRequest(c, MsgInvalidBody)
	}

	res, err := oc.OTPService.CompleteLogin(c.UserContext(), req.PhoneNumber(), req.OTPCode())
	if err != nil {
		return respondError(c, err)
	}
	return loggedIn(c, res)
}

// CredentialsLogin signs in with phone and password
func (oc *Controller) CredentialsLogin(c *fiber.Ctx) error {
	var req otpTypes.CredentialsLoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Warning("Failed to parse credentials login body: " + err.Error())
		return badRequest(c, MsgInvalidBody)
	}

	res, err := oc.OTPService.CredentialsLogin(c.UserContext(), req.PhoneNumber(), req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return loggedIn(c, res)
}

// ResetPassword sets a new password using a reset_password code
func (oc *Controller) ResetPassword(c *fiber.Ctx) error {
	var req otpTypes.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Warning("Failed to parse password reset body: " + err.Error())
		return badRequest(c, MsgInvalidBody)
	}

	if _, err := oc.OTPService.CompleteReset(c.UserContext(), otpService.ResetInput{
		Phone:    req.PhoneNumber(),
		Code:     req.OTPCode(),
		Password: req.Password,
	}); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(types.MessageResponse{Message: MsgPasswordReset})
}

func loggedIn(c *fiber.Ctx, res *otpService.AuthResult) error {
	response := otpTypes.AuthResponse{
		Success: true,
		Message: MsgLoggedIn,
		User:    userTypes.NewUserPayload(res.User),
		NextURL: res.NextURL,
	}
	if res.Cookie != nil {
		c.Cookie(res.Cookie)
	} else {
		response.RequireManualLogin = true
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

// CompleteRegistration creates the account behind a verified signup code
func (oc *Controller) CompleteRegistration(c *fiber.Ctx) error {
	var req otpTypes.CompleteRegistrationRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Warning("Failed to parse registration body: " + err.Error())
		return badRequest(c, MsgInvalidBody)
	}

	res, err := oc.OTPService.CompleteRegistration(c.UserContext(), otpService.RegistrationInput{
		Phone:    req.PhoneNumber(),
		Code:     req.OTPCode(),
		Name:     req.Name,
		Password: req.Password,
		Grade:    req.Grade,
		Field:    req.Field,
		City:     req.CityName(),
	})
	if err != nil {
		return respondError(c, err)
	}

	response := otpTypes.AuthResponse{
		Success: true,
		Message: MsgRegistered,
		User:    userTypes.NewUserPayload(res.User),
		NextURL: res.NextURL,
	}
	if res.Cookie != nil {
		c.Cookie(res.Cookie)
	} else {
		response.Message = MsgRegisteredLogin
		response.NextURL = ""
		response.RequireLogin = true
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: message, ErrorCode: otpService.CodeValidation})
}

// respondError renders a flow failure. Unclassified errors never reach the client.
func respondError(c *fiber.Ctx, err error) error {
	var fe *otpService.FlowError
	if !errors.As(err, &fe) {
		logger.Error("Unexpected OTP flow failure", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: otpService.MsgServerError})
	}

	switch fe.Kind {
	case otpService.KindInternal, otpService.KindDelivery:
		logger.Error("OTP flow failed on "+c.Path(), fe.Err)
	default:
		logger.Info("OTP request on " + c.Path() + " rejected: " + fe.Code)
	}

	if fe.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(fe.RetryAfter))
	}
	return c.Status(fe.Kind.Status()).JSON(types.ErrorResponse{
		Error:      fe.Message,
		ErrorCode:  fe.Code,
		RetryAfter: fe.RetryAfter,
	})
}
