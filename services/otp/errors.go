package otp

import (
	"fmt"
	"net/http"
)

// Kind classifies flow failures for the transport layer.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindRateLimited
	KindForbidden
	KindUnauthorized
	KindDelivery
	KindInternal
)

// Status maps the kind to an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Machine-readable error codes returned alongside the localized message.
const (
	CodeUserExists      = "USER_EXISTS"
	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeUserSuspended   = "USER_SUSPENDED"
	CodeCooldown        = "OTP_COOLDOWN"
	CodeInvalidCode     = "INVALID_CODE"
	CodeTooManyAttempts = "TOO_MANY_ATTEMPTS"
	CodeSMSFailed       = "SMS_FAILED"
	CodeBadCredentials  = "INVALID_CREDENTIALS"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

// Localized user-facing messages.
const (
	MsgPhoneRequired        = "شماره موبایل الزامی است"
	MsgPhoneInvalid         = "فرمت شماره موبایل معتبر نیست"
	MsgPhoneAndCodeRequired = "شماره موبایل و کد تایید الزامی است"
	MsgCodeShape            = "کد تایید ۶ رقمی الزامی است"
	MsgNameRequired         = "نام و نام خانوادگی الزامی است"
	MsgPasswordTooShort     = "رمز عبور باید حداقل ۸ کاراکتر باشد"
	MsgUserExists           = "این شماره موبایل قبلاً ثبت‌نام کرده است. لطفاً وارد شوید."
	MsgNotRegistered        = "این شماره موبایل ثبت‌نام نکرده است. لطفاً ابتدا ثبت‌نام کنید."
	MsgSuspendedContact     = "حساب کاربری شما مسدود شده است. لطفاً با پشتیبانی تماس بگیرید."
	MsgSuspended            = "حساب کاربری شما مسدود شده است"
	MsgUserMissing          = "کاربر یافت نشد"
	MsgCooldown             = "لطفاً %d ثانیه دیگر صبر کنید"
	MsgSMSFailed            = "ارسال پیامک ناموفق بود"
	MsgInvalidCode          = "کد تایید نامعتبر یا منقضی شده است"
	MsgTooManyAttempts      = "تعداد تلاش‌ها بیش از حد مجاز. لطفاً کد جدید درخواست دهید"
	MsgServerError          = "خطای سرور"
	MsgCredentialsRequired  = "لطفاً همه فیلدها را پر کنید"
	MsgBadCredentials       = "شماره موبایل یا رمز عبور اشتباه است"
)

// FlowError is a classified failure of an OTP flow operation.
type FlowError struct {
	Kind       Kind
	Message    string
	Code       string
	RetryAfter int
	Err        error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func validation(msg string) *FlowError {
	return &FlowError{Kind: KindValidation, Message: msg, Code: CodeValidation}
}

func internal(err error) *FlowError {
	return &FlowError{Kind: KindInternal, Message: MsgServerError, Code: CodeInternal, Err: err}
}

func invalidCode() *FlowError {
	return &FlowError{Kind: KindValidation, Message: MsgInvalidCode, Code: CodeInvalidCode}
}

func badCredentials() *FlowError {
	return &FlowError{Kind: KindUnauthorized, Message: MsgBadCredentials, Code: CodeBadCredentials}
}
