package otp

import (
	"bytes"
	"encoding/json"

	"github.com/VersatileFusion/sangshekkan/types/user"
)

// NumericString accepts a JSON string or a JSON number. Codes typed into
// numeric inputs often arrive unquoted.
type NumericString string

func (n *NumericString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumericString(s)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = NumericString(num.String())
	return nil
}

// SendOTPRequest is the body of the send endpoints. mobileNumber is accepted
// as an alias for phone.
type SendOTPRequest struct {
	Phone        string `json:"phone"`
	MobileNumber string `json:"mobileNumber"`
}

func (r *SendOTPRequest) PhoneNumber() string {
	return firstNonEmpty(r.Phone, r.MobileNumber)
}

// SendOTPResponse echoes the normalized phone. DebugCode is only set when
// TEST_ECHO_OTP is enabled.
type SendOTPResponse struct {
	Message   string `json:"message"`
	Phone     string `json:"phone"`
	ExpiresIn int    `json:"expiresIn"`
	DebugCode string `json:"debugCode,omitempty"`
}

// VerifyOTPRequest is shared by the verify and login verify endpoints.
type VerifyOTPRequest struct {
	Phone        string        `json:"phone"`
	MobileNumber string        `json:"mobileNumber"`
	Code         NumericString `json:"code"`
	OTP          NumericString `json:"otp"`
	Purpose      string        `json:"purpose"`
}

func (r *VerifyOTPRequest) PhoneNumber() string {
	return firstNonEmpty(r.Phone, r.MobileNumber)
}

func (r *VerifyOTPRequest) OTPCode() string {
	return firstNonEmpty(string(r.Code), string(r.OTP))
}

type VerifyOTPResponse struct {
	Message  string `json:"message"`
	Phone    string `json:"phone"`
	Verified bool   `json:"verified"`
}

// CompleteRegistrationRequest carries the profile collected after the signup
// code was sent. province is accepted as an alias for city.
type CompleteRegistrationRequest struct {
	Phone        string        `json:"phone"`
	MobileNumber string        `json:"mobileNumber"`
	Code         NumericString `json:"code"`
	OTP          NumericString `json:"otp"`
	Name         string        `json:"name"`
	Password     string        `json:"password"`
	Grade        string        `json:"grade"`
	Field        string        `json:"field"`
	City         string        `json:"city"`
	Province     string        `json:"province"`
}

func (r *CompleteRegistrationRequest) PhoneNumber() string {
	return firstNonEmpty(r.Phone, r.MobileNumber)
}

func (r *CompleteRegistrationRequest) OTPCode() string {
	return firstNonEmpty(string(r.Code), string(r.OTP))
}

func (r *CompleteRegistrationRequest) CityName() string {
	return firstNonEmpty(r.City, r.Province)
}

// CredentialsLoginRequest is the password login body. identifier is the
// phone number; phone is accepted as an alias.
type CredentialsLoginRequest struct {
	Identifier string `json:"identifier"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
}

func (r *CredentialsLoginRequest) PhoneNumber() string {
	return firstNonEmpty(r.Identifier, r.Phone)
}

// ResetPasswordRequest sets a new password with a reset_password code.
type ResetPasswordRequest struct {
	Phone        string        `json:"phone"`
	MobileNumber string        `json:"mobileNumber"`
	Code         NumericString `json:"code"`
	OTP          NumericString `json:"otp"`
	Password     string        `json:"password"`
}

func (r *ResetPasswordRequest) PhoneNumber() string {
	return firstNonEmpty(r.Phone, r.MobileNumber)
}

func (r *ResetPasswordRequest) OTPCode() string {
	return firstNonEmpty(string(r.Code), string(r.OTP))
}

// AuthResponse is returned by both login endpoints and registration completion.
// RequireLogin and RequireManualLogin flag that no session cookie was set.
type AuthResponse struct {
	Success            bool             `json:"success"`
	Message            string           `json:"message"`
	User               user.UserPayload `json:"user"`
	NextURL            string           `json:"nextUrl,omitempty"`
	RequireLogin       bool             `json:"requireLogin,omitempty"`
	RequireManualLogin bool             `json:"requireManualLogin,omitempty"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
