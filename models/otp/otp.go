package otp

import (
	"time"
)

// Purpose scopes an OTP to the flow it was issued for
type Purpose string

const (
	PurposeSignup        Purpose = "signup"
	PurposeLogin         Purpose = "login"
	PurposeResetPassword Purpose = "reset_password"
)

// Valid reports whether p is one of the known purposes
func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignup, PurposeLogin, PurposeResetPassword:
		return true
	}
	return false
}

// OTP is one issued one-time code. Records are never deleted except when
// delivery of a freshly created code fails.
type OTP struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	Phone     string    `gorm:"type:varchar(20);not null;index:idx_otp_codes_lookup,priority:1" bson:"phone" json:"phone"`
	Code      string    `gorm:"type:varchar(6);not null" bson:"code" json:"-"`
	Purpose   Purpose   `gorm:"type:varchar(32);not null;index:idx_otp_codes_lookup,priority:2" bson:"purpose" json:"purpose"`
	IsUsed    bool      `gorm:"not null;default:false" bson:"isUsed" json:"is_used"`
	Attempts  int       `gorm:"not null;default:0" bson:"attempts" json:"attempts"`
	ExpiresAt time.Time `gorm:"not null" bson:"expiresAt" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null;index:idx_otp_codes_lookup,priority:3" bson:"createdAt" json:"created_at"`
}

func (OTP) TableName() string {
	return "otp_codes"
}

// IsExpired checks if the OTP has expired at the given instant
func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// IsActive checks if the OTP can still be consumed
func (o *OTP) IsActive(now time.Time) bool {
	return !o.IsUsed && !o.IsExpired(now)
}

// Exhausted reports whether the attempt ceiling has been reached
func (o *OTP) Exhausted(maxAttempts int) bool {
	return o.Attempts >= maxAttempts
}
