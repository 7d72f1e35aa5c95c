package user

import (
	"time"
)

// Role of an account
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

// Status of an account
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}

// User is a student or admin account. Phone is the unique login identifier.
type User struct {
	ID              string     `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	Phone           string     `gorm:"type:varchar(20);not null;uniqueIndex" bson:"phone" json:"phone"`
	Name            string     `gorm:"type:varchar(255);not null" bson:"name" json:"name"`
	PasswordHash    *string    `gorm:"type:text" bson:"passwordHash,omitempty" json:"-"`
	Role            Role       `gorm:"type:varchar(20);not null;index" bson:"role" json:"role"`
	Status          Status     `gorm:"type:varchar(20);not null" bson:"status" json:"status"`
	Grade           string     `gorm:"type:varchar(50)" bson:"grade,omitempty" json:"grade,omitempty"`
	Field           string     `gorm:"type:varchar(50)" bson:"field,omitempty" json:"field,omitempty"`
	City            string     `gorm:"type:varchar(100)" bson:"city,omitempty" json:"city,omitempty"`
	IsVerified      bool       `gorm:"not null;default:false" bson:"isVerified" json:"isVerified"`
	PhoneVerifiedAt *time.Time `bson:"phoneVerifiedAt,omitempty" json:"phoneVerifiedAt,omitempty"`
	LastLogin       *time.Time `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt       time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsSuspended() bool {
	return u.Status == StatusSuspended
}

// Email synthesizes the address carried in session tokens.
func (u *User) Email() string {
	return u.Phone + "@local.host"
}
