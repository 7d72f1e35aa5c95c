package user

import (
	"time"

	"github.com/VersatileFusion/sangshekkan/models/user"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// UserPayload is the public projection of an account.
type UserPayload struct {
	ID         string    `json:"id"`
	Phone      string    `json:"phone"`
	Name       string    `json:"name"`
	Role       user.Role `json:"role"`
	Grade      string    `json:"grade"`
	Field      string    `json:"field"`
	City       string    `json:"city"`
	IsVerified bool      `json:"isVerified"`
}

func NewUserPayload(u *user.User) UserPayload {
	return UserPayload{
		ID:         u.ID,
		Phone:      u.Phone,
		Name:       u.Name,
		Role:       u.Role,
		Grade:      u.Grade,
		Field:      u.Field,
		City:       u.City,
		IsVerified: u.IsVerified,
	}
}

// Profile is the account as seen by its owner.
type Profile struct {
	UserPayload
	Status          user.Status `json:"status"`
	PhoneVerifiedAt *time.Time  `json:"phoneVerifiedAt"`
	CreatedAt       time.Time   `json:"createdAt"`
	LastLogin       *time.Time  `json:"lastLogin"`
}

func NewProfile(u *user.User) Profile {
	return Profile{
		UserPayload:     NewUserPayload(u),
		Status:          u.Status,
		PhoneVerifiedAt: u.PhoneVerifiedAt,
		CreatedAt:       u.CreatedAt,
		LastLogin:       u.LastLogin,
	}
}

type MeResponse struct {
	Success bool    `json:"success"`
	User    Profile `json:"user"`
}

// ListUsersResponse is the admin account listing, newest first.
type ListUsersResponse struct {
	Success bool      `json:"success"`
	Count   int       `json:"count"`
	Users   []Profile `json:"users"`
}

// UpdateStatusRequest is the admin payload for suspending or reactivating an account.
type UpdateStatusRequest struct {
	Status   string `json:"status" validate:"required,oneof=ACTIVE SUSPENDED"`
	Reason   string `json:"reason" validate:"max=200"`
	Duration string `json:"duration" validate:"max=50"`
}

func (req *UpdateStatusRequest) Validate() error {
	return validate.Struct(req)
}

type UpdateStatusResponse struct {
	Message  string      `json:"message"`
	User     UserPayload `json:"user"`
	Notified bool        `json:"notified"`
}
