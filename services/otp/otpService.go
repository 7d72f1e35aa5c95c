package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/VersatileFusion/sangshekkan/logger"
	otpModel "github.com/VersatileFusion/sangshekkan/models/otp"
	"github.com/VersatileFusion/sangshekkan/models/user"
	"github.com/VersatileFusion/sangshekkan/repository"
	"github.com/VersatileFusion/sangshekkan/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	StudentLandingPath = "/student-dashboard"
	AdminLandingPath   = "/admin"
)

// Notifier delivers a code to the phone.
type Notifier interface {
	SendOTP(ctx context.Context, phone, code, purpose string, ttl time.Duration) error
}

// SessionIssuer mints the session cookie after a successful login or registration.
type SessionIssuer interface {
	Issue(u *user.User) (*fiber.Cookie, error)
}

// Settings tune the flow. Zero values are replaced by DefaultSettings.
type Settings struct {
	CodeTTL                 time.Duration
	ResendWindow            time.Duration
	MaxVerifyAttempts       int
	MaxRegistrationAttempts int
	EchoCode                bool
}

func DefaultSettings() Settings {
	return Settings{
		CodeTTL:                 120 * time.Second,
		ResendWindow:            120 * time.Second,
		MaxVerifyAttempts:       3,
		MaxRegistrationAttempts: 5,
	}
}

// Service implements send, verify, login completion and registration
// completion over the abstract stores.
type Service struct {
	users         repository.UserRepository
	otps          repository.OTPRepository
	notifier      Notifier
	sessions      SessionIssuer
	settings      Settings
	now           func() time.Time
	generateCode  func() (string, error)
	hashPassword  func(string) (string, error)
	checkPassword func(password, encoded string) (bool, error)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.generateCode = gen }
}

func WithPasswordHasher(hash func(string) (string, error)) Option {
	return func(s *Service) { s.hashPassword = hash }
}

func WithPasswordVerifier(check func(password, encoded string) (bool, error)) Option {
	return func(s *Service) { s.checkPassword = check }
}

// NewOTPService wires the flow.
func NewOTPService(users repository.UserRepository, otps repository.OTPRepository, notifier Notifier, sessions SessionIssuer, settings Settings, opts ...Option) *Service {
	defaults := DefaultSettings()
	if settings.CodeTTL <= 0 {
		settings.CodeTTL = defaults.CodeTTL
	}
	if settings.ResendWindow <= 0 {
		settings.ResendWindow = defaults.ResendWindow
	}
	if settings.MaxVerifyAttempts <= 0 {
		settings.MaxVerifyAttempts = defaults.MaxVerifyAttempts
	}
	if settings.MaxRegistrationAttempts <= 0 {
		settings.MaxRegistrationAttempts = defaults.MaxRegistrationAttempts
	}

	s := &Service{
		users:         users,
		otps:          otps,
		notifier:      notifier,
		sessions:      sessions,
		settings:      settings,
		now:           func() time.Time { return time.Now().UTC() },
		generateCode:  GenerateOTP,
		hashPassword:  utils.HashPassword,
		checkPassword: utils.VerifyPassword,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateOTP draws a 6-digit code uniformly from [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// NextURL is where the client lands after authenticating.
func NextURL(u *user.User) string {
	if u.IsAdmin() {
		return AdminLandingPath
	}
	return StudentLandingPath
}

type SendResult struct {
	Phone     string
	ExpiresIn int
	DebugCode string
}

// SendCode issues a code for (phone, purpose) and delivers it by SMS. A failed
// delivery deletes the new record so the resend cooldown is not consumed.
func (s *Service) SendCode(ctx context.Context, rawPhone string, purpose otpModel.Purpose) (*SendResult, error) {
	rawPhone = strings.TrimSpace(rawPhone)
	if rawPhone == "" {
		return nil, validation(MsgPhoneRequired)
	}
	if !utils.ValidatePhoneNumber(rawPhone) {
		return nil, validation(MsgPhoneInvalid)
	}
	if !purpose.Valid() {
		return nil, internal(fmt.Errorf("unknown otp purpose %q", purpose))
	}
	phone := utils.NormalizePhone(rawPhone)

	if err := s.checkSendPrecondition(ctx, phone, purpose); err != nil {
		return nil, err
	}

	now := s.now()
	recent, err := s.otps.FindLatestSince(ctx, phone, purpose, now.Add(-s.settings.ResendWindow))
	switch {
	case err == nil:
		wait := recent.CreatedAt.Add(s.settings.ResendWindow).Sub(now)
		secs := int(math.Ceil(float64(wait.Milliseconds()) / 1000))
		if secs < 1 {
			secs = 1
		}
		logger.Info(fmt.Sprintf("OTP resend for %s (%s) rejected, %ds left", utils.MaskPhone(phone), purpose, secs))
		return nil, &FlowError{Kind: KindRateLimited, Message: fmt.Sprintf(MsgCooldown, secs), Code: CodeCooldown, RetryAfter: secs}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, internal(err)
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, internal(err)
	}

	rec := &otpModel.OTP{
		Phone:     phone,
		Code:      code,
		Purpose:   purpose,
		IsUsed:    false,
		Attempts:  0,
		ExpiresAt: now.Add(s.settings.CodeTTL),
		CreatedAt: now,
	}
	if err := s.otps.Create(ctx, rec); err != nil {
		return nil, internal(err)
	}

	if err := s.notifier.SendOTP(ctx, phone, code, string(purpose), s.settings.CodeTTL); err != nil {
		logger.Error("SMS delivery failed for "+utils.MaskPhone(phone)+", rolling back otp", err)
		if delErr := s.otps.Delete(context.WithoutCancel(ctx), rec.ID); delErr != nil {
			logger.Error("Failed to roll back otp record "+rec.ID, delErr)
		}
		return nil, &FlowError{Kind: KindDelivery, Message: MsgSMSFailed, Code: CodeSMSFailed, Err: err}
	}

	logger.Success(fmt.Sprintf("OTP (%s) sent to %s", purpose, utils.MaskPhone(phone)))
	result := &SendResult{Phone: phone, ExpiresIn: int(s.settings.CodeTTL / time.Second)}
	if s.settings.EchoCode {
		result.DebugCode = code
	}
	return result, nil
}

func (s *Service) checkSendPrecondition(ctx context.Context, phone string, purpose otpModel.Purpose) error {
	existing, err := s.users.FindByPhone(ctx, phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return internal(err)
	}

	if purpose == otpModel.PurposeSignup {
		if existing != nil {
			return &FlowError{Kind: KindConflict, Message: MsgUserExists, Code: CodeUserExists}
		}
		return nil
	}

	if existing == nil {
		return &FlowError{Kind: KindNotFound, Message: MsgNotRegistered, Code: CodeUserNotFound}
	}
	if existing.IsSuspended() {
		return &FlowError{Kind: KindForbidden, Message: MsgSuspendedContact, Code: CodeUserSuspended}
	}
	return nil
}

// findUsable looks up the newest active record matching code. A miss counts
// as a failed attempt against the newest active record for (phone, purpose).
func (s *Service) findUsable(ctx context.Context, phone, code string, purpose otpModel.Purpose, maxAttempts int) (*otpModel.OTP, error) {
	now := s.now()
	rec, err := s.otps.FindActive(ctx, phone, purpose, code, now)
	if errors.Is(err, repository.ErrNotFound) {
		if incErr := s.otps.IncrementAttempts(ctx, phone, purpose, now); incErr != nil {
			logger.Error("Failed to record otp attempt", incErr)
		}
		return nil, invalidCode()
	}
	if err != nil {
		return nil, internal(err)
	}
	if rec.Exhausted(maxAttempts) {
		return nil, &FlowError{Kind: KindRateLimited, Message: MsgTooManyAttempts, Code: CodeTooManyAttempts}
	}
	return rec, nil
}

// consume marks rec used. Losing a race to a concurrent verify reads as an invalid code.
func (s *Service) consume(ctx context.Context, rec *otpModel.OTP) error {
	ok, err := s.otps.MarkUsed(ctx, rec.ID)
	if err != nil {
		return internal(err)
	}
	if !ok {
		return invalidCode()
	}
	return nil
}

type VerifyResult struct {
	Phone    string
	Verified bool
}

// VerifyCode consumes a code without any account side effects.
func (s *Service) VerifyCode(ctx context.Context, rawPhone, code string, purpose otpModel.Purpose) (*VerifyResult, error) {
	rawPhone = strings.TrimSpace(rawPhone)
	code = strings.TrimSpace(code)
	if rawPhone == "" || code == "" {
		return nil, validation(MsgPhoneAndCodeRequired)
	}
	phone := utils.NormalizePhone(rawPhone)

	rec, err := s.findUsable(ctx, phone, code, purpose, s.settings.MaxVerifyAttempts)
	if err != nil {
		return nil, err
	}
	if err := s.consume(ctx, rec); err != nil {
		return nil, err
	}
	return &VerifyResult{Phone: phone, Verified: true}, nil
}

// AuthResult is the outcome of a completed login or registration. Cookie is
// nil when the session could not be signed.
type AuthResult struct {
	User         *user.User
	NextURL      string
	Cookie       *fiber.Cookie
	SessionError error
}

// CompleteLogin verifies a login code, records lastLogin and issues a session.
func (s *Service) CompleteLogin(ctx context.Context, rawPhone, code string) (*AuthResult, error) {
	rawPhone = strings.TrimSpace(rawPhone)
	code = strings.TrimSpace(code)
	if rawPhone == "" || code == "" {
		return nil, validation(MsgPhoneAndCodeRequired)
	}
	phone := utils.NormalizePhone(rawPhone)

	rec, err := s.findUsable(ctx, phone, code, otpModel.PurposeLogin, s.settings.MaxVerifyAttempts)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &FlowError{Kind: KindNotFound, Message: MsgUserMissing, Code: CodeUserNotFound}
	}
	if err != nil {
		return nil, internal(err)
	}
	if u.IsSuspended() {
		return nil, &FlowError{Kind: KindForbidden, Message: MsgSuspended, Code: CodeUserSuspended}
	}

	if err := s.consume(ctx, rec); err != nil {
		return nil, err
	}

	s.touchLastLogin(ctx, u)
	logger.Success("User " + u.ID + " logged in with OTP")
	return s.authResult(u), nil
}

// CredentialsLogin authenticates with phone and password. Unknown phones and
// wrong passwords share one response.
func (s *Service) CredentialsLogin(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, validation(MsgCredentialsRequired)
	}
	if !utils.ValidatePhoneNumber(identifier) {
		return nil, validation(MsgPhoneInvalid)
	}
	phone := utils.NormalizePhone(identifier)

	u, err := s.users.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Info("Password login for unknown phone " + utils.MaskPhone(phone))
		return nil, badCredentials()
	}
	if err != nil {
		return nil, internal(err)
	}
	if u.PasswordHash == nil || *u.PasswordHash == "" {
		logger.Info("Password login for user " + u.ID + " without a password")
		return nil, badCredentials()
	}

	ok, err := s.checkPassword(password, *u.PasswordHash)
	if err != nil {
		logger.Error("Stored password hash of user "+u.ID+" is unreadable", err)
		return nil, badCredentials()
	}
	if !ok {
		logger.Info("Wrong password for user " + u.ID)
		return nil, badCredentials()
	}
	if u.IsSuspended() {
		return nil, &FlowError{Kind: KindForbidden, Message: MsgSuspendedContact, Code: CodeUserSuspended}
	}

	s.touchLastLogin(ctx, u)
	logger.Success("User " + u.ID + " logged in with password")
	return s.authResult(u), nil
}

// ResetInput is the already-aliased password reset payload.
type ResetInput struct {
	Phone    string
	Code     string
	Password string
}

// CompleteReset consumes a reset_password code and stores the new password hash.
func (s *Service) CompleteReset(ctx context.Context, in ResetInput) (*user.User, error) {
	rawPhone := strings.TrimSpace(in.Phone)
	code := strings.TrimSpace(in.Code)

	switch {
	case rawPhone == "":
		return nil, validation(MsgPhoneRequired)
	case len(code) != 6:
		return nil, validation(MsgCodeShape)
	case utf8.RuneCountInString(in.Password) < 8:
		return nil, validation(MsgPasswordTooShort)
	}
	phone := utils.NormalizePhone(rawPhone)

	rec, err := s.findUsable(ctx, phone, code, otpModel.PurposeResetPassword, s.settings.MaxVerifyAttempts)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &FlowError{Kind: KindNotFound, Message: MsgUserMissing, Code: CodeUserNotFound}
	}
	if err != nil {
		return nil, internal(err)
	}
	if u.IsSuspended() {
		return nil, &FlowError{Kind: KindForbidden, Message: MsgSuspended, Code: CodeUserSuspended}
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, internal(err)
	}

	if err := s.consume(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.users.UpdateByID(ctx, u.ID, repository.UserUpdate{PasswordHash: &hash}, s.now()); err != nil {
		return nil, internal(err)
	}
	u.PasswordHash = &hash

	logger.Success("Password reset for user " + u.ID)
	return u, nil
}

// touchLastLogin records the login time. A failed write does not fail the login.
func (s *Service) touchLastLogin(ctx context.Context, u *user.User) {
	now := s.now()
	if err := s.users.UpdateByID(ctx, u.ID, repository.UserUpdate{LastLogin: &now}, now); err != nil {
		logger.Error("Failed to update lastLogin for user "+u.ID, err)
		return
	}
	u.LastLogin = &now
}

// RegistrationInput is the already-aliased registration payload.
type RegistrationInput struct {
	Phone    string
	Code     string
	Name     string
	Password string
	Grade    string
	Field    string
	City     string
}

// CompleteRegistration verifies a signup code and creates the account. The
// code is consumed before the user is inserted so one code creates at most
// one account.
func (s *Service) CompleteRegistration(ctx context.Context, in RegistrationInput) (*AuthResult, error) {
	rawPhone := strings.TrimSpace(in.Phone)
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)

	switch {
	case rawPhone == "":
		return nil, validation(MsgPhoneRequired)
	case len(code) != 6:
		return nil, validation(MsgCodeShape)
	case utf8.RuneCountInString(name) < 2:
		return nil, validation(MsgNameRequired)
	case utf8.RuneCountInString(in.Password) < 8:
		return nil, validation(MsgPasswordTooShort)
	}
	phone := utils.NormalizePhone(rawPhone)

	rec, err := s.findUsable(ctx, phone, code, otpModel.PurposeSignup, s.settings.MaxRegistrationAttempts)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByPhone(ctx, phone); err == nil {
		return nil, &FlowError{Kind: KindConflict, Message: MsgUserExists, Code: CodeUserExists}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internal(err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, internal(err)
	}

	if err := s.consume(ctx, rec); err != nil {
		return nil, err
	}

	now := s.now()
	u := &user.User{
		Phone:           phone,
		Name:            name,
		PasswordHash:    &hash,
		Role:            user.RoleStudent,
		Status:          user.StatusActive,
		Grade:           strings.TrimSpace(in.Grade),
		Field:           strings.TrimSpace(in.Field),
		City:            strings.TrimSpace(in.City),
		IsVerified:      true,
		PhoneVerifiedAt: &now,
		LastLogin:       &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &FlowError{Kind: KindConflict, Message: MsgUserExists, Code: CodeUserExists}
		}
		return nil, internal(err)
	}

	logger.Success("Registered user " + u.ID + " for " + utils.MaskPhone(phone))
	return s.authResult(u), nil
}

func (s *Service) authResult(u *user.User) *AuthResult {
	res := &AuthResult{User: u, NextURL: NextURL(u)}
	cookie, err := s.sessions.Issue(u)
	if err != nil {
		logger.Error("Session cookie creation failed for user "+u.ID, err)
		res.SessionError = err
		return res
	}
	res.Cookie = cookie
	return res
}
