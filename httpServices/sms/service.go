package sms

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/VersatileFusion/sangshekkan/logger"
	"github.com/VersatileFusion/sangshekkan/utils"
)

const DefaultRetries = 2

// SMSService renders templates and delivers them with retry.
type SMSService struct {
	provider  Provider
	templates *Catalogue
	retries   int
	sleep     func(ctx context.Context, d time.Duration) error
}

type Option func(*SMSService)

// WithRetries sets how many retries follow the first attempt.
func WithRetries(n int) Option {
	return func(s *SMSService) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *SMSService) {
		s.sleep = sleep
	}
}

func NewSMSService(provider Provider, templates *Catalogue, opts ...Option) *SMSService {
	s := &SMSService{
		provider:  provider,
		templates: templates,
		retries:   DefaultRetries,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SMSService) Templates() *Catalogue {
	return s.templates
}

// Backoff is the wait after the given failed attempt (1-based).
func Backoff(attempt int) time.Duration {
	if attempt == 1 {
		return 500 * time.Millisecond
	}
	return time.Duration(attempt) * time.Second
}

// Send delivers message, retrying failed attempts. It returns the last
// provider error once every attempt has failed.
func (s *SMSService) Send(ctx context.Context, phone, message string) error {
	phone = utils.NormalizePhone(phone)
	attempts := s.retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.provider.Send(ctx, phone, message)
		if err == nil {
			logger.Success(fmt.Sprintf("SMS sent to %s via %s", utils.MaskPhone(phone), s.provider.Name()))
			return nil
		}
		lastErr = err
		logger.Warning(fmt.Sprintf("SMS attempt %d/%d to %s failed: %v", attempt, attempts, utils.MaskPhone(phone), err))

		if attempt < attempts {
			if err := s.sleep(ctx, Backoff(attempt)); err != nil {
				return fmt.Errorf("sms retry aborted: %w", lastErr)
			}
		}
	}
	return lastErr
}

// SendTemplate validates and renders the template before any network attempt.
func (s *SMSService) SendTemplate(ctx context.Context, phone, key string, vars map[string]string) error {
	if err := s.templates.Validate(key, vars); err != nil {
		return err
	}
	message, err := s.templates.Format(key, vars)
	if err != nil {
		return err
	}
	return s.Send(ctx, phone, message)
}

// SendOTP sends the OTP_<PURPOSE> template; expiry is rendered in whole minutes.
func (s *SMSService) SendOTP(ctx context.Context, phone, code, purpose string, ttl time.Duration) error {
	minutes := int(math.Ceil(ttl.Minutes()))
	return s.SendTemplate(ctx, phone, "OTP_"+strings.ToUpper(purpose), map[string]string{
		"code":   code,
		"expiry": strconv.Itoa(minutes),
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
