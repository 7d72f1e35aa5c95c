package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/VersatileFusion/sangshekkan/config"
	"github.com/VersatileFusion/sangshekkan/logger"
	"github.com/VersatileFusion/sangshekkan/utils"
)

// Provider delivers one text message. A nil error means the gateway confirmed acceptance.
type Provider interface {
	Name() string
	Send(ctx context.Context, phone, message string) error
}

// ProviderError is a delivery failure reported by the gateway.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

var ErrUnknownDriver = errors.New("unknown SMS_DRIVER")

// NewProvider builds the provider selected by SMS_DRIVER.
func NewProvider(cfg config.Config) (Provider, error) {
	switch cfg.SMSDriver {
	case "smsir":
		if cfg.SMSAPIKey == "" {
			return nil, errors.New("SMS_API_KEY is required")
		}
		line, err := strconv.ParseInt(cfg.SMSSender, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("SMS_SENDER must be a numeric line number: %w", err)
		}
		return NewSMSIRProvider(&http.Client{Timeout: 10 * time.Second}, cfg.SMSBaseURL, cfg.SMSAPIKey, line), nil
	case "twilio":
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.SMSSender == "" {
			return nil, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and SMS_SENDER are required")
		}
		return NewTwilioProvider(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.SMSSender), nil
	case "log", "":
		return LogProvider{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.SMSDriver)
	}
}

// LogProvider writes messages to the application log instead of sending them.
type LogProvider struct{}

func (LogProvider) Name() string { return "log" }

func (LogProvider) Send(_ context.Context, phone, message string) error {
	logger.Info(fmt.Sprintf("SMS to %s (%d chars) not sent: log driver active", utils.MaskPhone(phone), len([]rune(message))))
	return nil
}
