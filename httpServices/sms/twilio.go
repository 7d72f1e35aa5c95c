package sms

import (
	"context"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioProvider sends through Twilio Programmable Messaging.
type TwilioProvider struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioProvider(accountSID, authToken, from string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioProvider{client: client, from: from}
}

func (p *TwilioProvider) Name() string { return "twilio" }

// Send ignores ctx: the Twilio client has no per-call context.
func (p *TwilioProvider) Send(_ context.Context, phone, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(toE164(phone))
	params.SetFrom(p.from)
	params.SetBody(message)

	resp, err := p.client.Api.CreateMessage(params)
	if err != nil {
		return &ProviderError{Provider: p.Name(), Message: err.Error()}
	}
	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return &ProviderError{Provider: p.Name(), Message: *resp.ErrorMessage}
	}
	return nil
}

// toE164 turns a normalized 09XXXXXXXXX number into +989XXXXXXXXX.
func toE164(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if strings.HasPrefix(phone, "0") {
		return "+98" + phone[1:]
	}
	return "+" + phone
}
