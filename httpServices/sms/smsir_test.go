package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/VersatileFusion/sangshekkan/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSIRProviderSendsBulkRequest(t *testing.T) {
	var got bulkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/send/bulk", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("X-API-KEY"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":1,"message":"موفق","data":{"packId":"abc","messageIds":[1],"cost":1}}`))
	}))
	defer srv.Close()

	p := NewSMSIRProvider(srv.Client(), srv.URL+"/", "secret-key", 300000000)
	require.NoError(t, p.Send(context.Background(), "09123456789", "سلام"))

	assert.Equal(t, int64(300000000), got.LineNumber)
	assert.Equal(t, "سلام", got.MessageText)
	assert.Equal(t, []string{"09123456789"}, got.Mobiles)
}

func TestSMSIRProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusUnauthorized, `{"status":0,"message":"کلید نامعتبر"}`},
		{"gateway rejection", http.StatusOK, `{"status":10,"message":"اعتبار کافی نیست"}`},
		{"plain text failure", http.StatusBadGateway, `upstream timeout`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewSMSIRProvider(srv.Client(), srv.URL, "k", 1).Send(context.Background(), "09123456789", "x")
			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "smsir", perr.Provider)
			assert.NotEmpty(t, perr.Message)
		})
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.Config{SMSDriver: "log"})
	require.NoError(t, err)
	assert.Equal(t, "log", p.Name())

	_, err = NewProvider(config.Config{SMSDriver: "smsir", SMSSender: "3000"})
	assert.Error(t, err, "missing api key")

	_, err = NewProvider(config.Config{SMSDriver: "smsir", SMSAPIKey: "k", SMSSender: "abc"})
	assert.Error(t, err, "non numeric line")

	p, err = NewProvider(config.Config{SMSDriver: "smsir", SMSAPIKey: "k", SMSSender: "3000", SMSBaseURL: "https://api.sms.ir"})
	require.NoError(t, err)
	assert.Equal(t, "smsir", p.Name())

	p, err = NewProvider(config.Config{SMSDriver: "twilio", TwilioAccountSID: "AC1", TwilioAuthToken: "t", SMSSender: "+15550001111"})
	require.NoError(t, err)
	assert.Equal(t, "twilio", p.Name())

	_, err = NewProvider(config.Config{SMSDriver: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestToE164(t *testing.T) {
	assert.Equal(t, "+989123456789", toE164("09123456789"))
	assert.Equal(t, "+989123456789", toE164("+989123456789"))
	assert.Equal(t, "+989123456789", toE164("989123456789"))
}
