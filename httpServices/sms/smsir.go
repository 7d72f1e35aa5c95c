package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SMSIRProvider talks to the SMS.ir REST API (bulk send).
type SMSIRProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	lineNumber int64
}

func NewSMSIRProvider(httpClient *http.Client, baseURL, apiKey string, lineNumber int64) *SMSIRProvider {
	return &SMSIRProvider{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		lineNumber: lineNumber,
	}
}

type bulkRequest struct {
	LineNumber  int64    `json:"lineNumber"`
	MessageText string   `json:"messageText"`
	Mobiles     []string `json:"mobiles"`
}

type bulkResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		PackID     string  `json:"packId"`
		MessageIDs []int64 `json:"messageIds"`
		Cost       float64 `json:"cost"`
	} `json:"data"`
}

func (p *SMSIRProvider) Name() string { return "smsir" }

func (p *SMSIRProvider) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(bulkRequest{
		LineNumber:  p.lineNumber,
		MessageText: message,
		Mobiles:     []string{phone},
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/send/bulk", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	var parsed bulkResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &ProviderError{Provider: p.Name(), Status: resp.StatusCode, Message: msg}
	}
	if parsed.Status != 1 {
		return &ProviderError{Provider: p.Name(), Status: parsed.Status, Message: parsed.Message}
	}
	return nil
}
