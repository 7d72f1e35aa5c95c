package utils

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/VersatileFusion/sangshekkan/types"

	"github.com/gofiber/fiber/v2"
)

const (
	redacted        = "[REDACTED]"
	maxLoggedBody   = 4096
	oversizedMarker = "[LARGE_BODY_REMOVED]"
)

// Keys never written to the audit log
var sensitiveFields = map[string]bool{
	"code":         true,
	"otp":          true,
	"password":     true,
	"debugCode":    true,
	"passwordHash": true,
}

var sensitiveHeaders = map[string]bool{
	"cookie":        true,
	"set-cookie":    true,
	"authorization": true,
	"x-api-key":     true,
}

// RedactBody masks sensitive JSON fields. Non-JSON bodies are kept only when small.
func RedactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		if len(body) > maxLoggedBody {
			return oversizedMarker
		}
		return string(body)
	}

	redactValue(payload)
	out, err := json.Marshal(payload)
	if err != nil {
		return oversizedMarker
	}
	if len(out) > maxLoggedBody {
		return oversizedMarker
	}
	return string(out)
}

func redactValue(v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if sensitiveFields[k] {
				val[k] = redacted
				continue
			}
			redactValue(inner)
		}
	case []interface{}:
		for _, inner := range val {
			redactValue(inner)
		}
	}
}

func formatHeaders(visit func(func(key, value []byte))) string {
	var b strings.Builder
	visit(func(key, value []byte) {
		name := string(key)
		b.WriteString(name)
		b.WriteString(": ")
		if sensitiveHeaders[strings.ToLower(name)] {
			b.WriteString(redacted)
		} else {
			b.Write(value)
		}
		b.WriteString("\r\n")
	})
	return b.String()
}

// CreateSanitizedLogEntry copies everything out of the fasthttp buffers, since
// the entry outlives the request context.
func CreateSanitizedLogEntry(c *fiber.Ctx) types.LogEntry {
	return types.LogEntry{
		Method:          string([]byte(c.Method())),
		URL:             string([]byte(c.OriginalURL())),
		RequestBody:     RedactBody(c.Body()),
		ResponseBody:    RedactBody(c.Response().Body()),
		RequestHeaders:  formatHeaders(c.Request().Header.VisitAll),
		ResponseHeaders: formatHeaders(c.Response().Header.VisitAll),
		StatusCode:      c.Response().StatusCode(),
		CreatedAt:       time.Now().UTC(),
	}
}
