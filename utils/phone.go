package utils

import (
	"regexp"
	"strings"
)

// Iranian mobile numbers: optional +98 / 0098 / 98 / 0 prefix followed by 9 and nine digits.
var (
	mobilePattern   = regexp.MustCompile(`^(?:\+98|0098|98|0)?9\d{9}$`)
	spaceOrHyphen   = regexp.MustCompile(`[\s\-]`)
	phoneSeparators = regexp.MustCompile(`[\s\-+]`)
)

// ValidatePhoneNumber checks the raw, trimmed input with spaces and hyphens removed.
func ValidatePhoneNumber(phone string) bool {
	phone = spaceOrHyphen.ReplaceAllString(strings.TrimSpace(phone), "")
	return mobilePattern.MatchString(phone)
}

// NormalizePhone rewrites a validated mobile number to the 11-digit 09XXXXXXXXX form.
// It never fails; unvalidated input may come back malformed.
func NormalizePhone(phone string) string {
	phone = phoneSeparators.ReplaceAllString(strings.TrimSpace(phone), "")

	switch {
	case strings.HasPrefix(phone, "0098"):
		phone = "0" + phone[4:]
	case strings.HasPrefix(phone, "98") && len(phone) == 12:
		phone = "0" + phone[2:]
	case len(phone) == 10 && phone[0] == '9':
		phone = "0" + phone
	}
	return phone
}

// MaskPhone hides the middle digits for log output.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return "****"
	}
	return phone[:4] + "***" + phone[len(phone)-4:]
}
