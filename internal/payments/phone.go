package payments

import (
	"regexp"
	"strings"

	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
)

const countryCode = "254"

var (
	nonDigits      = regexp.MustCompile(`\D`)
	normalizedForm = regexp.MustCompile(`^254\d{9}$`)
)

// NormalizePhone rewrites a Kenyan mobile number into the 2547XXXXXXXX form the STK push expects.
// A local 0 prefix is replaced by the country code; a bare subscriber number gets it prepended.
func NormalizePhone(raw string) (string, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}

	switch {
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + digits[1:]
	case !strings.HasPrefix(digits, countryCode):
		digits = countryCode + digits
	}

	if !normalizedForm.MatchString(digits) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number must be a valid M-Pesa number (e.g. 0712345678)").
			WithDetails(map[string]any{"phone_number": raw})
	}
	return digits, nil
}
