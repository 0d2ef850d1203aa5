package utils

import (
	"fmt"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// NormalizePhone validates a customer phone number for the given default
// region (numbers in international form may belong to any region) and
// returns it in E.164 form.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("phone number is required")
	}
	p, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("phone number %q: %w", raw, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number %q is not valid", raw)
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}
