package application

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// PhoneRegion is the default region for numbers written without a country code.
const PhoneRegion = "VN"

// NormalizePhone rewrites a Vietnamese phone number in E.164 form. An empty
// input stays empty.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, err := phonenumbers.Parse(raw, PhoneRegion)
	if err != nil {
		return "", fmt.Errorf("parse phone %q: %w", raw, err)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
