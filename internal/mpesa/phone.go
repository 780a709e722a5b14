package mpesa

import (
	"fmt"
	"regexp"
	"strings"
)

// msisdnPattern is the accepted Safaricom subscriber format: 254 followed by
// a 7xx or 1xx prefix and eight more digits.
var msisdnPattern = regexp.MustCompile(`^254[71]\d{8}$`)

// FormatPhoneNumber normalizes a Kenyan phone number to international MSISDN
// form. Accepts local forms like "0712 345-678", bare subscriber numbers like
// "712345678", and already-international "+254712345678".
func FormatPhoneNumber(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "+", "").Replace(raw)

	switch {
	case strings.HasPrefix(cleaned, "0"):
		cleaned = "254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "7"), strings.HasPrefix(cleaned, "1"):
		cleaned = "254" + cleaned
	}

	if !msisdnPattern.MatchString(cleaned) {
		return "", fmt.Errorf("invalid Kenyan phone number: %q", raw)
	}
	return cleaned, nil
}
