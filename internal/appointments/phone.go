package appointments

import "strings"

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// NormalizePhone is the one normalization used by every booking entry point.
// Non-digits are stripped and the digit count must be within [10, 15]. Input
// that already starts with '+' is returned unchanged; otherwise the result is
// '+' followed by the digits. No country code is inferred.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", ErrInvalidPhone
	}
	if strings.HasPrefix(raw, "+") {
		return raw, nil
	}
	return "+" + digits, nil
}
