// Package phone validates destination numbers before they reach the voice API.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNotAString    = errors.New("phone: number must be a string")
	ErrInvalidFormat = errors.New("phone: invalid E.164 format")
)

// '+', a non-zero leading digit, then 7 to 14 more digits.
var e164Regex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// Validate accepts a raw decoded value and returns the trimmed number.
// Only surrounding whitespace is removed; the number is never reformatted.
func Validate(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", ErrNotAString
	}
	number := strings.TrimSpace(s)
	if !e164Regex.MatchString(number) {
		return "", ErrInvalidFormat
	}
	return number, nil
}

// IsE164 reports whether s, after trimming, is an acceptable number.
func IsE164(s string) bool {
	_, err := Validate(s)
	return err == nil
}
