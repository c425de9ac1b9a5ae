package models

import "strings"

const (
	maskPrefix      = "********"
	maskPlaceholder = "****"
)

// LastFour returns the last four characters of a document number, or the
// empty string when fewer than four are available. It never panics on short
// input.
func LastFour(number string) string {
	if len(number) < 4 {
		return ""
	}
	return number[len(number)-4:]
}

// MaskedNumber renders a document number for client projections: a fixed
// mask prefix followed by the last four characters, or an all-mask
// placeholder when no suffix is available. No other characters of the true
// number are recoverable from the output.
func MaskedNumber(last4 string) string {
	if last4 == "" {
		return maskPlaceholder
	}
	return maskPrefix + last4
}

// PANPattern documents the accepted PAN shape: five letters, four digits,
// one letter.
const panLength = 10

// NormalizePAN upper-cases a PAN number for storage and comparison.
func NormalizePAN(number string) string {
	return strings.ToUpper(number)
}

// ValidPAN reports whether number matches the PAN format. Input is
// upper-cased before checking so callers may pass user input directly.
func ValidPAN(number string) bool {
	number = NormalizePAN(number)
	if len(number) != panLength {
		return false
	}
	for i := 0; i < 5; i++ {
		if number[i] < 'A' || number[i] > 'Z' {
			return false
		}
	}
	for i := 5; i < 9; i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}
	return number[9] >= 'A' && number[9] <= 'Z'
}
