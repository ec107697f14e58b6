// Package mrz derives the BAC/PACE access-control key ("MRZ-key") from the
// three Machine Readable Zone fields that alone identify a document to its
// own chip: document number, date of birth, and date of expiry.
package mrz

import (
	"fmt"
	"strings"
)

const fillChar = '<'

// DocumentInfo carries the three MRZ fields the access-control key is
// derived from. DateOfBirth and DateOfExpiry are YYMMDD; DocumentNumber is
// padded with '<' to 9 characters if shorter.
type DocumentInfo struct {
	DocumentNumber string
	DateOfBirth    string
	DateOfExpiry   string
}

// Key derives the 24-character MRZ-key string BAC and PACE hash to seed
// their key derivation: docNo ‖ cd_doc ‖ dob ‖ cd_dob ‖ exp ‖ cd_exp.
func Key(info DocumentInfo) (string, error) {
	if len(info.DateOfBirth) != 6 {
		return "", fmt.Errorf("mrz: date of birth must be 6 characters (YYMMDD), got %d", len(info.DateOfBirth))
	}
	if len(info.DateOfExpiry) != 6 {
		return "", fmt.Errorf("mrz: date of expiry must be 6 characters (YYMMDD), got %d", len(info.DateOfExpiry))
	}

	docNo := padRight(info.DocumentNumber, 9)
	if len(docNo) != 9 {
		return "", fmt.Errorf("mrz: document number exceeds 9 characters after padding: %q", info.DocumentNumber)
	}

	cdDoc, err := CheckDigit(docNo)
	if err != nil {
		return "", err
	}
	cdDob, err := CheckDigit(info.DateOfBirth)
	if err != nil {
		return "", err
	}
	cdExp, err := CheckDigit(info.DateOfExpiry)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(docNo)
	b.WriteByte(cdDoc)
	b.WriteString(info.DateOfBirth)
	b.WriteByte(cdDob)
	b.WriteString(info.DateOfExpiry)
	b.WriteByte(cdExp)
	return b.String(), nil
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(string(fillChar), width-len(s))
}

// weights cycles 7, 3, 1 over the field's characters, per ICAO 9303 Part 3
// Appendix A.
var weights = [3]int{7, 3, 1}

// CheckDigit computes the ICAO 7-3-1 check digit over field, returning it
// as an ASCII digit byte '0'..'9'. An all-fill field yields '0'.
func CheckDigit(field string) (byte, error) {
	sum := 0
	for i := 0; i < len(field); i++ {
		v, err := charValue(field[i])
		if err != nil {
			return 0, err
		}
		sum += v * weights[i%3]
	}
	return byte('0' + sum%10), nil
}

// charValue maps one MRZ character to its check-digit value: digits map to
// themselves, '<' and space map to 0, 'A'..'Z' map to 10..35.
func charValue(c byte) (int, error) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), nil
	case c == fillChar || c == ' ':
		return 0, nil
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, nil
	default:
		return 0, fmt.Errorf("mrz: invalid character %q in field", c)
	}
}

// ValidLineLength reports whether n is a recognized MRZ total length: 90
// (TD1), 72 (TD2), or 88 (TD3).
func ValidLineLength(n int) bool {
	return n == 90 || n == 72 || n == 88
}
