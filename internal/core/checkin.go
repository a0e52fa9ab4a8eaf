package core

import "strings"

const checkInCodePrefix = "CLUB"

// ParseCheckInCode extracts the member id from a scanned code. The code is
// pipe-delimited and the member id is the third field.
func ParseCheckInCode(code string) (string, error) {
	parts := strings.Split(strings.TrimSpace(code), "|")
	if len(parts) < 3 {
		return "", ErrInvalidCheckInCode
	}
	id := strings.TrimSpace(parts[2])
	if id == "" {
		return "", ErrInvalidCheckInCode
	}
	return id, nil
}

// EncodeCheckInCode builds the string a member's QR code carries.
func EncodeCheckInCode(m Member) string {
	return strings.Join([]string{checkInCodePrefix, m.Email, m.ID}, "|")
}
