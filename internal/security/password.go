package security

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/tazhibayda/edu-auth/internal/apperr"
)

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), 12)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// ValidatePassword enforces the strength policy: at least 8 characters with
// one lowercase, one uppercase, one digit and one symbol.
func ValidatePassword(pw string) error {
	if len(pw) < 8 {
		return apperr.New(apperr.KindValidation, "password must be at least 8 characters long")
	}
	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return apperr.New(apperr.KindValidation,
			"password must contain at least one uppercase, one lowercase, one number and one special character")
	}
	return nil
}
