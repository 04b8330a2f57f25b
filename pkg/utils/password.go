package utils

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const passwordSymbols = "!&$@#%()*+-/<=>?_^~"

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword checks password strength and returns one message per
// unmet criterion, empty when the password is acceptable. A password must
// have at least 8 characters, one uppercase letter, one lowercase letter,
// one digit and one symbol from !&$@#%()*+-/<=>?_^~.
func ValidatePassword(password string) []string {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	var errs []string
	if len(password) < 8 {
		errs = append(errs, "must be at least 8 characters long")
	}
	if !hasUpper {
		errs = append(errs, "must contain at least one uppercase letter")
	}
	if !hasLower {
		errs = append(errs, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		errs = append(errs, "must contain at least one digit")
	}
	if !hasSymbol {
		errs = append(errs, "must contain at least one symbol from "+passwordSymbols)
	}
	return errs
}
