package models

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	RegistrationCodeLength = 5
	RegistrationCodeTTL    = 10 * time.Minute
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RegistrationCode pairs a pending (inactive) user with the short code that
// was emailed to them. Confirming deletes the code; letting it expire deletes
// both the code and the pending user.
type RegistrationCode struct {
	BaseModel
	UserID    uuid.UUID `json:"userID" gorm:"type:uuid;uniqueIndex;not null"`
	Code      string    `json:"code" gorm:"type:varchar(5);uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null"`
}

func (RegistrationCode) TableName() string {
	return "registration_codes"
}

func (r *RegistrationCode) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// NewRegistrationCode builds an unsaved code row for the given pending user.
func NewRegistrationCode(userID uuid.UUID, rng *rand.Rand) RegistrationCode {
	buf := make([]byte, RegistrationCodeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rng.Intn(len(codeAlphabet))]
	}
	return RegistrationCode{
		UserID:    userID,
		Code:      string(buf),
		ExpiresAt: time.Now().Add(RegistrationCodeTTL),
	}
}
