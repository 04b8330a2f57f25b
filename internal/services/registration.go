package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/brainbox/backend/internal/models"
	"github.com/brainbox/backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCodeNotFound = errors.New("registration code not found")
	ErrCodeExpired  = errors.New("registration code expired")
	ErrMailDelivery = errors.New("could not send confirmation email")
)

type RegistrationService struct {
	DB     *gorm.DB
	Mailer Mailer

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRegistrationService(db *gorm.DB, mailer Mailer) *RegistrationService {
	return &RegistrationService{
		DB:     db,
		Mailer: mailer,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Register creates an inactive user together with a profile stub and a
// registration code, then emails the code. Everything happens in one
// transaction: a failed send rolls the whole creation back.
func (s *RegistrationService) Register(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
		IsActive:     false,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		profile := models.UserProfile{UserID: user.ID, PageSize: models.DefaultPageSize}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		s.mu.Lock()
		code := models.NewRegistrationCode(user.ID, s.rng)
		s.mu.Unlock()
		if err := tx.Create(&code).Error; err != nil {
			return err
		}

		subject := "BrainBox - Confirm your account"
		body := fmt.Sprintf("Your confirmation code is %s. The code will expire in 10 minutes.", code.Code)
		if err := s.Mailer.Send(ctx, email, subject, body); err != nil {
			logger.Error("confirmation_email_failed", err, map[string]interface{}{
				"email": email,
			})
			return ErrMailDelivery
		}

		user.Profile = &profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Confirm activates the pending user behind the code and deletes the code.
// An expired code deletes both the code and the pending user and reports
// ErrCodeExpired.
func (s *RegistrationService) Confirm(ctx context.Context, code string) (*models.User, error) {
	var reg models.RegistrationCode
	if err := s.DB.WithContext(ctx).First(&reg, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	if reg.Expired(time.Now()) {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.RegistrationCode{}, "id = ?", reg.ID).Error; err != nil {
				return err
			}
			return tx.Delete(&models.User{}, "id = ?", reg.UserID).Error
		})
		if err != nil {
			return nil, err
		}
		return nil, ErrCodeExpired
	}

	var user models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", reg.UserID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", true).Error; err != nil {
			return err
		}
		return tx.Delete(&models.RegistrationCode{}, "id = ?", reg.ID).Error
	})
	if err != nil {
		return nil, err
	}

	user.IsActive = true
	return &user, nil
}

// CleanupExpired removes registration codes past their expiry together with
// the pending users they belong to. Returns how many codes were removed.
func (s *RegistrationService) CleanupExpired(ctx context.Context) (int, error) {
	var expired []models.RegistrationCode
	if err := s.DB.WithContext(ctx).Where("expires_at < ?", time.Now()).Find(&expired).Error; err != nil {
		return 0, err
	}

	for _, reg := range expired {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.RegistrationCode{}, "id = ?", reg.ID).Error; err != nil {
				return err
			}
			return tx.Delete(&models.User{}, "id = ?", reg.UserID).Error
		})
		if err != nil {
			return 0, err
		}
	}

	return len(expired), nil
}
