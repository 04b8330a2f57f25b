package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/brainbox/backend/internal/middleware"
	"github.com/brainbox/backend/internal/models"
	"github.com/brainbox/backend/internal/services"
	"github.com/brainbox/backend/pkg/logger"
	"github.com/brainbox/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB           *gorm.DB
	Registration *services.RegistrationService
}

func NewAuthHandler(db *gorm.DB, registration *services.RegistrationService) *AuthHandler {
	return &AuthHandler{DB: db, Registration: registration}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	fieldErrors := map[string][]string{}
	if req.Username == "" {
		fieldErrors["username"] = append(fieldErrors["username"], "username is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fieldErrors["email"] = append(fieldErrors["email"], "invalid email address")
	}
	if passwordErrors := utils.ValidatePassword(req.Password); len(passwordErrors) > 0 {
		fieldErrors["password"] = append(fieldErrors["password"], passwordErrors...)
	}
	if len(fieldErrors) > 0 {
		return utils.ValidationFailed(c, fieldErrors)
	}

	var existing models.User
	err := h.DB.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error
	if err == nil {
		return utils.Error(c, fiber.StatusConflict, "username or email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing user")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	user, err := h.Registration.Register(c.Context(), req.Username, req.Email, passwordHash)
	if err != nil {
		if errors.Is(err, services.ErrMailDelivery) {
			return utils.Error(c, fiber.StatusBadGateway, "could not send confirmation email")
		}
		if isDuplicateKeyError(err) {
			return utils.Error(c, fiber.StatusConflict, "username or email already registered")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id":  user.ID.String(),
		"username": user.Username,
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"message": "confirmation code sent",
		"user":    user,
	})
}

type confirmRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandler) Confirm(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" {
		return utils.Error(c, fiber.StatusBadRequest, "code is required")
	}

	user, err := h.Registration.Confirm(c.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCodeNotFound):
			return utils.Error(c, fiber.StatusNotFound, "registration code not found")
		case errors.Is(err, services.ErrCodeExpired):
			return utils.Error(c, fiber.StatusGone, "registration code expired")
		default:
			return utils.Error(c, fiber.StatusInternalServerError, "failed confirming registration")
		}
	}

	logger.Info("user_confirmed", map[string]interface{}{
		"user_id": user.ID.String(),
	})

	token, err := utils.GenerateToken(user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	var user models.User
	if err := h.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		logger.Warn("login_failed_user_not_found", map[string]interface{}{
			"email": req.Email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]interface{}{
			"user_id": user.ID.String(),
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !user.IsActive {
		return utils.Error(c, fiber.StatusForbidden, "account not activated")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.InfoWithUser(user.ID.String(), "user_login", map[string]interface{}{
		"ip": c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"token": token, "user": user})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var user models.User
	if err := h.DB.Preload("Profile").First(&user, "id = ?", currentUser.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	return utils.Success(c, fiber.StatusOK, user)
}
