package handlers

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brainbox/backend/internal/middleware"
	"github.com/brainbox/backend/internal/models"
	"github.com/brainbox/backend/internal/services"
	"github.com/brainbox/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const maxBioLength = 2000

type ProfilesHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewProfilesHandler(db *gorm.DB, access *services.AccessService) *ProfilesHandler {
	return &ProfilesHandler{DB: db, Access: access}
}

func (h *ProfilesHandler) Get(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var profile models.UserProfile
	if err := h.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "profile not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading profile")
	}

	return utils.Success(c, fiber.StatusOK, profile)
}

type updateProfileRequest struct {
	Bio      *string `json:"bio"`
	Birthday *string `json:"birthday"`
	Website  *string `json:"website"`
	DarkMode *bool   `json:"darkMode"`
	PageSize *int    `json:"pageSize"`
}

func (h *ProfilesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var profile models.UserProfile
	if err := h.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "profile not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading profile")
	}

	if !h.Access.CanModify(c.Context(), currentUser, profile) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	fieldErrors := map[string][]string{}
	updates := map[string]interface{}{}

	if req.Bio != nil {
		if utf8.RuneCountInString(*req.Bio) > maxBioLength {
			fieldErrors["bio"] = append(fieldErrors["bio"], "bio must be at most 2000 characters")
		} else {
			updates["bio"] = *req.Bio
		}
	}
	if req.Birthday != nil {
		trimmed := strings.TrimSpace(*req.Birthday)
		if trimmed == "" {
			updates["birthday"] = nil
		} else {
			birthday, parseErr := time.Parse("2006-01-02", trimmed)
			if parseErr != nil {
				fieldErrors["birthday"] = append(fieldErrors["birthday"], "birthday must be a YYYY-MM-DD date")
			} else if birthday.After(time.Now()) {
				fieldErrors["birthday"] = append(fieldErrors["birthday"], "birthday cannot be in the future")
			} else {
				updates["birthday"] = birthday
			}
		}
	}
	if req.Website != nil {
		trimmed := strings.TrimSpace(*req.Website)
		if trimmed == "" {
			updates["website"] = nil
		} else {
			updates["website"] = trimmed
		}
	}
	if req.DarkMode != nil {
		updates["dark_mode"] = *req.DarkMode
	}
	if req.PageSize != nil {
		if *req.PageSize <= 0 {
			fieldErrors["pageSize"] = append(fieldErrors["pageSize"], "pageSize must be a positive integer")
		} else {
			updates["page_size"] = *req.PageSize
		}
	}

	if len(fieldErrors) > 0 {
		return utils.ValidationFailed(c, fieldErrors)
	}
	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.UserProfile{}).Where("id = ?", profile.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
	}

	var updated models.UserProfile
	if err := h.DB.First(&updated, "id = ?", profile.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading updated profile")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

type updatePageSizeRequest struct {
	PageSize int `json:"pageSize"`
}

// UpdatePageSize is the narrow endpoint used by clients to persist their
// preferred list page size.
func (h *ProfilesHandler) UpdatePageSize(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var profile models.UserProfile
	if err := h.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "profile not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading profile")
	}

	if !h.Access.CanModify(c.Context(), currentUser, profile) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req updatePageSizeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.PageSize <= 0 {
		return utils.ValidationFailed(c, map[string][]string{
			"pageSize": {"pageSize must be a positive integer"},
		})
	}

	if err := h.DB.Model(&models.UserProfile{}).Where("id = ?", profile.ID).Update("page_size", req.PageSize).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating page size")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"pageSize": req.PageSize})
}
