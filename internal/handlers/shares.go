package handlers

import (
	"errors"

	"github.com/brainbox/backend/internal/middleware"
	"github.com/brainbox/backend/internal/models"
	"github.com/brainbox/backend/internal/services"
	"github.com/brainbox/backend/pkg/logger"
	"github.com/brainbox/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SharesHandler manages file sharing grants. The same grant is addressable
// from both sides of the relation: /users/:id/shared-files and
// /files/:id/shared-users.
type SharesHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewSharesHandler(db *gorm.DB, access *services.AccessService) *SharesHandler {
	return &SharesHandler{DB: db, Access: access}
}

type grantForUserRequest struct {
	FileID     uuid.UUID              `json:"fileID"`
	Permission models.SharePermission `json:"permission"`
}

// GrantForUser handles POST /users/:id/shared-files.
func (h *SharesHandler) GrantForUser(c *fiber.Ctx) error {
	granteeID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req grantForUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	return h.grant(c, granteeID, req.FileID, req.Permission)
}

type grantForFileRequest struct {
	UserID     uuid.UUID              `json:"userID"`
	Permission models.SharePermission `json:"permission"`
}

// GrantForFile handles POST /files/:id/shared-users.
func (h *SharesHandler) GrantForFile(c *fiber.Ctx) error {
	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var req grantForFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	return h.grant(c, req.UserID, fileID, req.Permission)
}

func (h *SharesHandler) grant(c *fiber.Ctx, granteeID, fileID uuid.UUID, permission models.SharePermission) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if !models.IsValidSharePermission(permission) {
		return utils.ValidationFailed(c, map[string][]string{
			"permission": {"permission must be R or RW"},
		})
	}

	var grantee models.User
	if err := h.DB.First(&grantee, "id = ?", granteeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	var file models.File
	if err := h.DB.First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading file")
	}

	if grantee.ID == file.UserID {
		return utils.ValidationFailed(c, map[string][]string{
			"user": {"a file cannot be shared with its owner"},
		})
	}

	if !h.Access.CanGrantShare(c.Context(), currentUser, &file) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	share := models.SharedFile{
		UserID:     grantee.ID,
		FileID:     file.ID,
		Permission: permission,
	}
	if err := h.DB.Create(&share).Error; err != nil {
		if isDuplicateKeyError(err) {
			return utils.Error(c, fiber.StatusConflict, "file is already shared with this user")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating share")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_shared", map[string]interface{}{
		"file_id":    file.ID.String(),
		"grantee_id": grantee.ID.String(),
		"permission": string(permission),
	})

	return utils.Success(c, fiber.StatusCreated, share)
}

type updateShareRequest struct {
	Permission models.SharePermission `json:"permission"`
}

// UpdateForUser handles PUT /users/:id/shared-files/:fileId.
func (h *SharesHandler) UpdateForUser(c *fiber.Ctx) error {
	granteeID, fileID, err := sharePairFromParams(c, "id", "fileId")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid identifier")
	}
	return h.update(c, granteeID, fileID)
}

// UpdateForFile handles PUT /files/:id/shared-users/:userId.
func (h *SharesHandler) UpdateForFile(c *fiber.Ctx) error {
	granteeID, fileID, err := sharePairFromParams(c, "userId", "id")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid identifier")
	}
	return h.update(c, granteeID, fileID)
}

func (h *SharesHandler) update(c *fiber.Ctx, granteeID, fileID uuid.UUID) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateShareRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if !models.IsValidSharePermission(req.Permission) {
		return utils.ValidationFailed(c, map[string][]string{
			"permission": {"permission must be R or RW"},
		})
	}

	share, file, err := h.loadShare(granteeID, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "share not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading share")
	}

	if !h.Access.CanMutateShare(c.Context(), currentUser, share, file) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if err := h.DB.Model(share).Update("permission", req.Permission).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating share")
	}
	share.Permission = req.Permission

	return utils.Success(c, fiber.StatusOK, share)
}

// DeleteForUser handles DELETE /users/:id/shared-files/:fileId.
func (h *SharesHandler) DeleteForUser(c *fiber.Ctx) error {
	granteeID, fileID, err := sharePairFromParams(c, "id", "fileId")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid identifier")
	}
	return h.delete(c, granteeID, fileID)
}

// DeleteForFile handles DELETE /files/:id/shared-users/:userId.
func (h *SharesHandler) DeleteForFile(c *fiber.Ctx) error {
	granteeID, fileID, err := sharePairFromParams(c, "userId", "id")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid identifier")
	}
	return h.delete(c, granteeID, fileID)
}

func (h *SharesHandler) delete(c *fiber.Ctx, granteeID, fileID uuid.UUID) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	share, file, err := h.loadShare(granteeID, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "share not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading share")
	}

	if !h.Access.CanMutateShare(c.Context(), currentUser, share, file) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if err := h.DB.Delete(&models.SharedFile{}, "id = ?", share.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting share")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_unshared", map[string]interface{}{
		"file_id":    fileID.String(),
		"grantee_id": granteeID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "share removed"})
}

// ListForUser handles GET /users/:id/shared-files.
func (h *SharesHandler) ListForUser(c *fiber.Ctx) error {
	granteeID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var shares []models.SharedFile
	if err := h.DB.Preload("File").
		Where("user_id = ?", granteeID).
		Order("created_at DESC").
		Find(&shares).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing shares")
	}

	return utils.Success(c, fiber.StatusOK, shares)
}

// ListForFile handles GET /files/:id/shared-users.
func (h *SharesHandler) ListForFile(c *fiber.Ctx) error {
	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var shares []models.SharedFile
	if err := h.DB.Preload("User").
		Where("file_id = ?", fileID).
		Order("created_at DESC").
		Find(&shares).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing shares")
	}

	return utils.Success(c, fiber.StatusOK, shares)
}

func (h *SharesHandler) loadShare(granteeID, fileID uuid.UUID) (*models.SharedFile, *models.File, error) {
	var share models.SharedFile
	if err := h.DB.First(&share, "user_id = ? AND file_id = ?", granteeID, fileID).Error; err != nil {
		return nil, nil, err
	}

	var file models.File
	if err := h.DB.First(&file, "id = ?", fileID).Error; err != nil {
		return nil, nil, err
	}

	return &share, &file, nil
}

func sharePairFromParams(c *fiber.Ctx, userParam, fileParam string) (uuid.UUID, uuid.UUID, error) {
	granteeID, err := parseUUID(c.Params(userParam))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	fileID, err := parseUUID(c.Params(fileParam))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return granteeID, fileID, nil
}
