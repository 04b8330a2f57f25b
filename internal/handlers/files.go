package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/brainbox/backend/internal/middleware"
	"github.com/brainbox/backend/internal/models"
	"github.com/brainbox/backend/internal/services"
	"github.com/brainbox/backend/pkg/logger"
	"github.com/brainbox/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FilesHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewFilesHandler(db *gorm.DB, access *services.AccessService) *FilesHandler {
	return &FilesHandler{DB: db, Access: access}
}

func (h *FilesHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c, defaultPageSize(h.DB, c))

	query := h.DB.Model(&models.File{})

	if username := strings.TrimSpace(c.Query("username")); username != "" {
		query = query.Joins("JOIN users ON users.id = files.user_id").
			Where("users.username = ?", username)
	}
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		query = query.Where("LOWER(files.name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if year := c.QueryInt("year", 0); year > 0 {
		query = query.Where("files.created_at >= ?", time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting files")
	}

	var files []models.File
	if err := utils.ApplyPagination(query.Order("files.created_at DESC"), p).Find(&files).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing files")
	}

	if c.Query("agg") == "shared" {
		h.annotateSharedUserCounts(files)
	}

	return utils.Paginated(c, files, p, total)
}

func (h *FilesHandler) annotateSharedUserCounts(files []models.File) {
	if len(files) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}

	var rows []struct {
		FileID uuid.UUID
		Count  int64
	}
	h.DB.Model(&models.SharedFile{}).
		Select("file_id, count(*) as count").
		Where("file_id IN ?", ids).
		Group("file_id").
		Scan(&rows)

	counts := make(map[uuid.UUID]int64)
	for _, r := range rows {
		counts[r.FileID] = r.Count
	}
	for i := range files {
		n := counts[files[i].ID]
		files[i].SharedUserCount = &n
	}
}

type createFileRequest struct {
	Name     string     `json:"name"`
	Content  string     `json:"content"`
	UserID   *uuid.UUID `json:"userID"`
	FolderID *uuid.UUID `json:"folderID"`
}

func (h *FilesHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return utils.ValidationFailed(c, map[string][]string{"name": {"name is required"}})
	}

	ownerID := currentUser.ID
	if req.UserID != nil {
		ownerID = *req.UserID
	}

	file := models.File{
		Name:     name,
		Content:  req.Content,
		UserID:   ownerID,
		FolderID: req.FolderID,
	}

	if !h.Access.CanModify(c.Context(), currentUser, file) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if req.FolderID != nil {
		var folder models.Folder
		if err := h.DB.First(&folder, "id = ?", *req.FolderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.Error(c, fiber.StatusNotFound, "folder not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
		}
		if folder.UserID != ownerID {
			return utils.ValidationFailed(c, map[string][]string{
				"folder": {"file and folder must be created by the same user"},
			})
		}
	}

	if err := h.DB.Create(&file).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating file")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_created", map[string]interface{}{
		"file_id":   file.ID.String(),
		"file_name": file.Name,
	})

	return utils.Success(c, fiber.StatusCreated, file)
}

func (h *FilesHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var file models.File
	if err := h.DB.
		Preload("User").
		Preload("Folder").
		Preload("SharedFiles").
		Preload("SharedFiles.User").
		First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading file")
	}

	return utils.Success(c, fiber.StatusOK, file)
}

type updateFileRequest struct {
	Name     *string `json:"name"`
	Content  *string `json:"content"`
	FolderID *string `json:"folderID"`
}

func (h *FilesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var file models.File
	if err := h.DB.First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading file")
	}

	if !h.canWrite(c, currentUser, file) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req updateFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return utils.ValidationFailed(c, map[string][]string{"name": {"name cannot be empty"}})
		}
		updates["name"] = name
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}

	if req.FolderID != nil {
		trimmed := strings.TrimSpace(*req.FolderID)
		if trimmed == "" {
			updates["folder_id"] = nil
		} else {
			folderID, parseErr := parseUUID(trimmed)
			if parseErr != nil {
				return utils.Error(c, fiber.StatusBadRequest, "invalid folderID")
			}

			var folder models.Folder
			if err := h.DB.First(&folder, "id = ?", folderID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return utils.Error(c, fiber.StatusNotFound, "folder not found")
				}
				return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
			}
			if folder.UserID != file.UserID {
				return utils.ValidationFailed(c, map[string][]string{
					"folder": {"file and folder must be created by the same user"},
				})
			}
			updates["folder_id"] = folderID
		}
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.File{}).Where("id = ?", file.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating file")
	}

	var updated models.File
	if err := h.DB.First(&updated, "id = ?", file.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading updated file")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *FilesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var file models.File
	if err := h.DB.First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "file not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading file")
	}

	if !h.Access.CanModify(c.Context(), currentUser, file) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		return deleteFileCascade(tx, fileID)
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting file")
	}

	logger.InfoWithUser(currentUser.ID.String(), "file_deleted", map[string]interface{}{
		"file_id": fileID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "file deleted"})
}

func (h *FilesHandler) BulkDelete(c *fiber.Ctx) error {
	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "ids are required")
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		for _, id := range req.IDs {
			if err := deleteFileCascade(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting files")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": len(req.IDs)})
}

// canWrite extends the ownership policy with RW grants: a user the file is
// shared with under RW may edit it, but only the ownership policy allows
// deleting or resharing.
func (h *FilesHandler) canWrite(c *fiber.Ctx, actor *models.User, file models.File) bool {
	if h.Access.CanModify(c.Context(), actor, file) {
		return true
	}

	var share models.SharedFile
	err := h.DB.First(&share, "user_id = ? AND file_id = ?", actor.ID, file.ID).Error
	if err != nil {
		return false
	}
	return share.Permission == models.SharePermissionReadWrite
}
