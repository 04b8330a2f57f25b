package handlers

import (
	"errors"
	"fmt"
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

type FoldersHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewFoldersHandler(db *gorm.DB, access *services.AccessService) *FoldersHandler {
	return &FoldersHandler{DB: db, Access: access}
}

func (h *FoldersHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c, defaultPageSize(h.DB, c))

	query := h.DB.Model(&models.Folder{})

	if username := strings.TrimSpace(c.Query("username")); username != "" {
		query = query.Joins("JOIN users ON users.id = folders.user_id").
			Where("users.username = ?", username)
	}
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		query = query.Where("LOWER(folders.name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if year := c.QueryInt("year", 0); year > 0 {
		query = query.Where("folders.created_at >= ?", time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting folders")
	}

	var folders []models.Folder
	if err := utils.ApplyPagination(query.Order("folders.created_at DESC"), p).Find(&folders).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing folders")
	}

	if c.Query("agg") == "files" {
		h.annotateFileCounts(folders)
	}

	return utils.Paginated(c, folders, p, total)
}

func (h *FoldersHandler) annotateFileCounts(folders []models.Folder) {
	if len(folders) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(folders))
	for i, f := range folders {
		ids[i] = f.ID
	}

	var rows []struct {
		FolderID uuid.UUID
		Count    int64
	}
	h.DB.Model(&models.File{}).
		Select("folder_id, count(*) as count").
		Where("folder_id IN ?", ids).
		Group("folder_id").
		Scan(&rows)

	counts := make(map[uuid.UUID]int64)
	for _, r := range rows {
		counts[r.FolderID] = r.Count
	}
	for i := range folders {
		n := counts[folders[i].ID]
		folders[i].FileCount = &n
	}
}

type createFolderRequest struct {
	Name           string     `json:"name"`
	UserID         *uuid.UUID `json:"userID"`
	ParentFolderID *uuid.UUID `json:"parentFolderID"`
}

func (h *FoldersHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createFolderRequest
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

	folder := models.Folder{
		Name:           name,
		UserID:         ownerID,
		ParentFolderID: req.ParentFolderID,
	}

	if !h.Access.CanModify(c.Context(), currentUser, folder) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if req.ParentFolderID != nil {
		var parent models.Folder
		if err := h.DB.First(&parent, "id = ?", *req.ParentFolderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.Error(c, fiber.StatusNotFound, "parent folder not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading parent folder")
		}
		if parent.UserID != ownerID {
			return utils.ValidationFailed(c, map[string][]string{
				"parentFolder": {"parent folder must be created by the same user"},
			})
		}
	}

	if err := h.DB.Create(&folder).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating folder")
	}

	logger.InfoWithUser(currentUser.ID.String(), "folder_created", map[string]interface{}{
		"folder_id":   folder.ID.String(),
		"folder_name": folder.Name,
	})

	return utils.Success(c, fiber.StatusCreated, folder)
}

func (h *FoldersHandler) Get(c *fiber.Ctx) error {
	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var folder models.Folder
	if err := h.DB.
		Preload("User").
		Preload("ParentFolder").
		Preload("Files").
		First(&folder, "id = ?", folderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}

	return utils.Success(c, fiber.StatusOK, folder)
}

type updateFolderRequest struct {
	Name           *string `json:"name"`
	ParentFolderID *string `json:"parentFolderID"`
}

func (h *FoldersHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var folder models.Folder
	if err := h.DB.First(&folder, "id = ?", folderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}

	if !h.Access.CanModify(c.Context(), currentUser, folder) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req updateFolderRequest
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

	if req.ParentFolderID != nil {
		trimmed := strings.TrimSpace(*req.ParentFolderID)
		if trimmed == "" {
			updates["parent_folder_id"] = nil
		} else {
			parentID, parseErr := parseUUID(trimmed)
			if parseErr != nil {
				return utils.Error(c, fiber.StatusBadRequest, "invalid parentFolderID")
			}
			if parentID == folder.ID {
				return utils.ValidationFailed(c, map[string][]string{
					"parentFolder": {"folder cannot be its own parent"},
				})
			}

			var parent models.Folder
			if err := h.DB.First(&parent, "id = ?", parentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return utils.Error(c, fiber.StatusNotFound, "parent folder not found")
				}
				return utils.Error(c, fiber.StatusInternalServerError, "failed loading parent folder")
			}
			if parent.UserID != folder.UserID {
				return utils.ValidationFailed(c, map[string][]string{
					"parentFolder": {"parent folder must be created by the same user"},
				})
			}

			isChild, checkErr := h.isDescendant(folder.ID, parentID)
			if checkErr != nil {
				return utils.Error(c, fiber.StatusInternalServerError, "failed validating parent folder")
			}
			if isChild {
				return utils.ValidationFailed(c, map[string][]string{
					"parentFolder": {"folder cannot be moved inside its own subtree"},
				})
			}

			updates["parent_folder_id"] = parentID
		}
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.Folder{}).Where("id = ?", folder.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating folder")
	}

	var updated models.Folder
	if err := h.DB.First(&updated, "id = ?", folder.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading updated folder")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *FoldersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var folder models.Folder
	if err := h.DB.First(&folder, "id = ?", folderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}

	if !h.Access.CanModify(c.Context(), currentUser, folder) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		return deleteFolderCascade(tx, folderID)
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting folder")
	}

	logger.InfoWithUser(currentUser.ID.String(), "folder_deleted", map[string]interface{}{
		"folder_id": folderID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "folder deleted"})
}

func (h *FoldersHandler) BulkDelete(c *fiber.Ctx) error {
	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "ids are required")
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		for _, id := range req.IDs {
			if err := deleteFolderCascade(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting folders")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": len(req.IDs)})
}

type attachFileRequest struct {
	ID uuid.UUID `json:"id"`
}

// AttachFiles assigns a batch of files to the folder. Every file must exist
// and belong to the folder's owner; any offending entry fails the whole
// batch with itemized errors and nothing is reassigned.
func (h *FoldersHandler) AttachFiles(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var folder models.Folder
	if err := h.DB.First(&folder, "id = ?", folderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}

	if !h.Access.CanModify(c.Context(), currentUser, folder) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req []attachFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "at least one file id is required")
	}

	fieldErrors := map[string][]string{}
	files := make([]models.File, 0, len(req))
	for i, item := range req {
		key := fmt.Sprintf("files[%d]", i)

		var file models.File
		if err := h.DB.First(&file, "id = ?", item.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fieldErrors[key] = append(fieldErrors[key], "file not found")
				continue
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading file")
		}
		if file.UserID != folder.UserID {
			fieldErrors[key] = append(fieldErrors[key], "file and folder must be created by the same user")
			continue
		}
		files = append(files, file)
	}

	if len(fieldErrors) > 0 {
		return utils.ValidationFailed(c, fieldErrors)
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		for _, file := range files {
			if err := tx.Model(&models.File{}).Where("id = ?", file.ID).Update("folder_id", folder.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed attaching files")
	}

	logger.InfoWithUser(currentUser.ID.String(), "folder_files_attached", map[string]interface{}{
		"folder_id":  folder.ID.String(),
		"file_count": len(files),
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"attached": len(files)})
}

// isDescendant walks up from candidate to the root, reporting whether
// ancestor appears on the way.
func (h *FoldersHandler) isDescendant(ancestorID, candidateID uuid.UUID) (bool, error) {
	current := candidateID
	for {
		if current == ancestorID {
			return true, nil
		}

		var folder models.Folder
		err := h.DB.Select("id", "parent_folder_id").First(&folder, "id = ?", current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		if folder.ParentFolderID == nil {
			return false, nil
		}
		current = *folder.ParentFolderID
	}
}
