package handlers

import (
	"github.com/brainbox/backend/internal/models"
	"github.com/brainbox/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatsHandler serves the public leaderboard endpoints. The queries avoid
// database-specific functions so they run on both postgres and sqlite.
type StatsHandler struct {
	DB *gorm.DB
}

func NewStatsHandler(db *gorm.DB) *StatsHandler {
	return &StatsHandler{DB: db}
}

type userCharsRow struct {
	ID           uuid.UUID `json:"id" gorm:"column:id"`
	Username     string    `json:"username" gorm:"column:username"`
	CharsWritten int64     `json:"charsWritten" gorm:"column:chars_written"`
}

// UsersByCharsWritten ranks users by the total length of the file contents
// they own, largest writers first.
func (h *StatsHandler) UsersByCharsWritten(c *fiber.Ctx) error {
	p := utils.ParsePagination(c, models.DefaultPageSize)

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var rows []userCharsRow
	err := h.DB.Model(&models.User{}).
		Select("users.id, users.username, COALESCE(SUM(LENGTH(files.content)), 0) AS chars_written").
		Joins("LEFT JOIN files ON files.user_id = users.id").
		Group("users.id, users.username, users.created_at").
		Order("chars_written DESC, users.created_at ASC").
		Offset(p.Offset).
		Limit(p.PageSize).
		Scan(&rows).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed computing statistics")
	}

	return utils.Paginated(c, rows, p, total)
}

type folderSharedUsersRow struct {
	ID             uuid.UUID  `json:"id" gorm:"column:id"`
	Name           string     `json:"name" gorm:"column:name"`
	ParentFolderID *uuid.UUID `json:"parentFolderId" gorm:"column:parent_folder_id"`
	Username       string     `json:"username" gorm:"column:username"`
	NumSharedUsers int64      `json:"numSharedUsers" gorm:"column:num_shared_users"`
}

// FoldersBySharedUsers ranks folders by how many distinct users their files
// are shared with.
func (h *StatsHandler) FoldersBySharedUsers(c *fiber.Ctx) error {
	p := utils.ParsePagination(c, models.DefaultPageSize)

	var total int64
	if err := h.DB.Model(&models.Folder{}).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting folders")
	}

	var rows []folderSharedUsersRow
	err := h.DB.Model(&models.Folder{}).
		Select("folders.id, folders.name, folders.parent_folder_id, users.username, COUNT(DISTINCT shared_files.user_id) AS num_shared_users").
		Joins("JOIN users ON users.id = folders.user_id").
		Joins("LEFT JOIN files ON files.folder_id = folders.id").
		Joins("LEFT JOIN shared_files ON shared_files.file_id = files.id").
		Group("folders.id, folders.name, folders.parent_folder_id, users.username, folders.created_at").
		Order("num_shared_users DESC, folders.created_at ASC").
		Offset(p.Offset).
		Limit(p.PageSize).
		Scan(&rows).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed computing statistics")
	}

	return utils.Paginated(c, rows, p, total)
}

type folderFilesRow struct {
	ID       uuid.UUID `json:"id" gorm:"column:id"`
	Name     string    `json:"name" gorm:"column:name"`
	Username string    `json:"username" gorm:"column:username"`
	NumFiles int64     `json:"numFiles" gorm:"column:num_files"`
}

// FoldersByFiles ranks folders by how many files they directly contain.
func (h *StatsHandler) FoldersByFiles(c *fiber.Ctx) error {
	p := utils.ParsePagination(c, models.DefaultPageSize)

	var total int64
	if err := h.DB.Model(&models.Folder{}).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting folders")
	}

	var rows []folderFilesRow
	err := h.DB.Model(&models.Folder{}).
		Select("folders.id, folders.name, users.username, COUNT(files.id) AS num_files").
		Joins("JOIN users ON users.id = folders.user_id").
		Joins("LEFT JOIN files ON files.folder_id = folders.id").
		Group("folders.id, folders.name, users.username, folders.created_at").
		Order("num_files DESC, folders.created_at ASC").
		Offset(p.Offset).
		Limit(p.PageSize).
		Scan(&rows).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed computing statistics")
	}

	return utils.Paginated(c, rows, p, total)
}
