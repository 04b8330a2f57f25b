package handlers

import (
	"strings"

	"github.com/brainbox/backend/internal/middleware"
	"github.com/brainbox/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// defaultPageSize resolves the page size used when the query string carries
// no override: the requesting user's profile setting, else the fixed default.
func defaultPageSize(db *gorm.DB, c *fiber.Ctx) int {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return models.DefaultPageSize
	}

	var profile models.UserProfile
	if err := db.Select("page_size").First(&profile, "user_id = ?", user.ID).Error; err != nil {
		return models.DefaultPageSize
	}
	if profile.PageSize < 1 {
		return models.DefaultPageSize
	}
	return profile.PageSize
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed")
}

// deleteUserCascade removes a user and everything hanging off them: shares
// they were granted, shares on their files, their files, folders, profile
// and any pending registration code.
func deleteUserCascade(tx *gorm.DB, userID uuid.UUID) error {
	if err := tx.Delete(&models.SharedFile{}, "user_id = ?", userID).Error; err != nil {
		return err
	}
	if err := tx.Where("file_id IN (?)", tx.Model(&models.File{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.SharedFile{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.File{}, "user_id = ?", userID).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.Folder{}, "user_id = ?", userID).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.UserProfile{}, "user_id = ?", userID).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.RegistrationCode{}, "user_id = ?", userID).Error; err != nil {
		return err
	}

	result := tx.Delete(&models.User{}, "id = ?", userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// deleteFolderCascade removes a folder, its subtree of folders, the files in
// them and the shares on those files.
func deleteFolderCascade(tx *gorm.DB, folderID uuid.UUID) error {
	var children []models.Folder
	if err := tx.Select("id").Where("parent_folder_id = ?", folderID).Find(&children).Error; err != nil {
		return err
	}
	for _, child := range children {
		if err := deleteFolderCascade(tx, child.ID); err != nil {
			return err
		}
	}

	var files []models.File
	if err := tx.Select("id").Where("folder_id = ?", folderID).Find(&files).Error; err != nil {
		return err
	}
	for _, file := range files {
		if err := deleteFileCascade(tx, file.ID); err != nil {
			return err
		}
	}

	return tx.Delete(&models.Folder{}, "id = ?", folderID).Error
}

func deleteFileCascade(tx *gorm.DB, fileID uuid.UUID) error {
	if err := tx.Delete(&models.SharedFile{}, "file_id = ?", fileID).Error; err != nil {
		return err
	}
	return tx.Delete(&models.File{}, "id = ?", fileID).Error
}
