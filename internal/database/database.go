package database

import (
	"fmt"

	"github.com/brainbox/backend/internal/config"
	"github.com/brainbox/backend/internal/models"
	"github.com/brainbox/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(open(cfg), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedAdminUser(db); err != nil {
		return nil, err
	}

	return db, nil
}

func open(cfg config.DBConfig) gorm.Dialector {
	if cfg.Kind == "sqlite" {
		return sqlite.Open(cfg.Name)
	}
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
	return postgres.Open(dsn)
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.RegistrationCode{},
		&models.Folder{},
		&models.File{},
		&models.SharedFile{},
	)
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("Admin123!")
	if err != nil {
		return err
	}

	admin := models.User{
		Username:     "admin",
		Email:        "admin@brainbox.local",
		PasswordHash: hash,
		Role:         models.UserRoleAdmin,
		IsActive:     true,
		IsStaff:      true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	profile := models.UserProfile{UserID: admin.ID, PageSize: models.DefaultPageSize}
	return db.Create(&profile).Error
}
