package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brainbox/backend/internal/config"
	"github.com/brainbox/backend/internal/database"
	"github.com/brainbox/backend/internal/handlers"
	"github.com/brainbox/backend/internal/middleware"
	"github.com/brainbox/backend/internal/services"
	"github.com/brainbox/backend/pkg/logger"
	"github.com/brainbox/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	mailer := services.NewSMTPMailer(cfg.SMTP)
	accessService := services.NewAccessService(db)
	registrationService := services.NewRegistrationService(db, mailer)

	authHandler := handlers.NewAuthHandler(db, registrationService)
	usersHandler := handlers.NewUsersHandler(db, accessService)
	profilesHandler := handlers.NewProfilesHandler(db, accessService)
	foldersHandler := handlers.NewFoldersHandler(db, accessService)
	filesHandler := handlers.NewFilesHandler(db, accessService)
	sharesHandler := handlers.NewSharesHandler(db, accessService)
	statsHandler := handlers.NewStatsHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	// Registration codes outlive their ten minute window only until the next
	// sweep; expired codes delete the never-confirmed account with them.
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if n, err := registrationService.CleanupExpired(cleanupCtx); err != nil {
					logger.Error("registration_cleanup_failed", err, nil)
				} else if n > 0 {
					logger.Info("registration_cleanup", map[string]interface{}{"expired": n})
				}
			}
		}
	}()

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/confirm", authHandler.Confirm)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Post("/", middleware.AdminOnly, usersHandler.Create)
	userRoutes.Post("/bulk-delete", middleware.AdminOnly, usersHandler.BulkDelete)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Put("/:id", usersHandler.Update)
	userRoutes.Put("/:id/role", middleware.AdminOnly, usersHandler.UpdateRole)
	userRoutes.Delete("/:id", usersHandler.Delete)
	userRoutes.Get("/:id/profile", profilesHandler.Get)
	userRoutes.Put("/:id/profile", profilesHandler.Update)
	userRoutes.Put("/:id/page-size", profilesHandler.UpdatePageSize)
	userRoutes.Get("/:id/shared-files", sharesHandler.ListForUser)
	userRoutes.Post("/:id/shared-files", sharesHandler.GrantForUser)
	userRoutes.Put("/:id/shared-files/:fileId", sharesHandler.UpdateForUser)
	userRoutes.Delete("/:id/shared-files/:fileId", sharesHandler.DeleteForUser)

	folderRoutes := api.Group("/folders", authMiddleware.RequireAuth)
	folderRoutes.Get("/", foldersHandler.List)
	folderRoutes.Post("/", foldersHandler.Create)
	folderRoutes.Post("/bulk-delete", middleware.AdminOnly, foldersHandler.BulkDelete)
	folderRoutes.Get("/:id", foldersHandler.Get)
	folderRoutes.Put("/:id", foldersHandler.Update)
	folderRoutes.Delete("/:id", foldersHandler.Delete)
	folderRoutes.Post("/:id/files", foldersHandler.AttachFiles)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth)
	fileRoutes.Get("/", filesHandler.List)
	fileRoutes.Post("/", filesHandler.Create)
	fileRoutes.Post("/bulk-delete", middleware.AdminOnly, filesHandler.BulkDelete)
	fileRoutes.Get("/:id", filesHandler.Get)
	fileRoutes.Put("/:id", filesHandler.Update)
	fileRoutes.Delete("/:id", filesHandler.Delete)
	fileRoutes.Get("/:id/shared-users", sharesHandler.ListForFile)
	fileRoutes.Post("/:id/shared-users", sharesHandler.GrantForFile)
	fileRoutes.Put("/:id/shared-users/:userId", sharesHandler.UpdateForFile)
	fileRoutes.Delete("/:id/shared-users/:userId", sharesHandler.DeleteForFile)

	statsRoutes := api.Group("/stats")
	statsRoutes.Get("/users-by-chars-written", statsHandler.UsersByCharsWritten)
	statsRoutes.Get("/folders-by-shared-users", statsHandler.FoldersBySharedUsers)
	statsRoutes.Get("/folders-by-files", statsHandler.FoldersByFiles)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
