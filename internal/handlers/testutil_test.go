package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/brainbox/backend/internal/middleware"
	"github.com/brainbox/backend/internal/models"
	"github.com/brainbox/backend/internal/services"
	"github.com/brainbox/backend/pkg/logger"
	"github.com/brainbox/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	mailer *fakeMailer
}

// fakeMailer records outgoing mail; set fail to simulate SMTP outages.
type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	fail error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, to)
	return nil
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.RegistrationCode{},
		&models.Folder{},
		&models.File{},
		&models.SharedFile{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	mailer := &fakeMailer{}
	accessService := services.NewAccessService(db)
	registrationService := services.NewRegistrationService(db, mailer)

	authHandler := NewAuthHandler(db, registrationService)
	usersHandler := NewUsersHandler(db, accessService)
	profilesHandler := NewProfilesHandler(db, accessService)
	foldersHandler := NewFoldersHandler(db, accessService)
	filesHandler := NewFilesHandler(db, accessService)
	sharesHandler := NewSharesHandler(db, accessService)
	statsHandler := NewStatsHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

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

	return &testEnv{app: app, db: db, mailer: mailer}
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword("Sturdy1!pass")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}
	profile := &models.UserProfile{UserID: user.ID, PageSize: models.DefaultPageSize}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("failed creating test profile: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestFolder(t *testing.T, db *gorm.DB, owner *models.User, name string, parentID *uuid.UUID) *models.Folder {
	t.Helper()

	folder := &models.Folder{Name: name, UserID: owner.ID, ParentFolderID: parentID}
	if err := db.Create(folder).Error; err != nil {
		t.Fatalf("failed creating test folder: %v", err)
	}
	return folder
}

func createTestFile(t *testing.T, db *gorm.DB, owner *models.User, name, content string, folderID *uuid.UUID) *models.File {
	t.Helper()

	file := &models.File{Name: name, Content: content, UserID: owner.ID, FolderID: folderID}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("failed creating test file: %v", err)
	}
	return file
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func resultsOf(t *testing.T, body map[string]any) []any {
	t.Helper()
	results, ok := body["results"].([]any)
	if !ok {
		t.Fatalf("expected paginated results in %+v", body)
	}
	return results
}
