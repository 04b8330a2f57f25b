package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/brainbox/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

func TestRegisterRejectsWeakPassword(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, "POST", "/api/auth/register", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "short",
	}, nil)
	assertStatus(t, resp, fiber.StatusBadRequest)

	body := decodeJSONMap(t, resp)
	errs, ok := body["errors"].(map[string]any)
	if !ok {
		t.Fatalf("expected itemized errors, got %+v", body)
	}
	passwordErrs, ok := errs["password"].([]any)
	if !ok || len(passwordErrs) < 4 {
		t.Fatalf("expected one message per missing criterion, got %+v", errs["password"])
	}

	var count int64
	env.db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no user created, found %d", count)
	}
}

func TestRegisterCreatesInactiveUserAndSendsCode(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, "POST", "/api/auth/register", map[string]any{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "Sturdy1!pass",
	}, nil)
	assertStatus(t, resp, fiber.StatusCreated)

	var user models.User
	if err := env.db.First(&user, "username = ?", "alice").Error; err != nil {
		t.Fatalf("expected user persisted: %v", err)
	}
	if user.IsActive {
		t.Fatal("expected user to start inactive")
	}

	var code models.RegistrationCode
	if err := env.db.First(&code, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("expected registration code persisted: %v", err)
	}
	if len(code.Code) != models.RegistrationCodeLength {
		t.Fatalf("expected %d-char code, got %q", models.RegistrationCodeLength, code.Code)
	}

	if len(env.mailer.sent) != 1 || env.mailer.sent[0] != "alice@example.com" {
		t.Fatalf("expected one confirmation mail to alice, got %v", env.mailer.sent)
	}
}

func TestRegisterRollsBackUserWhenMailFails(t *testing.T) {
	env := setupTestEnv(t)
	env.mailer.fail = errors.New("smtp unreachable")

	resp := performJSONRequest(t, env.app, "POST", "/api/auth/register", map[string]any{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "Sturdy1!pass",
	}, nil)
	assertStatus(t, resp, fiber.StatusBadGateway)

	var count int64
	env.db.Model(&models.User{}).Where("username = ?", "bob").Count(&count)
	if count != 0 {
		t.Fatalf("expected user rolled back, found %d rows", count)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "alice", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, "POST", "/api/auth/register", map[string]any{
		"username": "alice",
		"email":    "other@example.com",
		"password": "Sturdy1!pass",
	}, nil)
	assertStatus(t, resp, fiber.StatusConflict)
}

func TestConfirmActivatesUserAndDeletesCode(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, "POST", "/api/auth/register", map[string]any{
		"username": "carol",
		"email":    "carol@example.com",
		"password": "Sturdy1!pass",
	}, nil)
	assertStatus(t, resp, fiber.StatusCreated)

	var code models.RegistrationCode
	if err := env.db.First(&code).Error; err != nil {
		t.Fatalf("expected registration code: %v", err)
	}

	resp = performJSONRequest(t, env.app, "POST", "/api/auth/confirm", map[string]any{
		"code": code.Code,
	}, nil)
	assertStatus(t, resp, fiber.StatusOK)

	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("expected token in response, got %+v", body)
	}

	var user models.User
	if err := env.db.First(&user, "username = ?", "carol").Error; err != nil {
		t.Fatalf("expected user: %v", err)
	}
	if !user.IsActive {
		t.Fatal("expected user activated after confirmation")
	}

	var remaining int64
	env.db.Model(&models.RegistrationCode{}).Count(&remaining)
	if remaining != 0 {
		t.Fatalf("expected code deleted, found %d", remaining)
	}
}

func TestConfirmExpiredCodeDeletesPendingUser(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, "POST", "/api/auth/register", map[string]any{
		"username": "dave",
		"email":    "dave@example.com",
		"password": "Sturdy1!pass",
	}, nil)
	assertStatus(t, resp, fiber.StatusCreated)

	var code models.RegistrationCode
	if err := env.db.First(&code).Error; err != nil {
		t.Fatalf("expected registration code: %v", err)
	}
	env.db.Model(&code).Update("expires_at", time.Now().Add(-time.Minute))

	resp = performJSONRequest(t, env.app, "POST", "/api/auth/confirm", map[string]any{
		"code": code.Code,
	}, nil)
	assertStatus(t, resp, fiber.StatusGone)

	var users, codes int64
	env.db.Model(&models.User{}).Where("username = ?", "dave").Count(&users)
	env.db.Model(&models.RegistrationCode{}).Count(&codes)
	if users != 0 || codes != 0 {
		t.Fatalf("expected pending user and code removed, got users=%d codes=%d", users, codes)
	}
}

func TestConfirmUnknownCode(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, "POST", "/api/auth/confirm", map[string]any{
		"code": "ZZZZZ",
	}, nil)
	assertStatus(t, resp, fiber.StatusNotFound)
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "alice", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, "POST", "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "Sturdy1!pass",
	}, nil)
	assertStatus(t, resp, fiber.StatusOK)

	resp = performJSONRequest(t, env.app, "POST", "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong-password",
	}, nil)
	assertStatus(t, resp, fiber.StatusUnauthorized)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	env := setupTestEnv(t)
	user, _ := createTestUser(t, env.db, "alice", models.UserRoleUser)
	env.db.Model(user).Update("is_active", false)

	resp := performJSONRequest(t, env.app, "POST", "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "Sturdy1!pass",
	}, nil)
	assertStatus(t, resp, fiber.StatusForbidden)
}

func TestMeRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, "GET", "/api/auth/me", nil, nil)
	assertStatus(t, resp, fiber.StatusUnauthorized)

	_, token := createTestUser(t, env.db, "alice", models.UserRoleUser)
	resp = performJSONRequest(t, env.app, "GET", "/api/auth/me", nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)
}
