package handlers

import (
	"strings"
	"testing"

	"github.com/brainbox/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

func TestUpdateProfileValidation(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env.db, "alice", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, "PUT", "/api/users/"+user.ID.String()+"/profile", map[string]any{
		"bio":      strings.Repeat("x", 2001),
		"birthday": "2999-01-01",
		"pageSize": 0,
	}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusBadRequest)

	body := decodeJSONMap(t, resp)
	errs, _ := body["errors"].(map[string]any)
	for _, field := range []string{"bio", "birthday", "pageSize"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected itemized error for %s, got %+v", field, errs)
		}
	}
}

func TestUpdateProfileBioLimitCountsRunes(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env.db, "alice", models.UserRoleUser)

	// 1500 two-byte characters: within the 2000-character limit even though
	// the byte length is 3000.
	bio := strings.Repeat("é", 1500)
	resp := performJSONRequest(t, env.app, "PUT", "/api/users/"+user.ID.String()+"/profile",
		map[string]any{"bio": bio}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)

	resp = performJSONRequest(t, env.app, "PUT", "/api/users/"+user.ID.String()+"/profile",
		map[string]any{"bio": strings.Repeat("é", 2001)}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusBadRequest)
}

func TestUpdateProfile(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env.db, "alice", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, "PUT", "/api/users/"+user.ID.String()+"/profile", map[string]any{
		"bio":      "hello there",
		"birthday": "1990-06-15",
		"website":  "https://example.com",
		"darkMode": true,
		"pageSize": 40,
	}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)

	var profile models.UserProfile
	if err := env.db.First(&profile, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("expected profile: %v", err)
	}
	if profile.Bio != "hello there" || !profile.DarkMode || profile.PageSize != 40 {
		t.Fatalf("unexpected profile state: %+v", profile)
	}
	if profile.Birthday == nil || profile.Birthday.Year() != 1990 {
		t.Fatalf("expected birthday persisted, got %v", profile.Birthday)
	}
}

func TestUpdateProfileForbiddenForOtherUsers(t *testing.T) {
	env := setupTestEnv(t)
	alice, _ := createTestUser(t, env.db, "alice", models.UserRoleUser)
	_, bobToken := createTestUser(t, env.db, "bob", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, "PUT", "/api/users/"+alice.ID.String()+"/profile", map[string]any{
		"bio": "vandalism",
	}, authHeaders(bobToken))
	assertStatus(t, resp, fiber.StatusForbidden)
}

func TestUpdatePageSizeEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env.db, "alice", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, "PUT", "/api/users/"+user.ID.String()+"/page-size",
		map[string]any{"pageSize": -5}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusBadRequest)

	resp = performJSONRequest(t, env.app, "PUT", "/api/users/"+user.ID.String()+"/page-size",
		map[string]any{"pageSize": 50}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)

	var profile models.UserProfile
	env.db.First(&profile, "user_id = ?", user.ID)
	if profile.PageSize != 50 {
		t.Fatalf("expected page size 50, got %d", profile.PageSize)
	}
}
