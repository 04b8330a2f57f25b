package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/brainbox/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

func TestUsersByCharsWritten(t *testing.T) {
	env := setupTestEnv(t)
	a, _ := createTestUser(t, env.db, "a-writes-little", models.UserRoleUser)
	b, _ := createTestUser(t, env.db, "b-writes-a-lot", models.UserRoleUser)

	// Two users, three files: totals 183 and 3282.
	createTestFile(t, env.db, a, "note.txt", strings.Repeat("x", 183), nil)
	createTestFile(t, env.db, b, "draft.txt", strings.Repeat("y", 1282), nil)
	createTestFile(t, env.db, b, "novel.txt", strings.Repeat("z", 2000), nil)

	resp := performJSONRequest(t, env.app, "GET", "/api/stats/users-by-chars-written", nil, nil)
	assertStatus(t, resp, fiber.StatusOK)

	results := resultsOf(t, decodeJSONMap(t, resp))
	if len(results) != 2 {
		t.Fatalf("expected two users, got %d", len(results))
	}

	first := results[0].(map[string]any)
	second := results[1].(map[string]any)
	if first["username"] != "b-writes-a-lot" {
		t.Fatalf("expected largest writer first, got %v", first["username"])
	}
	if chars, _ := first["charsWritten"].(float64); chars != 3282 {
		t.Fatalf("expected 3282 chars for b, got %v", first["charsWritten"])
	}
	if chars, _ := second["charsWritten"].(float64); chars != 183 {
		t.Fatalf("expected 183 chars for a, got %v", second["charsWritten"])
	}

	_ = a
}

func TestFoldersBySharedUsers(t *testing.T) {
	env := setupTestEnv(t)
	u1, _ := createTestUser(t, env.db, "u1", models.UserRoleUser)
	u2, _ := createTestUser(t, env.db, "u2", models.UserRoleUser)
	grantee, _ := createTestUser(t, env.db, "grantee", models.UserRoleUser)

	// F1 (u1): one file, one share. F2 (u2): two files, one share.
	// F3 (u2, child of F2): one file, no shares.
	f1 := createTestFolder(t, env.db, u1, "F1", nil)
	f2 := createTestFolder(t, env.db, u2, "F2", nil)
	f3 := createTestFolder(t, env.db, u2, "F3", &f2.ID)

	// Creation order pins tie-breaking between F1 and F2.
	env.db.Model(f1).Update("created_at", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	env.db.Model(f2).Update("created_at", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	env.db.Model(f3).Update("created_at", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))

	file1 := createTestFile(t, env.db, u1, "f1-a.txt", "x", &f1.ID)
	file2a := createTestFile(t, env.db, u2, "f2-a.txt", "x", &f2.ID)
	createTestFile(t, env.db, u2, "f2-b.txt", "x", &f2.ID)
	createTestFile(t, env.db, u2, "f3-a.txt", "x", &f3.ID)

	for _, fileID := range []models.File{*file1, *file2a} {
		share := models.SharedFile{UserID: grantee.ID, FileID: fileID.ID, Permission: models.SharePermissionRead}
		if err := env.db.Create(&share).Error; err != nil {
			t.Fatalf("failed creating share: %v", err)
		}
	}

	resp := performJSONRequest(t, env.app, "GET", "/api/stats/folders-by-shared-users", nil, nil)
	assertStatus(t, resp, fiber.StatusOK)

	results := resultsOf(t, decodeJSONMap(t, resp))
	if len(results) != 3 {
		t.Fatalf("expected three folders, got %d", len(results))
	}

	expected := []struct {
		name  string
		count float64
	}{
		{"F1", 1},
		{"F2", 1},
		{"F3", 0},
	}
	for i, want := range expected {
		row := results[i].(map[string]any)
		if row["name"] != want.name {
			t.Fatalf("position %d: expected %s, got %v", i, want.name, row["name"])
		}
		if count, _ := row["numSharedUsers"].(float64); count != want.count {
			t.Fatalf("%s: expected %v shared users, got %v", want.name, want.count, row["numSharedUsers"])
		}
	}

	// Rows carry the parent folder id: F3 sits under F2, the roots carry null.
	last := results[2].(map[string]any)
	if parent, _ := last["parentFolderId"].(string); parent != f2.ID.String() {
		t.Fatalf("expected F3 parent %s, got %v", f2.ID, last["parentFolderId"])
	}
	if results[0].(map[string]any)["parentFolderId"] != nil {
		t.Fatalf("expected F1 to have no parent, got %v", results[0].(map[string]any)["parentFolderId"])
	}
}

func TestFoldersByFiles(t *testing.T) {
	env := setupTestEnv(t)
	user, _ := createTestUser(t, env.db, "owner", models.UserRoleUser)

	full := createTestFolder(t, env.db, user, "full", nil)
	empty := createTestFolder(t, env.db, user, "empty", nil)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		createTestFile(t, env.db, user, name, "x", &full.ID)
	}

	resp := performJSONRequest(t, env.app, "GET", "/api/stats/folders-by-files", nil, nil)
	assertStatus(t, resp, fiber.StatusOK)

	results := resultsOf(t, decodeJSONMap(t, resp))
	if len(results) != 2 {
		t.Fatalf("expected two folders, got %d", len(results))
	}
	first := results[0].(map[string]any)
	if first["name"] != "full" {
		t.Fatalf("expected fullest folder first, got %v", first["name"])
	}
	if count, _ := first["numFiles"].(float64); count != 3 {
		t.Fatalf("expected 3 files, got %v", first["numFiles"])
	}

	_ = empty
}

func TestStatsArePublicAndPaginated(t *testing.T) {
	env := setupTestEnv(t)
	for _, name := range []string{"u1", "u2", "u3"} {
		createTestUser(t, env.db, name, models.UserRoleUser)
	}

	resp := performJSONRequest(t, env.app, "GET", "/api/stats/users-by-chars-written?page_size=2", nil, nil)
	assertStatus(t, resp, fiber.StatusOK)

	body := decodeJSONMap(t, resp)
	if count, _ := body["count"].(float64); count != 3 {
		t.Fatalf("expected total count 3, got %v", body["count"])
	}
	if got := len(resultsOf(t, body)); got != 2 {
		t.Fatalf("expected 2 rows on first page, got %d", got)
	}
	if body["next"] == nil {
		t.Fatal("expected a next page link")
	}
}
