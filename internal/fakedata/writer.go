package fakedata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brainbox/backend/internal/models"
	"github.com/google/uuid"
)

// DefaultBatchSize is how many rows share one INSERT statement unless the
// caller says otherwise.
const DefaultBatchSize = 100

// tableFiles returns the per-entity SQL files in dependency order, so a
// loader replaying them top to bottom never violates a foreign key.
func tableFiles() []string {
	return []string{
		"users_data.sql",
		"user_profiles_data.sql",
		"folders_data.sql",
		"files_data.sql",
		"shared_files_data.sql",
	}
}

// WriteSQL renders the dataset into one <entity>_data.sql file per table
// under dir. Rows are grouped into multi-row INSERT statements of batchSize,
// each terminated by a semicolon.
func WriteSQL(ds *Dataset, dir string, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	files := map[string]string{
		"users_data.sql":         renderUsers(ds.Users, batchSize),
		"user_profiles_data.sql": renderProfiles(ds.Profiles, batchSize),
		"folders_data.sql":       renderFolders(ds.Folders, batchSize),
		"files_data.sql":         renderFiles(ds.Files, batchSize),
		"shared_files_data.sql":  renderShares(ds.SharedFiles, batchSize),
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

func renderUsers(users []models.User, batchSize int) string {
	rows := make([]string, len(users))
	for i, u := range users {
		rows[i] = fmt.Sprintf("(%s, %s, %s, %s, %s, %s, %s, %s, %s)",
			quote(u.ID.String()), timestamp(u.CreatedAt), timestamp(u.UpdatedAt),
			quote(u.Username), quote(u.Email), quote(u.PasswordHash),
			quote(string(u.Role)), boolean(u.IsActive), boolean(u.IsStaff))
	}
	return renderBatches(
		"INSERT INTO users (id, created_at, updated_at, username, email, password_hash, role, is_active, is_staff) VALUES",
		rows, batchSize)
}

func renderProfiles(profiles []models.UserProfile, batchSize int) string {
	rows := make([]string, len(profiles))
	for i, p := range profiles {
		rows[i] = fmt.Sprintf("(%s, %s, %s, %s, %s, %s, %s, %s, %d)",
			quote(p.ID.String()), timestamp(p.CreatedAt), timestamp(p.UpdatedAt),
			quote(p.UserID.String()), quote(p.Bio), date(p.Birthday),
			nullableString(p.Website), boolean(p.DarkMode), p.PageSize)
	}
	return renderBatches(
		"INSERT INTO user_profiles (id, created_at, updated_at, user_id, bio, birthday, website, dark_mode, page_size) VALUES",
		rows, batchSize)
}

func renderFolders(folders []models.Folder, batchSize int) string {
	rows := make([]string, len(folders))
	for i, f := range folders {
		rows[i] = fmt.Sprintf("(%s, %s, %s, %s, %s, %s)",
			quote(f.ID.String()), timestamp(f.CreatedAt), timestamp(f.UpdatedAt),
			quote(f.Name), quote(f.UserID.String()), nullableID(f.ParentFolderID))
	}
	return renderBatches(
		"INSERT INTO folders (id, created_at, updated_at, name, user_id, parent_folder_id) VALUES",
		rows, batchSize)
}

func renderFiles(files []models.File, batchSize int) string {
	rows := make([]string, len(files))
	for i, f := range files {
		rows[i] = fmt.Sprintf("(%s, %s, %s, %s, %s, %s, %s)",
			quote(f.ID.String()), timestamp(f.CreatedAt), timestamp(f.UpdatedAt),
			quote(f.Name), quote(f.Content), quote(f.UserID.String()), nullableID(f.FolderID))
	}
	return renderBatches(
		"INSERT INTO files (id, created_at, updated_at, name, content, user_id, folder_id) VALUES",
		rows, batchSize)
}

func renderShares(shares []models.SharedFile, batchSize int) string {
	rows := make([]string, len(shares))
	for i, s := range shares {
		rows[i] = fmt.Sprintf("(%s, %s, %s, %s, %s, %s)",
			quote(s.ID.String()), timestamp(s.CreatedAt), timestamp(s.UpdatedAt),
			quote(s.UserID.String()), quote(s.FileID.String()), quote(string(s.Permission)))
	}
	return renderBatches(
		"INSERT INTO shared_files (id, created_at, updated_at, user_id, file_id, permission) VALUES",
		rows, batchSize)
}

func renderBatches(header string, rows []string, batchSize int) string {
	var b strings.Builder
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		b.WriteString(header)
		b.WriteString("\n")
		b.WriteString(strings.Join(rows[start:end], ",\n"))
		b.WriteString(";\n")
	}
	return b.String()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func boolean(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func timestamp(t time.Time) string {
	return quote(t.UTC().Format("2006-01-02 15:04:05"))
}

func date(t *time.Time) string {
	if t == nil {
		return "NULL"
	}
	return quote(t.UTC().Format("2006-01-02"))
}

func nullableString(s *string) string {
	if s == nil {
		return "NULL"
	}
	return quote(*s)
}

func nullableID(id *uuid.UUID) string {
	if id == nil {
		return "NULL"
	}
	return quote(id.String())
}
