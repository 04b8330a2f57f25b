package fakedata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brainbox/backend/pkg/logger"
	"gorm.io/gorm"
)

// Load replays the SQL files produced by WriteSQL against db. All batches of
// all files run inside a single transaction: a failing batch aborts the load
// and nothing is committed. Files are applied in dependency order; a missing
// file is skipped.
func Load(ctx context.Context, db *gorm.DB, dir string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range tableFiles() {
			path := filepath.Join(dir, name)
			content, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					logger.Warn("fakedata_file_missing", map[string]interface{}{"file": name})
					continue
				}
				return fmt.Errorf("reading %s: %w", name, err)
			}

			batches := splitBatches(string(content))
			for i, batch := range batches {
				if err := tx.Exec(batch).Error; err != nil {
					return fmt.Errorf("%s batch %d/%d: %w", name, i+1, len(batches), err)
				}
				logger.Info("fakedata_batch_loaded", map[string]interface{}{
					"file":  name,
					"batch": fmt.Sprintf("%d/%d", i+1, len(batches)),
				})
			}
		}
		return nil
	})
}

// splitBatches cuts a SQL file into its semicolon-terminated statements.
func splitBatches(content string) []string {
	parts := strings.Split(content, ";")
	batches := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			batches = append(batches, trimmed)
		}
	}
	return batches
}
