package main

import (
	"context"
	"fmt"

	"github.com/brainbox/backend/internal/config"
	"github.com/brainbox/backend/internal/database"
	"github.com/brainbox/backend/internal/fakedata"
	"github.com/brainbox/backend/pkg/logger"
	"github.com/spf13/cobra"
)

var flagDir string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load generated SQL files into the database",
	Long: `Replay the SQL files produced by generate against the database the
server config points at. All batches run in one transaction; any failure
aborts the load without committing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Init()

		cfg := config.Load()
		db, err := database.Connect(cfg.DB)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}

		if err := fakedata.Load(context.Background(), db, flagDir); err != nil {
			return fmt.Errorf("loading dataset: %w", err)
		}

		fmt.Printf("loaded dataset from %s\n", flagDir)
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&flagDir, "dir", "./data", "Directory holding the generated SQL files")
	rootCmd.AddCommand(loadCmd)
}
