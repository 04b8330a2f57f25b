// Command datagen generates deterministic synthetic datasets as SQL files
// and loads them into a brainbox database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "datagen",
	Short: "Generate and load synthetic brainbox data",
	Long: `datagen produces deterministic fake users, folders, files and shares
as batched SQL insert files, and replays such files into a database.

  datagen generate --users 100 --out ./data
  datagen load --dir ./data`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
