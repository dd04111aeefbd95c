package cli

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/gravity-indexer/internal/control"
)

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Perform a single indexing run and print its report",
	Run:   runRunOnce,
}

func init() {
	rootCmd.AddCommand(runOnceCmd)
}

func runRunOnce(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := signalContext()
	defer cancel()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize indexer", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	report, runErr := app.RunOnce(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if runErr != nil {
		slog.Error("Run failed", "error", runErr)
		app.Close()
		os.Exit(1)
	}
}
