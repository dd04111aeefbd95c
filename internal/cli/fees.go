package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/gravity-indexer/internal/control"
	"github.com/vietddude/gravity-indexer/internal/query"
)

var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Print send-to-eth fee totals per period",
	Run:   runFees,
}

func init() {
	rootCmd.AddCommand(feesCmd)
}

func runFees(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	store, _, err := control.OpenStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	data, err := query.NewService(store).FeeTotals(ctx)
	if err != nil {
		slog.Error("Failed to compute fee totals", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}
