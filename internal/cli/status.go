package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/gravity-indexer/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpoint, node height and pending gaps",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize indexer", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	checkpoint := "none"
	if h, ok, err := app.Checkpoint().Get(ctx); err != nil {
		slog.Error("Failed to read checkpoint", "error", err)
	} else if ok {
		checkpoint = fmt.Sprintf("%d", h)
	}

	report := app.Health(ctx)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CHAIN\tCHECKPOINT\tNODE\tLATEST\tLAG\tGAPS\tSTATUS")
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
		report.ChainID, checkpoint, report.NodeState, report.LatestBlock,
		report.BlockLag, report.PendingGaps, report.Status)
	_ = w.Flush()

	if report.Error != "" {
		fmt.Fprintf(os.Stderr, "node error: %s\n", report.Error)
	}
}
