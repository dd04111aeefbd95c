package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vietddude/gravity-indexer/internal/control"
	"github.com/vietddude/gravity-indexer/internal/core/checkpoint"
)

var clearCheckpoint bool

var resetCheckpointCmd = &cobra.Command{
	Use:   "reset-checkpoint [block_height]",
	Short: "Overwrite the checkpoint, or remove it with --clear",
	Long: `Overwrite the stored checkpoint so the next run resumes at block_height+1.
With --clear the checkpoint is removed and the next run locates the earliest
block the node still serves.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if clearCheckpoint {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Run: runResetCheckpoint,
}

func init() {
	resetCheckpointCmd.Flags().BoolVar(&clearCheckpoint, "clear", false, "remove the checkpoint instead of setting it")
	rootCmd.AddCommand(resetCheckpointCmd)
}

func runResetCheckpoint(cmd *cobra.Command, args []string) {
	var height uint64
	if !clearCheckpoint {
		var err error
		height, err = strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			fmt.Printf("Invalid block height: %v\n", err)
			os.Exit(1)
		}
	}

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

	m := checkpoint.NewManager(store)
	if clearCheckpoint {
		if err := m.Clear(ctx); err != nil {
			slog.Error("Failed to clear checkpoint", "error", err)
			os.Exit(1)
		}
		fmt.Println("Checkpoint cleared")
		return
	}

	if err := m.Reset(ctx, height); err != nil {
		slog.Error("Failed to reset checkpoint", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully reset checkpoint to block %d\n", height)
}
