package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MattewMattew/ManagmentBoard/internal/service"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one full issue sync and exit",
	Long: `Wait for the database, apply migrations, then fetch every Redmine issue
matching redmine.filter and upsert it. Exits non-zero if the sync fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := a.openStore(ctx); err != nil {
			return err
		}
		if err := a.migrate(); err != nil {
			return err
		}
		if err := a.wire(); err != nil {
			return err
		}
		result, err := a.sync.Run(ctx, service.TriggerCLI)
		if err != nil {
			return fmt.Errorf("sync %s: %w", result.RunID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "synced %d issues in %d batches (run %s)\n", result.ItemCount, result.Batches, result.RunID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
