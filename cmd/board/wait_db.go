package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var waitDBCmd = &cobra.Command{
	Use:   "wait-db",
	Short: "Block until the database answers, then exit",
	Long: `Probe the database using db.bootstrap (max_attempts, delay, backoff).
Exits 0 once the database responds and non-zero when attempts run out.
Useful as a container entrypoint step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.openStore(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "database is ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(waitDBCmd)
}
