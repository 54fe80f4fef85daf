package main

import (
	"fmt"

	"preventivi/internal/report"

	"github.com/spf13/cobra"
)

// newStatsCmd создаёт команду "preventivi stats"
func newStatsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Показать сводку по сохранённому состоянию",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("--days не может быть отрицательным: %d", days)
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(cmd.Context(), cfg, false, log)
			if err != nil {
				return err
			}
			defer closeStore()

			tr, err := restoreTracker(cmd.Context(), cfg, store, log)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Text(tr.Snapshot(), days))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "сколько последних дней показать")
	return cmd
}
