package main

import (
	"fmt"
	"os"

	"preventivi/internal/report"

	"github.com/spf13/cobra"
)

// newExportCmd создаёт команду "preventivi export"
func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Выгрузить отчёт в Excel",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("ошибка создания файла: %w", err)
			}
			if err := report.Write(f, tr.Snapshot(), tr.Items()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Отчёт сохранён: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "preventivi.xlsx", "путь к файлу отчёта")
	return cmd
}
