package main

import (
	"fmt"
	"text/tabwriter"

	"preventivi/internal/gsheets"

	"github.com/spf13/cobra"
)

// newScanCmd создаёт команду "preventivi scan": показывает найденные папки
// без регистрации и отправки сообщений
func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Проверить доступ к Google Drive и показать найденные предложения",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			google, err := newGoogleClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			scanner := gsheets.NewScanner(google, cfg.DriveRootFolderID, cfg.DriveRootFolderName, log)
			sources, err := scanner.Scan(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ГРУППА\tПРЕДЛОЖЕНИЕ\tССЫЛКА")
			for _, src := range sources {
				fmt.Fprintf(w, "%d\t%s\t%s\n", src.Key.Recipient, src.Label, src.Reference)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Найдено: %d\n", len(sources))
			return nil
		},
	}
}
