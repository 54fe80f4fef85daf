package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd создаёт корневую команду со всеми подкомандами
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preventivi",
		Short: "Telegram бот подтверждения предложений",
		Long: "preventivi следит за папками предложений в Google Drive,\n" +
			"уведомляет группы в Telegram и напоминает до подтверждения.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("preventivi {{.Version}}\n")

	cmd.AddCommand(
		newRunCmd(),
		newStatsCmd(),
		newExportCmd(),
		newScanCmd(),
	)

	return cmd
}
