package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hlsgrab/internal/browser"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download the browser driver for the configured engine",
	Args:  cobra.NoArgs,
	RunE:  installRun,
}

func installRun(cmd *cobra.Command, args []string) error {
	logger.Info().Str("engine", cfg.Engine).Msg("installing browser driver")
	if err := browser.Install(cfg.Engine); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s driver installed.\n", cfg.Engine)
	return nil
}
