package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hlsgrab/internal/browser"
	"hlsgrab/internal/extract"
	"hlsgrab/internal/httputil"
)

var flagForce bool

var loginCmd = &cobra.Command{
	Use:   "login [url]",
	Short: "Log in interactively and save the session snapshot",
	Long: `Opens a visible browser on the login page. Log in by hand, then press
ENTER in the terminal to save cookies and local storage to the state file.
An existing state file is kept unless --force is given; with --force it is
replaced only after the new login has been saved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: loginRun,
}

func init() {
	loginCmd.Flags().BoolVar(&flagForce, "force", false, "Replace an existing session snapshot")
}

func loginRun(cmd *cobra.Command, args []string) error {
	loginURL := cfg.LoginURL
	if len(args) > 0 {
		loginURL = args[0]
	}
	if loginURL == "" {
		return fmt.Errorf("no login URL: pass one or set login_url in the config")
	}
	if err := httputil.ValidateURL(loginURL); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if !flagForce {
		if _, err := os.Stat(cfg.StateFile); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Session snapshot %s already exists (use --force to replace it).\n", cfg.StateFile)
			return nil
		}
	}

	launcher, err := browser.New(cfg.Engine, &logger)
	if err != nil {
		return err
	}

	in := newInitializer(launcher)
	login := in.Ensure
	if flagForce {
		login = in.Refresh
	}

	path, err := login(cmd.Context(), loginURL, cfg.StateFile)
	if err != nil {
		return extract.DriverHint(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session saved to %s\n", path)
	return nil
}
