package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check GitHub for a newer version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(&config)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		ctx := cmd.Context()
		state, err := a.db.State(ctx)
		if err != nil {
			return nexusError{err, "Could not read state."}
		}

		status, err := a.versionChecker().Check(ctx, state.LocalHash)
		if err != nil {
			return nexusError{err, fmt.Sprintf(
				"Could not check %s/%s on GitHub.",
				config.GitHub.Owner,
				config.GitHub.Repo,
			)}
		}

		s := stdoutStyles()
		if status.UpdateAvailable {
			fmt.Printf("  %s %s → %s\n",
				s.Quote.Render("Update available:"),
				s.SHA1.Render(status.Local),
				s.SHA1.Render(status.Remote),
			)
		} else {
			fmt.Printf("  %s %s\n", s.Success, s.Comment.Render("Up to date: "+status.Remote))
		}

		state.LocalHash = status.Remote
		if err := a.db.SaveState(ctx, state); err != nil {
			return nexusError{err, "Could not save the version."}
		}
		if status.Cached && !config.Quiet {
			fmt.Fprintln(os.Stderr, stderrStyles().Comment.Render("  (cached result)"))
		}
		return nil
	},
}
