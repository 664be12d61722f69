package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the model in use and the order models are tried in",
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

		s := stdoutStyles()
		r, err := a.router(ctx)
		if err != nil {
			// without a key there is nothing to connect to
			fmt.Printf("\n  %s\n\n", renderStatus(s, ""))
			return nil //nolint:nilerr
		}
		fmt.Printf("\n  %s\n", renderStatus(s, state.ActiveModel))
		chain, _, err := a.chain(ctx, r, "")
		if err != nil {
			return err
		}
		if len(state.ValidatedModels) > 0 {
			fmt.Printf("  %s %s\n", s.Comment.Render("Validated:"), strings.Join(state.ValidatedModels, ", "))
		}
		fmt.Printf("\n  %s\n", s.Comment.Render("Models are tried in this order:"))
		for i, model := range chain {
			fmt.Printf("  %s %s\n", s.Comment.Render(fmt.Sprintf("%d.", i+1)), s.Model.Render(model))
		}
		fmt.Println()
		return nil
	},
}
