package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/antoto2021/nexus/internal/keys"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the Gemini API key",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		key, source, err := keys.New().Get()
		if errors.Is(err, keys.ErrNoKey) {
			return explain(err)
		}
		if err != nil {
			return nexusError{err, "Could not read the API key."}
		}
		fmt.Printf("%s %s\n", keys.Mask(key), stdoutStyles().Comment.Render("("+string(source)+")"))
		return nil
	},
}

var keySetCmd = &cobra.Command{
	Use:   "set [KEY]",
	Short: "Store the API key in the system keyring",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else if isInputTTY() {
			if err := huh.NewInput().
				Title("Gemini API key").
				Description("Create one at https://aistudio.google.com/apikey").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return keys.ErrEmptyKey
					}
					return nil
				}).
				Value(&key).
				Run(); err != nil {
				return nexusError{err, "Could not read the API key."}
			}
		} else {
			var err error
			key, err = readPrompt(nil, os.Stdin)
			if err != nil {
				return err
			}
		}

		if err := keys.New().Set(key); err != nil {
			return nexusError{err, "Could not store the API key."}
		}
		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "  %s Key %s stored. Run %s to find a model.\n",
				stderrStyles().Success,
				keys.Mask(strings.TrimSpace(key)),
				stderrStyles().InlineCode.Render("nexus scan"),
			)
		}
		return nil
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the API key from the system keyring",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := keys.New().Delete(); err != nil {
			return nexusError{err, "Could not delete the API key."}
		}
		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "  %s Key deleted.\n", stderrStyles().Success)
		}
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyDeleteCmd)
}
