package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/charmbracelet/x/editor"
	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

// Build vars.
var (
	//nolint: gochecknoglobals
	Version   = ""
	CommitSHA = ""
)

func buildVersion() {
	if len(CommitSHA) >= 7 { //nolint:mnd
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
			Version = info.Main.Version
		} else {
			Version = "unknown (built from source)"
		}
	}
	rootCmd.Version = Version
}

var (
	config = defaultConfig()

	rootCmd = &cobra.Command{
		Use:           "nexus",
		Short:         "Find freelance missions with Gemini, on the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case config.ShowHelp:
				return cmd.Usage() //nolint:wrapcheck
			case config.Version:
				fmt.Println(cmd.Version)
				return nil
			case config.Settings:
				return editSettings()
			case config.ResetSettings:
				return resetSettings()
			}
			if err := config.normalize(); err != nil {
				return err
			}
			return ask(cmd, args)
		},
	}
)

func editSettings() error {
	c, err := editor.Cmd("nexus", config.SettingsPath)
	if err != nil {
		return nexusError{err, "Could not edit your settings file."}
	}
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return nexusError{err, fmt.Sprintf(
			"Missing %s.",
			stderrStyles().InlineCode.Render("$EDITOR"),
		)}
	}
	if !config.Quiet {
		fmt.Fprintln(os.Stderr, "Wrote config file to:", config.SettingsPath)
	}
	return nil
}

func resetSettings() error {
	if _, err := os.Stat(config.SettingsPath); err != nil {
		return nexusError{err, "Couldn't read config file."}
	}
	bak := config.SettingsPath + "." + time.Now().Format("20060102150405") + ".bak"
	if err := os.Rename(config.SettingsPath, bak); err != nil {
		return nexusError{err, "Couldn't backup config file."}
	}
	if err := writeConfigFile(config.SettingsPath); err != nil {
		return err
	}
	if !config.Quiet {
		fmt.Fprintln(os.Stderr, "\n  Settings restored to defaults!")
		fmt.Fprintf(os.Stderr,
			"\n  %s %s\n\n",
			stderrStyles().Comment.Render("Your old settings have been saved to:"),
			stderrStyles().Link.Render(filepath.Base(bak)),
		)
	}
	return nil
}

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		manPage, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			//nolint:wrapcheck
			return err
		}
		_, err = fmt.Fprint(os.Stdout, manPage.Build(roff.NewDocument()))
		//nolint:wrapcheck
		return err
	},
}

func init() {
	rootCmd.AddCommand(
		scanCmd,
		modelsCmd,
		keyCmd,
		historyCmd,
		updateCmd,
		serveCmd,
		manCmd,
	)
	rootCmd.SetUsageFunc(usageFunc)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newFlagParseError(err)
	})
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

func main() {
	buildVersion()

	var err error
	config, err = ensureConfig()
	if err != nil {
		handleError(err)
		os.Exit(1)
	}

	// flags default to the values read from the settings file
	initFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errInterrupted) || errors.Is(err, context.Canceled) {
			cancel()
			os.Exit(130) //nolint:mnd
		}
		handleError(err)
		cancel()
		os.Exit(1)
	}
}
