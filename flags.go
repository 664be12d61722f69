package main

import (
	"time"

	"github.com/caarlos0/duration"
	flag "github.com/spf13/pflag"
)

func initFlags() {
	flags := rootCmd.Flags()
	flags.StringVarP(&config.Model, "model", "m", config.Model, stdoutStyles().FlagDesc.Render(help["model"]))
	flags.BoolVarP(&config.Grounding, "grounding", "g", config.Grounding, stdoutStyles().FlagDesc.Render(help["grounding"]))
	flags.StringArrayVarP(&config.Files, "file", "F", nil, stdoutStyles().FlagDesc.Render(help["file"]))
	flags.StringVarP(&config.Continue, "continue", "c", "", stdoutStyles().FlagDesc.Render(help["continue"]))
	flags.BoolVarP(&config.ContinueLast, "continue-last", "C", false, stdoutStyles().FlagDesc.Render(help["continue-last"]))
	flags.StringVarP(&config.Title, "title", "t", config.Title, stdoutStyles().FlagDesc.Render(help["title"]))
	flags.BoolVar(&config.NoCache, "no-cache", config.NoCache, stdoutStyles().FlagDesc.Render(help["no-cache"]))
	flags.BoolVarP(&config.Raw, "raw", "r", config.Raw, stdoutStyles().FlagDesc.Render(help["raw"]))
	flags.BoolVarP(&config.Stream, "stream", "s", false, stdoutStyles().FlagDesc.Render(help["stream"]))
	flags.BoolVarP(&config.Copy, "copy", "y", false, stdoutStyles().FlagDesc.Render(help["copy"]))
	flags.Int64Var(&config.MaxTokens, "max-tokens", config.MaxTokens, stdoutStyles().FlagDesc.Render(help["max-tokens"]))
	flags.Float64Var(&config.Temperature, "temp", config.Temperature, stdoutStyles().FlagDesc.Render(help["temp"]))
	flags.Float64Var(&config.TopP, "topp", config.TopP, stdoutStyles().FlagDesc.Render(help["topp"]))
	flags.Int64Var(&config.TopK, "topk", config.TopK, stdoutStyles().FlagDesc.Render(help["topk"]))
	flags.StringVar(&config.Transport, "transport", config.Transport, stdoutStyles().FlagDesc.Render(help["transport"]))
	flags.BoolVar(&config.Settings, "settings", false, stdoutStyles().FlagDesc.Render(help["settings"]))
	flags.BoolVar(&config.ResetSettings, "reset-settings", config.ResetSettings, stdoutStyles().FlagDesc.Render(help["reset-settings"]))
	flags.BoolVar(&config.Version, "version", false, stdoutStyles().FlagDesc.Render(help["version"]))
	flags.BoolVarP(&config.ShowHelp, "help", "h", false, stdoutStyles().FlagDesc.Render(help["help"]))

	persistent := rootCmd.PersistentFlags()
	persistent.BoolVarP(&config.Quiet, "quiet", "q", config.Quiet, stdoutStyles().FlagDesc.Render(help["quiet"]))
	persistent.BoolVarP(&config.Verbose, "verbose", "v", false, stdoutStyles().FlagDesc.Render(help["verbose"]))
	persistent.Var(newDurationFlag(config.Timeout, &config.Timeout), "timeout", stdoutStyles().FlagDesc.Render(help["timeout"]))

	flags.SortFlags = false
	persistent.SortFlags = false
	rootCmd.MarkFlagsMutuallyExclusive("settings", "reset-settings")
	rootCmd.MarkFlagsMutuallyExclusive("continue", "continue-last")
	rootCmd.MarkFlagsMutuallyExclusive("stream", "raw")
}

var _ flag.Value = (*durationFlag)(nil)

func newDurationFlag(val time.Duration, p *time.Duration) *durationFlag {
	*p = val
	return (*durationFlag)(p)
}

// durationFlag is a duration flag that also accepts days, weeks, months
// and years (1d, 2w, 1mo, 1y).
type durationFlag time.Duration

func (d *durationFlag) Set(s string) error {
	v, err := duration.Parse(s)
	*d = durationFlag(v)
	//nolint: wrapcheck
	return err
}

func (d *durationFlag) String() string {
	return time.Duration(*d).String()
}

func (*durationFlag) Type() string {
	return "duration"
}
