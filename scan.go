package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/antoto2021/nexus/internal/router"
	"github.com/spf13/cobra"
)

var probeAll bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find the Gemini models your key can use",
	Long: `Lists the models of your key, newest first, and sends each a test
prompt until one answers. The working model is used by the next prompts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(&config)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		ctx := cmd.Context()
		r, err := a.router(ctx)
		if err != nil {
			return err
		}

		var tested scanLog
		result, err := withSpinner(ctx, "Listing models...", config.Quiet, func(ctx context.Context, report func(string)) (router.ScanResult, error) {
			return r.Scan(ctx, router.ScanOptions{ //nolint:wrapcheck
				ProbeAll: probeAll,
				OnProbe: func(p router.Probe) {
					tested.add(p)
					report(fmt.Sprintf("Testing models... %d/%d", p.Index, p.Total))
				},
			})
		})

		// an interrupted scan may still be reporting
		printProbes(tested.snapshot())
		if err != nil {
			return explain(err)
		}

		state, err := a.db.State(ctx)
		if err != nil {
			return nexusError{err, "Could not read state."}
		}
		state.ActiveModel = result.Active
		state.ValidatedModels = result.Validated
		if err := a.db.SaveState(ctx, state); err != nil {
			return nexusError{err, "Could not save the scan result."}
		}

		if result.FromFallback && !config.Quiet {
			fmt.Fprintln(os.Stderr, stderrStyles().Comment.Render("  Could not list the models, the fallback list was used."))
		}
		fmt.Printf("\n  %s\n  %s\n\n",
			renderStatus(stdoutStyles(), result.Active),
			stdoutStyles().Comment.Render(fmt.Sprintf("tested %d/%d", result.Tested, result.Candidates)),
		)
		return nil
	},
}

// scanLog collects the models tested by a scan that may run on another
// goroutine.
type scanLog struct {
	mu     sync.Mutex
	probes []router.Probe
}

func (l *scanLog) add(p router.Probe) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.probes = append(l.probes, p)
}

func (l *scanLog) snapshot() []router.Probe {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.probes)
}

func printProbes(probes []router.Probe) {
	if config.Quiet {
		return
	}
	for _, p := range probes {
		if p.OK() {
			fmt.Fprintf(os.Stderr, "  %s %s\n", stderrStyles().Success, p.Model)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s %s %s\n", stderrStyles().Failure, p.Model, stderrStyles().Comment.Render(p.Err.Error()))
	}
}

func init() {
	scanCmd.Flags().BoolVar(&probeAll, "all", false, "Keep testing after the first working model.")
}
