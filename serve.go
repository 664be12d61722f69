package main

import (
	"fmt"
	"os"

	"github.com/antoto2021/nexus/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP relay for the web front-end",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(&config)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		srv := server.New(server.Config{
			Addr:           config.Serve.Addr,
			Rate:           config.Serve.Rate,
			Burst:          config.Serve.Burst,
			RequestTimeout: config.Timeout,
			ScanTimeout:    config.Serve.ScanTimeout,
		}, server.Deps{
			Keys:          a.keys,
			DB:            a.db,
			Conversations: a.convos,
			Version:       a.versionChecker(),
			NewClient:     a.newClient,
			Agent:         a.agentConfig(),
			Fallbacks:     config.FallbackModels,
			Logger:        a.logger,
		})

		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "  Listening on %s\n", stderrStyles().Link.Render("http://"+config.Serve.Addr))
		}
		if err := srv.Run(cmd.Context()); err != nil {
			return nexusError{err, "The server stopped."}
		}
		return nil
	},
}
