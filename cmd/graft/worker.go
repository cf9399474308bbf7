// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/graftlabs/graft/internal/ipc"
	"github.com/graftlabs/graft/internal/telemetry"
)

// newWorkerCommand creates the `graft worker` command.
func newWorkerCommand() *cobra.Command {
	var metricsAddr string

	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Serve the host channel over stdin and stdout",
		Long: TitleStyle.Render("graft worker") + SubtitleStyle.Render(" - Serve the host channel over stdio") + `

Runs the load phase, then answers host requests on the framed stdio
channel: catalog listings, blueprints, setting layers, and streamed
transform runs with cancellation. The process exits when the host
closes its end of the pipe.

Logs go to stderr; stdout belongs to the channel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			addr := metricsAddr
			if addr == "" {
				addr = app.Config.MetricsAddr
			}
			telemetry.Expose(app.Metrics, addr)
			if addr != "" {
				app.Logger.Info("metrics endpoint up", "addr", addr)
			}

			app.Logger.Info("worker started",
				"descriptors", len(app.Registry.Entities()),
				"plugins", len(app.Report.Plugins),
				"failed", len(app.Report.Failed))

			srv := ipc.NewServer(app.Registry, app.Runner, app.Store, app.Logger)
			err = srv.Serve(cmd.Context(), os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				return exitError(err)
			}
			app.Logger.Info("worker stopped")
			return nil
		},
	}

	workerCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics_addr)")

	return workerCmd
}
