package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"timelapse/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipDaemon bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, ffmpeg, and the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			lines := renderSectionHeader("Local", colorize)
			lines = append(lines, checkLines(results, colorize)...)

			if !skipDaemon {
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Daemon", colorize)...)
				lines = append(lines, daemonLines(cmd, ctx, colorize)...)
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			for _, result := range results {
				if !result.Passed {
					return errors.New("one or more checks failed")
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipDaemon, "local", false, "Skip querying the daemon")
	return cmd
}

// daemonLines reports the daemon's own view of its dependencies. An
// unreachable daemon is a warning, not a failure.
func daemonLines(cmd *cobra.Command, ctx *commandContext, colorize bool) []string {
	client, base, err := ctx.client()
	if err != nil {
		return []string{renderStatusLine("Daemon", statusError, err.Error(), colorize)}
	}
	status, err := client.Status(cmd.Context())
	if err != nil {
		return []string{renderStatusLine("Daemon", statusWarn, wrapDialError(err, base).Error(), colorize)}
	}

	lines := []string{renderStatusLine("Daemon", statusOK, fmt.Sprintf("running at %s (pid %d)", base, status.PID), colorize)}
	lines = append(lines, renderStatusLine("Storage", statusInfo, status.StorageDir, colorize))
	lines = append(lines, renderStatusLine("Jobs", statusInfo, fmt.Sprintf(
		"%d pending, %d processing, %d completed, %d failed",
		status.Jobs["pending"], status.Jobs["processing"], status.Jobs["completed"], status.Jobs["failed"],
	), colorize))
	return append(lines, dependencyLines(status.Dependencies, colorize)...)
}
