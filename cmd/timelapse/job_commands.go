package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"timelapse/internal/api"
	"timelapse/internal/apiclient"
	"timelapse/internal/fileutil"
	"timelapse/internal/jobs"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <image>...",
		Short: "Upload frames to the daemon as a new job",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, base, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Upload(cmd.Context(), args)
			if err != nil {
				return wrapDialError(err, base)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s: uploaded %d frame(s)\n", resp.JobID, resp.FileCount)
			if skipped := len(args) - resp.FileCount; skipped > 0 {
				fmt.Fprintf(out, "Skipped %d non-image file(s)\n", skipped)
			}
			return nil
		},
	}
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var fps int
	var rotation int
	var wait bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "create <job-id>",
		Short: "Start encoding an uploaded job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, base, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Create(cmd.Context(), api.CreateRequest{JobID: args[0], FPS: fps, Rotation: rotation})
			if err != nil {
				return wrapDialError(err, base)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s: %s\n", resp.JobID, resp.Status)
			if !wait {
				return nil
			}
			return watchJob(cmd.Context(), client, resp.JobID, interval, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&fps, "fps", 24, "Frames per second (1-60)")
	cmd.Flags().IntVar(&rotation, "rotation", 0, "Clockwise rotation: 0, 90, 180, or 270")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the job finishes")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval with --wait")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show one job or a table of all jobs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, base, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				if watch {
					return wrapDialError(watchJob(cmd.Context(), client, args[0], interval, out), base)
				}
				view, err := client.JobStatus(cmd.Context(), args[0])
				if err != nil {
					return wrapDialError(err, base)
				}
				fmt.Fprintln(out, renderStatusLine(args[0], stateKind(view.Status), describeView(view), shouldColorize(out)))
				return nil
			}

			entries, err := client.Jobs(cmd.Context())
			if err != nil {
				return wrapDialError(err, base)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			fmt.Fprintln(out, renderJobTable(entries))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll a job until it finishes")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval with --watch")
	return cmd
}

func renderJobTable(entries []api.JobEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		stage := entry.Stage
		if stage != "" {
			stage = stageLabel(stage)
		}
		rows = append(rows, []string{
			entry.JobID,
			string(entry.Status),
			stage,
			formatPercent(entry.StatusView),
			formatFrames(entry.StatusView),
			truncateText(entry.Error, 60),
		})
	}
	return renderTable([]column{
		{title: "Job"},
		{title: "Status"},
		{title: "Stage"},
		{title: "Progress", right: true},
		{title: "Frames", right: true},
		{title: "Error"},
	}, rows)
}

func truncateText(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-3]) + "..."
}

// watchJob prints status changes until the job reaches a terminal state.
func watchJob(ctx context.Context, client *apiclient.Client, jobID string, interval time.Duration, out io.Writer) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		view, err := client.JobStatus(ctx, jobID)
		if err != nil {
			return err
		}
		if line := describeView(view); line != last {
			fmt.Fprintln(out, line)
			last = line
		}
		switch view.Status {
		case jobs.StateCompleted:
			return nil
		case jobs.StateFailed:
			return fmt.Errorf("job %s failed", jobID)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Fetch a finished timelapse video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, base, err := ctx.client()
			if err != nil {
				return err
			}
			jobID := args[0]
			target := strings.TrimSpace(output)
			if target == "" {
				target = "timelapse_" + jobID + ".mp4"
			}
			if target, err = filepath.Abs(target); err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}

			reader, writer := io.Pipe()
			go func() {
				_, err := client.Download(cmd.Context(), jobID, writer)
				writer.CloseWithError(err)
			}()
			written, err := fileutil.WriteStream(target, reader, 0o644)
			_ = reader.Close()
			if err != nil {
				return wrapDialError(err, base)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", target, written)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (default timelapse_<job-id>.mp4)")
	return cmd
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <job-id>",
		Short: "Delete a job and its files from the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, base, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Remove(cmd.Context(), args[0]); err != nil {
				return wrapDialError(err, base)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s removed\n", args[0])
			return nil
		},
	}
}
