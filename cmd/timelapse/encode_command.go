package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"timelapse/internal/config"
	"timelapse/internal/deps"
	"timelapse/internal/encoder"
	"timelapse/internal/fileutil"
	"timelapse/internal/frames"
	"timelapse/internal/jobs"
	"timelapse/internal/logging"
	"timelapse/internal/staging"
	"timelapse/internal/workflow"
)

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var output string
	var fps int
	var rotation int
	var keep bool

	cmd := &cobra.Command{
		Use:   "encode <frames-dir>",
		Short: "Encode a directory of images into a timelapse without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runEncode(cmd, cfg, encodeOptions{
				framesDir: args[0],
				output:    output,
				fps:       fps,
				rotation:  rotation,
				keep:      keep,
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "timelapse.mp4", "Destination video path")
	cmd.Flags().IntVar(&fps, "fps", 24, "Frames per second (1-60)")
	cmd.Flags().IntVar(&rotation, "rotation", 0, "Clockwise rotation: 0, 90, 180, or 270")
	cmd.Flags().BoolVar(&keep, "keep-job", false, "Keep the staged job directory after encoding")
	return cmd
}

type encodeOptions struct {
	framesDir string
	output    string
	fps       int
	rotation  int
	keep      bool
}

func runEncode(cmd *cobra.Command, cfg *config.Config, opts encodeOptions) error {
	if !encoder.ValidRotation(opts.rotation) {
		return fmt.Errorf("rotation must be 0, 90, 180, or 270, got %d", opts.rotation)
	}
	if opts.fps < workflow.MinFPS || opts.fps > workflow.MaxFPS {
		return fmt.Errorf("fps must be between %d and %d, got %d", workflow.MinFPS, workflow.MaxFPS, opts.fps)
	}
	output, err := filepath.Abs(strings.TrimSpace(opts.output))
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	names, err := frames.List(opts.framesDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("%s: %w", opts.framesDir, frames.ErrEmptyManifest)
	}

	logger, err := logging.New(logging.Options{
		Level:            "warn",
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ffmpeg := deps.ResolveFFmpeg(cfg.Encoder.Binary)
	invoker := encoder.NewInvoker(encoder.WithBinary(ffmpeg.Command), encoder.WithLogger(logger))
	if err := invoker.Probe(cmd.Context()); err != nil {
		return err
	}

	layout := staging.New(cfg.Paths.StorageDir)
	jobID, err := layout.Create()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	defer func() {
		if opts.keep {
			fmt.Fprintf(out, "Job directory kept at %s\n", layout.JobDir(jobID))
			return
		}
		if err := layout.Cleanup(jobID); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warn: job cleanup failed: %v\n", err)
		}
	}()

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(opts.framesDir, name)
	}
	if _, err := layout.IngestFiles(jobID, paths); err != nil {
		return err
	}

	store := jobs.NewStore()
	printer := newProgressPrinter(out)
	mgr := workflow.NewManager(layout, store, invoker,
		workflow.WithLogger(logger),
		workflow.WithObserver(printer.observe),
	)
	fmt.Fprintf(out, "Encoding %d frames at %d fps with %s\n", len(names), opts.fps, invoker.Binary())
	if err := mgr.Submit(cmd.Context(), workflow.Request{JobID: jobID, FPS: opts.fps, Rotation: opts.rotation}); err != nil {
		return err
	}
	mgr.Wait()

	status := store.Get(jobID)
	if status.State != jobs.StateCompleted {
		return fmt.Errorf("encode failed: %s", status.Error)
	}

	if err := fileutil.CopyFileVerified(layout.OutputPath(jobID), output); err != nil {
		return fmt.Errorf("copy output: %w", err)
	}
	fmt.Fprintf(out, "Wrote %s\n", output)
	return nil
}
