// Package main provides the CLI entry point for reencode.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/reencode"
	"github.com/five82/reencode/internal/config"
	"github.com/five82/reencode/internal/logging"
	"github.com/five82/reencode/internal/reporter"
	"github.com/five82/reencode/internal/stage"
	"github.com/five82/reencode/internal/util"
)

const appVersion = "0.3.0"

// encodeFlags holds the parsed flags for the encode command.
type encodeFlags struct {
	outputDir      string
	logDir         string
	verbose        bool
	jsonOutput     bool
	crf            string
	preset         uint8
	presetName     string
	sceneAlgorithm string
	concatMethod   string
	filmGrain      uint8
	workers        int
	responsive     bool
	noLog          bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reencode",
		Short:         "Re-encode video files to AV1 by splitting them into parallel-encoded scenes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newEncodeCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newBenchmarkCmd())
	root.AddCommand(newConcatCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// newResumeCmd re-runs every remaining stage against a saved project
// snapshot, picking up wherever a prior interrupted run left off.
func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <project.json>",
		Short: "Resume an interrupted encode from its saved project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStagesFromProjectFile(cmd, args[0], reencode.AllStages())
		},
	}
}

// newBenchmarkCmd re-runs just worker-count selection against a saved
// project, without repeating scene detection.
func newBenchmarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "benchmark <project.json>",
		Short: "Re-run worker-count selection against a saved project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStagesFromProjectFile(cmd, args[0], reencode.BenchmarkOnly())
		},
	}
}

// newConcatCmd re-runs just the final mux against a saved project whose
// scenes have already been encoded.
func newConcatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "concat <project.json>",
		Short: "Re-run concatenation against a saved project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStagesFromProjectFile(cmd, args[0], reencode.ConcatOnly())
		},
	}
}

func runStagesFromProjectFile(cmd *cobra.Command, projectPath string, stages []stage.Stage) error {
	p, err := reencode.LoadProject(projectPath)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	rep := reporter.NewTerminalReporter()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	warnings, err := reencode.RunStages(ctx, p, rep, stages...)
	for _, w := range warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s: %s\n", w.Stage, w.Message)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Project %s saved to %s\n", p.Output.Path, projectPath)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "reencode version %s\n", appVersion)
			return nil
		},
	}
}

func newEncodeCmd() *cobra.Command {
	var ef encodeFlags

	cmd := &cobra.Command{
		Use:   "encode <input>",
		Short: "Encode video files to AV1 format",
		Long: fmt.Sprintf(`Encode a video file, or every video file in a directory, to AV1.

Quality defaults to CRF %d,%d,%d (SD,HD,UHD) at SVT-AV1 preset %d.`,
			config.DefaultCRFSD, config.DefaultCRFHD, config.DefaultCRFUHD, config.DefaultSVTAV1Preset),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, args[0], ef)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&ef.outputDir, "output", "o", "", "output directory (required)")
	flags.StringVarP(&ef.logDir, "log-dir", "l", "", "log directory (defaults to ~/.local/state/reencode/logs)")
	flags.BoolVarP(&ef.verbose, "verbose", "v", false, "enable verbose/debug output")
	flags.BoolVar(&ef.jsonOutput, "json", false, "emit machine-readable JSON progress instead of terminal output")
	flags.StringVar(&ef.crf, "crf", "", "CRF quality (0-63): single value or SD,HD,UHD triple")
	flags.Uint8Var(&ef.preset, "svt-preset", 0, "SVT-AV1 encoder preset (0-13, lower is slower/better)")
	flags.StringVar(&ef.presetName, "preset", "", "bundled quality preset: grain, clean, or quick")
	flags.StringVar(&ef.sceneAlgorithm, "scene-algorithm", "", "scene detector: av_scene_change (default) or none")
	flags.StringVar(&ef.concatMethod, "concat-method", "", "concatenation backend: mkvmerge (default) or ffmpeg")
	flags.Uint8Var(&ef.filmGrain, "film-grain", 0, "SVT-AV1 film grain synthesis strength (0-50, 0 disables)")
	flags.IntVar(&ef.workers, "workers", 0, "fix the parallel encoder worker count (0 = auto-benchmark)")
	flags.BoolVar(&ef.responsive, "responsive", false, "reserve CPU threads for system responsiveness")
	flags.BoolVar(&ef.noLog, "no-log", false, "disable log file creation")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runEncode(cmd *cobra.Command, inputArg string, ef encodeFlags) error {
	inputPath, err := filepath.Abs(inputArg)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}

	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", inputPath)
	}

	outputDir, err := filepath.Abs(ef.outputDir)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if err := util.EnsureDirectory(outputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logDir := ef.logDir
	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		logDir = filepath.Join(homeDir, ".local", "state", "reencode", "logs")
	}

	logger, err := logging.Setup(logDir, ef.verbose, ef.noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	var inputs []string
	if inputInfo.IsDir() {
		inputs, err = reencode.FindVideos(inputPath)
		if err != nil {
			return fmt.Errorf("failed to discover video files: %w", err)
		}
		if len(inputs) == 0 {
			return fmt.Errorf("no video files found in %s", inputPath)
		}
		if logger != nil {
			logger.Info("Discovered %d video files in %s", len(inputs), inputPath)
		}
	} else {
		inputs = []string{inputPath}
	}

	opts, err := encodeOptions(ef)
	if err != nil {
		return err
	}

	enc, err := reencode.New(opts...)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if logger != nil {
		logger.Info("Output directory: %s", outputDir)
		logger.Info("Responsive encoding: %v", ef.responsive)
	}

	var rep reporter.Reporter
	if ef.jsonOutput {
		rep = reporter.NewJSONReporter()
	} else {
		rep = reporter.NewTerminalReporter()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	batch, err := enc.EncodeBatch(ctx, inputs, outputDir, rep)
	if err != nil {
		if logger != nil {
			logger.Error("encode failed: %v", err)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Encoded %d/%d files, %.1f%% average size reduction\n",
		batch.SuccessfulCount, batch.TotalFiles, batch.TotalSizeReduction)
	return nil
}

// encodeOptions translates parsed CLI flags into reencode.Option values,
// applying a bundled preset first so explicit flags can still override it.
func encodeOptions(ef encodeFlags) ([]reencode.Option, error) {
	var opts []reencode.Option

	if ef.presetName != "" {
		preset, err := reencode.ParsePreset(ef.presetName)
		if err != nil {
			return nil, err
		}
		opts = append(opts, reencode.WithPreset(preset))
	}

	if ef.crf != "" {
		sd, hd, uhd, err := reencode.ParseCRF(ef.crf)
		if err != nil {
			return nil, fmt.Errorf("invalid --crf value: %w", err)
		}
		opts = append(opts, reencode.WithQualitySD(sd), reencode.WithQualityHD(hd), reencode.WithQualityUHD(uhd))
	}

	if ef.preset != 0 {
		preset := ef.preset
		opts = append(opts, func(c *config.Config) { c.SVTAV1Preset = preset })
	}

	if ef.sceneAlgorithm != "" {
		opts = append(opts, reencode.WithSceneAlgorithm(ef.sceneAlgorithm))
	}
	if ef.concatMethod != "" {
		opts = append(opts, reencode.WithConcatMethod(ef.concatMethod))
	}
	if ef.filmGrain > 0 {
		opts = append(opts, reencode.WithFilmGrain(ef.filmGrain))
	}
	if ef.workers > 0 {
		opts = append(opts, reencode.WithWorkers(ef.workers))
	}
	if ef.responsive {
		opts = append(opts, reencode.WithResponsive())
	}

	return opts, nil
}
