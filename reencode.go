// Package reencode provides a Go library for splitting a video into
// independently re-encoded scenes and concatenating the results, built
// around SVT-AV1 (and other encoder families via internal/encoderdriver).
//
// reencode decodes a clip with ffmpeg, detects scene boundaries, fans the
// resulting scenes out across a pool of parallel worker processes, and
// concatenates the finished scene files back into a single output. A
// Benchmarker stage can pick the worker count automatically.
//
// Basic usage:
//
//	encoder, err := reencode.New(
//	    reencode.WithPreset(reencode.PresetGrain),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := encoder.Encode(ctx, "input.mkv", "output/", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Encoded: %s, reduction: %.1f%%\n",
//	    result.OutputFile, result.SizeReductionPercent)
package reencode

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/five82/reencode/internal/config"
	"github.com/five82/reencode/internal/discovery"
	"github.com/five82/reencode/internal/errors"
	"github.com/five82/reencode/internal/ffprobe"
	"github.com/five82/reencode/internal/framesource"
	"github.com/five82/reencode/internal/orchestrator"
	"github.com/five82/reencode/internal/project"
	"github.com/five82/reencode/internal/reporter"
	"github.com/five82/reencode/internal/stage"
	"github.com/five82/reencode/internal/util"

	"github.com/five82/reencode/internal/benchmarker"
	"github.com/five82/reencode/internal/concat"
	"github.com/five82/reencode/internal/parallelencoder"
	"github.com/five82/reencode/internal/scenedetect"
)

// Re-export preset types so callers don't need to import internal/config.
type Preset = config.Preset

const (
	PresetGrain = config.PresetGrain
	PresetClean = config.PresetClean
	PresetQuick = config.PresetQuick
)

// ParsePreset converts a preset string to a Preset value. Valid values are
// "grain", "clean", and "quick" (case-insensitive).
func ParsePreset(s string) (Preset, error) {
	return config.ParsePreset(s)
}

// ParseCRF parses a CRF flag value, accepting either a single value applied
// to all resolution tiers ("27") or a comma-separated SD,HD,UHD triple
// ("25,27,29").
func ParseCRF(s string) (sd, hd, uhd uint8, err error) {
	s = trimSpace(s)
	if s == "" {
		return 0, 0, 0, fmt.Errorf("crf value is empty")
	}

	parts := splitComma(s)
	switch len(parts) {
	case 1:
		v, err := parseCRFComponent(parts[0])
		if err != nil {
			return 0, 0, 0, err
		}
		return v, v, v, nil
	case 3:
		sdv, err := parseCRFComponent(parts[0])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("sd: %w", err)
		}
		hdv, err := parseCRFComponent(parts[1])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("hd: %w", err)
		}
		uhdv, err := parseCRFComponent(parts[2])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("uhd: %w", err)
		}
		return sdv, hdv, uhdv, nil
	default:
		return 0, 0, 0, fmt.Errorf("crf value must be a single number or three comma-separated numbers, got %q", s)
	}
}

func parseCRFComponent(s string) (uint8, error) {
	s = trimSpace(s)
	var v int
	n, err := fmt.Sscanf(s, "%d", &v)
	if err != nil || n != 1 {
		return 0, fmt.Errorf("invalid CRF value %q", s)
	}
	if fmt.Sprintf("%d", v) != s {
		return 0, fmt.Errorf("invalid CRF value %q", s)
	}
	if v < 0 || v > 63 {
		return 0, fmt.Errorf("CRF value %q out of range 0-63", s)
	}
	return uint8(v), nil
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

func splitComma(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			parts = append(parts, trimSpace(s[start:i]))
			start = i + 1
		}
	}
	parts = append(parts, trimSpace(s[start:]))
	return parts
}

// Encoder is the main entry point for video encoding.
type Encoder struct {
	config *config.Config
}

// Result contains the result of a single file encode.
type Result struct {
	OutputFile           string
	OriginalSize         uint64
	EncodedSize          uint64
	SizeReductionPercent float64
	ChosenWorkers        int
	Warnings             []string
}

// BatchResult contains the result of a batch encode.
type BatchResult struct {
	Results            []Result
	SuccessfulCount    int
	TotalFiles         int
	TotalSizeReduction float64
}

// Option configures the encoder.
type Option func(*config.Config)

// New creates a new Encoder with the given options.
func New(opts ...Option) (*Encoder, error) {
	cfg := config.NewConfig(".", ".", ".")

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Encoder{config: cfg}, nil
}

// WithPreset applies a bundled quality/speed preset.
func WithPreset(p Preset) Option {
	return func(c *config.Config) {
		c.ApplyPreset(p)
	}
}

// WithQualitySD sets the CRF quality for SD videos (<1920 width).
func WithQualitySD(crf uint8) Option {
	return func(c *config.Config) { c.CRFSD = crf }
}

// WithQualityHD sets the CRF quality for HD videos (>=1920 width).
func WithQualityHD(crf uint8) Option {
	return func(c *config.Config) { c.CRFHD = crf }
}

// WithQualityUHD sets the CRF quality for UHD videos (>=3840 width).
func WithQualityUHD(crf uint8) Option {
	return func(c *config.Config) { c.CRFUHD = crf }
}

// WithWorkers fixes the parallel encoder's worker count, skipping the
// Benchmarker stage entirely.
func WithWorkers(n int) Option {
	return func(c *config.Config) { c.Workers = n }
}

// WithResponsive enables responsive encoding (reserves CPU threads for the
// rest of the system instead of saturating every core).
func WithResponsive() Option {
	return func(c *config.Config) { c.ResponsiveEncoding = true }
}

// WithFilmGrain enables SVT-AV1 film grain synthesis with the given ISO
// strength (0-50; higher values add more synthetic grain).
func WithFilmGrain(strength uint8) Option {
	return func(c *config.Config) { c.SVTAV1FilmGrain = &strength }
}

// WithSceneAlgorithm selects the scene detector: "av_scene_change" (the
// default) or "none" for fixed-length chunking.
func WithSceneAlgorithm(algorithm string) Option {
	return func(c *config.Config) { c.SceneAlgorithm = algorithm }
}

// WithConcatMethod selects the concatenation backend: "mkvmerge" (the
// default) or "ffmpeg".
func WithConcatMethod(method string) Option {
	return func(c *config.Config) { c.ConcatMethod = method }
}

// FindVideos finds video files in a directory, sorted alphabetically.
func FindVideos(dir string) ([]string, error) {
	return discovery.FindVideoFiles(dir)
}

// Encode runs the full decode -> scene-detect -> [benchmark ->] parallel
// encode -> concat pipeline over a single input file, reporting progress
// through rep if non-nil.
func (e *Encoder) Encode(ctx context.Context, input, outputDir string, rep reporter.Reporter) (*Result, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	if err := util.EnsureDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	props, err := ffprobe.GetClipProperties(input)
	if err != nil {
		return nil, errors.NewIndexingError("probe input", err)
	}
	clip := framesource.ClipInfoFrom(props)

	outputPath := util.ResolveOutputPath(input, outputDir, "")
	scenesDir := filepath.Join(outputDir, ".reencode", util.GetFileStem(input), "scenes")
	scratchDir := filepath.Join(outputDir, ".reencode", util.GetFileStem(input), "bench")
	projectPath := filepath.Join(outputDir, ".reencode", util.GetFileStem(input)+".json")

	encoderCfg := e.config.ToEncoderConfig(clip.Width)
	p := project.New(
		project.Input{Path: input, Clip: clip},
		project.Output{Path: outputPath},
		encoderCfg,
		project.SavePath(projectPath),
	)
	p.Config = e.config.ToStageConfig(scenesDir, scratchDir)
	if e.config.Workers > 0 {
		p.Data.Benchmark.ChosenWorkers = e.config.Workers
	}

	orch := orchestrator.New(scenedetect.New(), benchmarker.New(), parallelencoder.New(), concat.New())
	adapter := reporter.NewStageEventAdapter(rep)

	events := make(chan stage.Event, 16)
	go adapter.Run(events)

	warnings, err := orch.Run(ctx, p, events)
	close(events)
	if err != nil {
		return nil, err
	}

	var warnMessages []string
	for _, w := range warnings {
		warnMessages = append(warnMessages, fmt.Sprintf("%s: %s", w.Stage, w.Message))
	}

	originalSize, _ := util.GetFileSize(input)
	encodedSize, _ := util.GetFileSize(outputPath)

	return &Result{
		OutputFile:           outputPath,
		OriginalSize:         originalSize,
		EncodedSize:          encodedSize,
		SizeReductionPercent: util.CalculateSizeReduction(originalSize, encodedSize),
		ChosenWorkers:        p.Data.Benchmark.ChosenWorkers,
		Warnings:             warnMessages,
	}, nil
}

// RunStages runs an arbitrary subset of the pipeline's stages (in the
// given order) against an already-built Project, such as a project
// reloaded from disk via internal/project.Load. It is the building block
// Resume and single-stage CLI commands (benchmark-only, concat-only) are
// built on; Encode itself always runs the full four-stage pipeline.
func RunStages(ctx context.Context, p *project.Project, rep reporter.Reporter, stages ...stage.Stage) ([]stage.Warning, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	orch := orchestrator.New(stages...)
	adapter := reporter.NewStageEventAdapter(rep)

	events := make(chan stage.Event, 16)
	go adapter.Run(events)

	warnings, err := orch.Run(ctx, p, events)
	close(events)
	return warnings, err
}

// AllStages returns the four pipeline stages in their canonical order,
// for use with RunStages when resuming a full run from a saved Project.
func AllStages() []stage.Stage {
	return []stage.Stage{scenedetect.New(), benchmarker.New(), parallelencoder.New(), concat.New()}
}

// BenchmarkOnly returns just the Benchmarker stage, for re-running worker
// selection against a saved Project without repeating scene detection.
func BenchmarkOnly() []stage.Stage {
	return []stage.Stage{benchmarker.New()}
}

// ConcatOnly returns just the Concatenator stage, for re-running the final
// mux against a saved Project whose scenes have already been encoded.
func ConcatOnly() []stage.Stage {
	return []stage.Stage{concat.New()}
}

// LoadProject loads a previously saved Project and rebinds its save
// callback to persist back to the same path, so subsequent stage runs
// keep checkpointing.
func LoadProject(path string) (*project.Project, error) {
	p, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	p.SetSaveFunc(project.SavePath(path))
	return p, nil
}

// EncodeBatch encodes multiple video files sequentially into outputDir.
func (e *Encoder) EncodeBatch(ctx context.Context, inputs []string, outputDir string, rep reporter.Reporter) (*BatchResult, error) {
	batch := &BatchResult{TotalFiles: len(inputs)}

	var totalInputSize, totalOutputSize uint64
	for _, input := range inputs {
		result, err := e.Encode(ctx, input, outputDir, rep)
		if err != nil {
			return batch, fmt.Errorf("encode %s: %w", input, err)
		}
		batch.Results = append(batch.Results, *result)
		batch.SuccessfulCount++
		totalInputSize += result.OriginalSize
		totalOutputSize += result.EncodedSize
	}

	batch.TotalSizeReduction = util.CalculateSizeReduction(totalInputSize, totalOutputSize)
	return batch, nil
}
