// Package config provides CLI-level defaults, presets, and validation for
// reencode. It owns only flag defaults and sanity checks; the actual
// per-family encoder parameters live in encoderdriver.EncoderConfig and
// per-stage pipeline parameters live in project.StageConfig, both built
// from a validated Config via ToEncoderConfig/ToStageConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/five82/reencode/internal/encoderdriver"
	"github.com/five82/reencode/internal/project"
)

// Default constants
const (
	// DefaultCRFSD is the default CRF quality setting for SD content (<1920 width).
	DefaultCRFSD uint8 = 25

	// DefaultCRFHD is the default CRF quality setting for HD content (>=1920, <3840 width).
	DefaultCRFHD uint8 = 27

	// DefaultCRFUHD is the default CRF quality setting for UHD content (>=3840 width).
	DefaultCRFUHD uint8 = 29

	// HDWidthThreshold is the minimum width for HD resolution.
	HDWidthThreshold uint32 = 1920

	// UHDWidthThreshold is the minimum width for UHD resolution.
	UHDWidthThreshold uint32 = 3840

	// DefaultSVTAV1Preset is the SVT-AV1 preset (0-13, lower is slower/better).
	DefaultSVTAV1Preset uint8 = 6

	// DefaultSVTAV1Tune is the SVT-AV1 tune parameter.
	DefaultSVTAV1Tune uint8 = 0

	// DefaultSVTAV1ACBias is the SVT-AV1 ac-bias parameter.
	DefaultSVTAV1ACBias float32 = 0.1

	// DefaultSceneMinLen is the minimum AVSceneChange scene length, in frames.
	DefaultSceneMinLen uint64 = 24

	// DefaultSceneMaxLen is the maximum scene length, in frames, for both
	// detection algorithms.
	DefaultSceneMaxLen uint64 = 300

	// DefaultBenchmarkThresholdPercent is the minimum marginal FPS gain the
	// Benchmarker requires to keep increasing worker count.
	DefaultBenchmarkThresholdPercent float64 = 5.0

	// DefaultMaxChunkFiles is the mkvmerge per-group input file cap.
	DefaultMaxChunkFiles int = 100
)

// Preset names a bundled quality/speed tradeoff.
type Preset string

const (
	PresetGrain Preset = "grain"
	PresetClean Preset = "clean"
	PresetQuick Preset = "quick"
)

// ParsePreset parses a case-insensitive preset name.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(s) {
	case string(PresetGrain):
		return PresetGrain, nil
	case string(PresetClean):
		return PresetClean, nil
	case string(PresetQuick):
		return PresetQuick, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPreset, s)
	}
}

// PresetValues is the bundle of settings a Preset applies.
type PresetValues struct {
	CRFSD        uint8
	CRFHD        uint8
	CRFUHD       uint8
	SVTAV1Preset uint8
}

// GetPresetValues returns the settings bundle for a preset. Grain favors
// quality (lower CRF, slower preset) for grainy sources where film grain
// synthesis matters most; Quick favors speed; Clean sits in between.
func GetPresetValues(p Preset) PresetValues {
	switch p {
	case PresetGrain:
		return PresetValues{CRFSD: 22, CRFHD: 24, CRFUHD: 26, SVTAV1Preset: 4}
	case PresetQuick:
		return PresetValues{CRFSD: 28, CRFHD: 30, CRFUHD: 32, SVTAV1Preset: 8}
	default: // PresetClean
		return PresetValues{CRFSD: DefaultCRFSD, CRFHD: DefaultCRFHD, CRFUHD: DefaultCRFUHD, SVTAV1Preset: DefaultSVTAV1Preset}
	}
}

// Config holds CLI-level defaults for a reencode run.
type Config struct {
	// Input/output paths
	InputDir  string
	OutputDir string
	LogDir    string
	TempDir   string // Optional, defaults to OutputDir

	// Bundled preset, if the caller applied one; nil means the individual
	// fields below reflect either their defaults or explicit overrides.
	SelectedPreset *Preset

	// SVT-AV1 parameters (the default encoder family)
	SVTAV1Preset              uint8
	SVTAV1Tune                uint8
	SVTAV1ACBias              float32
	SVTAV1EnableVarianceBoost bool

	// Optional film grain synthesis
	SVTAV1FilmGrain        *uint8
	SVTAV1FilmGrainDenoise *bool

	// Quality settings (CRF value 0-63) by resolution
	CRFSD  uint8
	CRFHD  uint8
	CRFUHD uint8

	// Scene detection
	SceneAlgorithm string // "av_scene_change" | "none"
	SceneMinLen    uint64
	SceneMaxLen    uint64

	// Parallel encoding
	Workers            int // 0 means "run the Benchmarker to choose"
	ResponsiveEncoding bool

	// Benchmarking
	BenchmarkThresholdPercent float64

	// Concatenation
	ConcatMethod  string // "mkvmerge" | "ffmpeg"
	SourceFile    string
	MaxChunkFiles int

	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig(inputDir, outputDir, logDir string) *Config {
	return &Config{
		InputDir:                  inputDir,
		OutputDir:                 outputDir,
		LogDir:                    logDir,
		SVTAV1Preset:              DefaultSVTAV1Preset,
		SVTAV1Tune:                DefaultSVTAV1Tune,
		SVTAV1ACBias:              DefaultSVTAV1ACBias,
		CRFSD:                     DefaultCRFSD,
		CRFHD:                     DefaultCRFHD,
		CRFUHD:                    DefaultCRFUHD,
		SceneAlgorithm:            "av_scene_change",
		SceneMinLen:               DefaultSceneMinLen,
		SceneMaxLen:               DefaultSceneMaxLen,
		BenchmarkThresholdPercent: DefaultBenchmarkThresholdPercent,
		ConcatMethod:              "mkvmerge",
		MaxChunkFiles:             DefaultMaxChunkFiles,
	}
}

// ApplyPreset overwrites the CRF-by-resolution and SVT-AV1 preset fields
// with the named preset's bundle and records which preset was applied.
func (c *Config) ApplyPreset(p Preset) {
	values := GetPresetValues(p)
	c.CRFSD = values.CRFSD
	c.CRFHD = values.CRFHD
	c.CRFUHD = values.CRFUHD
	c.SVTAV1Preset = values.SVTAV1Preset
	c.SelectedPreset = &p
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SVTAV1Preset > 13 {
		return fmt.Errorf("%w: svt_av1_preset must be 0-13, got %d", ErrInvalidSVTPreset, c.SVTAV1Preset)
	}

	if c.CRFSD > 63 {
		return fmt.Errorf("%w: crf-sd must be 0-63, got %d", ErrInvalidCRF, c.CRFSD)
	}
	if c.CRFHD > 63 {
		return fmt.Errorf("%w: crf-hd must be 0-63, got %d", ErrInvalidCRF, c.CRFHD)
	}
	if c.CRFUHD > 63 {
		return fmt.Errorf("%w: crf-uhd must be 0-63, got %d", ErrInvalidCRF, c.CRFUHD)
	}

	if c.SVTAV1FilmGrain == nil && c.SVTAV1FilmGrainDenoise != nil {
		return fmt.Errorf("%w: svt_av1_film_grain_denoise set without svt_av1_film_grain", ErrInvalidFilmGrain)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative (0 = auto-benchmark), got %d", c.Workers)
	}

	return nil
}

// GetTempDir returns the temp directory, falling back to OutputDir if not set.
func (c *Config) GetTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return c.OutputDir
}

// CRFForWidth returns the appropriate CRF value based on video width.
func (c *Config) CRFForWidth(width uint32) uint8 {
	if width >= UHDWidthThreshold {
		return c.CRFUHD
	}
	if width >= HDWidthThreshold {
		return c.CRFHD
	}
	return c.CRFSD
}

// ToEncoderConfig builds the default SVT-AV1 encoder configuration for a
// clip of the given width, applying the CRF-by-resolution table and the
// configured SVT-AV1 parameters. Callers needing a different family
// construct an encoderdriver.EncoderConfig directly; Config only seeds
// the common SVT-AV1 default path the CLI exposes.
func (c *Config) ToEncoderConfig(width uint32) encoderdriver.EncoderConfig {
	params := map[string]string{
		"--crf":    fmt.Sprintf("%d", c.CRFForWidth(width)),
		"--preset": fmt.Sprintf("%d", c.SVTAV1Preset),
		"--tune":   fmt.Sprintf("%d", c.SVTAV1Tune),
	}
	var grain *encoderdriver.GrainParams
	if c.SVTAV1FilmGrain != nil {
		grain = &encoderdriver.GrainParams{ISO: int(*c.SVTAV1FilmGrain)}
	}
	return encoderdriver.EncoderConfig{
		Family: encoderdriver.SVTAV1,
		Params: params,
		Pass:   encoderdriver.AllPasses(1),
		Grain:  grain,
	}
}

// ToStageConfig builds the per-stage configuration a Project is seeded
// with, given the resolved scenes/scratch directories an orchestrator run
// needs.
func (c *Config) ToStageConfig(scenesDir, scratchDir string) project.StageConfig {
	return project.StageConfig{
		SceneDetect: project.SceneDetectConfig{
			Algorithm: c.SceneAlgorithm,
			MinLen:    c.SceneMinLen,
			MaxLen:    c.SceneMaxLen,
		},
		ParallelEncode: project.ParallelEncodeConfig{
			Workers:   c.Workers,
			ScenesDir: scenesDir,
		},
		Benchmark: project.BenchmarkConfig{
			ThresholdPercent: c.BenchmarkThresholdPercent,
			ScratchDir:       scratchDir,
		},
		Concat: project.ConcatConfig{
			Method:        c.ConcatMethod,
			SourceFile:    c.SourceFile,
			MaxChunkFiles: c.MaxChunkFiles,
		},
	}
}
