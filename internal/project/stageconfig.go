package project

// SceneDetectConfig configures the Scene Detector stage. Algorithm selects
// between the two supported detectors; MaxLen is used by both (as the
// chunk length for None, and as an upper bound on detected scene length for
// AVSceneChange); MinLen and Method apply only to AVSceneChange.
type SceneDetectConfig struct {
	Algorithm string `json:"algorithm"` // "av_scene_change" | "none"
	MinLen    uint64 `json:"min_len"`
	MaxLen    uint64 `json:"max_len"`
	Method    string `json:"method,omitempty"`
}

// ParallelEncodeConfig configures the Parallel Encoder stage.
type ParallelEncodeConfig struct {
	Workers     int    `json:"workers"`
	ScenesDir   string `json:"scenes_dir"`
}

// BenchmarkConfig configures the Benchmarker stage.
type BenchmarkConfig struct {
	ThresholdPercent float64 `json:"threshold_percent"`
	ScratchDir       string  `json:"scratch_dir"`
}

// ConcatConfig configures the Scene Concatenator stage.
type ConcatConfig struct {
	Method           string `json:"method"` // "mkvmerge" | "ffmpeg"
	SourceFile       string `json:"source_file,omitempty"`
	MaxChunkFiles    int    `json:"max_chunk_files"`
}

// StageConfig is the product of per-stage configuration records threaded
// through Project. Each stage reads only its own field; no stage is
// expected to read another's.
type StageConfig struct {
	SceneDetect    SceneDetectConfig    `json:"scene_detect"`
	ParallelEncode ParallelEncodeConfig `json:"parallel_encode"`
	Benchmark      BenchmarkConfig      `json:"benchmark"`
	Concat         ConcatConfig         `json:"concat"`
}

// BenchmarkData holds the Benchmarker stage's global (non-per-scene)
// accumulator: the worker count it settled on.
type BenchmarkData struct {
	ChosenWorkers int `json:"chosen_workers,omitempty"`
}

// StageData is the product of per-stage mutable accumulators that live
// alongside Scenes rather than inside an individual Scene.
type StageData struct {
	Benchmark BenchmarkData `json:"benchmark,omitempty"`
}
