// Package project holds the shared mutable pipeline state threaded through
// every stage: the input clip, the encoder configuration, the detected
// scenes, and the per-stage configuration and accumulators.
//
// Project is owned by the orchestrator for the lifetime of a run; each
// stage receives it by pointer during validate/initialize/execute and must
// preserve its invariants (see Scenes.Validate).
package project

import (
	"github.com/five82/reencode/internal/encoderdriver"
)

// Rational is a frame rate (or similar ratio) expressed as a fraction to
// avoid floating point drift across persistence round-trips.
type Rational struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// ClipInfo describes a decoded clip's static properties. Computed once by
// a FrameSource and cached for the life of the Project.
type ClipInfo struct {
	Width                   uint32   `json:"width"`
	Height                  uint32   `json:"height"`
	FrameRate               Rational `json:"frame_rate"`
	FrameCount              uint64   `json:"frame_count"`
	BitDepth                uint8    `json:"bit_depth"`
	ChromaSubsampling       string   `json:"chroma_subsampling"` // mono|420|422|444
	TransferCharacteristics string   `json:"transfer_characteristics"`
}

// Input is the frame-source handle plus its cached clip metadata.
type Input struct {
	Path string   `json:"path"`
	Clip ClipInfo `json:"clip_info"`
}

// Output describes where the concatenated result is written.
type Output struct {
	Path          string            `json:"path"`
	ContainerTags map[string]string `json:"container_tags,omitempty"`
}

// SceneData holds per-scene mutable accumulators written by the Parallel
// Encoder stage and optionally by the Scene Detector.
type SceneData struct {
	CutScore         *float64 `json:"cut_score,omitempty"`
	EncodedBytes     uint64   `json:"encoded_bytes,omitempty"`
	EncodeStartMillis int64   `json:"encode_start_millis,omitempty"`
	EncodeEndMillis   int64   `json:"encode_end_millis,omitempty"`
}

// Scene is a half-open frame interval treated as an independent encode
// unit. EncoderOverride, when non-nil, replaces Project.Encoder for this
// scene only.
type Scene struct {
	StartFrame      uint64                     `json:"start_frame"`
	EndFrame        uint64                     `json:"end_frame"`
	EncoderOverride *encoderdriver.EncoderConfig `json:"encoder_override,omitempty"`
	Data            SceneData                  `json:"per_scene_data"`
	Subscenes       []Scene                    `json:"optional_subscenes,omitempty"`
}

// Len returns the number of frames in the scene.
func (s Scene) Len() uint64 {
	return s.EndFrame - s.StartFrame
}

// Scenes is the ordered, contiguous sequence of Scene records belonging to
// a Project.
type Scenes []Scene

// Validate checks the §3 scene invariants: non-overlapping, contiguous,
// sorted by start_frame, covering [0, frameCount) exactly. An empty slice
// is considered valid (detection not yet started).
func (s Scenes) Validate(frameCount uint64) error {
	if len(s) == 0 {
		return nil
	}
	if s[0].StartFrame != 0 {
		return errScenesNotZeroStart
	}
	for i, scene := range s {
		if scene.StartFrame >= scene.EndFrame {
			return errScenesEmptyInterval
		}
		if i > 0 && scene.StartFrame != s[i-1].EndFrame {
			return errScenesNotContiguous
		}
	}
	if s[len(s)-1].EndFrame != frameCount {
		return errScenesDoNotCoverClip
	}
	return nil
}

// Covers reports whether the scene list is non-empty and its last scene
// ends at frameCount, used by stages to detect a completed, resumable prior
// run. It does not check the earlier scenes for gaps or overlaps.
func (s Scenes) Covers(frameCount uint64) bool {
	return len(s) > 0 && s[len(s)-1].EndFrame == frameCount
}

// LastEnd returns the end_frame of the last scene, or 0 if there are none.
func (s Scenes) LastEnd() uint64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].EndFrame
}

// SaveFunc persists a Project snapshot. Implementations must be idempotent
// and must write-then-rename so partial files are never observed.
type SaveFunc func(*Project) error

// Project is the shared mutable state consumed and mutated by every stage.
type Project struct {
	Input    Input                        `json:"input"`
	Output   Output                       `json:"output"`
	Encoder  encoderdriver.EncoderConfig  `json:"encoder"`
	Scenes   Scenes                       `json:"scenes"`
	Config   StageConfig                  `json:"per_stage_config"`
	Data     StageData                    `json:"per_stage_data"`

	save SaveFunc
}

// New constructs a Project with the given save callback. save may be nil,
// in which case Save is a no-op (useful for tests and dry runs).
func New(input Input, output Output, encoder encoderdriver.EncoderConfig, save SaveFunc) *Project {
	return &Project{
		Input:   input,
		Output:  output,
		Encoder: encoder,
		save:    save,
	}
}

// SetSaveFunc rebinds the save callback, used after Load to restore a
// caller-specific persistence target.
func (p *Project) SetSaveFunc(fn SaveFunc) {
	p.save = fn
}

// Save invokes the bound save callback, if any.
func (p *Project) Save() error {
	if p.save == nil {
		return nil
	}
	return p.save(p)
}

// AppendScene appends a scene and persists the project.
func (p *Project) AppendScene(s Scene) error {
	p.Scenes = append(p.Scenes, s)
	return p.Save()
}

// EncoderFor resolves the effective encoder configuration for a scene,
// honoring EncoderOverride when set.
func (p *Project) EncoderFor(sceneIndex int) encoderdriver.EncoderConfig {
	if sceneIndex >= 0 && sceneIndex < len(p.Scenes) && p.Scenes[sceneIndex].EncoderOverride != nil {
		return *p.Scenes[sceneIndex].EncoderOverride
	}
	return p.Encoder
}
