// Package scenedetect implements the two scene-boundary algorithms the
// Scene Detector stage supports: AVSceneChange, a streaming content-aware
// detector driven by an external helper binary, and None, fixed-length
// chunking of max_len frames (or, when max_len is 0, of a
// resolution-dependent duration at the clip's frame rate).
package scenedetect

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/five82/reencode/internal/project"
)

const avSceneChangeBinary = "av-scene-change"

// Method selects which algorithm a SceneDetectConfig requests.
const (
	MethodAVSceneChange = "av_scene_change"
	MethodNone          = "none"
)

// ProgressCallback reports streaming detector progress as
// (frames_analyzed, keyframes_seen).
type ProgressCallback func(framesAnalyzed, keyframesSeen uint64)

// FixedChunks returns chunk-start frame numbers at a fixed duration,
// clamped to at least one frame per chunk. totalFrames<=0 or fpsDen==0
// yields a single chunk starting at 0.
func FixedChunks(totalFrames uint64, fpsNum, fpsDen uint32, chunkDurationSecs float64) []uint64 {
	if fpsDen == 0 || totalFrames == 0 {
		return []uint64{0}
	}
	fps := float64(fpsNum) / float64(fpsDen)
	framesPerChunk := uint64(fps * chunkDurationSecs)
	if framesPerChunk < 1 {
		framesPerChunk = 1
	}
	var starts []uint64
	for f := uint64(0); f < totalFrames; f += framesPerChunk {
		starts = append(starts, f)
	}
	if len(starts) == 0 {
		starts = []uint64{0}
	}
	return starts
}

// ChunkDurationForResolution mirrors the teacher's duration-by-resolution
// table: longer chunks for higher resolutions, where encoder warmup cost
// amortizes better over more frames.
func ChunkDurationForResolution(width, height uint32) float64 {
	switch {
	case width > 2560 || height > 1440:
		return 45.0
	case width >= 1920 || height >= 1080:
		return 30.0
	default:
		return 20.0
	}
}

// ScenesFromChunkStarts converts a sorted, deduplicated slice of chunk
// start frames into contiguous Scene records covering [0, frameCount).
func ScenesFromChunkStarts(starts []uint64, frameCount uint64, maxLen uint64) project.Scenes {
	starts = dedupe(starts)
	var scenes project.Scenes
	for i, start := range starts {
		end := frameCount
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		scenes = append(scenes, splitByMaxLen(start, end, maxLen)...)
	}
	return scenes
}

func splitByMaxLen(start, end, maxLen uint64) project.Scenes {
	if maxLen == 0 || end-start <= maxLen {
		return project.Scenes{{StartFrame: start, EndFrame: end}}
	}
	var scenes project.Scenes
	for s := start; s < end; s += maxLen {
		e := s + maxLen
		if e > end {
			e = end
		}
		scenes = append(scenes, project.Scene{StartFrame: s, EndFrame: e})
	}
	return scenes
}

func dedupe(sorted []uint64) []uint64 {
	if len(sorted) <= 1 {
		return sorted
	}
	result := make([]uint64, 0, len(sorted))
	result = append(result, sorted[0])
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			result = append(result, sorted[i])
		}
	}
	return result
}

// DetectNone runs the None algorithm: fixed-length chunking over the
// entire clip in one shot, maxLen frames per chunk (the last may be
// shorter). With maxLen 0 the chunk length comes from
// ChunkDurationForResolution instead. It never consults an existing partial
// result; callers resume None runs purely by checking Scenes.Covers.
func DetectNone(clip project.ClipInfo, maxLen uint64) project.Scenes {
	if maxLen > 0 {
		return splitByMaxLen(0, clip.FrameCount, maxLen)
	}
	duration := ChunkDurationForResolution(clip.Width, clip.Height)
	starts := FixedChunks(clip.FrameCount, uint32(clip.FrameRate.Num), uint32(clip.FrameRate.Den), duration)
	return ScenesFromChunkStarts(starts, clip.FrameCount, maxLen)
}

// IsAVSceneChangeAvailable reports whether the streaming detector's helper
// binary is on PATH.
func IsAVSceneChangeAvailable() bool {
	_, err := exec.LookPath(avSceneChangeBinary)
	return err == nil
}

// DetectAVSceneChange runs the streaming content-aware detector starting
// at resumeFrom (0 for a fresh run), reporting frames_analyzed and
// keyframes_seen via progress, and appending each newly discovered scene
// via onScene as soon as it is known (so a caller can checkpoint-save
// incrementally instead of only at the end). minLen/maxLen bound detected
// scene length.
//
// The helper binary emits one cut frame number per stdout line as it
// scans; DetectAVSceneChange turns the cut stream into Scene records,
// splitting any scene longer than maxLen, then appends a final scene from
// the last cut to inputFrameCount. minLen is only passed on to the helper
// binary; scenes are not merged here.
func DetectAVSceneChange(ctx context.Context, videoPath string, resumeFrom, inputFrameCount, minLen, maxLen uint64, onScene func(project.Scene) error, progress ProgressCallback) error {
	args := []string{
		"--input", videoPath,
		"--start-frame", strconv.FormatUint(resumeFrom, 10),
		"--min-scene-len", strconv.FormatUint(minLen, 10),
	}
	if maxLen > 0 {
		args = append(args, "--max-scene-len", strconv.FormatUint(maxLen, 10))
	}
	cmd := exec.CommandContext(ctx, avSceneChangeBinary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("scenedetect: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("scenedetect: start %s: %w", avSceneChangeBinary, err)
	}

	lastEnd := resumeFrom
	var framesAnalyzed, keyframesSeen uint64
	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		cut, perr := strconv.ParseUint(sc.Text(), 10, 64)
		if perr != nil {
			continue
		}
		framesAnalyzed = cut
		keyframesSeen++
		if progress != nil {
			progress(framesAnalyzed, keyframesSeen)
		}
		if cut <= lastEnd {
			continue
		}
		scene := project.Scene{StartFrame: lastEnd, EndFrame: cut}
		lastEnd = cut
		for _, s := range splitByMaxLen(scene.StartFrame, scene.EndFrame, maxLen) {
			if err := onScene(s); err != nil {
				_ = cmd.Process.Kill()
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scenedetect: read scan output: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("scenedetect: %s failed: %w", avSceneChangeBinary, err)
	}

	if lastEnd < inputFrameCount {
		for _, s := range splitByMaxLen(lastEnd, inputFrameCount, maxLen) {
			if err := onScene(s); err != nil {
				return err
			}
		}
	}
	return nil
}
