package scenedetect

import (
	"testing"

	"github.com/five82/reencode/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkDurationForResolution(t *testing.T) {
	assert.Equal(t, 45.0, ChunkDurationForResolution(3840, 2160))
	assert.Equal(t, 30.0, ChunkDurationForResolution(1920, 1080))
	assert.Equal(t, 20.0, ChunkDurationForResolution(1280, 720))
}

func TestFixedChunks(t *testing.T) {
	starts := FixedChunks(300, 30, 1, 2.0) // 60 frames per chunk
	assert.Equal(t, []uint64{0, 60, 120, 180, 240}, starts)
}

func TestFixedChunksDegenerate(t *testing.T) {
	assert.Equal(t, []uint64{0}, FixedChunks(0, 30, 1, 2.0))
	assert.Equal(t, []uint64{0}, FixedChunks(100, 30, 0, 2.0))
}

func TestScenesFromChunkStartsCoversClip(t *testing.T) {
	scenes := ScenesFromChunkStarts([]uint64{0, 60, 120}, 150, 0)
	require.Len(t, scenes, 3)
	assert.Equal(t, uint64(0), scenes[0].StartFrame)
	assert.Equal(t, uint64(60), scenes[0].EndFrame)
	assert.Equal(t, uint64(150), scenes[2].EndFrame)
	assert.NoError(t, scenes.Validate(150))
}

func TestSplitByMaxLen(t *testing.T) {
	scenes := splitByMaxLen(0, 100, 30)
	require.Len(t, scenes, 4)
	assert.Equal(t, uint64(0), scenes[0].StartFrame)
	assert.Equal(t, uint64(30), scenes[0].EndFrame)
	assert.Equal(t, uint64(90), scenes[3].StartFrame)
	assert.Equal(t, uint64(100), scenes[3].EndFrame)
}

func TestDetectNone(t *testing.T) {
	clip := project.ClipInfo{Width: 1920, Height: 1080, FrameRate: project.Rational{Num: 30, Den: 1}, FrameCount: 900}
	scenes := DetectNone(clip, 0)
	require.NotEmpty(t, scenes)
	assert.Equal(t, uint64(0), scenes[0].StartFrame)
	assert.Equal(t, uint64(900), scenes[len(scenes)-1].EndFrame)
	assert.NoError(t, scenes.Validate(900))
}
