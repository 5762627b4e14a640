package benchmarker

import (
	"testing"

	"github.com/five82/reencode/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenesOfLen(n int, length uint64) project.Scenes {
	var scenes project.Scenes
	var start uint64
	for i := 0; i < n; i++ {
		scenes = append(scenes, project.Scene{StartFrame: start, EndFrame: start + length})
		start += length
	}
	return scenes
}

func TestSelectProbeScenesPrefersLongScenes(t *testing.T) {
	scenes := scenesOfLen(10, 30)
	picked := SelectProbeScenes(scenes)
	require.Len(t, picked, minProbeScenes)
	for _, sc := range picked {
		assert.GreaterOrEqual(t, sc.Len(), uint64(preferredProbeFrames))
	}
}

func TestSelectProbeScenesSynthesizesWhenTooFew(t *testing.T) {
	scenes := scenesOfLen(2, 100)
	picked := SelectProbeScenes(scenes)
	assert.GreaterOrEqual(t, len(picked), 2)
	for _, sc := range picked {
		assert.Greater(t, sc.Len(), uint64(0))
	}
}

func TestThresholdNotMetErrorMessage(t *testing.T) {
	err := &ThresholdNotMetError{Workers: 5}
	assert.Contains(t, err.Error(), "5")
}

func TestLongestScene(t *testing.T) {
	scenes := project.Scenes{
		{StartFrame: 0, EndFrame: 10},
		{StartFrame: 10, EndFrame: 100},
		{StartFrame: 100, EndFrame: 120},
	}
	longest := longestScene(scenes)
	assert.Equal(t, uint64(10), longest.StartFrame)
	assert.Equal(t, uint64(100), longest.EndFrame)
}
