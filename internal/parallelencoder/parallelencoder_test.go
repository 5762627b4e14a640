package parallelencoder

import (
	"testing"
	"time"

	"github.com/five82/reencode/internal/encoderdriver"
	"github.com/five82/reencode/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClip() project.ClipInfo {
	return project.ClipInfo{
		Width:      1920,
		Height:     1080,
		FrameRate:  project.Rational{Num: 24000, Den: 1001},
		FrameCount: 1000,
		BitDepth:   8,
	}
}

func TestUnboundedChanPreservesOrder(t *testing.T) {
	u := newUnboundedChan()
	go func() {
		for i := 0; i < 100; i++ {
			u.Send([]byte{byte(i)})
		}
		u.CloseSend()
	}()

	var got []byte
	for chunk := range u.Receive() {
		got = append(got, chunk[0])
	}
	require.Len(t, got, 100)
	for i := 0; i < 100; i++ {
		assert.Equal(t, byte(i), got[i])
	}
}

func TestUnboundedChanDoesNotBlockFastProducer(t *testing.T) {
	u := newUnboundedChan()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			u.Send([]byte{byte(i)})
		}
		u.CloseSend()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked despite no consumer draining")
	}

	n := 0
	for range u.Receive() {
		n++
	}
	assert.Equal(t, 1000, n)
}

func TestTempPathFor(t *testing.T) {
	assert.Equal(t, "/scenes/00001.temp.ivf", tempPathFor("/scenes/00001.ivf"))
}

func TestOutputPathFor(t *testing.T) {
	assert.Equal(t, "/scenes/00003.ivf", OutputPathFor("/scenes", 3, encoderdriver.SVTAV1))
	assert.Equal(t, "/scenes/00012.mkv", OutputPathFor("/scenes", 12, encoderdriver.FFmpeg))
}

func TestSceneArtifactExists(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/00000.ivf"
	assert.False(t, SceneArtifactExists(path))
}

func TestClipParamsFromClip(t *testing.T) {
	cp := clipParamsFromClip(testClip())
	assert.Equal(t, uint32(1920), cp.Width)
	assert.Equal(t, int64(24000), cp.FPSNum)
}
