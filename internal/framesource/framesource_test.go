package framesource

import (
	"testing"

	"github.com/five82/reencode/internal/ffprobe"
	"github.com/five82/reencode/internal/project"
	"github.com/stretchr/testify/assert"
)

func TestYUV4MPEGHeader8bit(t *testing.T) {
	c := project.ClipInfo{Width: 1920, Height: 1080, FrameRate: project.Rational{Num: 24000, Den: 1001}, ChromaSubsampling: "420", BitDepth: 8}
	h := yuv4mpegHeader(c, nil)
	assert.Equal(t, "YUV4MPEG2 C420 W1920 H1080 F24000:1001 Ip A0:0\n", h)
}

func TestYUV4MPEGHeader10bitWithLength(t *testing.T) {
	c := project.ClipInfo{Width: 3840, Height: 2160, FrameRate: project.Rational{Num: 24, Den: 1}, ChromaSubsampling: "420", BitDepth: 10}
	n := uint64(14400)
	h := yuv4mpegHeader(c, &n)
	assert.Equal(t, "YUV4MPEG2 C420p10 W3840 H2160 F24:1 Ip A0:0 XLENGTH 14400\n", h)
}

func TestParseFrameCount(t *testing.T) {
	n, ok := ParseFrameCount("YUV4MPEG2 C420 W1920 H1080 F24:1 Ip A0:0 XLENGTH 500\n")
	assert.True(t, ok)
	assert.Equal(t, uint64(500), n)

	_, ok = ParseFrameCount("YUV4MPEG2 C420 W1920 H1080 F24:1 Ip A0:0\n")
	assert.False(t, ok)
}

func TestClipInfoFromDefaultsBitDepth(t *testing.T) {
	props := &ffprobe.ClipProperties{
		VideoProperties: ffprobe.VideoProperties{Width: 1920, Height: 1080},
		FrameRateNum:    24,
		FrameRateDen:    1,
		FrameCount:      100,
		ChromaSubsampling: "420",
	}
	ci := ClipInfoFrom(props)
	assert.Equal(t, uint8(8), ci.BitDepth)
	assert.Equal(t, uint32(1920), ci.Width)
}
