// Package framesource decodes an input clip to YUV4MPEG2, the wire format
// every encoder driver's stdin expects. It replaces a cgo frame-accurate
// decoder with ffmpeg subprocesses: clip indexing goes through ffprobe,
// and a scene's frame range is extracted with ffmpeg's "select" filter
// piped straight to stdout as yuv4mpegpipe, avoiding cgo entirely.
package framesource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/five82/reencode/internal/ffprobe"
	"github.com/five82/reencode/internal/project"
)

// ClipInfoFrom builds a project.ClipInfo from ffprobe output.
func ClipInfoFrom(props *ffprobe.ClipProperties) project.ClipInfo {
	bitDepth := uint8(8)
	if props.HDRInfo.BitDepth != nil {
		bitDepth = *props.HDRInfo.BitDepth
	}
	return project.ClipInfo{
		Width:                   props.Width,
		Height:                  props.Height,
		FrameRate:               project.Rational{Num: props.FrameRateNum, Den: props.FrameRateDen},
		FrameCount:              props.FrameCount,
		BitDepth:                bitDepth,
		ChromaSubsampling:       props.ChromaSubsampling,
		TransferCharacteristics: props.HDRInfo.TransferCharacteristics,
	}
}

// FrameSource exposes a clip's metadata and lets callers stream an
// arbitrary [start, end) frame range as YUV4MPEG2 bytes. Implementations
// are expected to be called once per requested range; callers needing the
// same range twice should re-invoke Frames.
type FrameSource interface {
	ClipInfo() project.ClipInfo
	Header() string
	// Frames streams frames [start, end) as raw YUV4MPEG2 bytes (header
	// followed by "FRAME\n"-prefixed frame payloads) on the returned
	// channel, closing it when done or when ctx is cancelled. A non-nil
	// error is returned only for a failure to start the decode.
	Frames(ctx context.Context, start, end uint64) (<-chan []byte, error)
}

// FFmpegSource is a FrameSource backed by the system ffmpeg binary.
type FFmpegSource struct {
	path string
	clip project.ClipInfo
}

// NewFFmpegSource probes path with ffprobe and returns a FrameSource ready
// to decode it.
func NewFFmpegSource(path string) (*FFmpegSource, error) {
	props, err := ffprobe.GetClipProperties(path)
	if err != nil {
		return nil, fmt.Errorf("framesource: probe failed: %w", err)
	}
	return &FFmpegSource{path: path, clip: ClipInfoFrom(props)}, nil
}

func (f *FFmpegSource) ClipInfo() project.ClipInfo {
	return f.clip
}

// Header returns the YUV4MPEG2 stream header for this clip, without an
// "XLENGTH" tag.
func (f *FFmpegSource) Header() string {
	return yuv4mpegHeader(f.clip, nil)
}

// yuv4mpegHeader builds a YUV4MPEG2 stream header. xlength, when non-nil,
// is emitted as the "XLENGTH" extension tag some consumers use to learn the
// frame count up front.
func yuv4mpegHeader(c project.ClipInfo, xlength *uint64) string {
	chroma := "420"
	if c.ChromaSubsampling != "" {
		chroma = c.ChromaSubsampling
	}
	cTag := "C" + chroma
	if c.BitDepth > 8 {
		cTag += fmt.Sprintf("p%d", c.BitDepth)
	}
	h := fmt.Sprintf("YUV4MPEG2 %s W%d H%d F%d:%d Ip A0:0", cTag, c.Width, c.Height, c.FrameRate.Num, c.FrameRate.Den)
	if xlength != nil {
		h += fmt.Sprintf(" XLENGTH %d", *xlength)
	}
	return h + "\n"
}

// Frames decodes frames [start, end) via an ffmpeg "select" filter and
// streams the resulting yuv4mpegpipe bytes on the returned channel in
// chunks as they're read from the subprocess's stdout.
func (f *FFmpegSource) Frames(ctx context.Context, start, end uint64) (<-chan []byte, error) {
	if end <= start {
		return nil, fmt.Errorf("framesource: empty range [%d,%d)", start, end)
	}
	selectExpr := fmt.Sprintf("select='between(n\\,%d\\,%d)',setpts=PTS-STARTPTS", start, end-1)
	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-i", f.path,
		"-vf", selectExpr,
		"-vsync", "0",
		"-f", "yuv4mpegpipe", "-strict", "-1",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("framesource: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("framesource: start ffmpeg: %w", err)
	}

	out := make(chan []byte, 4)
	go func() {
		defer close(out)
		defer cmd.Wait()
		r := bufio.NewReaderSize(stdout, 1<<20)
		buf := make([]byte, 64*1024)
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if rerr != nil {
				return
			}
		}
	}()
	return out, nil
}

// ReaderFromChannel adapts a <-chan []byte into an io.Reader, used to feed
// an encoder driver's FrameProducer contract from a FrameSource's output.
func ReaderFromChannel(ch <-chan []byte) io.Reader {
	return &chanReader{ch: ch}
}

type chanReader struct {
	ch  <-chan []byte
	buf []byte
}

func (r *chanReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		chunk, ok := <-r.ch
		if !ok {
			return 0, io.EOF
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// ParseFrameCount reads a YUV4MPEG2 header and returns the XLENGTH tag if
// present, used to validate a clip's frame count independent of ffprobe's
// container-level metadata.
func ParseFrameCount(header string) (uint64, bool) {
	const tag = "XLENGTH "
	idx := indexOf(header, tag)
	if idx < 0 {
		return 0, false
	}
	rest := header[idx+len(tag):]
	end := 0
	for end < len(rest) && rest[end] != ' ' && rest[end] != '\n' {
		end++
	}
	n, err := strconv.ParseUint(rest[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
