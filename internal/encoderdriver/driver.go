package encoderdriver

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
)

// FrameProducer yields a fresh ordered byte stream for one pass: the
// YUV4MPEG2 header first, then "FRAME\n"+planes per frame, then close.
// Multi-pass encodes call it once per pass rather than literally fanning
// one iterator out to N concurrent senders, since from the driver's
// perspective the observable contract is only "each pass sees the same
// ordered frame range" — how the caller reproduces that stream is its own
// concern (a FrameSource replay, or a buffered channel drained twice).
type FrameProducer func(ctx context.Context) (<-chan []byte, error)

// ProgressFunc is invoked as frame progress advances during a pass.
// pass/passTotal identify which pass this is.
type ProgressFunc func(pass, passTotal int, frame uint64)

// chanReader adapts a byte-chunk channel to io.Reader for use as a
// subprocess's stdin.
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

// RunPass spawns the encoder for a single pass, feeds it the frame stream
// produced by frames, and returns a Result. The caller is responsible for
// renaming any staging output on success.
func RunPass(ctx context.Context, cfg EncoderConfig, clip ClipParams, outputPath string, pass, passTotal int, grainTablePath string, frames FrameProducer, onProgress ProgressFunc) (*Result, error) {
	isFinal := pass == passTotal
	args, err := BuildArgs(cfg, clip, outputPath, pass, passTotal, isFinal, grainTablePath)
	if err != nil {
		return nil, err
	}

	stream, err := frames(ctx)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, cfg.Family.binary(), args...)
	cmd.Stdin = &chanReader{ch: stream}

	var stdoutBuf, stderrBuf bytes.Buffer
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan struct{}, 2)

	go func() {
		_, _ = io.Copy(&stdoutBuf, stdoutPipe)
		done <- struct{}{}
	}()

	go func() {
		scanProgress(stderrPipe, &stderrBuf, cfg.Family, pass, passTotal, onProgress)
		done <- struct{}{}
	}()

	<-done
	<-done

	waitErr := cmd.Wait()

	exitStatus := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitStatus = exitErr.ExitCode()
		} else {
			exitStatus = -1
		}
	}

	return &Result{
		EncoderTag:         cfg.Family.String(),
		EffectiveArguments: args,
		ExitStatus:         exitStatus,
		CapturedStdout:     stdoutBuf.String(),
		CapturedStderr:     stderrBuf.String(),
	}, nil
}

// scanProgress reads stderr in CR-or-LF-terminated chunks, tolerating
// partial lines, extracting the most recent frame count from each chunk
// and forwarding advances to onProgress. The full text is accumulated into
// full regardless of whether it matched.
func scanProgress(r io.Reader, full *bytes.Buffer, family Family, pass, passTotal int, onProgress ProgressFunc) {
	reader := bufio.NewReader(r)
	var lastFrame uint64
	var lineBuf strings.Builder

	flush := func() {
		line := lineBuf.String()
		lineBuf.Reset()
		if line == "" {
			return
		}
		full.WriteString(line)
		full.WriteByte('\n')
		if frame, ok := ParseProgressLine(family, line); ok && frame > lastFrame {
			lastFrame = frame
			if onProgress != nil {
				onProgress(pass, passTotal, frame)
			}
		}
	}

	for {
		b, err := reader.ReadByte()
		if err != nil {
			flush()
			return
		}
		if b == '\n' || b == '\r' {
			flush()
			continue
		}
		lineBuf.WriteByte(b)
	}
}
