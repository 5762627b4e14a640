// Package parallelencoder implements the Parallel Encoder stage: one
// decode-dispatch loop feeding per-task frame streams to a pool of encoder
// workers, bounded by two counting semaphores so memory use never exceeds
// W+1 in-flight decoded scenes for W workers.
package parallelencoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/five82/reencode/internal/encoderdriver"
	"github.com/five82/reencode/internal/project"
	"github.com/five82/reencode/internal/semaphore"
	"github.com/five82/reencode/internal/stage"
)

// ID is the stage identifier.
const ID = "parallel_encode"

// Decoder is the subset of framesource.FrameSource the engine needs,
// narrowed so tests can supply a stub.
type Decoder interface {
	ClipInfo() project.ClipInfo
	Frames(ctx context.Context, start, end uint64) (<-chan []byte, error)
}

// Run executes every task in tasks with up to workers concurrent encoders
// and workers+1 concurrent decodes. Each encoder's final-pass frame
// progress is forwarded to sink as Subprocess{parallel_encode, task-N}
// events and accumulated into the stage's own Whole FramesCompletion
// total.
//
// Run stops launching new tasks once cancel is set or a task fails, but
// lets in-flight tasks finish or fail on their own rather than killing
// their subprocesses mid-write, so partially encoded .temp artifacts are
// always the result of a real subprocess exit rather than a severed pipe.
func Run(ctx context.Context, p *project.Project, dec Decoder, tasks []project.ParallelEncoderTask, workers int, sink chan<- stage.Event, cancel *stage.CancelFlag) ([]stage.Warning, error) {
	if len(tasks) == 0 {
		if sink != nil {
			sink <- stage.Whole(ID, stage.CompletedStatus(ID))
		}
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}

	workerSem := semaphore.New(workers)
	decoderSem := semaphore.New(workers + 1)
	clipParams := clipParamsFromClip(dec.ClipInfo())

	encoderSems := make([]*semaphore.Binary, len(tasks))
	frameChans := make([]*unboundedChan, len(tasks))
	decoderPermits := make([]int, len(tasks))
	for i := range tasks {
		encoderSems[i] = semaphore.NewBinary()
		frameChans[i] = newUnboundedChan()
	}

	var encoderErrored atomic.Bool
	var firstErr error
	var errMu sync.Mutex
	setErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
		encoderErrored.Store(true)
	}

	var totalFrames uint64
	for _, t := range tasks {
		totalFrames += t.Len()
	}
	var framesDone atomic.Uint64

	var wg sync.WaitGroup

	// Decode-dispatch loop: one goroutine per task, gated by decoderSem. The
	// permit acquired here is handed off to the matching encoder worker
	// below, which releases it once that task's encode finishes (not when
	// decode finishes), so a scene's buffered-but-unencoded frames always
	// count against the W+1 budget.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i, task := range tasks {
			if cancel.Cancelled() || encoderErrored.Load() {
				decoderPermits[i] = -1
				frameChans[i].CloseSend()
				encoderSems[i].Signal()
				continue
			}
			permit, err := decoderSem.Acquire(ctx)
			if err != nil {
				decoderPermits[i] = -1
				frameChans[i].CloseSend()
				encoderSems[i].Signal()
				continue
			}
			decoderPermits[i] = permit
			wg.Add(1)
			go func(i int, task project.ParallelEncoderTask) {
				defer wg.Done()
				decodeTask(ctx, dec, task, frameChans[i], encoderSems[i])
			}(i, task)
		}
	}()

	// Encoder workers: one goroutine per task, gated by workerSem after the
	// task's decode has signaled start.
	results := make([]*encoderdriver.Result, len(tasks))
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task project.ParallelEncoderTask) {
			defer wg.Done()
			if err := encoderSems[i].Wait(ctx); err != nil {
				return
			}
			if decoderPermits[i] < 0 {
				return // the dispatch loop skipped this task
			}
			// Decode has signaled start (or failure), so a decoder permit
			// was acquired for this task; hold it until the encode itself
			// finishes.
			defer decoderSem.Release(decoderPermits[i])

			permit, err := workerSem.Acquire(ctx)
			if err != nil {
				return
			}
			defer workerSem.Release(permit)
			if cancel.Cancelled() || encoderErrored.Load() {
				return
			}

			childID := fmt.Sprintf("task-%d", task.OriginalSceneIndex)
			var lastFinalPassFrame uint64
			onProgress := func(pass, passTotal int, frame uint64) {
				if pass == passTotal && frame > lastFinalPassFrame {
					framesDone.Add(frame - lastFinalPassFrame)
					lastFinalPassFrame = frame
				}
				if sink != nil {
					sink <- stage.Subprocess(
						stage.ProcessingStatus(ID, stage.Completion{
							Kind:  stage.FramesCompletion,
							Done:  framesDone.Load(),
							Total: totalFrames,
						}),
						stage.ProcessingStatus(childID, stage.Completion{
							Kind:      stage.PassFramesCompletion,
							PassCur:   pass,
							PassTotal: passTotal,
							Done:      frame,
							Total:     task.Len(),
						}),
					)
				}
			}

			res, err := encodeTask(ctx, task, clipParams, frameChans[i].Receive(), onProgress)
			results[i] = res
			if err != nil {
				setErr(fmt.Errorf("parallel_encode: scene %d: %w", task.OriginalSceneIndex, err))
				return
			}
			if lastFinalPassFrame < task.Len() {
				framesDone.Add(task.Len() - lastFinalPassFrame)
			}
			if sink != nil {
				sink <- stage.Whole(ID, stage.ProcessingStatus(ID, stage.Completion{
					Kind:  stage.FramesCompletion,
					Done:  framesDone.Load(),
					Total: totalFrames,
				}))
			}
		}(i, task)
	}

	wg.Wait()

	if encoderErrored.Load() && firstErr != nil {
		if sink != nil {
			sink <- stage.Whole(ID, stage.FailedStatus(ID, firstErr))
		}
		return nil, firstErr
	}
	if cancel.Cancelled() {
		return nil, nil
	}

	for i, res := range results {
		if res == nil {
			continue
		}
		tasks[i].Encoder = p.EncoderFor(tasks[i].OriginalSceneIndex)
		if info, err := os.Stat(tasks[i].OutputPath); err == nil {
			p.Scenes[tasks[i].OriginalSceneIndex].Data.EncodedBytes = uint64(info.Size())
		}
	}
	if err := p.Save(); err != nil {
		return nil, fmt.Errorf("parallel_encode: checkpoint: %w", err)
	}

	if sink != nil {
		sink <- stage.Whole(ID, stage.CompletedStatus(ID))
	}
	return nil, nil
}

func decodeTask(ctx context.Context, dec Decoder, task project.ParallelEncoderTask, out *unboundedChan, startSignal *semaphore.Binary) {
	defer out.CloseSend()
	stream, err := dec.Frames(ctx, task.StartFrame, task.EndFrame)
	if err != nil {
		startSignal.Signal()
		return
	}
	started := false
	for chunk := range stream {
		if !started {
			started = true
			startSignal.Signal()
		}
		out.Send(chunk)
	}
	if !started {
		startSignal.Signal()
	}
}

func clipParamsFromClip(c project.ClipInfo) encoderdriver.ClipParams {
	return encoderdriver.ClipParams{
		Width:                   c.Width,
		Height:                  c.Height,
		FPSNum:                  c.FrameRate.Num,
		FPSDen:                  c.FrameRate.Den,
		BitDepth:                c.BitDepth,
		ChromaSubsampling:       c.ChromaSubsampling,
		TransferCharacteristics: c.TransferCharacteristics,
	}
}

func encodeTask(ctx context.Context, task project.ParallelEncoderTask, clip encoderdriver.ClipParams, frames <-chan []byte, onProgress encoderdriver.ProgressFunc) (*encoderdriver.Result, error) {
	passes := task.Encoder.Pass.Passes()

	// A single decode stream can only be consumed once. Single-pass encodes
	// (the common case) read it directly; multi-pass encodes buffer it in
	// memory on the first read so every pass replays the identical bytes.
	var buffered [][]byte
	first := true
	producer := func(ctx context.Context) (<-chan []byte, error) {
		if len(passes) == 1 {
			return frames, nil
		}
		if first {
			first = false
			for chunk := range frames {
				buffered = append(buffered, chunk)
			}
		}
		out := make(chan []byte, len(buffered))
		for _, chunk := range buffered {
			out <- chunk
		}
		close(out)
		return out, nil
	}

	grainTablePath := ""
	if task.Encoder.Grain != nil {
		path, err := encoderdriver.GrainTablePath(filepath.Dir(task.OutputPath), ID, *task.Encoder.Grain)
		if err != nil {
			return nil, err
		}
		grainTablePath = path
	}

	tempPath := tempPathFor(task.OutputPath)
	var lastErr error
	var lastRes *encoderdriver.Result
	for _, pass := range passes {
		res, err := encoderdriver.RunPass(ctx, task.Encoder, clip, tempPath, pass, task.Encoder.Pass.Total, grainTablePath, producer, onProgress)
		if err != nil {
			return nil, err
		}
		lastRes = res
		if !res.Success() {
			lastErr = &encoderdriver.FailedError{Result: *res}
			break
		}
	}
	if lastErr != nil {
		_ = os.Remove(tempPath)
		return lastRes, lastErr
	}
	if err := os.Rename(tempPath, task.OutputPath); err != nil {
		return lastRes, fmt.Errorf("rename scene artifact: %w", err)
	}
	return lastRes, nil
}

func tempPathFor(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return outputPath[:len(outputPath)-len(ext)] + ".temp" + ext
}

// OutputPathFor returns the scene artifact path for a scene index, honoring
// the family-specific extension convention.
func OutputPathFor(scenesDir string, sceneIndex int, family encoderdriver.Family) string {
	return filepath.Join(scenesDir, fmt.Sprintf("%05d.%s", sceneIndex, family.OutputExtension()))
}

// SceneArtifactExists reports whether a scene's output artifact already
// exists on disk, used to build the resumed task set.
func SceneArtifactExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
