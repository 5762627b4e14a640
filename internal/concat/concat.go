// Package concat implements the Scene Concatenator stage: joining the
// per-scene encoded artifacts into the final output file, either via
// mkvmerge (JSON options files, chunked into groups to avoid command-line
// limits, with optional passthrough of audio/subtitle/chapter tracks from
// a source file) or via ffmpeg's concat demuxer (two-tier batched merge
// for large scene counts).
package concat

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/five82/reencode/internal/project"
)

// ID is the stage identifier.
const (
	ID             = "concat"
	MethodMKVMerge = "mkvmerge"
	MethodFFmpeg   = "ffmpeg"
)

const defaultMaxChunkFiles = 100
const ffmpegBatchSize = 500

// stripUNCPrefix removes a Windows UNC "\\?\" prefix, which mkvmerge's
// JSON options parser chokes on even though most other Windows tools
// accept it; a no-op on any path that doesn't carry the prefix.
func stripUNCPrefix(path string) string {
	return strings.TrimPrefix(path, `\\?\`)
}

// MergeMKVMerge concatenates scenePaths into outputPath using mkvmerge,
// writing one JSON options file per chunk (at most maxChunkFiles inputs)
// and, when there is more than one chunk, a final options file that merges
// the per-chunk outputs together. sourceFile, if non-empty, is passed as
// an additional input so its audio/subtitle/chapter tracks pass through;
// frameRate sets --default-duration on the first video track.
func MergeMKVMerge(scenePaths []string, outputPath, sourceFile string, frameRate project.Rational, maxChunkFiles int) error {
	if len(scenePaths) == 0 {
		return fmt.Errorf("concat: no scene artifacts to merge")
	}
	if maxChunkFiles <= 0 {
		maxChunkFiles = defaultMaxChunkFiles
	}

	tempDir, err := os.MkdirTemp(filepath.Dir(outputPath), "reencode-concat-")
	if err != nil {
		return fmt.Errorf("concat: create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	chunkOutputs, err := mergeInGroups(scenePaths, tempDir, frameRate, maxChunkFiles)
	if err != nil {
		return err
	}

	if len(chunkOutputs) == 1 && sourceFile == "" {
		return os.Rename(chunkOutputs[0], outputPath)
	}

	finalInputs := append([]string{}, chunkOutputs...)
	if sourceFile != "" {
		finalInputs = append(finalInputs, sourceFile)
	}
	return runMkvmergeOptions(finalInputs, outputPath, 0, true)
}

func mergeInGroups(scenePaths []string, tempDir string, frameRate project.Rational, maxChunkFiles int) ([]string, error) {
	if len(scenePaths) <= maxChunkFiles {
		out := filepath.Join(tempDir, "group-0000.mkv")
		if err := runMkvmergeOptionsForGroup(scenePaths, out, frameRate); err != nil {
			return nil, err
		}
		return []string{out}, nil
	}

	var outputs []string
	for i := 0; i < len(scenePaths); i += maxChunkFiles {
		end := i + maxChunkFiles
		if end > len(scenePaths) {
			end = len(scenePaths)
		}
		out := filepath.Join(tempDir, fmt.Sprintf("group-%04d.mkv", i/maxChunkFiles))
		if err := runMkvmergeOptionsForGroup(scenePaths[i:end], out, frameRate); err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func runMkvmergeOptionsForGroup(inputs []string, out string, frameRate project.Rational) error {
	durationMS := uint64(0)
	if frameRate.Num > 0 {
		durationMS = uint64(1000 * frameRate.Den / frameRate.Num)
	}
	return runMkvmergeOptions(inputs, out, durationMS, false)
}

// runMkvmergeOptions writes an mkvmerge JSON options file, which mixes
// flag strings and file paths in a single flat array (mkvmerge's own
// convention, not a struct the Go json package can model directly), and
// runs mkvmerge with it.
func runMkvmergeOptions(inputs []string, out string, defaultDurationMS uint64, isFinal bool) error {
	var opts []string
	opts = append(opts, "--output", stripUNCPrefix(out))

	opts = append(opts, "[")
	for i, in := range inputs {
		if defaultDurationMS > 0 && i == 0 && !isFinal {
			opts = append(opts, "--default-duration", fmt.Sprintf("0:%dms", defaultDurationMS))
		}
		opts = append(opts, stripUNCPrefix(in))
		if i < len(inputs)-1 {
			opts = append(opts, "+")
		}
	}
	opts = append(opts, "]")

	optionsPath := out + ".json"
	data, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("concat: marshal mkvmerge options: %w", err)
	}
	if err := os.WriteFile(optionsPath, data, 0o644); err != nil {
		return fmt.Errorf("concat: write mkvmerge options: %w", err)
	}
	defer os.Remove(optionsPath)

	cmd := exec.Command("mkvmerge", "@"+optionsPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("concat: mkvmerge failed: %w\noutput: %s", err, string(output))
	}
	return nil
}

// MergeFFmpeg concatenates scenePaths into outputPath using ffmpeg's
// concat demuxer, batching in groups of ffmpegBatchSize when there are
// more inputs than the demuxer comfortably handles on most platforms.
func MergeFFmpeg(scenePaths []string, outputPath string, frameRate project.Rational) error {
	if len(scenePaths) == 0 {
		return fmt.Errorf("concat: no scene artifacts to merge")
	}

	tempDir, err := os.MkdirTemp(filepath.Dir(outputPath), "reencode-concat-")
	if err != nil {
		return fmt.Errorf("concat: create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	inputs := scenePaths
	if len(scenePaths) > ffmpegBatchSize {
		batches, err := mergeFFmpegBatches(scenePaths, tempDir)
		if err != nil {
			return err
		}
		inputs = batches
	}

	listPath := filepath.Join(tempDir, "concat.txt")
	if err := writeConcatList(listPath, inputs); err != nil {
		return err
	}

	fps := "30"
	if frameRate.Den > 0 {
		fps = fmt.Sprintf("%.6f", float64(frameRate.Num)/float64(frameRate.Den))
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy",
		"-r", fps,
		"-fflags", "+genpts+igndts+discardcorrupt+bitexact",
		"-avoid_negative_ts", "make_zero",
		outputPath,
	}
	cmd := exec.Command("ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("concat: ffmpeg concat failed: %w\noutput: %s", err, string(output))
	}
	return nil
}

func mergeFFmpegBatches(scenePaths []string, tempDir string) ([]string, error) {
	var batchOutputs []string
	for i := 0; i < len(scenePaths); i += ffmpegBatchSize {
		end := i + ffmpegBatchSize
		if end > len(scenePaths) {
			end = len(scenePaths)
		}
		listPath := filepath.Join(tempDir, fmt.Sprintf("batch-%04d.txt", i/ffmpegBatchSize))
		if err := writeConcatList(listPath, scenePaths[i:end]); err != nil {
			return nil, err
		}
		out := filepath.Join(tempDir, fmt.Sprintf("batch-%04d.mkv", i/ffmpegBatchSize))
		args := []string{"-hide_banner", "-loglevel", "error", "-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", out}
		cmd := exec.Command("ffmpeg", args...)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("concat: batch %d merge failed: %w\noutput: %s", i/ffmpegBatchSize, err, string(output))
		}
		batchOutputs = append(batchOutputs, out)
	}
	return batchOutputs, nil
}

func writeConcatList(path string, paths []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("concat: create concat list: %w", err)
	}
	defer f.Close()
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("concat: resolve absolute path for %s: %w", p, err)
		}
		if runtime.GOOS == "windows" {
			abs = stripUNCPrefix(abs)
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", abs); err != nil {
			return fmt.Errorf("concat: write concat list: %w", err)
		}
	}
	return nil
}
