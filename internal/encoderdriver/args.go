package encoderdriver

import (
	"fmt"
	"os"
	"sort"
)

// nullSink returns the platform null device, used for intermediate passes
// of a multi-pass encode (only the final pass writes the real artifact).
func nullSink() string {
	return os.DevNull
}

// statsFileFor names the first-pass statistics file after the full output
// path, with ".stats" appended, per the multi-pass contract.
func statsFileFor(outputPath string) string {
	return outputPath + ".stats"
}

// mergedParams returns the family's default parameters overlaid with the
// user-supplied map, user values winning on key collision.
func mergedParams(family Family, clip ClipParams, user map[string]string) map[string]string {
	merged := defaultParams(family, clip)
	for k, v := range user {
		merged[k] = v
	}
	return merged
}

// sortedFlagPairs renders a parameter map as deterministic --key value
// pairs, needed so EffectiveArguments is stable and testable.
func sortedFlagPairs(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		v := params[k]
		if v == "" {
			out = append(out, k)
			continue
		}
		out = append(out, k, v)
	}
	return out
}

func defaultParams(family Family, clip ClipParams) map[string]string {
	switch family {
	case SVTAV1:
		keyint := int64(10)
		if clip.FPSDen > 0 {
			keyint = (clip.FPSNum / clip.FPSDen) * 10
		}
		return map[string]string{
			"--input-depth":   fmt.Sprintf("%d", max8(clip.BitDepth, 10)),
			"--color-format":  "1",
			"--profile":       "0",
			"--tile-rows":     "0",
			"--tile-columns":  "0",
			"--fps-num":       fmt.Sprintf("%d", clip.FPSNum),
			"--fps-denom":     fmt.Sprintf("%d", clip.FPSDen),
			"--keyint":        fmt.Sprintf("%d", keyint),
			"--rc":            "0",
			"--scd":           "1",
			"--scm":           "0",
			"--progress":      "2",
			"--preset":        "6",
			"--crf":           "27",
		}
	case AOM:
		return map[string]string{
			"--cpu-used":  "4",
			"--end-usage": "q",
			"--cq-level":  "27",
			"--good":      "",
		}
	case RAV1E:
		return map[string]string{
			"--speed":     "6",
			"--quantizer": "100",
		}
	case X264:
		return map[string]string{
			"--crf":      "23",
			"--preset":   "medium",
			"--demuxer":  "y4m",
		}
	case X265:
		return map[string]string{
			"--crf":    "28",
			"--preset": "medium",
			"--y4m":    "",
		}
	case VPX:
		return map[string]string{
			"--codec":     "vp9",
			"--end-usage": "q",
			"--cq-level":  "31",
			"--good":      "",
		}
	case VVENC:
		return map[string]string{
			"--preset": "medium",
			"--qp":     "32",
		}
	case FFmpeg:
		return map[string]string{
			"-c:v": "libsvtav1",
			"-crf": "27",
		}
	default:
		return map[string]string{}
	}
}

func max8(v, min uint8) uint8 {
	if v == 0 {
		return min
	}
	return v
}

// BuildArgs constructs the argument vector for one pass of one family,
// inserting the output path (or null device for intermediate passes) and
// any grain-table flag. isFinalPass controls whether outputPath or the
// null sink is used.
func BuildArgs(cfg EncoderConfig, clip ClipParams, outputPath string, pass, passTotal int, isFinalPass bool, grainTablePath string) ([]string, error) {
	if cfg.Grain != nil && !cfg.Family.SupportsPhotonNoise() {
		return nil, &PhotonNoiseUnsupportedError{Family: cfg.Family}
	}

	params := mergedParams(cfg.Family, clip, cfg.Params)

	if cfg.Grain != nil && grainTablePath != "" {
		if flag := cfg.Family.grainFlag(); flag != "" {
			params[flag] = grainTablePath
		}
	}

	target := outputPath
	if !isFinalPass {
		target = nullSink()
	}

	switch cfg.Family {
	case SVTAV1:
		args := []string{"-i", "stdin", "--width", fmt.Sprintf("%d", clip.Width), "--height", fmt.Sprintf("%d", clip.Height)}
		if passTotal > 1 {
			args = append(args, "--passes", "2", "--pass", fmt.Sprintf("%d", pass), "--stats", statsFileFor(outputPath))
		} else {
			args = append(args, "--passes", "1")
		}
		args = append(args, sortedFlagPairs(params)...)
		args = append(args, "-b", target)
		return args, nil
	case AOM:
		args := []string{"-", "--ivf", fmt.Sprintf("--width=%d", clip.Width), fmt.Sprintf("--height=%d", clip.Height)}
		if passTotal > 1 {
			args = append(args, fmt.Sprintf("--pass=%d", pass), fmt.Sprintf("--passes=%d", passTotal), "--fpf="+statsFileFor(outputPath))
		}
		args = append(args, sortedFlagPairs(params)...)
		args = append(args, "-o", target)
		return args, nil
	case RAV1E:
		args := []string{"-", "--width", fmt.Sprintf("%d", clip.Width), "--height", fmt.Sprintf("%d", clip.Height)}
		args = append(args, sortedFlagPairs(params)...)
		args = append(args, "-o", target)
		return args, nil
	case X264:
		args := []string{"--input-res", fmt.Sprintf("%dx%d", clip.Width, clip.Height)}
		if passTotal > 1 {
			args = append(args, "--pass", fmt.Sprintf("%d", pass), "--stats", statsFileFor(outputPath))
		}
		args = append(args, sortedFlagPairs(params)...)
		args = append(args, "-o", target, "-")
		return args, nil
	case X265:
		args := []string{"--input-res", fmt.Sprintf("%dx%d", clip.Width, clip.Height)}
		if passTotal > 1 {
			args = append(args, "--pass", fmt.Sprintf("%d", pass), "--stats", statsFileFor(outputPath))
		}
		args = append(args, sortedFlagPairs(params)...)
		args = append(args, "-o", target, "-")
		return args, nil
	case VPX:
		args := []string{"-", fmt.Sprintf("--width=%d", clip.Width), fmt.Sprintf("--height=%d", clip.Height)}
		if passTotal > 1 {
			args = append(args, fmt.Sprintf("--pass=%d", pass), fmt.Sprintf("--passes=%d", passTotal), "--fpf="+statsFileFor(outputPath))
		}
		args = append(args, sortedFlagPairs(params)...)
		args = append(args, "-o", target)
		return args, nil
	case VVENC:
		args := []string{"-i", "-", "--size", fmt.Sprintf("%dx%d", clip.Width, clip.Height)}
		args = append(args, sortedFlagPairs(params)...)
		args = append(args, "-o", target)
		return args, nil
	case FFmpeg:
		args := []string{"-y", "-f", "yuv4mpegpipe", "-i", "-"}
		args = append(args, sortedFlagPairs(params)...)
		args = append(args, target)
		return args, nil
	default:
		return nil, fmt.Errorf("unsupported encoder family %s", cfg.Family)
	}
}
