package encoderdriver

import (
	"regexp"
	"strconv"
)

// frame patterns are deliberately permissive: encoder stderr chunks may be
// CR-terminated (in-place progress updates) rather than newline-terminated,
// so each pattern is applied to one CR- or LF-terminated segment at a time.
var framePatterns = map[Family]*regexp.Regexp{
	SVTAV1: regexp.MustCompile(`Encoding frame\s+(\d+)`),
	AOM:    regexp.MustCompile(`Pass \d+/\d+ frame\s+(\d+)/\d+`),
	RAV1E:  regexp.MustCompile(`encoded frame\s+(\d+)`),
	X264:   regexp.MustCompile(`^\[?\s*\d+\.\d*%\]\s*(\d+)/\d+ frames`),
	X265:   regexp.MustCompile(`^\s*(\d+)/\d+ frames`),
	VPX:    regexp.MustCompile(`Pass \d+/\d+\s+frame\s+(\d+)/\d+`),
	VVENC:  regexp.MustCompile(`POC\s+(\d+)`),
	FFmpeg: regexp.MustCompile(`frame=\s*(\d+)`),
}

// ParseProgressLine extracts the most recent frame count seen in a chunk of
// encoder stderr output, per family. It is a pure function by design so
// progress parsing can be unit tested without spawning a subprocess.
func ParseProgressLine(family Family, chunk string) (frame uint64, ok bool) {
	pattern, known := framePatterns[family]
	if !known {
		return 0, false
	}

	matches := pattern.FindAllStringSubmatch(chunk, -1)
	if len(matches) == 0 {
		return 0, false
	}

	last := matches[len(matches)-1]
	n, err := strconv.ParseUint(last[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
