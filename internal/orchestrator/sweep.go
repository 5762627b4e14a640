package orchestrator

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SweepStaleTempFiles removes "*.temp.<ext>" scene artifacts left behind by
// a prior run that was killed mid-encode, older than maxAge, so a resumed
// run never mistakes a partial artifact for a completed one. This is a
// supplemented feature: the spec notes cancellation "leaves .temp
// artifacts" but doesn't specify their cleanup, following the teacher's
// own stale-tempfile sweep convention in internal/util/tempfile.go.
func SweepStaleTempFiles(scenesDir string, maxAge time.Duration) (int, error) {
	if _, err := os.Stat(scenesDir); os.IsNotExist(err) {
		return 0, nil
	}

	now := time.Now()
	cleaned := 0
	err := filepath.WalkDir(scenesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != scenesDir {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.Contains(d.Name(), ".temp.") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) < maxAge {
			return nil
		}
		if os.Remove(path) == nil {
			cleaned++
		}
		return nil
	})
	return cleaned, err
}
