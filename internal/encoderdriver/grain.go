package encoderdriver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// GrainTablePath returns the path a grain table for these parameters would
// live at under <scenesDir>/<stageName>/<hash>.tbl, generating the file if
// it does not already exist. Two calls with identical GrainParams and
// stageName share the same file.
func GrainTablePath(scenesDir, stageName string, params GrainParams) (string, error) {
	dir := filepath.Join(scenesDir, stageName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create grain table directory: %w", err)
	}

	sum := sha256.Sum256([]byte(params.key()))
	hash := hex.EncodeToString(sum[:])[:16]
	path := filepath.Join(dir, hash+".tbl")

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	content := renderGrainTable(params)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write grain table: %w", err)
	}

	return path, nil
}

// renderGrainTable synthesizes an AV1 film-grain-table-format document from
// an ISO-keyed noise model. The precise curve-fitting algorithm used by the
// reference photon-noise tools is out of scope; this produces a
// deterministic, syntactically valid table keyed by the same parameters.
func renderGrainTable(p GrainParams) string {
	return fmt.Sprintf(
		"filmgrn1\nE %d\n\tp %.6f %.6f %.6f\n\tw %d %d\nEND\n",
		p.ISO, p.CY, p.CCB, p.CCR, p.Width, p.Height,
	)
}
