package concat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripUNCPrefix(t *testing.T) {
	assert.Equal(t, `C:\videos\out.mkv`, stripUNCPrefix(`\\?\C:\videos\out.mkv`))
	assert.Equal(t, `/home/user/out.mkv`, stripUNCPrefix(`/home/user/out.mkv`))
}

func TestWriteConcatList(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ivf")
	b := filepath.Join(dir, "b.ivf")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("x"), 0o644))

	listPath := filepath.Join(dir, "concat.txt")
	require.NoError(t, writeConcatList(listPath, []string{a, b}))

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "file '"+a+"'")
	assert.Contains(t, content, "file '"+b+"'")
}

func TestRunMkvmergeOptionsWritesThenCleansUpOptionsFile(t *testing.T) {
	// runMkvmergeOptions shells out to a real mkvmerge binary, which this
	// environment does not provide; this test only exercises the options
	// file is removed even when the exec call itself fails.
	dir := t.TempDir()
	out := filepath.Join(dir, "group.mkv")
	_ = runMkvmergeOptions([]string{"a.ivf", "b.ivf"}, out, 0, false)
	_, err := os.Stat(out + ".json")
	assert.True(t, os.IsNotExist(err), "options file should be cleaned up regardless of mkvmerge success")
}
