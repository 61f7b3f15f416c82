package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSymbolList_SkipsBlankAndCommentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "symbols.txt")
	contents := "foo\n\n# a comment\n  bar  \n#another\nbaz\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	names, err := ReadSymbolList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar", "baz"}, names)
}

func TestReadSymbolList_MissingFileErrors(t *testing.T) {
	_, err := ReadSymbolList(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	require.Error(t, err)
}

func TestReadSymbolList_EmptyFileReturnsNoNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	names, err := ReadSymbolList(path)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestOpenInput_MissingFileErrors(t *testing.T) {
	_, err := OpenInput(filepath.Join(t.TempDir(), "missing.elf"))
	require.Error(t, err)
}
