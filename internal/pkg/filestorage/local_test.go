package filestorage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveReadDelete(t *testing.T) {
	root := t.TempDir()
	ls, err := NewLocalStorage(root)
	require.NoError(t, err)

	rel, err := ls.Save("accumulation/esi", "CB_ESI_accumulator.txt", []byte("HD..."))
	require.NoError(t, err)
	assert.Equal(t, "accumulation/esi/CB_ESI_accumulator.txt", rel)

	_, err = os.Stat(filepath.Join(root, "accumulation", "esi", "CB_ESI_accumulator.txt"))
	require.NoError(t, err)

	data, err := ls.Read(rel)
	require.NoError(t, err)
	assert.Equal(t, "HD...", string(data))

	require.NoError(t, ls.Delete(rel))
	require.NoError(t, ls.Delete(rel))
	_, err = ls.Read(rel)
	assert.Error(t, err)
}

func TestSaveGeneratesName(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	rel, err := ls.Save("", "", []byte("x"))
	require.NoError(t, err)
	assert.Len(t, rel, 36)
}

func TestRejectsEscapingPaths(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = ls.Save("../outside", "f.txt", nil)
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = ls.Save("edi", "../f.txt", nil)
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = ls.Read("/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = ls.GetFullPath("")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestSaveRefusesOverwrite(t *testing.T) {
	root := t.TempDir()
	ls, err := NewLocalStorage(root)
	require.NoError(t, err)

	_, err = ls.Save("accumulation/uhc", "report.dat", []byte("first"))
	require.NoError(t, err)
	_, err = ls.Save("accumulation/uhc", "report.dat", []byte(""))
	assert.ErrorIs(t, err, ErrFileExists)

	data, err := ls.Read("accumulation/uhc/report.dat")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "accumulation", "uhc"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
