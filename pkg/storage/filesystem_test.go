package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreSaveRead(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("rep-1/progress.csv", []byte("a,b")))
	data, err := store.Read("rep-1/progress.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b", string(data))

	require.NoError(t, store.Delete("rep-1/progress.csv"))
	require.NoError(t, store.Delete("rep-1/progress.csv"))
	_, err = store.Read("rep-1/progress.csv")
	assert.Error(t, err)
}

func TestDiskStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../secret", "/etc/passwd", "a/../../b", "."} {
		assert.ErrorIs(t, store.Save(name, []byte("x")), ErrInvalidPath, name)
	}
}

func TestDiskStorePrune(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("old/report.pdf", []byte("old")))
	require.NoError(t, store.Save("new/report.pdf", []byte("new")))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old", "report.pdf"), past, past))

	deleted, err := store.Prune(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old/report.pdf"}, deleted)
	_, err = store.Read("new/report.pdf")
	assert.NoError(t, err)
}
