package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/adapters/storage"
)

func TestFileStore_LoadMissingIsNotAnError(t *testing.T) {
	fs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	data, err := fs.Load("history.json")
	require.NoError(t, err)
	assert.Nil(t, data, "arrancar sin estado previo devuelve nil, nil")
}

func TestFileStore_SaveAndLoadRoundTrip(t *testing.T) {
	fs, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	payload := []byte(`[{"id":"e1"}]`)
	require.NoError(t, fs.Save("history.json", payload))

	got, err := fs.Load("history.json")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFileStore_SaveKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, fs.Save("creds.json", []byte("v1")))
	require.NoError(t, fs.Save("creds.json", []byte("v2")))

	got, err := fs.Load("creds.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	// la versión anterior queda en .bak
	bak, err := os.ReadFile(filepath.Join(dir, "creds.json.bak"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), bak)
}

func TestFileStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, fs.Save("creds.json", []byte("secreto")))

	// los snapshots pueden contener credenciales: 0600 siempre
	info, err := os.Stat(filepath.Join(dir, "creds.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_CreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	_, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
