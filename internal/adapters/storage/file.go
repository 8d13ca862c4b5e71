package storage

// file.go — snapshots JSON en disco con escritura atómica.
//
// Cada snapshot es un fichero dentro del directorio de estado. La
// escritura pasa por un temporal + rename para que un corte a mitad
// nunca deje el fichero corrupto, y la versión anterior queda en .bak.
// Los ficheros pueden contener credenciales — permisos 0600 siempre.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore implementa ports.SnapshotStore sobre un directorio local.
type FileStore struct {
	dir string
}

// NewFileStore crea el directorio de estado si no existe.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage.NewFileStore: mkdir %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Load lee el snapshot. Fichero inexistente devuelve (nil, nil):
// arrancar sin estado previo no es un error.
func (fs *FileStore) Load(name string) ([]byte, error) {
	data, err := os.ReadFile(fs.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.Load %q: %w", name, err)
	}
	return data, nil
}

// Save reemplaza el snapshot de forma atómica y conserva la versión
// anterior como .bak.
func (fs *FileStore) Save(name string, data []byte) error {
	path := fs.path(name)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("storage.Save %q: write tmp: %w", name, err)
	}

	// Backup del estado anterior antes de pisarlo
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("storage.Save %q: backup: %w", name, err)
		}
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage.Save %q: rename: %w", name, err)
	}
	return nil
}

func (fs *FileStore) path(name string) string {
	return filepath.Join(fs.dir, name)
}
