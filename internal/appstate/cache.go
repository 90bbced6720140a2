package appstate

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FallbackCache persiste el listado de ids en un archivo local. Solo se
// usa como semilla previa a la autenticacion; con un usuario presente
// el registro remoto es el autoritativo.
type FallbackCache struct {
	path string
}

func NewFallbackCache(path string) *FallbackCache {
	return &FallbackCache{path: path}
}

// Load lee el listado cacheado. Datos ausentes o corruptos degradan a
// vacio; un archivo invalido se elimina para no reintentar parsearlo.
func (c *FallbackCache) Load() []string {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		_ = os.Remove(c.path)
		return []string{}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// Save escribe el listado completo.
func (c *FallbackCache) Save(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	dir := filepath.Dir(c.path)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(c.path, data, 0o644)
}
