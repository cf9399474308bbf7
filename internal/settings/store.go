// SPDX-License-Identifier: MPL-2.0

// Package settings persists the global and per-transform setting layers and
// resolves the effective configuration for one invocation.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/graftlabs/graft/pkg/entity"
)

const (
	// GlobalFileName is the file holding the shared global layer.
	GlobalFileName = "global.json"
	// TransformsDirName is the directory holding per-transform layers.
	TransformsDirName = "transforms"
)

// Store reads and writes the persisted setting layers. Each layer is one
// JSON document: the global layer in global.json and one file per
// (target, label) pair under transforms/. Keys the store does not know
// about are kept intact on save; the documents belong to plugin authors.
// Writes are read-modify-write cycles, so they serialize on a mutex.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// GlobalPath returns the path of the global layer file.
func (s *Store) GlobalPath() string {
	return filepath.Join(s.dir, GlobalFileName)
}

// TransformPath returns the path of the layer file for a (target, label)
// pair.
func (s *Store) TransformPath(target entity.ID, label string) string {
	return filepath.Join(s.dir, TransformsDirName, fmt.Sprintf("%s__%s.json", target, label))
}

// Global returns the global layer. A missing file is an empty layer.
func (s *Store) Global() (map[string]any, error) {
	return readLayer(s.GlobalPath())
}

// Transform returns the layer for a (target, label) pair. A missing file is
// an empty layer.
func (s *Store) Transform(target entity.ID, label string) (map[string]any, error) {
	return readLayer(s.TransformPath(target, label))
}

// SetGlobal writes one value into the global layer.
func (s *Store) SetGlobal(name string, value any) error {
	return s.updateLayer(s.GlobalPath(), func(layer map[string]any) {
		layer[name] = value
	})
}

// UnsetGlobal removes one value from the global layer.
func (s *Store) UnsetGlobal(name string) error {
	return s.updateLayer(s.GlobalPath(), func(layer map[string]any) {
		delete(layer, name)
	})
}

// SetTransform writes one value into a transform's layer.
func (s *Store) SetTransform(target entity.ID, label, name string, value any) error {
	return s.updateLayer(s.TransformPath(target, label), func(layer map[string]any) {
		layer[name] = value
	})
}

// UnsetTransform removes one value from a transform's layer.
func (s *Store) UnsetTransform(target entity.ID, label, name string) error {
	return s.updateLayer(s.TransformPath(target, label), func(layer map[string]any) {
		delete(layer, name)
	})
}

// readLayer loads one layer document through viper, tolerating a missing
// file.
func readLayer(path string) (map[string]any, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	return v.AllSettings(), nil
}

// updateLayer applies a mutation to one layer document and writes it back
// atomically, temp file plus rename. Viper has no atomic write path, so the
// document is marshalled directly; keys come out sorted either way.
func (s *Store) updateLayer(path string, mutate func(map[string]any)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	layer, err := readLayer(path)
	if err != nil {
		return err
	}
	mutate(layer)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(layer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	data = append(data, '\n')

	// Settings may hold secrets, hence the tight mode.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
