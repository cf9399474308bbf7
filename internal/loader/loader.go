// SPDX-License-Identifier: MPL-2.0

// Package loader runs the explicit load phase: compiled-in plugins and
// descriptor files register their entity types and transforms into the
// registry. Each plugin loads in isolation; a failing plugin is reported and
// skipped without aborting the others or leaving partial registrations
// behind.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/graftlabs/graft/internal/registry"
)

// Loader wires plugins into a registry.
type Loader struct {
	reg    *registry.Registry
	logger *log.Logger
}

// New returns a loader targeting reg.
func New(reg *registry.Registry, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{reg: reg, logger: logger}
}

// Report sums up one load phase.
type Report struct {
	// Plugins are the manifests of every plugin that loaded, compiled-in
	// and descriptor files alike, in load order.
	Plugins []Manifest
	// Files are the descriptor file paths that loaded.
	Files []string
	// Failed maps a plugin name or descriptor file path to what went
	// wrong with it.
	Failed map[string]error
}

// Load runs one load phase: compiled-in plugins first, then every *.cue and
// *.json descriptor file found under dirs. Each plugin registers into a
// private staging registry that merges into the shared one only once the
// whole plugin went through, so a failed plugin leaves no trace.
func (l *Loader) Load(plugins []Plugin, dirs []string) *Report {
	report := &Report{Failed: make(map[string]error)}

	for i, p := range plugins {
		m := p.Manifest()
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("plugin#%d", i)
		}
		if err := l.loadPlugin(p); err != nil {
			report.Failed[name] = err
			l.logger.Warn("plugin failed to load", "plugin", name, "error", err)
			continue
		}
		report.Plugins = append(report.Plugins, m)
		l.logger.Debug("plugin loaded", "plugin", name, "version", m.Version)
	}

	for _, dir := range dirs {
		l.loadDir(dir, report)
	}
	return report
}

func (l *Loader) loadPlugin(p Plugin) error {
	stage := registry.New()
	if err := p.Register(stage); err != nil {
		return err
	}
	return l.reg.Merge(stage)
}

// loadDir loads every descriptor file under dir. A missing directory is not
// an error; plugin directories come from config and may not exist yet.
func (l *Loader) loadDir(dir string, report *Report) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".cue", ".json":
		default:
			return nil
		}

		desc, err := l.loadFile(path)
		if err != nil {
			report.Failed[path] = err
			l.logger.Warn("descriptor file failed to load", "path", path, "error", err)
			return nil
		}
		report.Plugins = append(report.Plugins, desc.Manifest())
		report.Files = append(report.Files, path)
		l.logger.Debug("descriptor file loaded", "path", path, "plugin", desc.Name)
		return nil
	})
	if err != nil {
		l.logger.Debug("descriptor walk aborted", "dir", dir, "error", err)
	}
}

// loadFile stages one descriptor file and merges it on success.
func (l *Loader) loadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	desc, err := ParseDescriptor(data, path)
	if err != nil {
		return nil, err
	}

	stage := registry.New()
	if err := desc.register(stage); err != nil {
		return nil, err
	}
	if err := l.reg.Merge(stage); err != nil {
		return nil, err
	}
	return desc, nil
}
