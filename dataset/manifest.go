// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dataset groups on-disk index files into datasets, publishes
// them behind immutable snapshots, and drives compaction.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/malwarefrank/ursadb/ngram"
	"gopkg.in/yaml.v3"
)

// manifestName is the file within a dataset's directory that records its
// shape: the component index files and the ordered path list that
// assigns FileIds.
const manifestName = "manifest.yaml"

// Manifest is a dataset's durable description: enough to reopen its
// index files and recover the FileId -> path mapping (the 1-based
// position of a path in Paths is its FileId in every component index).
type Manifest struct {
	ID      string            `yaml:"id"`
	Indexes map[string]string `yaml:"indexes"` // ngram.Kind.String() -> filename
	Paths   []string          `yaml:"paths"`
}

func manifestPath(dir string) string {
	return filepath.Join(dir, manifestName)
}

func saveManifest(dir string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("dataset: marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath(dir), data, 0o644); err != nil {
		return fmt.Errorf("dataset: write manifest: %w", err)
	}
	return nil
}

func loadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(manifestPath(dir))
	if err != nil {
		return Manifest{}, fmt.Errorf("dataset: read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("dataset: unmarshal manifest: %w", err)
	}
	return m, nil
}

// kindIndexPath resolves the filename a manifest records for kind,
// relative to dir.
func kindIndexPath(dir string, m Manifest, kind ngram.Kind) (string, bool) {
	name, ok := m.Indexes[kind.String()]
	if !ok {
		return "", false
	}
	return filepath.Join(dir, name), true
}
