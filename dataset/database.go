// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/malwarefrank/ursadb/builder"
	"github.com/malwarefrank/ursadb/ngram"
	"github.com/malwarefrank/ursadb/query"
)

// DefaultMaxDatasetBytes bounds how many bytes of source file content a
// single indexing batch accumulates before it is cut into its own
// dataset, independent of the token-buffer limit enforced by
// builder.Flat.CanStillAdd.
const DefaultMaxDatasetBytes = 256 << 20

// Database owns every dataset on disk under a base directory and
// mediates concurrent access through Snapshots. Its only mutable shared
// state is the current snapshot pointer; datasets and their index files
// are immutable once published.
type Database struct {
	baseDir         string
	MaxDatasetBytes int64

	mu       sync.Mutex
	datasets map[string]*Dataset
	current  *Snapshot
}

// OpenDatabase loads every dataset directory (one containing
// manifest.yaml) found directly under baseDir.
func OpenDatabase(baseDir string) (*Database, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", baseDir, err)
	}
	db := &Database{
		baseDir:         baseDir,
		MaxDatasetBytes: DefaultMaxDatasetBytes,
		datasets:        make(map[string]*Dataset),
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(baseDir, e.Name())
		if _, err := os.Stat(manifestPath(dir)); err != nil {
			continue
		}
		d, err := Open(dir)
		if err != nil {
			slog.Warn("skipping dataset with unreadable manifest", "dir", dir, "err", err)
			continue
		}
		db.datasets[d.ID()] = d
	}
	db.current = db.snapshotLocked()
	return db, nil
}

// Snapshot returns the current snapshot, acquiring a reference on behalf
// of the caller. The caller must call Release when done.
func (db *Database) Snapshot() *Snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, d := range db.current.datasets {
		d.acquire()
	}
	snap := &Snapshot{db: db, datasets: db.current.datasets}
	return snap
}

// snapshotLocked builds a Snapshot over every live dataset. Caller must
// hold db.mu.
func (db *Database) snapshotLocked() *Snapshot {
	datasets := make([]*Dataset, 0, len(db.datasets))
	for _, d := range db.datasets {
		datasets = append(datasets, d)
	}
	for _, d := range datasets {
		d.acquire()
	}
	return &Snapshot{db: db, datasets: datasets}
}

// publishLocked installs a freshly built snapshot as current, releasing
// the Database's own bookkeeping reference on the snapshot it replaces.
// Caller must hold db.mu.
func (db *Database) publishLocked() {
	old := db.current
	db.current = db.snapshotLocked()
	for _, d := range old.datasets {
		d.release()
	}
}

// IndexPaths indexes paths into one or more new datasets, splitting the
// batch so that no single builder exceeds builder.Flat's token-buffer
// limit or Database.MaxDatasetBytes; an oversize single file is given a
// dataset of its own. A new snapshot is published as each batch's
// dataset lands.
func (db *Database) IndexPaths(paths []string, kinds []ngram.Kind) error {
	batches, err := db.splitBatches(paths)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		d, err := Build(db.baseDir, kinds, batch)
		if err != nil {
			return err
		}
		db.mu.Lock()
		db.datasets[d.ID()] = d
		db.publishLocked()
		db.mu.Unlock()
	}
	return nil
}

func (db *Database) splitBatches(paths []string) ([][]string, error) {
	maxBytes := db.MaxDatasetBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDatasetBytes
	}

	var batches [][]string
	var batch []string
	var cumTokens, cumBytes int64

	flush := func() {
		if len(batch) > 0 {
			batches = append(batches, batch)
			batch = nil
			cumTokens, cumBytes = 0, 0
		}
	}

	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("dataset: stat %s: %w", path, err)
		}
		size := fi.Size()
		predicted := size - 2
		if predicted < 0 {
			predicted = 0
		}

		if predicted >= builder.MaxTokensBuffer {
			flush()
			batches = append(batches, []string{path})
			continue
		}
		if len(batch) > 0 && (cumTokens+predicted >= builder.MaxTokensBuffer || cumBytes+size > maxBytes) {
			flush()
		}
		batch = append(batch, path)
		cumTokens += predicted
		cumBytes += size
	}
	flush()
	return batches, nil
}

// Select evaluates tree against every dataset in snap and returns the
// union of matching paths. Per dataset, a literal is resolved by
// intersecting across that dataset's enabled index kinds (Dataset.Resolver);
// results across datasets are concatenated since FileId spaces are
// dataset-local and file universes are disjoint.
func (db *Database) Select(snap *Snapshot, tree *query.Node, counters *query.Counters) ([]string, error) {
	var out []string
	for _, d := range snap.Datasets() {
		r, err := query.Evaluate(tree, d.Resolver(), counters)
		if err != nil {
			return nil, fmt.Errorf("dataset: %s: %w", d.ID(), err)
		}
		if r.Everything {
			out = append(out, d.Paths()...)
			continue
		}
		for _, id := range r.Ids {
			if p, ok := d.PathByID(id); ok {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// Reindex rebuilds a dataset's index files from its existing path list
// using a new set of kinds, replacing it in place once the rebuild
// completes.
func (db *Database) Reindex(datasetID string, kinds []ngram.Kind) error {
	db.mu.Lock()
	old, ok := db.datasets[datasetID]
	db.mu.Unlock()
	if !ok {
		return fmt.Errorf("dataset: unknown dataset %q", datasetID)
	}

	fresh, err := Build(db.baseDir, kinds, old.Paths())
	if err != nil {
		return err
	}

	db.mu.Lock()
	db.datasets[fresh.ID()] = fresh
	delete(db.datasets, old.ID())
	db.publishLocked()
	old.markDropped()
	db.mu.Unlock()
	return nil
}

// Topology lists every live dataset id and the index kinds it carries.
func (db *Database) Topology() []TopologyEntry {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]TopologyEntry, 0, len(db.datasets))
	for _, d := range db.datasets {
		out = append(out, TopologyEntry{DatasetID: d.ID(), Kinds: d.Kinds()})
	}
	return out
}

// TopologyEntry describes one dataset for the `topology` command.
type TopologyEntry struct {
	DatasetID string
	Kinds     []ngram.Kind
}
