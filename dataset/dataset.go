// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/malwarefrank/ursadb/index"
	"github.com/malwarefrank/ursadb/ngram"
	"github.com/malwarefrank/ursadb/postlist"
	"github.com/malwarefrank/ursadb/query"
)

// Dataset is an immutable, opened group of index files sharing one file
// list. It owns its mmap windows; a Dataset is only closed and unlinked
// once the last Snapshot referencing it is released.
type Dataset struct {
	dir      string
	manifest Manifest
	indexes  map[ngram.Kind]*index.Index

	refs    int32 // snapshots currently holding this dataset
	dropped atomic.Bool
}

// Open reopens a previously published dataset directory.
func Open(dir string) (*Dataset, error) {
	m, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}
	indexes := make(map[ngram.Kind]*index.Index, len(m.Indexes))
	for name := range m.Indexes {
		kind, ok := ngram.ParseKind(name)
		if !ok {
			closeAll(indexes)
			return nil, fmt.Errorf("dataset: %s: unknown index kind %q in manifest", dir, name)
		}
		path, _ := kindIndexPath(dir, m, kind)
		ix, err := index.Open(path)
		if err != nil {
			closeAll(indexes)
			return nil, fmt.Errorf("dataset: %s: open %s index: %w", dir, name, err)
		}
		indexes[kind] = ix
	}
	return &Dataset{dir: dir, manifest: m, indexes: indexes}, nil
}

func closeAll(indexes map[ngram.Kind]*index.Index) {
	for _, ix := range indexes {
		ix.Close()
	}
}

// ID is the dataset's manifest id, also its directory's base name.
func (d *Dataset) ID() string { return d.manifest.ID }

// Dir is the dataset's directory on disk.
func (d *Dataset) Dir() string { return d.dir }

// NumFiles is the number of paths this dataset covers.
func (d *Dataset) NumFiles() int { return len(d.manifest.Paths) }

// SizeBytes sums the on-disk size of this dataset's component index
// files, used by compaction to judge whether datasets are similarly
// sized.
func (d *Dataset) SizeBytes() int64 {
	var total int64
	for _, ix := range d.indexes {
		fi, err := os.Stat(ix.Name())
		if err != nil {
			continue
		}
		total += fi.Size()
	}
	return total
}

// Kinds lists the index kinds this dataset carries.
func (d *Dataset) Kinds() []ngram.Kind {
	out := make([]ngram.Kind, 0, len(d.indexes))
	for k := range d.indexes {
		out = append(out, k)
	}
	return out
}

// PathByID maps a 1-based FileId back to the source path it names.
func (d *Dataset) PathByID(id postlist.FileId) (string, bool) {
	if id == 0 || id > postlist.FileId(len(d.manifest.Paths)) {
		return "", false
	}
	return d.manifest.Paths[id-1], true
}

// Paths is the ordered file list backing this dataset's FileId space.
func (d *Dataset) Paths() []string { return d.manifest.Paths }

// Resolver builds a query.LiteralResolver bound to this dataset: per
// spec, a literal is resolved by computing query_str against every
// enabled kind this dataset carries and intersecting the results (each
// kind bounds the same literal independently; all must admit a file).
func (d *Dataset) Resolver() query.LiteralResolver {
	return func(lit []byte) (query.Result, error) {
		result := query.Everything()
		for _, ix := range d.indexes {
			r, err := ix.QueryStr(lit)
			if err != nil {
				return query.Result{}, fmt.Errorf("dataset: %s: query %s index: %w", d.manifest.ID, ix.Kind(), err)
			}
			result = query.Intersect(result, r)
			if result.IsEmptyConcrete() {
				break
			}
		}
		return result, nil
	}
}

// acquire registers one more live snapshot reference. Must be called
// with the owning Database's mutex held.
func (d *Dataset) acquire() { d.refs++ }

// release drops one snapshot reference, closing and unlinking the
// dataset's backing files once the count reaches zero and it has been
// marked for deletion by a completed compaction. Must be called with
// the owning Database's mutex held.
func (d *Dataset) release() {
	d.refs--
	if d.refs == 0 && d.dropped.Load() {
		d.destroy()
	}
}

// markDropped flags the dataset as superseded; it is physically removed
// once every snapshot referencing it has released it.
func (d *Dataset) markDropped() {
	d.dropped.Store(true)
	if d.refs == 0 {
		d.destroy()
	}
}

func (d *Dataset) destroy() {
	closeAll(d.indexes)
	os.RemoveAll(d.dir)
}
