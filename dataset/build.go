// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/malwarefrank/ursadb/builder"
	"github.com/malwarefrank/ursadb/ngram"
	"github.com/malwarefrank/ursadb/postlist"
)

// Build indexes paths into a brand new dataset directory under baseDir,
// one builder.Flat per requested kind. Files are fed to the builders
// one after another; the builders' index files are then saved
// concurrently. The resulting manifest assigns FileIds as paths' 1-based
// position.
//
// Zero-length files are skipped rather than failing the whole batch;
// their paths stay in the manifest, so their FileIds are left unused.
func Build(baseDir string, kinds []ngram.Kind, paths []string) (*Dataset, error) {
	if len(kinds) == 0 {
		return nil, errors.New("dataset: at least one index kind is required")
	}
	if len(paths) == 0 {
		return nil, errors.New("dataset: at least one file path is required")
	}

	id := uuid.NewString()
	dir := filepath.Join(baseDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dataset: create %s: %w", dir, err)
	}

	builders := make([]*builder.Flat, len(kinds))
	for i, k := range kinds {
		builders[i] = builder.NewFlat(k)
	}

	for pos, path := range paths {
		data, empty, err := readFileTolerant(path)
		if err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("dataset: read %s: %w", path, err)
		}
		if empty {
			continue
		}
		fid := postlist.FileId(pos + 1)
		for _, b := range builders {
			if err := b.AddFile(fid, data); err != nil {
				os.RemoveAll(dir)
				return nil, err
			}
		}
	}

	var g errgroup.Group
	manifestIndexes := make(map[string]string, len(kinds))
	for i, k := range kinds {
		i, k := i, k
		filename := k.String() + ".ursa"
		manifestIndexes[k.String()] = filename
		g.Go(func() error {
			return builders[i].Save(filepath.Join(dir, filename))
		})
	}
	if err := g.Wait(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("dataset: save index: %w", err)
	}

	m := Manifest{ID: id, Indexes: manifestIndexes, Paths: paths}
	if err := saveManifest(dir, m); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	return Open(dir)
}

// readFileTolerant reads a file's full contents, reporting empty=true
// (rather than an error) for zero-length files so the caller can skip
// them.
func readFileTolerant(path string) (data []byte, empty bool, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}
	if fi.Size() == 0 {
		return nil, true, nil
	}
	data, err = os.ReadFile(path)
	return data, false, err
}
