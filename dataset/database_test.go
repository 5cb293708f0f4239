// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/malwarefrank/ursadb/command"
	"github.com/malwarefrank/ursadb/ngram"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildAndSelect(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))

	paths := []string{
		writeTestFile(t, srcDir, "a.txt", "the quick brown fox"),
		writeTestFile(t, srcDir, "b.txt", "the lazy dog"),
		writeTestFile(t, srcDir, "empty.txt", ""),
	}

	db, err := OpenDatabase(dir)
	require.NoError(t, err)
	require.NoError(t, db.IndexPaths(paths, []ngram.Kind{ngram.GRAM3}))

	snap := db.Snapshot()
	defer snap.Release()
	require.Len(t, snap.Datasets(), 1)

	cmd, err := command.Parse(`select "quick";`)
	require.NoError(t, err)
	found, err := db.Select(snap, cmd.Query, nil)
	require.NoError(t, err)
	require.Contains(t, found, paths[0])
	require.NotContains(t, found, paths[1])
}

func TestIndexPathsSplitsOnByteBudget(t *testing.T) {
	dir := t.TempDir()
	batches, err := (&Database{MaxDatasetBytes: 10}).splitBatches([]string{
		writeTestFile(t, dir, "a.txt", "0123456789"),
		writeTestFile(t, dir, "b.txt", "0123456789"),
	})
	require.NoError(t, err)
	require.Len(t, batches, 2)
}

func TestTopologyAfterIndex(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	paths := []string{writeTestFile(t, srcDir, "a.txt", "hello world")}

	db, err := OpenDatabase(dir)
	require.NoError(t, err)
	require.NoError(t, db.IndexPaths(paths, []ngram.Kind{ngram.GRAM3, ngram.TEXT4}))

	topo := db.Topology()
	require.Len(t, topo, 1)
	require.ElementsMatch(t, []ngram.Kind{ngram.GRAM3, ngram.TEXT4}, topo[0].Kinds)
}
