// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/malwarefrank/ursadb/command"
	"github.com/malwarefrank/ursadb/ngram"
	"github.com/stretchr/testify/require"
)

func TestCompactAllMergesAndPreservesResults(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))

	db, err := OpenDatabase(dir)
	require.NoError(t, err)

	require.NoError(t, db.IndexPaths([]string{
		writeTestFile(t, srcDir, "a.txt", "alpha bravo charlie"),
	}, []ngram.Kind{ngram.GRAM3}))
	require.NoError(t, db.IndexPaths([]string{
		writeTestFile(t, srcDir, "b.txt", "delta echo foxtrot"),
	}, []ngram.Kind{ngram.GRAM3}))

	snapBefore := db.Snapshot()
	require.Len(t, snapBefore.Datasets(), 2)
	snapBefore.Release()

	require.NoError(t, db.Compact(false))

	snap := db.Snapshot()
	defer snap.Release()
	require.Len(t, snap.Datasets(), 1)

	cmd, err := command.Parse(`select "bravo" | "echo";`)
	require.NoError(t, err)
	found, err := db.Select(snap, cmd.Query, nil)
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestCompactSmartSkipsDissimilarSizes(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))

	db, err := OpenDatabase(dir)
	require.NoError(t, err)

	require.NoError(t, db.IndexPaths([]string{
		writeTestFile(t, srcDir, "tiny.txt", "ab"),
	}, []ngram.Kind{ngram.GRAM3}))
	require.NoError(t, db.IndexPaths([]string{
		writeTestFile(t, srcDir, "big.txt", strings.Repeat("lorem ipsum dolor sit amet ", 200)),
	}, []ngram.Kind{ngram.GRAM3}))

	require.NoError(t, db.Compact(true))

	snap := db.Snapshot()
	defer snap.Release()
	require.Len(t, snap.Datasets(), 2, "dissimilarly sized datasets should not be merged by smart compaction")
}
