// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmapfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenReadsContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	want := []byte("hello, ursadb")
	require.NoError(t, os.WriteFile(path, want, 0o644))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, want, f.Data())
	require.Equal(t, len(want), f.Size())
	require.Equal(t, path, f.Name())
}

func TestOpenEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path)
	require.ErrorIs(t, err, ErrEmptyFile)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
}
