// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/malwarefrank/ursadb/ngram"
	"github.com/malwarefrank/ursadb/postlist"
	"github.com/stretchr/testify/require"
)

// writeMinimalIndex hand-builds an index file with a single non-empty
// posting list for token, to test the reader in isolation from the
// builder.
func writeMinimalIndex(t *testing.T, kind ngram.Kind, token uint32, ids []postlist.FileId) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manual.ursa")

	run := postlist.Encode(nil, ids)
	offsets := make([]uint64, ngram.NumTokens+1)
	for v := 0; v <= int(token); v++ {
		offsets[v] = 16
	}
	for v := int(token) + 1; v <= ngram.NumTokens; v++ {
		offsets[v] = 16 + uint64(len(run))
	}

	var buf []byte
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:4], Magic)
	binary.LittleEndian.PutUint32(hdr[4:8], Version)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(kind))
	buf = append(buf, hdr[:]...)
	buf = append(buf, run...)
	var off8 [8]byte
	for _, o := range offsets {
		binary.LittleEndian.PutUint64(off8[:], o)
		buf = append(buf, off8[:]...)
	}
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestOpenAndQueryToken(t *testing.T) {
	path := writeMinimalIndex(t, ngram.GRAM3, 42, []postlist.FileId{1, 6, 7, 8})
	ix, err := Open(path)
	require.NoError(t, err)
	defer ix.Close()

	require.Equal(t, ngram.GRAM3, ix.Kind())

	r, err := ix.QueryToken(42)
	require.NoError(t, err)
	require.Equal(t, []postlist.FileId{1, 6, 7, 8}, r.Ids)

	r, err = ix.QueryToken(43)
	require.NoError(t, err)
	require.True(t, r.IsEmptyConcrete())
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ursa")
	require.NoError(t, os.WriteFile(path, make([]byte, 16+8*(ngram.NumTokens+1)), 0o644))
	_, err := Open(path)
	require.Error(t, err)
}

func TestOpenRejectsTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.ursa")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o644))
	_, err := Open(path)
	require.Error(t, err)
}
