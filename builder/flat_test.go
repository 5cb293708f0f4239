// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package builder

import (
	"path/filepath"
	"testing"

	"github.com/malwarefrank/ursadb/index"
	"github.com/malwarefrank/ursadb/ngram"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, kind ngram.Kind, files map[uint64]string) *index.Index {
	t.Helper()
	b := NewFlat(kind)
	for fid, content := range files {
		require.NoError(t, b.AddFile(fid, []byte(content)))
	}
	path := filepath.Join(t.TempDir(), "test.ursa")
	require.NoError(t, b.Save(path))
	ix, err := index.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

// TestGram3PackQuery is scenario S4 from the spec: a small gram3 index
// built over five files, queried by several literals.
func TestGram3PackQuery(t *testing.T) {
	files := map[uint64]string{
		1: "kjhg",
		2: "\xA1\xA2\xA3\xA4\xA5\xA6\xA7\xA8",
		3: "",
		4: "\xA1\xA2abcdef\xA3\xA3\xA3system32\xA5cdefg\xA6\xA7",
		5: "\xAA\xAA\xAA\xAA\xAA\xAAem32\xA5cd \xAA\xAA\xAA\xAA\xAA\xAA",
	}
	ix := buildIndex(t, ngram.GRAM3, files)

	r, err := ix.QueryStr([]byte("kjhg"))
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, r.Ids)

	r, err = ix.QueryStr([]byte("m32\xA5c"))
	require.NoError(t, err)
	require.Equal(t, []uint64{4, 5}, r.Ids)

	r, err = ix.QueryStr([]byte("em32\xA5x"))
	require.NoError(t, err)
	require.Empty(t, r.Ids)

	r, err = ix.QueryStr([]byte("abcdef"))
	require.NoError(t, err)
	require.Equal(t, []uint64{4}, r.Ids)
}

func TestShortLiteralYieldsEverything(t *testing.T) {
	ix := buildIndex(t, ngram.GRAM3, map[uint64]string{1: "hello world"})
	r, err := ix.QueryStr([]byte("ab"))
	require.NoError(t, err)
	require.True(t, r.Everything)
}

func TestIndexSoundness(t *testing.T) {
	content := "the quick brown fox jumps over the lazy dog"
	ix := buildIndex(t, ngram.GRAM3, map[uint64]string{1: content, 2: "unrelated text here"})
	for _, lit := range []string{"quick", "brown fox", "lazy dog"} {
		r, err := ix.QueryStr([]byte(lit))
		require.NoError(t, err)
		require.Contains(t, r.Ids, uint64(1))
	}
}

func TestCanStillAdd(t *testing.T) {
	b := NewFlat(ngram.GRAM3)
	require.True(t, b.CanStillAdd(10, 1))
	require.False(t, b.CanStillAdd(MaxTokensBuffer+100, 1))
}
