// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import (
	"testing"

	"github.com/malwarefrank/ursadb/postlist"
	"github.com/stretchr/testify/require"
)

func ids(v ...postlist.FileId) []postlist.FileId { return v }

func TestUnionIntersectLaws(t *testing.T) {
	a := FromSorted(ids(1, 2, 3))
	b := FromSorted(ids(2, 3, 4))

	require.Equal(t, Union(a, b), Union(b, a))
	require.Equal(t, Intersect(a, b), Intersect(b, a))

	require.Equal(t, a, Union(a, a))
	require.Equal(t, a, Intersect(a, a))

	require.True(t, Union(a, Everything()).Everything)
	require.Equal(t, a, Intersect(a, Everything()))
}

func TestUnionAssociative(t *testing.T) {
	a := FromSorted(ids(1, 5))
	b := FromSorted(ids(2, 5))
	c := FromSorted(ids(3, 5))
	require.Equal(t, Union(Union(a, b), c), Union(a, Union(b, c)))
	require.Equal(t, Intersect(Intersect(a, b), c), Intersect(a, Intersect(b, c)))
}

func TestMinOfBounds(t *testing.T) {
	sources := []Result{
		FromSorted(ids(1, 2)),
		FromSorted(ids(2, 3)),
		FromSorted(ids(2, 4)),
	}
	require.True(t, MinOf(0, sources).Everything)

	got := MinOf(len(sources), sources)
	want := Intersect(Intersect(sources[0], sources[1]), sources[2])
	require.Equal(t, want, got)

	got = MinOf(1, sources)
	want = Union(Union(sources[0], sources[1]), sources[2])
	require.Equal(t, want, got)

	require.True(t, MinOf(len(sources)+1, sources).IsEmptyConcrete())
}

func TestMinOfGeneral(t *testing.T) {
	sources := []Result{
		FromSorted(ids(1, 2, 3)),
		FromSorted(ids(2, 3, 4)),
		FromSorted(ids(3, 4, 5)),
	}
	got := MinOf(2, sources)
	require.Equal(t, ids(2, 3, 4), got.Ids)
}

func TestMinOfEverythingDecrementsK(t *testing.T) {
	sources := []Result{Everything(), FromSorted(ids(1, 2))}
	got := MinOf(1, sources)
	require.True(t, got.Everything)
}
