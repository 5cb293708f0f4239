// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import (
	"testing"

	"github.com/malwarefrank/ursadb/postlist"
	"github.com/stretchr/testify/require"
)

func literalResolver(table map[string][]postlist.FileId) LiteralResolver {
	return func(lit []byte) (Result, error) {
		if v, ok := table[string(lit)]; ok {
			return FromSorted(v), nil
		}
		return Empty(), nil
	}
}

func TestEvaluateAndOr(t *testing.T) {
	resolve := literalResolver(map[string][]postlist.FileId{
		"cat": ids(1, 2, 3),
		"dog": ids(2, 3, 4),
	})
	n := And(Lit([]byte("cat")), Lit([]byte("dog")))
	r, err := Evaluate(n, resolve, nil)
	require.NoError(t, err)
	require.Equal(t, ids(2, 3), r.Ids)

	n2 := Or(Lit([]byte("cat")), Lit([]byte("dog")))
	r2, err := Evaluate(n2, resolve, nil)
	require.NoError(t, err)
	require.Equal(t, ids(1, 2, 3, 4), r2.Ids)
}

func TestEvaluateMinOf(t *testing.T) {
	resolve := literalResolver(map[string][]postlist.FileId{
		"a": ids(1, 2, 3),
		"b": ids(2, 3, 4),
		"c": ids(3, 4, 5),
	})
	n := MinOfNode(2, Lit([]byte("a")), Lit([]byte("b")), Lit([]byte("c")))
	r, err := Evaluate(n, resolve, nil)
	require.NoError(t, err)
	require.Equal(t, ids(2, 3, 4), r.Ids)
}

func TestEvaluateCounters(t *testing.T) {
	resolve := literalResolver(map[string][]postlist.FileId{"a": ids(1)})
	var c Counters
	_, err := Evaluate(And(Lit([]byte("a")), Lit([]byte("a"))), resolve, &c)
	require.NoError(t, err)
	require.EqualValues(t, 2, c.Read.Count)
	require.EqualValues(t, 1, c.And.Count)
}
