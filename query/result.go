// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package query implements ursadb's query-result set algebra (union,
// intersection, k-of-n) and the boolean query tree that is lowered to it.
package query

import (
	"time"

	"github.com/malwarefrank/ursadb/postlist"
)

// Result is either the distinguished "everything" value, meaning no
// constraint could be derived from a subquery, or a concrete ascending,
// deduplicated vector of FileIds. If Everything is true, Ids is always
// empty.
type Result struct {
	Everything bool
	Ids        []postlist.FileId
}

// Everything returns the "no constraint" sentinel result.
func Everything() Result { return Result{Everything: true} }

// Empty returns the concrete empty result.
func Empty() Result { return Result{} }

// FromSorted wraps an already-ascending, deduplicated id vector.
func FromSorted(ids []postlist.FileId) Result { return Result{Ids: ids} }

// IsEmptyConcrete reports whether r is the concrete empty set (not
// everything, and no ids). Useful for early-exit during intersection
// chains.
func (r Result) IsEmptyConcrete() bool {
	return !r.Everything && len(r.Ids) == 0
}

// Union returns a ∪ b. everything absorbs: if either operand is
// everything, so is the result.
func Union(a, b Result) Result {
	if a.Everything || b.Everything {
		return Everything()
	}
	return Result{Ids: mergeUnion(a.Ids, b.Ids)}
}

// Intersect returns a ∩ b. everything is the identity: intersecting with
// everything returns the other operand unchanged.
func Intersect(a, b Result) Result {
	if a.Everything {
		return b
	}
	if b.Everything {
		return a
	}
	return Result{Ids: mergeIntersect(a.Ids, b.Ids)}
}

func mergeUnion(a, b []postlist.FileId) []postlist.FileId {
	out := make([]postlist.FileId, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func mergeIntersect(a, b []postlist.FileId) []postlist.FileId {
	var out []postlist.FileId
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// MinOf implements spec's k-of-n set operation over sources.
//
//   - Each everything source decrements k.
//   - If the remaining k <= 0, the result is everything.
//   - Empty concrete sources are dropped. If k exceeds the number of
//     remaining non-empty sources, the result is empty.
//   - k == 1 with one such source is a copy; k equal to their count folds
//     to Intersect; k == 1 folds to Union.
//   - Otherwise, a classic multi-way sorted merge: at each step, the
//     smallest current value across all source iterators is emitted if at
//     least k iterators expose it.
func MinOf(k int, sources []Result) Result {
	var concrete [][]postlist.FileId
	for _, s := range sources {
		if s.Everything {
			k--
			continue
		}
		if len(s.Ids) > 0 {
			concrete = append(concrete, s.Ids)
		}
	}
	if k <= 0 {
		return Everything()
	}
	if k > len(concrete) {
		return Empty()
	}
	if k == 1 && len(concrete) == 1 {
		return Result{Ids: append([]postlist.FileId(nil), concrete[0]...)}
	}
	if k == len(concrete) {
		out := concrete[0]
		for _, c := range concrete[1:] {
			out = mergeIntersect(out, c)
		}
		return Result{Ids: out}
	}
	if k == 1 {
		var out []postlist.FileId
		for _, c := range concrete {
			out = mergeUnion(out, c)
		}
		return Result{Ids: out}
	}
	return Result{Ids: minOfMerge(k, concrete)}
}

// minOfMerge runs the general k-of-n sorted merge: maintain a cursor per
// source, repeatedly pick the smallest current value, advance every
// cursor pointing at it, and emit the value if at least k cursors exposed
// it. Terminates once fewer than k sources remain with elements left.
func minOfMerge(k int, sources [][]postlist.FileId) []postlist.FileId {
	idx := make([]int, len(sources))
	var out []postlist.FileId
	for {
		active := 0
		var min postlist.FileId
		haveMin := false
		for i, s := range sources {
			if idx[i] >= len(s) {
				continue
			}
			active++
			v := s[idx[i]]
			if !haveMin || v < min {
				min = v
				haveMin = true
			}
		}
		if active < k {
			break
		}
		count := 0
		for i, s := range sources {
			if idx[i] < len(s) && s[idx[i]] == min {
				count++
				idx[i]++
			}
		}
		if count >= k {
			out = append(out, min)
		}
	}
	return out
}

// Counter accumulates the count and total duration of one kind of
// operation (or/and/read/minof), for observability.
type Counter struct {
	Count    int64
	Duration time.Duration
}

func (c *Counter) add(d time.Duration) {
	c.Count++
	c.Duration += d
}

// Counters aggregates per-operation-kind Counters for a query evaluation,
// matching ursadb's QueryCounters.
type Counters struct {
	Or    Counter
	And   Counter
	Read  Counter
	MinOf Counter
}

// track records the duration of an operation, identified by kind, into
// c. c may be nil, in which case tracking is a no-op; this lets callers
// pass nil when counters are not wanted.
func (c *Counters) track(kind string, start time.Time) {
	if c == nil {
		return
	}
	d := time.Since(start)
	switch kind {
	case "or":
		c.Or.add(d)
	case "and":
		c.And.add(d)
	case "read":
		c.Read.add(d)
	case "minof":
		c.MinOf.add(d)
	}
}
