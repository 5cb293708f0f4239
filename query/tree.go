// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import "time"

// Op tags the variant of a Node.
type Op int

const (
	OpLiteral Op = iota
	OpAnd
	OpOr
	OpMinOf
)

// Node is a boolean query tree: a literal byte string, a conjunction, a
// disjunction, or a k-of-n fold over children. It is a tagged sum type;
// the fields that apply depend on Op.
type Node struct {
	Op       Op
	Literal  []byte // OpLiteral
	Children []*Node
	K        int // OpMinOf
}

func Lit(s []byte) *Node { return &Node{Op: OpLiteral, Literal: s} }

func And(children ...*Node) *Node { return &Node{Op: OpAnd, Children: children} }

func Or(children ...*Node) *Node { return &Node{Op: OpOr, Children: children} }

func MinOfNode(k int, children ...*Node) *Node {
	return &Node{Op: OpMinOf, K: k, Children: children}
}

// LiteralResolver resolves one query literal to a Result for the dataset
// currently being probed; it is expected to intersect across every
// enabled index kind, per spec.
type LiteralResolver func(literal []byte) (Result, error)

// Evaluate recursively lowers a query tree to a Result, using resolve for
// leaves and the set algebra in result.go for internal nodes. counters
// may be nil.
func Evaluate(n *Node, resolve LiteralResolver, counters *Counters) (Result, error) {
	switch n.Op {
	case OpLiteral:
		start := time.Now()
		r, err := resolve(n.Literal)
		counters.track("read", start)
		return r, err

	case OpAnd:
		result := Everything()
		for i, c := range n.Children {
			cr, err := Evaluate(c, resolve, counters)
			if err != nil {
				return Result{}, err
			}
			if i == 0 {
				result = cr
			} else {
				start := time.Now()
				result = Intersect(result, cr)
				counters.track("and", start)
			}
			if result.IsEmptyConcrete() {
				break
			}
		}
		return result, nil

	case OpOr:
		result := Empty()
		for _, c := range n.Children {
			cr, err := Evaluate(c, resolve, counters)
			if err != nil {
				return Result{}, err
			}
			start := time.Now()
			result = Union(result, cr)
			counters.track("or", start)
		}
		return result, nil

	case OpMinOf:
		sources := make([]Result, len(n.Children))
		for i, c := range n.Children {
			cr, err := Evaluate(c, resolve, counters)
			if err != nil {
				return Result{}, err
			}
			sources[i] = cr
		}
		start := time.Now()
		r := MinOf(n.K, sources)
		counters.track("minof", start)
		return r, nil

	default:
		panic("query: unknown op")
	}
}
