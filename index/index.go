// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package index implements ursadb's on-disk index format: a magic-headed
// file with a fixed-size per-token offset table followed by delta-varint
// posting runs, opened read-only over a memory map.
package index

// Index file layout (little-endian):
//
//	offset  size                 field
//	0       4                    magic
//	4       4                    version = 6
//	8       4                    kind (0=gram3, 1=text4, 2=hash4)
//	12      4                    reserved = 0
//	16      variable             posting runs
//	X       8*(NumTokens+1)      offset table; offsets[NumTokens] == X
//
// For token t, its posting run lies in data[offsets[t]:offsets[t+1]); an
// empty interval means the token has no files.

import (
	"encoding/binary"
	"fmt"

	"github.com/malwarefrank/ursadb/mmapfile"
	"github.com/malwarefrank/ursadb/ngram"
	"github.com/malwarefrank/ursadb/postlist"
	"github.com/malwarefrank/ursadb/query"
)

const (
	Magic         uint32 = 0x55525341 // "URSA"
	Version       uint32 = 6
	headerSize           = 16
	offsetEntSize         = 8
)

// Index is a read-only, memory-mapped on-disk posting-list index for one
// IndexKind.
type Index struct {
	mm   *mmapfile.File
	data []byte
	kind ngram.Kind
}

// Open maps file, validates its header, and returns a ready-to-query
// Index. The returned Index must be closed by the caller (typically the
// owning Dataset) to release the memory map.
func Open(path string) (*Index, error) {
	mm, err := mmapfile.Open(path)
	if err != nil {
		return nil, err
	}
	data := mm.Data()
	if len(data) < headerSize+offsetEntSize {
		mm.Close()
		return nil, fmt.Errorf("index: %s: truncated header", path)
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != Magic {
		mm.Close()
		return nil, fmt.Errorf("index: %s: bad magic %#x", path, magic)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != Version {
		mm.Close()
		return nil, fmt.Errorf("index: %s: unsupported version %d", path, version)
	}
	kind := ngram.Kind(binary.LittleEndian.Uint32(data[8:12]))
	expectLen := headerSize + int64(ngram.NumTokens+1)*offsetEntSize
	if int64(len(data)) < expectLen {
		mm.Close()
		return nil, fmt.Errorf("index: %s: truncated offset table", path)
	}
	return &Index{mm: mm, data: data, kind: kind}, nil
}

// Close releases the memory map.
func (ix *Index) Close() error { return ix.mm.Close() }

// Kind reports the IndexKind this file was built for.
func (ix *Index) Kind() ngram.Kind { return ix.kind }

// Name returns the backing file path.
func (ix *Index) Name() string { return ix.mm.Name() }

func (ix *Index) offsetTableStart() int {
	return len(ix.data) - (ngram.NumTokens+1)*offsetEntSize
}

func (ix *Index) offset(token uint32) int64 {
	start := ix.offsetTableStart()
	off := start + int(token)*offsetEntSize
	return int64(binary.LittleEndian.Uint64(ix.data[off : off+8]))
}

// QueryToken returns the posting list for a single token.
func (ix *Index) QueryToken(token uint32) (query.Result, error) {
	if token >= ngram.NumTokens {
		return query.Result{}, fmt.Errorf("index: token %d out of range", token)
	}
	lo := ix.offset(token)
	hi := ix.offset(token + 1)
	if lo == hi {
		return query.Empty(), nil
	}
	run := ix.data[lo:hi]
	ids, err := postlist.Decode(run, -1)
	if err != nil {
		return query.Result{}, fmt.Errorf("index: %s: corrupt posting for token %#x: %w", ix.Name(), token, err)
	}
	return query.FromSorted(ids), nil
}

// QueryStr lowers literal to this index's token scheme and intersects the
// posting lists of all required tokens, in order. A literal producing zero
// tokens (too short for this scheme) yields everything.
func (ix *Index) QueryStr(literal []byte) (query.Result, error) {
	var toks []uint32
	ngram.Generate(ix.kind, literal, func(t uint32) { toks = append(toks, t) })
	if len(toks) == 0 {
		return query.Everything(), nil
	}
	result := query.Everything()
	for _, t := range toks {
		r, err := ix.QueryToken(t)
		if err != nil {
			return query.Result{}, err
		}
		result = query.Intersect(result, r)
		if result.IsEmptyConcrete() {
			break
		}
	}
	return result, nil
}
