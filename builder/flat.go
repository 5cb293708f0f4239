// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package builder implements ursadb's in-memory index builder: it
// accumulates (file, token) pairs during ingestion and emits an on-disk
// index file (index.Index's format) via a radix sort over packed
// records.
package builder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/malwarefrank/ursadb/index"
	"github.com/malwarefrank/ursadb/ngram"
	"github.com/malwarefrank/ursadb/postlist"
)

// MaxTokensBuffer bounds a Flat builder's record buffer: 64Mi 64-bit
// records, about 512 MiB.
const MaxTokensBuffer = 64 << 20

// Builder is the interface an in-memory index accumulator implements, per
// spec: accumulate tokens for a file, predict whether more will still
// fit, and flush to disk.
type Builder interface {
	AddFile(fid postlist.FileId, data []byte) error
	CanStillAdd(size int64, files int) bool
	Save(path string) error
	NumFiles() int
}

// Flat is the concrete builder: a flat []uint64 buffer of packed
// (token<<40)|fid records, radix-sorted and run-length encoded on Save.
type Flat struct {
	kind      ngram.Kind
	raw       []uint64
	maxFileID postlist.FileId
	numFiles  int
}

func NewFlat(kind ngram.Kind) *Flat {
	return &Flat{kind: kind, raw: make([]uint64, 0, 1<<20)}
}

func (b *Flat) Kind() ngram.Kind { return b.kind }

func (b *Flat) NumFiles() int { return b.numFiles }

// AddFile generates this builder's token scheme over data and records one
// packed record per emitted token, associated with fid.
func (b *Flat) AddFile(fid postlist.FileId, data []byte) error {
	if fid == 0 || fid > postlist.MaxFileId {
		return fmt.Errorf("builder: invalid file id %d", fid)
	}
	if fid > b.maxFileID {
		b.maxFileID = fid
	}
	b.numFiles++
	ngram.Generate(b.kind, data, func(tok uint32) {
		b.raw = append(b.raw, uint64(tok)<<40|fid)
	})
	return nil
}

// CanStillAdd conservatively predicts the tokens a file of size bytes
// would add (max(0, size-2), the worst case across all three schemes) and
// refuses if the buffer would overflow MaxTokensBuffer.
func (b *Flat) CanStillAdd(size int64, files int) bool {
	predicted := int64(0)
	if size > 2 {
		predicted = size - 2
	}
	return int64(len(b.raw))+predicted < MaxTokensBuffer
}

// Save radix-sorts the buffer, deduplicates it, and writes the index file
// (header, posting runs, offset table) to path.
func (b *Flat) Save(path string) error {
	radixSort(b.raw, b.maxFileID)
	sorted := dedup(b.raw)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("builder: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:4], index.Magic)
	binary.LittleEndian.PutUint32(hdr[4:8], index.Version)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(b.kind))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	offsets := make([]uint64, ngram.NumTokens+1)
	offset := uint64(16)

	var group []postlist.FileId
	var groupToken uint32 = 0
	flushGroup := func(tok uint32) error {
		if group == nil {
			return nil
		}
		buf := postlist.Encode(nil, group)
		if _, err := w.Write(buf); err != nil {
			return err
		}
		offset += uint64(len(buf))
		group = group[:0]
		return nil
	}
	lastTok := int64(-1)
	for _, rec := range sorted {
		tok := uint32(rec >> 40)
		fid := rec & ((1 << 40) - 1)
		if int64(tok) != lastTok {
			if err := flushGroup(groupToken); err != nil {
				return err
			}
			for v := lastTok + 1; v <= int64(tok); v++ {
				offsets[v] = offset
			}
			lastTok = int64(tok)
			groupToken = tok
		}
		group = append(group, fid)
	}
	if err := flushGroup(groupToken); err != nil {
		return err
	}
	for v := lastTok + 1; v <= ngram.NumTokens; v++ {
		offsets[v] = offset
	}

	var off8 [8]byte
	for _, o := range offsets {
		binary.LittleEndian.PutUint64(off8[:], o)
		if _, err := w.Write(off8[:]); err != nil {
			return err
		}
	}
	return w.Flush()
}

func dedup(sorted []uint64) []uint64 {
	if len(sorted) == 0 {
		return sorted
	}
	n := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[n-1] {
			sorted[n] = sorted[i]
			n++
		}
	}
	return sorted[:n]
}

// countBytes returns how many bytes are needed to represent v (0 for
// v==0), matching the teacher's byte-count helper used to bound the
// radix-sort skip range.
func countBytes(v uint64) int {
	n := 0
	for v > 0 {
		v >>= 8
		n++
	}
	return n
}

// radixSort stably sorts data as 64-bit unsigned integers, byte by byte,
// ascending. Byte positions (0-based) from countBytes(maxFileID) up to but
// not including byte 5 (the token boundary at bit 40) are known to be zero in every
// record, so sorting them is skipped; the token bytes (bits 40-63) are
// always sorted. This relies on every record being packed as
// (token<<40)|fid with fid <= maxFileID.
func radixSort(data []uint64, maxFileID postlist.FileId) {
	if len(data) == 0 {
		return
	}
	skipTo := countBytes(uint64(maxFileID)) * 8
	swap := make([]uint64, len(data))
	for shift := 0; shift < 64; shift += 8 {
		if shift >= skipTo && shift < 40 {
			continue
		}
		countSort(data, swap, uint(shift))
	}
}

// countSort performs one stable counting-sort pass over data keyed by the
// byte at bit offset shift, using swap as scratch space.
func countSort(data, swap []uint64, shift uint) {
	var count [256]int
	for _, v := range data {
		count[(v>>shift)&0xFF]++
	}
	for i := 1; i < 256; i++ {
		count[i] += count[i-1]
	}
	for i := len(data) - 1; i >= 0; i-- {
		b := (data[i] >> shift) & 0xFF
		count[b]--
		swap[count[b]] = data[i]
	}
	copy(data, swap)
}
