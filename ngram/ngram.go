// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ngram generates the 24-bit token streams that back ursadb's
// inverted indexes: raw 3-grams, base64-windowed 4-grams, and hashed
// 4-grams.
package ngram

// Kind identifies which token scheme an index uses. It is stored in an
// index file's header and determines how query literals are lowered to
// tokens.
type Kind uint32

const (
	GRAM3 Kind = iota
	TEXT4
	HASH4
)

func (k Kind) String() string {
	switch k {
	case GRAM3:
		return "gram3"
	case TEXT4:
		return "text4"
	case HASH4:
		return "hash4"
	default:
		return "unknown"
	}
}

// ParseKind maps a textual index-kind name, as used in the command DSL
// (gram3|text4|hash4), to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "gram3":
		return GRAM3, true
	case "text4":
		return TEXT4, true
	case "hash4":
		return HASH4, true
	default:
		return 0, false
	}
}

// MinLen returns the shortest literal length that produces at least one
// token under this scheme. Literals shorter than this produce zero tokens.
func (k Kind) MinLen() int {
	if k == GRAM3 {
		return 3
	}
	return 4
}

// NumTokens is the size of the 24-bit token space shared by all three
// schemes.
const NumTokens = 1 << 24

// Generate streams the tokens for data under the given scheme, in order,
// calling sink for each one. Generators are pure and restartable: calling
// Generate twice on equal byte slices yields an identical sequence.
func Generate(k Kind, data []byte, sink func(token uint32)) {
	switch k {
	case GRAM3:
		gram3(data, sink)
	case TEXT4:
		text4(data, sink)
	case HASH4:
		hash4(data, sink)
	default:
		panic("ngram: unknown kind")
	}
}

// gram3Pack packs three consecutive bytes into a 24-bit token. Byte values
// are unsigned; there is no sign extension.
func gram3Pack(b0, b1, b2 byte) uint32 {
	return uint32(b0)<<16 | uint32(b1)<<8 | uint32(b2)
}

func gram3(data []byte, sink func(token uint32)) {
	if len(data) < 3 {
		return
	}
	for i := 0; i+3 <= len(data); i++ {
		sink(gram3Pack(data[i], data[i+1], data[i+2]))
	}
}

// hash4 emits, for every window of 4 consecutive bytes, the xor of the
// gram3 token of the first 3 bytes and the gram3 token of the last 3
// bytes.
func hash4(data []byte, sink func(token uint32)) {
	if len(data) < 4 {
		return
	}
	for i := 0; i+4 <= len(data); i++ {
		g1 := gram3Pack(data[i], data[i+1], data[i+2])
		g2 := gram3Pack(data[i+1], data[i+2], data[i+3])
		sink(g1 ^ g2)
	}
}

// base64Value maps a byte to its 6-bit base64 value, or -1 if the byte is
// not in the base64 alphabet (A-Z a-z 0-9 + /).
func base64Value(b byte) int {
	switch {
	case b >= 'A' && b <= 'Z':
		return int(b - 'A')
	case b >= 'a' && b <= 'z':
		return int(b-'a') + 26
	case b >= '0' && b <= '9':
		return int(b-'0') + 52
	case b == '+':
		return 62
	case b == '/':
		return 63
	default:
		return -1
	}
}

// text4 emits one token per 4-wide window inside each maximal run of
// consecutive base64-alphabet bytes. A non-base64 byte breaks the run;
// runs shorter than 4 bytes emit nothing.
func text4(data []byte, sink func(token uint32)) {
	var window [4]int
	have := 0
	for _, b := range data {
		v := base64Value(b)
		if v < 0 {
			have = 0
			continue
		}
		if have == 4 {
			window[0], window[1], window[2] = window[1], window[2], window[3]
			window[3] = v
		} else {
			window[have] = v
			have++
		}
		if have == 4 {
			sink(uint32(window[0])<<18 | uint32(window[1])<<12 | uint32(window[2])<<6 | uint32(window[3]))
		}
	}
}
