// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"fmt"

	"github.com/malwarefrank/ursadb/ngram"
	"github.com/malwarefrank/ursadb/query"
)

// Kind tags which concrete command a Parse call produced.
type Kind int

const (
	KindSelect Kind = iota
	KindIndex
	KindReindex
	KindCompact
	KindStatus
	KindTopology
)

// Command is the parsed form of one request string. Only the fields
// relevant to Kind are populated.
type Command struct {
	Kind Kind

	// KindSelect
	Query *query.Node

	// KindIndex, KindReindex
	Path      string // KindIndex: filesystem path to index
	DatasetID string // KindReindex: target dataset id
	IndexKinds []ngram.Kind

	// KindCompact
	Smart bool
}

// Parse compiles one request string, terminated by ';', into a Command.
func Parse(src string) (Command, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return Command{}, err
	}
	cmd, err := p.parseCommand()
	if err != nil {
		return Command{}, err
	}
	if err := p.expect(tokSemi, "expected ';'"); err != nil {
		return Command{}, err
	}
	if p.tok.kind != tokEOF {
		return Command{}, &ParseError{Pos: p.tok.pos, Msg: "unexpected trailing input after ';'"}
	}
	return cmd, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(kind tokenKind, msg string) error {
	if p.tok.kind != kind {
		return &ParseError{Pos: p.tok.pos, Msg: msg}
	}
	return p.advance()
}

func (p *parser) parseCommand() (Command, error) {
	if p.tok.kind != tokIdent {
		return Command{}, &ParseError{Pos: p.tok.pos, Msg: "expected a command keyword"}
	}
	switch p.tok.text {
	case "select":
		if err := p.advance(); err != nil {
			return Command{}, err
		}
		tree, err := p.parseExpr()
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindSelect, Query: tree}, nil

	case "index":
		if err := p.advance(); err != nil {
			return Command{}, err
		}
		if p.tok.kind != tokString {
			return Command{}, &ParseError{Pos: p.tok.pos, Msg: "expected a quoted path"}
		}
		path := p.tok.text
		if err := p.advance(); err != nil {
			return Command{}, err
		}
		kinds, err := p.parseOptionalWith()
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindIndex, Path: path, IndexKinds: kinds}, nil

	case "reindex":
		if err := p.advance(); err != nil {
			return Command{}, err
		}
		if p.tok.kind != tokString {
			return Command{}, &ParseError{Pos: p.tok.pos, Msg: "expected a quoted dataset id"}
		}
		id := p.tok.text
		if err := p.advance(); err != nil {
			return Command{}, err
		}
		kinds, err := p.parseWith()
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindReindex, DatasetID: id, IndexKinds: kinds}, nil

	case "compact":
		if err := p.advance(); err != nil {
			return Command{}, err
		}
		smart := false
		if p.tok.kind == tokIdent && p.tok.text == "smart" {
			smart = true
			if err := p.advance(); err != nil {
				return Command{}, err
			}
		}
		return Command{Kind: KindCompact, Smart: smart}, nil

	case "status":
		if err := p.advance(); err != nil {
			return Command{}, err
		}
		return Command{Kind: KindStatus}, nil

	case "topology":
		if err := p.advance(); err != nil {
			return Command{}, err
		}
		return Command{Kind: KindTopology}, nil

	default:
		return Command{}, &ParseError{Pos: p.tok.pos, Msg: fmt.Sprintf("unknown command %q", p.tok.text)}
	}
}

// parseOptionalWith consumes a "with [...]" clause if present, else
// returns nil (meaning: every configured kind).
func (p *parser) parseOptionalWith() ([]ngram.Kind, error) {
	if p.tok.kind == tokIdent && p.tok.text == "with" {
		return p.parseWith()
	}
	return nil, nil
}

func (p *parser) parseWith() ([]ngram.Kind, error) {
	if err := p.expect2Ident("with"); err != nil {
		return nil, err
	}
	if err := p.expect(tokLBracket, "expected '[' after 'with'"); err != nil {
		return nil, err
	}
	var kinds []ngram.Kind
	for {
		if p.tok.kind != tokIdent {
			return nil, &ParseError{Pos: p.tok.pos, Msg: "expected an index kind (gram3, text4, hash4)"}
		}
		k, ok := ngram.ParseKind(p.tok.text)
		if !ok {
			return nil, &ParseError{Pos: p.tok.pos, Msg: fmt.Sprintf("unknown index kind %q", p.tok.text)}
		}
		kinds = append(kinds, k)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expect(tokRBracket, "expected ']' to close 'with' clause"); err != nil {
		return nil, err
	}
	return kinds, nil
}

func (p *parser) expect2Ident(word string) error {
	if p.tok.kind != tokIdent || p.tok.text != word {
		return &ParseError{Pos: p.tok.pos, Msg: fmt.Sprintf("expected %q", word)}
	}
	return p.advance()
}

// expr := primary | primary '&' expr | primary '|' expr
//
// '&' and '|' sit at the same precedence and are right-recursive: whichever
// operator follows a primary takes the *entire remainder* of the expression
// as its right operand, rather than binding to the next primary only. This
// matches the original parser (see original_source/Tests.cpp), under which
// `"cat" | "dog" & "msm" | "monk"` parses as
// `OR(cat, AND(dog, OR(msm, monk)))`, not a left-to-right fold.
func (p *parser) parseExpr() (*query.Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	switch p.tok.kind {
	case tokAmp:
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return query.And(left, right), nil
	case tokPipe:
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return query.Or(left, right), nil
	default:
		return left, nil
	}
}

// primary := STRING | '(' expr ')'
func (p *parser) parsePrimary() (*query.Node, error) {
	switch p.tok.kind {
	case tokString:
		lit := query.Lit([]byte(p.tok.text))
		if err := p.advance(); err != nil {
			return nil, err
		}
		return lit, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "expected ')'"); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, &ParseError{Pos: p.tok.pos, Msg: "expected a quoted string or '('"}
	}
}
