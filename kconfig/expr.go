// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// expr.go implements component B: the tri-valued expression model and its
// compiler. kraftkit's kconfig.go (the teacher) calls an `expr` interface
// with `exprAnd`/`collectDeps` that the retrieved pack does not include a
// definition for; this file reconstructs that contract against spec.md
// §3/§4.1, choosing the precedence-climbing recursive-descent form spec.md
// §4.1 offers as an accepted alternative to iterative parenthesized-form
// reduction (see DESIGN.md, Open Questions).

package kconfig

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ExprKind tags an Expr node. Kconfig's operator set exactly, per spec.md
// §3's tagged-node data model (no inheritance, see Design Notes).
type ExprKind int

const (
	ExprConst ExprKind = iota
	ExprNone           // wraps a single bare-symbol operand
	ExprNot
	ExprAnd
	ExprOr
	ExprEq
	ExprNeq
)

// operand is spec.md's "ExpressionData": a sum of a symbol handle or a
// nested expression. Exactly one of Sym/Expr is non-nil for a populated
// operand; both nil means "null child", which evaluates to N (spec.md
// §4.1 "A null child evaluates to N").
type operand struct {
	Sym  *Entry
	Expr *Expr
}

func (o operand) calculate() Tri {
	switch {
	case o.Sym != nil:
		return symbolTri(o.Sym)
	case o.Expr != nil:
		return o.Expr.Calculate()
	default:
		return N
	}
}

// Expr is a compiled Kconfig boolean/comparison expression.
type Expr struct {
	Kind  ExprKind
	Const Tri    // valid for ExprConst
	Sym   *Entry // valid for ExprNone
	Left  operand
	Right operand
}

// exprN, exprM, exprY are the interned constant singletons spec.md §3
// names explicitly.
var (
	exprN = &Expr{Kind: ExprConst, Const: N}
	exprM = &Expr{Kind: ExprConst, Const: M}
	exprY = &Expr{Kind: ExprConst, Const: Y}
)

// Calculate evaluates the expression against the live values of every
// symbol it references (spec.md §4.1 "Calculation contract").
func (e *Expr) Calculate() Tri {
	if e == nil {
		return N
	}
	switch e.Kind {
	case ExprConst:
		return e.Const
	case ExprNone:
		return symbolTri(e.Sym)
	case ExprNot:
		return triNot(e.Left.calculate())
	case ExprAnd:
		return triAnd(e.Left.calculate(), e.Right.calculate())
	case ExprOr:
		return triOr(e.Left.calculate(), e.Right.calculate())
	case ExprEq, ExprNeq:
		eq := operandsEqual(e.Left, e.Right)
		if e.Kind == ExprNeq {
			eq = !eq
		}
		if eq {
			return Y
		}
		return N
	default:
		return N
	}
}

// operandsEqual implements the Equal/NotEqual contract: string comparison
// when both sides are string-typed symbols, tri comparison otherwise.
func operandsEqual(a, b operand) bool {
	if a.Sym != nil && b.Sym != nil && a.Sym.ValueType == TypeString && b.Sym.ValueType == TypeString {
		return a.Sym.Value() == b.Sym.Value()
	}
	return a.calculate() == b.calculate()
}

// symbolTri reduces a symbol's current backing value to its tri-value,
// used whenever a bare symbol appears as a boolean operand.
func symbolTri(s *Entry) Tri {
	if s == nil {
		return N
	}
	if s.Kind == KindChoice {
		// A choice's own value is a child name, not boolish; treat
		// "has a selection" as Y, matching how a choice gates its
		// children's visibility.
		if s.Value() != "" {
			return Y
		}
		return N
	}
	t, _ := TriFromString(s.Value())
	return t
}

// exprAnd AND-combines two possibly-nil expressions, used to compose
// inherited nestDependsOn with an entry's own depends-on attributes
// (spec.md §4.3 "Inherited dependency"), generalizing kraftkit's exprAnd.
func exprAnd(a, b *Expr) *Expr {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return &Expr{Kind: ExprAnd, Left: operand{Expr: a}, Right: operand{Expr: b}}
	}
}

// collectDeps appends every non-constant symbol e references, recursively,
// generalizing kraftkit's expr.collectDeps to the operand sum type.
func (e *Expr) collectDeps(into map[*Entry]bool) {
	if e == nil {
		return
	}
	collectOperand(e.Left, into)
	collectOperand(e.Right, into)
	if e.Kind == ExprNone && e.Sym != nil && !e.Sym.IsConst {
		into[e.Sym] = true
	}
}

func collectOperand(o operand, into map[*Entry]bool) {
	switch {
	case o.Sym != nil:
		if !o.Sym.IsConst {
			into[o.Sym] = true
		}
	case o.Expr != nil:
		o.Expr.collectDeps(into)
	}
}

// --- compiler ---------------------------------------------------------

type tokKind int

const (
	tokEOF tokKind = iota
	tokSymbol
	tokConst
	tokString
	tokNot
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	sym  *Entry // resolved symbol for tokSymbol/tokString/tokConst
	tri  Tri    // resolved value for tokConst
}

// exprCompiler turns raw Kconfig expression text into an *Expr against a
// known symbol table (spec.md §4.1 "Compilation contract").
type exprCompiler struct {
	toks   []token
	pos    int
	loc    Location
	consts map[string]*Entry
	refs   []*Entry
	seen   map[*Entry]bool
}

// CompileExpr compiles raw Kconfig expression text against symtab. On
// failure it returns (nil, nil, err); per spec.md §4.1 "Error mode" the
// caller is expected to treat that as a null expression and empty
// dependency list and keep parsing.
func CompileExpr(text string, symtab map[string]*Entry, loc Location) (*Expr, []*Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, nil
	}

	c := &exprCompiler{loc: loc, consts: map[string]*Entry{}, seen: map[*Entry]bool{}}
	toks, err := c.tokenize(text, symtab)
	if err != nil {
		return nil, nil, err
	}
	c.toks = toks

	op, err := c.parseOr()
	if err != nil {
		return nil, nil, err
	}
	if c.peek().kind != tokEOF {
		return nil, nil, c.errorf("unexpected trailing input near %q", c.peek().text)
	}

	if op.Expr != nil {
		return op.Expr, c.refs, nil
	}
	// Rule 4: a bare symbol result is wrapped in a None node.
	return &Expr{Kind: ExprNone, Sym: op.Sym}, c.refs, nil
}

func (c *exprCompiler) errorf(format string, args ...interface{}) error {
	return &LocatedError{Location: c.loc, Err: errors.Errorf(format, args...)}
}

func (c *exprCompiler) peek() token {
	if c.pos >= len(c.toks) {
		return token{kind: tokEOF}
	}
	return c.toks[c.pos]
}

func (c *exprCompiler) next() token {
	t := c.peek()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return t
}

func (c *exprCompiler) record(sym *Entry) {
	if sym == nil || sym.IsConst || c.seen[sym] {
		return
	}
	c.seen[sym] = true
	c.refs = append(c.refs, sym)
}

// tokenize lexes text, resolving identifiers against symtab and extracting
// quoted string literals into fresh constant symbols as it goes — folding
// spec.md's steps 1 and 2 into a single scan rather than the described
// textual extract-then-replace passes. The effect (discovered symbol list,
// unresolved-identifier failures, balanced-quote failures) is identical.
func (c *exprCompiler) tokenize(text string, symtab map[string]*Entry) ([]token, error) {
	var toks []token
	i := 0
	n := len(text)
	for i < n {
		ch := text[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case ch == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case ch == '!':
			if i+1 < n && text[i+1] == '=' {
				toks = append(toks, token{kind: tokNeq})
				i += 2
			} else {
				toks = append(toks, token{kind: tokNot})
				i++
			}
		case ch == '=':
			toks = append(toks, token{kind: tokEq})
			i++
		case ch == '&':
			if i+1 < n && text[i+1] == '&' {
				toks = append(toks, token{kind: tokAnd})
				i += 2
			} else {
				return nil, c.errorf("unrecognized operator '&' (want '&&') in %q", text)
			}
		case ch == '|':
			if i+1 < n && text[i+1] == '|' {
				toks = append(toks, token{kind: tokOr})
				i += 2
			} else {
				return nil, c.errorf("unrecognized operator '|' (want '||') in %q", text)
			}
		case ch == '"' || ch == '\'':
			lit, consumed, err := scanQuoted(text[i:])
			if err != nil {
				return nil, c.errorf("%v in %q", err, text)
			}
			i += consumed
			sym, ok := c.consts[lit]
			if !ok {
				sym = &Entry{Kind: KindConfig, ValueType: TypeString, IsConst: true, value: lit}
				c.consts[lit] = sym
			}
			toks = append(toks, token{kind: tokString, text: lit, sym: sym})
		default:
			if !isIdentByte(ch) {
				return nil, c.errorf("unexpected character %q in %q", string(ch), text)
			}
			start := i
			for i < n && isIdentByte(text[i]) {
				i++
			}
			word := text[start:i]
			switch strings.ToLower(word) {
			case "n":
				toks = append(toks, token{kind: tokConst, tri: N, text: word})
			case "m":
				toks = append(toks, token{kind: tokConst, tri: M, text: word})
			case "y":
				toks = append(toks, token{kind: tokConst, tri: Y, text: word})
			default:
				sym, ok := symtab[word]
				if !ok {
					return nil, c.errorf("unknown identifier %q", word)
				}
				toks = append(toks, token{kind: tokSymbol, text: word, sym: sym})
			}
		}
	}
	return toks, nil
}

func isIdentByte(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_'
}

// scanQuoted extracts a balanced, backslash-escaped quoted literal from the
// front of s, returning the literal value and the number of bytes of s it
// consumed (including the quotes).
func scanQuoted(s string) (string, int, error) {
	quote := s[0]
	var b strings.Builder
	i := 1
	for {
		if i >= len(s) {
			return "", 0, fmt.Errorf("unbalanced quotes")
		}
		ch := s[i]
		if ch == quote {
			i++
			break
		}
		if ch == '\\' && i+1 < len(s) && s[i+1] == quote {
			b.WriteByte(quote)
			i += 2
			continue
		}
		if ch == '\\' && i+1 < len(s) && s[i+1] == '\\' {
			b.WriteByte('\\')
			i += 2
			continue
		}
		b.WriteByte(ch)
		i++
	}
	return b.String(), i, nil
}

// grammar: expr := or ; or := and ('||' and)* ; and := eq ('&&' eq)* ;
// eq := unary (('=' | '!=') unary)? ; unary := '!' unary | primary ;
// primary := SYMBOL | STRING | 'n'|'m'|'y' | '(' expr ')'

func (c *exprCompiler) parseOr() (operand, error) {
	left, err := c.parseAnd()
	if err != nil {
		return operand{}, err
	}
	for c.peek().kind == tokOr {
		c.next()
		right, err := c.parseAnd()
		if err != nil {
			return operand{}, err
		}
		left = operand{Expr: &Expr{Kind: ExprOr, Left: left, Right: right}}
	}
	return left, nil
}

func (c *exprCompiler) parseAnd() (operand, error) {
	left, err := c.parseEq()
	if err != nil {
		return operand{}, err
	}
	for c.peek().kind == tokAnd {
		c.next()
		right, err := c.parseEq()
		if err != nil {
			return operand{}, err
		}
		left = operand{Expr: &Expr{Kind: ExprAnd, Left: left, Right: right}}
	}
	return left, nil
}

func (c *exprCompiler) parseEq() (operand, error) {
	left, err := c.parseUnary()
	if err != nil {
		return operand{}, err
	}
	switch c.peek().kind {
	case tokEq:
		c.next()
		right, err := c.parseUnary()
		if err != nil {
			return operand{}, err
		}
		return operand{Expr: &Expr{Kind: ExprEq, Left: left, Right: right}}, nil
	case tokNeq:
		c.next()
		right, err := c.parseUnary()
		if err != nil {
			return operand{}, err
		}
		return operand{Expr: &Expr{Kind: ExprNeq, Left: left, Right: right}}, nil
	default:
		return left, nil
	}
}

func (c *exprCompiler) parseUnary() (operand, error) {
	if c.peek().kind == tokNot {
		c.next()
		inner, err := c.parseUnary()
		if err != nil {
			return operand{}, err
		}
		return operand{Expr: &Expr{Kind: ExprNot, Left: inner}}, nil
	}
	return c.parsePrimary()
}

func (c *exprCompiler) parsePrimary() (operand, error) {
	t := c.next()
	switch t.kind {
	case tokSymbol:
		c.record(t.sym)
		return operand{Sym: t.sym}, nil
	case tokString:
		// constant literal symbols are never "referenced" dependencies
		return operand{Sym: t.sym}, nil
	case tokConst:
		switch t.tri {
		case N:
			return operand{Expr: exprN}, nil
		case M:
			return operand{Expr: exprM}, nil
		default:
			return operand{Expr: exprY}, nil
		}
	case tokLParen:
		inner, err := c.parseOr()
		if err != nil {
			return operand{}, err
		}
		if c.peek().kind != tokRParen {
			return operand{}, c.errorf("expected ')'")
		}
		c.next()
		return inner, nil
	default:
		return operand{}, c.errorf("expected an operand, found %q", t.text)
	}
}
