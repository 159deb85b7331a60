// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// parser.go implements component D. Grounded directly on kraftkit's
// kconfigParser (kconfig/kconfig.go in the teacher): parseFile/parseLine/
// parseMenu/parseConfigType/parseProperty/pushCurrent/popCurrent/
// newCurrent/endCurrent/tryParsePrompt/parseDefaultValue/tryParseHelp all
// port the teacher's control flow. Where the teacher stubs an attribute
// (select/imply/range/option are parsed and discarded in the teacher), this
// file captures it per spec.md §4.3, and adds the menuconfig re-parenting
// rule the teacher's endCurrent/popCurrent never implement.

package kconfig

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ArdaFu/ArdaKconfigLibrary/log"
)

// ParseOptions configures a parse. Assembled through functional options,
// the idiom kraftkit uses for its project options, rather than the teacher
// kconfig package's variadic ...*KeyValue, which does not generalize to
// tab width / shell-expansion / strict-mode knobs.
type ParseOptions struct {
	TabWidth   int
	Env        EnvProvider
	AllowShell bool
	Workdir    string
	Strict     bool
	Ctx        context.Context
}

type ParseOption func(*ParseOptions)

func WithTabWidth(w int) ParseOption { return func(o *ParseOptions) { o.TabWidth = w } }

func WithEnv(env EnvProvider) ParseOption { return func(o *ParseOptions) { o.Env = env } }

// WithShellExpansion enables the teacher's $(shell, ...) substitution,
// kept as an opt-in (see SPEC_FULL.md §9.3/§10); disabled by default since
// it executes arbitrary commands found in source text.
func WithShellExpansion(allow bool) ParseOption {
	return func(o *ParseOptions) { o.AllowShell = allow }
}

func WithWorkdir(dir string) ParseOption { return func(o *ParseOptions) { o.Workdir = dir } }

// WithStrict makes unknown attribute lines fatal instead of logged warnings.
func WithStrict(strict bool) ParseOption { return func(o *ParseOptions) { o.Strict = strict } }

func WithContext(ctx context.Context) ParseOption { return func(o *ParseOptions) { o.Ctx = ctx } }

func defaultOptions() *ParseOptions {
	return &ParseOptions{TabWidth: 8, Env: NewMapEnv(), Ctx: context.Background()}
}

// ParseFile reads and parses a Kconfig tree rooted at path.
func ParseFile(path string, opts ...ParseOption) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open Kconfig file %v", path)
	}
	return ParseData(data, path, opts...)
}

// ParseData parses a Kconfig tree from in-memory data, reporting locations
// against filename.
func ParseData(data []byte, filename string, opts ...ParseOption) (*Tree, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	if o.Workdir == "" {
		o.Workdir = filepath.Dir(filename)
	}

	kp := &kconfigParser{
		opts:    o,
		reader:  NewReader(data, filename, o.TabWidth, o.Env),
		baseDir: o.Workdir,
		ctx:     o.Ctx,
	}
	kp.reader.allowShell = o.AllowShell

	kp.parseFile()
	if kp.err != nil {
		return nil, kp.err
	}
	if len(kp.stack) == 0 {
		return nil, errors.New("no mainmenu in config")
	}

	root := kp.stack[0]
	t := &Tree{
		Root:   root,
		ByName: map[string]*Entry{},
		opts:   o,
	}
	walk(root, func(e *Entry) {
		e.tree = t
		if e.Name != "" && !e.IsConst {
			t.ByName[e.Name] = e
		}
	})

	if err := t.finalize(o.Ctx); err != nil {
		return nil, err
	}
	return t, nil
}

type kconfigParser struct {
	opts     *ParseOptions
	reader   *Reader
	includes []*Reader
	stack    []*Entry
	cur      *Entry
	baseDir  string

	helpIdent int
	err       error
	ctx       context.Context
}

func (kp *kconfigParser) log() *logrus.Logger { return log.G(kp.ctx) }

func (kp *kconfigParser) parseFile() {
	for kp.reader.NextLine() {
		kp.parseLine()
		if kp.err != nil {
			return
		}
	}
	if kp.reader.Err() != nil && kp.err == nil {
		kp.err = kp.reader.Err()
		return
	}
	kp.endCurrent()
}

func (kp *kconfigParser) parseLine() {
	r := kp.reader
	if r.Eol() {
		return
	}

	if kp.helpIdent != 0 {
		if r.IdentLevel() >= kp.helpIdent {
			r.ConsumeLine()
			return
		}
		kp.helpIdent = 0
	}

	ident := r.Ident()
	if r.Err() != nil {
		kp.failf(r.Err())
		return
	}
	kp.parseMenu(ident)
	if kp.err == nil && kp.reader.Err() != nil {
		kp.failf(kp.reader.Err())
	}
}

func (kp *kconfigParser) failf(err error) {
	if kp.err == nil {
		kp.err = err
	}
}

func (kp *kconfigParser) parseMenu(cmd string) {
	r := kp.reader
	switch cmd {
	case "source":
		file, ok := r.TryQuotedString()
		if !ok {
			file = r.ConsumeLine()
		}
		kp.includeSource(strings.TrimSpace(file))

	case "mainmenu":
		kp.pushCurrent(&Entry{Kind: KindMainMenu, Prompt: r.QuotedString(), File: r.file, Line: r.line})

	case "comment":
		kp.newCurrent(&Entry{Kind: KindComment, Name: r.QuotedString(), File: r.file, Line: r.line})

	case "menu":
		kp.pushCurrent(&Entry{Kind: KindMenu, Prompt: r.QuotedString(), File: r.file, Line: r.line})

	case "if":
		line := r.line
		condText := r.ConsumeLine()
		kp.pushCurrent(&Entry{Kind: KindIf, File: r.file, Line: line, ifCond: strings.TrimSpace(condText)})

	case "choice":
		name := ""
		if !r.Eol() {
			name = r.Ident()
		}
		kp.pushCurrent(&Entry{Kind: KindChoice, Name: name, File: r.file, Line: r.line})

	case "endmenu", "endif", "endchoice":
		kp.popCurrent(cmd)

	case "config":
		kp.newCurrent(&Entry{Kind: KindConfig, Name: r.Ident(), File: r.file, Line: r.line})

	case "menuconfig":
		kp.newCurrent(&Entry{Kind: KindMenuConfig, Name: r.Ident(), File: r.file, Line: r.line})

	default:
		kp.parseConfigType(cmd)
	}
}

func (kp *kconfigParser) parseConfigType(typ string) {
	cur := kp.current()
	switch typ {
	case "tristate":
		cur.ValueType = TypeTristate
		kp.tryParsePrompt()
	case "def_tristate":
		cur.ValueType = TypeTristate
		kp.parseDefaultValue()
	case "bool":
		cur.ValueType = TypeBool
		kp.tryParsePrompt()
	case "def_bool":
		cur.ValueType = TypeBool
		kp.parseDefaultValue()
	case "int":
		cur.ValueType = TypeInt
		kp.tryParsePrompt()
	case "def_int":
		cur.ValueType = TypeInt
		kp.parseDefaultValue()
	case "hex":
		cur.ValueType = TypeHex
		kp.tryParsePrompt()
	case "def_hex":
		cur.ValueType = TypeHex
		kp.parseDefaultValue()
	case "string":
		cur.ValueType = TypeString
		kp.tryParsePrompt()
	case "def_string":
		cur.ValueType = TypeString
		kp.parseDefaultValue()
	default:
		kp.parseProperty(typ)
	}
}

func (kp *kconfigParser) parseProperty(prop string) {
	cur := kp.current()
	r := kp.reader
	switch prop {
	case "prompt":
		kp.tryParsePrompt()

	case "depends":
		r.MustConsume("on")
		text := strings.TrimSpace(r.ConsumeLine())
		cur.Attributes = append(cur.Attributes, &Attribute{Kind: AttrDependsOn, Text: text})

	case "visible":
		r.MustConsume("if")
		text := strings.TrimSpace(r.ConsumeLine())
		cur.Attributes = append(cur.Attributes, &Attribute{Kind: AttrVisibleIf, Text: text})

	case "select", "imply":
		name := r.Ident()
		cond := ""
		if r.TryConsume("if") {
			cond = strings.TrimSpace(r.ConsumeLine())
		}
		kind := AttrSelect
		if prop == "imply" {
			kind = AttrImply
		}
		cur.Attributes = append(cur.Attributes, &Attribute{Kind: kind, Text: name, Condition: cond})

	case "option":
		text := strings.TrimSpace(r.ConsumeLine())
		cur.Attributes = append(cur.Attributes, &Attribute{Kind: AttrOption, Text: text})

	case "modules":
		// Kconfig's historical "option modules" shorthand, recorded as an
		// option attribute for uniform handling downstream.
		cur.Attributes = append(cur.Attributes, &Attribute{Kind: AttrOption, Text: "modules"})

	case "optional":
		cur.Attributes = append(cur.Attributes, &Attribute{Kind: AttrOptional})

	case "default":
		kp.parseDefaultValue()

	case "range":
		lo := kp.parseExprToken()
		hi := kp.parseExprToken()
		cond := ""
		if r.TryConsume("if") {
			cond = strings.TrimSpace(r.ConsumeLine())
		}
		cur.Attributes = append(cur.Attributes, &Attribute{Kind: AttrRange, Text: lo, RangeHigh: hi, Condition: cond})

	case "help", "---help---":
		kp.tryParseHelp()

	default:
		if kp.opts.Strict {
			kp.failf(&LocatedError{Location: r.Location(), Err: errors.Errorf("unknown attribute line %q", prop)})
		} else {
			kp.log().Warnf("%s: unknown attribute line %q, ignoring", r.Location(), prop)
			r.ConsumeLine()
		}
	}
}

// parseExprToken consumes one whitespace-delimited token from the current
// line, used for range's MIN/MAX operands (each may be a symbol, a
// constant, or a quoted/unquoted literal).
func (kp *kconfigParser) parseExprToken() string {
	r := kp.reader
	if s, ok := r.TryQuotedString(); ok {
		return s
	}
	start := r.col
	for !r.Eol() && r.peek() != ' ' && r.peek() != '\t' {
		r.col++
	}
	tok := r.current[start:r.col]
	r.skipSpaces()
	return tok
}

func (kp *kconfigParser) includeSource(file string) {
	if file == "" {
		return
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(kp.baseDir, file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		kp.log().Warnf("source %q: %v", file, err)
		kp.newCurrent(&Entry{Kind: KindSource, Name: file, File: kp.reader.file, Line: kp.reader.line})
		return
	}

	kp.includes = append(kp.includes, kp.reader)
	savedStack, savedCur := kp.stack, kp.cur
	kp.reader = NewReader(data, file, kp.opts.TabWidth, kp.opts.Env)
	kp.reader.allowShell = kp.opts.AllowShell

	kp.parseFile()
	innerErr := kp.reader.Err()

	kp.reader = kp.includes[len(kp.includes)-1]
	kp.includes = kp.includes[:len(kp.includes)-1]
	kp.stack, kp.cur = savedStack, savedCur

	if kp.err == nil {
		kp.err = innerErr
	}
}

func (kp *kconfigParser) pushCurrent(m *Entry) {
	kp.endCurrent()
	kp.cur = m
	kp.stack = append(kp.stack, m)
}

func (kp *kconfigParser) popCurrent(terminator string) {
	kp.endCurrent()
	if len(kp.stack) < 2 {
		kp.failf(&LocatedError{Location: kp.reader.Location(), Err: errors.Errorf("unbalanced %s", terminator)})
		return
	}
	expect := map[string]Kind{"endmenu": KindMenu, "endif": KindIf, "endchoice": KindChoice}[terminator]
	last := kp.stack[len(kp.stack)-1]
	if last.Kind != expect {
		kp.failf(&LocatedError{Location: kp.reader.Location(), Err: errors.Errorf("%s does not match opener %s", terminator, last.Kind)})
	}
	kp.stack = kp.stack[:len(kp.stack)-1]
	top := kp.stack[len(kp.stack)-1]
	kp.attach(top, last)
}

func (kp *kconfigParser) newCurrent(m *Entry) {
	kp.endCurrent()
	kp.cur = m
}

func (kp *kconfigParser) current() *Entry {
	if kp.cur == nil {
		kp.failf(&LocatedError{Location: kp.reader.Location(), Err: errors.New("attribute line outside of a config/menu block")})
		return &Entry{}
	}
	return kp.cur
}

func (kp *kconfigParser) endCurrent() {
	if kp.cur == nil {
		return
	}
	if len(kp.stack) == 0 {
		kp.failf(&LocatedError{Location: kp.reader.Location(), Err: errors.New("no mainmenu in config")})
		kp.cur = nil
		return
	}
	top := kp.stack[len(kp.stack)-1]
	if top != kp.cur {
		kp.attach(top, kp.cur)
	}
	kp.cur = nil
}

// attach appends child to top's children, applying the menuconfig
// re-parenting rule: a child that is `if M` or carries `depends on M`
// nests under the sibling menuconfig M instead of under top (spec.md
// §4.3 "Nesting rule").
func (kp *kconfigParser) attach(top, child *Entry) {
	target := top
	for i := len(top.ChildEntries) - 1; i >= 0; i-- {
		m := top.ChildEntries[i]
		if m.Kind != KindMenuConfig {
			continue
		}
		if child.Kind == KindIf && child.ifCond == m.Name {
			target = m
			break
		}
		if hasDependsOn(child, m.Name) {
			target = m
			break
		}
	}
	child.ParentEntry = target
	target.ChildEntries = append(target.ChildEntries, child)
}

func hasDependsOn(e *Entry, name string) bool {
	for _, a := range e.Attributes {
		if a.Kind == AttrDependsOn && strings.TrimSpace(a.Text) == name {
			return true
		}
	}
	return false
}

func (kp *kconfigParser) tryParsePrompt() {
	r := kp.reader
	if str, ok := r.TryQuotedString(); ok {
		cond := ""
		if r.TryConsume("if") {
			cond = strings.TrimSpace(r.ConsumeLine())
		}
		kp.current().Attributes = append(kp.current().Attributes, &Attribute{Kind: AttrPrompt, Text: str, Condition: cond})
	}
}

func (kp *kconfigParser) parseDefaultValue() {
	r := kp.reader
	text := strings.TrimSpace(r.ConsumeLine())
	value, cond := splitIfSuffix(text)
	kp.current().Attributes = append(kp.current().Attributes, &Attribute{Kind: AttrDefault, Text: value, Condition: cond})
}

// splitIfSuffix splits "EXPR if COND" into (EXPR, COND), respecting
// quoted and parenthesized regions so `default "a if b"` isn't misparsed.
func splitIfSuffix(s string) (string, string) {
	inQuote := byte(0)
	depth := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inQuote != 0:
			if ch == '\\' {
				i++
			} else if ch == inQuote {
				inQuote = 0
			}
		case ch == '"' || ch == '\'':
			inQuote = ch
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case depth == 0 && ch == 'i' && strings.HasPrefix(s[i:], "if") &&
			(i == 0 || s[i-1] == ' ') && (i+2 == len(s) || s[i+2] == ' '):
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+2:])
		}
	}
	return s, ""
}

// tryParseHelp collects a help block's raw lines, stripping each by exactly
// the first line's leading-whitespace prefix (spec.md §8 property 10) rather
// than the reader's already-skipped-to-content column, so a line indented
// deeper than the block's first line keeps that extra depth relative to it.
// Line breaks are preserved; the teacher's kconfigParser collapses a help
// block to a single space-joined line, which loses that relative structure.
func (kp *kconfigParser) tryParseHelp() {
	r := kp.reader
	var lines []string
	baseIndent := -1
	basePrefixLen := 0
	for r.NextLine() {
		if r.Eol() {
			continue
		}
		indent := r.IdentLevel()
		if len(lines) > 0 && indent < baseIndent {
			r.PushBack()
			break
		}
		raw := r.current
		if baseIndent == -1 {
			baseIndent = indent
			basePrefixLen = r.col
		}
		line := raw
		if basePrefixLen <= len(raw) {
			line = raw[basePrefixLen:]
		}
		r.ConsumeLine()
		lines = append(lines, strings.TrimRight(line, " \t"))
		kp.helpIdent = indent
	}
	kp.current().Help = strings.Join(lines, "\n")
}
