// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// symbol.go defines the entry tree produced by the parser (component D) and
// consumed by the flattener (component E). It generalizes kraftkit's
// KConfigMenu (kconfig/kconfig.go in the teacher) from a dependency-only
// node into the full evaluated Symbol spec.md §3 describes.

package kconfig

import "sync"

// Kind is the structural category of an Entry, mirroring kraftkit's
// MenuKind but restoring the MainMenu/Menu/MenuConfig/Config/Choice split
// spec.md §3 requires instead of kraftkit's collapsed MenuGroup.
type Kind string

const (
	KindMainMenu   Kind = "mainmenu"
	KindMenu       Kind = "menu"
	KindMenuConfig Kind = "menuconfig"
	KindConfig     Kind = "config"
	KindChoice     Kind = "choice"
	KindComment    Kind = "comment"
	KindIf         Kind = "if"
	KindSource     Kind = "source"
)

// ValueType is the type attribute attached to a config/menuconfig/choice.
type ValueType string

const (
	TypeInvalid  ValueType = ""
	TypeBool     ValueType = "bool"
	TypeTristate ValueType = "tristate"
	TypeString   ValueType = "string"
	TypeInt      ValueType = "int"
	TypeHex      ValueType = "hex"
)

// AttrKind enumerates the attribute records an Entry can carry, per
// spec.md §4.3's attribute-line list.
type AttrKind int

const (
	AttrPrompt AttrKind = iota
	AttrDefault
	AttrDependsOn
	AttrSelect
	AttrImply
	AttrVisibleIf
	AttrRange
	AttrOption
	AttrOptional
)

// Attribute is one property line attached to an Entry (spec.md §3).
type Attribute struct {
	Kind AttrKind

	// Text expression attached to the attribute: the prompt string, the
	// default expression text, the select/imply target name, range bounds,
	// or the option name/value — whichever Kind calls for.
	Text      string
	RangeHigh string // only for AttrRange

	// Condition is the raw "if EXPR" suffix text, "" if absent.
	Condition     string
	ConditionExpr *Expr

	// ConditionResult is the last computed result of ConditionExpr,
	// refreshed every evaluation pass.
	ConditionResult Tri

	// ReverseDependency is the resolved target of a select/imply attribute.
	// nil if the target name could not be resolved (a logged warning, not
	// fatal, per spec.md §7).
	ReverseDependency *Entry

	// SymbolValue resolves AttrDefault's textual default into a compiled
	// expression once the entry's symbol table is known.
	SymbolValue *Expr
}

// Entry is a single hierarchical menu node: spec.md's Symbol / MenuEntry.
type Entry struct {
	Kind      Kind
	ValueType ValueType
	Name      string // identifier; "" for kind that only carries a prompt

	// Prompt/Help/Default are the recomputed display strings (spec.md §3).
	Prompt string
	Help   string
	Default string

	Attributes []*Attribute

	ChildEntries []*Entry
	ParentEntry  *Entry `json:"-"`

	IsConst bool // synthetic anonymous wrapper for a quoted string literal

	// File/Line is the Entry's source location for diagnostics.
	File string
	Line int

	// value is the entry's current value encoding: "n"/"m"/"y" for
	// boolish, decimal for Int, 0x… for Hex, literal for String, a child
	// name for Choice.
	value    string
	valueErr error

	dependsOnList map[*Entry]bool
	beSelected    []*Entry
	beImplied     []*Entry

	dependsOnLevel int
	nestDependsOn  string
	dependsOnExpr  *Expr
	visibleIfExpr  *Expr

	// ifCond is the raw condition text of an if-block Entry (Kind ==
	// KindIf), kept uncompiled until the flattener resolves the symbol
	// table; also consulted at parse time by the menuconfig re-parenting
	// rule (spec.md §4.3).
	ifCond string

	isEnable   bool
	isVisible  bool
	isFiltered bool
	isSelected bool
	isExpanded bool

	controlsList []map[*Entry]bool

	tree *Tree

	observers []func(Event)
	mu        sync.Mutex
}

// Event names a field that changed on an Entry, for the observable
// notification channel spec.md §9 asks for.
type Event struct {
	Entry *Entry
	Field string
}

const (
	FieldValue     = "value"
	FieldPrompt    = "prompt"
	FieldDefault   = "default"
	FieldEnable    = "isEnable"
	FieldVisible   = "isVisible"
	FieldFiltered  = "isFiltered"
	FieldSelected  = "isSelected"
	FieldExpanded  = "isExpanded"
)

// Value returns the entry's current backing value.
func (e *Entry) Value() string { return e.value }

// IsEnabled reports whether depends-on currently resolves to non-N.
func (e *Entry) IsEnabled() bool { return e.isEnable }

// IsVisible reports the entry's current prompt visibility.
func (e *Entry) IsVisible() bool { return e.isVisible }

// IsFiltered reports whether FilterSelect last matched (or un-hid, as an
// ancestor of a match) this entry.
func (e *Entry) IsFiltered() bool { return e.isFiltered }

// DependsOnList returns the transitively-discovered set of symbols this
// entry depends on (spec.md §3 dependsOnList).
func (e *Entry) DependsOnList() map[*Entry]bool { return e.dependsOnList }

// ControlsList returns the precomputed per-layer recompute frontier
// (spec.md §4.4 "Controls").
func (e *Entry) ControlsList() []map[*Entry]bool { return e.controlsList }

// Level returns the entry's assigned topological layer.
func (e *Entry) Level() int { return e.dependsOnLevel }

func (e *Entry) notify(field string) {
	e.mu.Lock()
	observers := append([]func(Event){}, e.observers...)
	e.mu.Unlock()
	for _, fn := range observers {
		if fn != nil {
			fn(Event{Entry: e, Field: field})
		}
	}
}

// Subscribe registers fn to run on every field change notified on e, and
// returns a function that removes the subscription.
func (e *Entry) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
	idx := len(e.observers) - 1
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if idx < len(e.observers) {
			e.observers[idx] = nil
		}
	}
}

// attr returns the first attribute of the given kind that has no condition
// or whose last computed ConditionResult is Y, or nil.
func (e *Entry) attr(kind AttrKind) *Attribute {
	for _, a := range e.Attributes {
		if a.Kind != kind {
			continue
		}
		if a.ConditionExpr == nil || a.ConditionResult == Y {
			return a
		}
	}
	return nil
}

func (e *Entry) attrsOf(kind AttrKind) []*Attribute {
	var out []*Attribute
	for _, a := range e.Attributes {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// choiceParent returns the Choice e is a direct child of, traversing
// through If wrappers as spec.md §4.3 requires, or nil if there is none.
func (e *Entry) choiceParent() *Entry {
	p := e.ParentEntry
	for p != nil && p.Kind == KindIf {
		p = p.ParentEntry
	}
	if p != nil && p.Kind == KindChoice {
		return p
	}
	return nil
}

// walk visits e and every descendant in document order.
func walk(e *Entry, cb func(*Entry)) {
	cb(e)
	for _, c := range e.ChildEntries {
		walk(c, cb)
	}
}
