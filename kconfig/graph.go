// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// graph.go implements components E/F/G: flattening the parsed entry tree
// into the symbol universe, compiling every expression attached to it,
// Kahn-style topological layering, and the per-symbol controls frontier.
// New relative to the teacher: kraftkit's KConfigMenu.DependsOn()
// (kconfig/kconfig.go) is a sync.Once-memoized recursive walk with no
// notion of layering; the bounded-parallelism idea here is grounded on
// kraftkit's oci/manifest.go errgroup.WithContext + eg.Go per-layer push
// pattern, generalized from "push N image layers" to "compile/flatten N
// symbols with SetLimit-bounded parallelism".

package kconfig

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ArdaFu/ArdaKconfigLibrary/log"
)

// Tree is a fully parsed and (after finalize) graph-built Kconfig source.
type Tree struct {
	Root   *Entry
	ByName map[string]*Entry

	// Universe is every entry in document order, the flattened set U.
	Universe []*Entry

	// Layers is the topological partition; Layers[k] holds every entry
	// with dependsOnLevel == k.
	Layers [][]*Entry

	opts *ParseOptions

	// cycles names the leftover symbols the Kahn sweep could not place
	// (CirculationDependsOnItems), non-empty only on load failure.
	cycles []string

	// mu serializes parse/writeDotConfig/filterSelect against each other
	// (spec.md §5 "a process-wide mutex serializes the three STA
	// operations").
	mu sync.Mutex
}

func (t *Tree) log() *logrus.Logger { return log.G(t.opts.Ctx) }

func concurrencyLimit() int {
	if n := runtime.GOMAXPROCS(0) - 1; n > 1 {
		return n
	}
	return 1
}

// finalize runs the flatten → compile → layer → controls → initial
// defaults pipeline (spec.md §4.4/§4.5), called once by ParseData/ParseFile
// right after the entry tree is built.
func (t *Tree) finalize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Universe = nil
	walk(t.Root, func(e *Entry) { t.Universe = append(t.Universe, e) })

	if err := t.computeNestDependsOn(); err != nil {
		return err
	}
	if err := t.compileExpressions(ctx); err != nil {
		return err
	}
	t.resolveReverseDeps()
	if err := t.validateChoices(); err != nil {
		return err
	}
	if err := t.layer(); err != nil {
		return err
	}
	if err := t.computeControls(ctx); err != nil {
		return err
	}
	if err := t.loadInitialDefaults(ctx); err != nil {
		return err
	}
	t.applyEnvOptions()
	return nil
}

// applyEnvOptions implements spec.md §4.3's "option env=V": after parsing
// (and, here, after the initial default pass so Default is materialized),
// the process environment variable V is set to the entry's default if it
// is not already set.
func (t *Tree) applyEnvOptions() {
	for _, e := range t.Universe {
		for _, a := range e.attrsOf(AttrOption) {
			name := a.Text
			if !startsWith(name, "env=") {
				continue
			}
			key := name[len("env="):]
			if key == "" {
				continue
			}
			if _, ok := t.opts.Env.Lookup(key); ok {
				continue
			}
			if err := t.opts.Env.Set(key, e.Default); err != nil {
				t.log().Warnf("option env=%s: %v", key, err)
			}
		}
	}
}

func startsWith(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// computeNestDependsOn fills Entry.nestDependsOn per spec.md §4.3
// "Inherited dependency": if the structural parent is an if block, AND the
// parent's own nestDependsOn with the if condition; otherwise inherit
// verbatim.
func (t *Tree) computeNestDependsOn() error {
	var walkFn func(e *Entry)
	walkFn = func(e *Entry) {
		switch {
		case e.ParentEntry == nil:
			e.nestDependsOn = ""
		case e.ParentEntry.Kind == KindIf:
			e.nestDependsOn = joinAnd(e.ParentEntry.nestDependsOn, e.ParentEntry.ifCond)
		default:
			e.nestDependsOn = e.ParentEntry.nestDependsOn
		}
		for _, c := range e.ChildEntries {
			walkFn(c)
		}
	}
	walkFn(t.Root)
	return nil
}

// joinAnd textually AND-combines two possibly-empty raw expression
// fragments, parenthesizing each side so precedence is preserved no matter
// how either fragment is itself composed.
func joinAnd(a, b string) string {
	switch {
	case a == "" && b == "":
		return ""
	case a == "":
		return b
	case b == "":
		return a
	default:
		return "(" + a + ") && (" + b + ")"
	}
}

// compileExpressions compiles dependsOnExpr, visibleIfExpr, and every
// attribute condition/default for every symbol in the universe, bounded by
// an errgroup pool per spec.md §5 ("embarrassingly parallel ... must use a
// work-stealing pool").
func (t *Tree) compileExpressions(ctx context.Context) error {
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(concurrencyLimit())

	for _, e := range t.Universe {
		e := e
		eg.Go(func() error {
			loc := Location{File: e.File, Line: e.Line}

			dependsText := joinAnd(e.nestDependsOn, joinDependsOnAttrs(e))
			expr, refs, err := CompileExpr(dependsText, t.ByName, loc)
			if err != nil {
				t.log().Warnf("%v: depends-on expression ignored: %v", loc, err)
			} else {
				e.dependsOnExpr = expr
			}
			deps := map[*Entry]bool{}
			for _, r := range refs {
				deps[r] = true
			}

			for _, a := range e.Attributes {
				if a.Condition == "" {
					continue
				}
				cExpr, cRefs, err := CompileExpr(a.Condition, t.ByName, loc)
				if err != nil {
					t.log().Warnf("%v: attribute condition ignored: %v", loc, err)
					continue
				}
				a.ConditionExpr = cExpr
				for _, r := range cRefs {
					deps[r] = true
				}
				if a.Kind == AttrVisibleIf {
					e.visibleIfExpr = cExpr
				}
			}

			if e.ValueType == TypeBool || e.ValueType == TypeTristate {
				for _, a := range e.attrsOf(AttrDefault) {
					dExpr, dRefs, err := CompileExpr(a.Text, t.ByName, loc)
					if err != nil {
						t.log().Warnf("%v: default expression ignored: %v", loc, err)
						continue
					}
					a.SymbolValue = dExpr
					for _, r := range dRefs {
						deps[r] = true
					}
				}
			}

			if p := e.choiceParent(); p != nil {
				deps[p] = true
			}

			// A reference to the entry itself (B's own `select A if B`) is
			// not an ordering edge; keeping it would make e its own cycle.
			delete(deps, e)

			e.dependsOnList = deps
			return nil
		})
	}
	return eg.Wait()
}

func joinDependsOnAttrs(e *Entry) string {
	text := ""
	for _, a := range e.Attributes {
		if a.Kind != AttrDependsOn {
			continue
		}
		text = joinAnd(text, a.Text)
	}
	return text
}

// resolveReverseDeps wires select/imply targets, appending e to the
// target's beSelected/beImplied list, and additionally folds the edge into
// the target's dependsOnList so layering places the selector strictly
// before the target it clamps (spec.md §4.4 describes dependsOnList edges
// from depends-on/choice-parent only; this module extends that set with
// select/imply edges — documented in DESIGN.md — because without it no
// layer ordering would guarantee the selector is evaluated, hence
// recomputable, before the clamp in §4.5.2 runs).
func (t *Tree) resolveReverseDeps() {
	for _, e := range t.Universe {
		for _, kind := range []AttrKind{AttrSelect, AttrImply} {
			for _, a := range e.attrsOf(kind) {
				target, ok := t.ByName[a.Text]
				if !ok {
					t.log().Warnf("%s:%d: %s target %q not found", e.File, e.Line, attrKindName(kind), a.Text)
					continue
				}
				a.ReverseDependency = target
				if kind == AttrSelect {
					target.beSelected = append(target.beSelected, e)
				} else {
					target.beImplied = append(target.beImplied, e)
				}
				if target.dependsOnList == nil {
					target.dependsOnList = map[*Entry]bool{}
				}
				target.dependsOnList[e] = true
			}
		}
	}
}

func attrKindName(k AttrKind) string {
	if k == AttrSelect {
		return "select"
	}
	return "imply"
}

// validateChoices enforces spec.md §3 "choice children are all Config
// (possibly via if blocks) and all share one Bool or Tristate value type".
func (t *Tree) validateChoices() error {
	for _, e := range t.Universe {
		if e.Kind != KindChoice {
			continue
		}
		children := choiceChildren(e)
		var common ValueType
		for _, c := range children {
			if c.ValueType != TypeBool && c.ValueType != TypeTristate {
				return &LocatedError{Location: Location{File: c.File, Line: c.Line},
					Err: errNonBoolishChoiceChild(c.Name)}
			}
			if common == TypeInvalid {
				common = c.ValueType
			} else if common != c.ValueType {
				return &LocatedError{Location: Location{File: e.File, Line: e.Line},
					Err: errMixedChoiceTypes(e.Name)}
			}
		}
		if common != TypeInvalid {
			e.ValueType = common
		} else {
			e.ValueType = TypeBool
		}
	}
	return nil
}

func errNonBoolishChoiceChild(name string) error {
	return errors.Errorf("choice child %q must be bool or tristate", name)
}

func errMixedChoiceTypes(name string) error {
	return errors.Errorf("choice %q has children of mixed value types", name)
}

// choiceChildren collects every Config descendant of a Choice, descending
// transparently through If wrappers (spec.md §4.3 "Choice validation").
func choiceChildren(e *Entry) []*Entry {
	var out []*Entry
	var walkFn func(e *Entry)
	walkFn = func(e *Entry) {
		for _, c := range e.ChildEntries {
			switch c.Kind {
			case KindConfig:
				out = append(out, c)
			case KindIf:
				walkFn(c)
			}
		}
	}
	walkFn(e)
	return out
}

// layer runs the Kahn-style topological partition of spec.md §4.4, then
// closes every entry's dependsOnList transitively.
func (t *Tree) layer() error {
	remaining := map[*Entry]bool{}
	for _, e := range t.Universe {
		remaining[e] = true
	}

	placed := map[*Entry]bool{}
	var layers [][]*Entry
	for len(remaining) > 0 {
		var cur []*Entry
		for e := range remaining {
			ready := true
			for dep := range e.dependsOnList {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				cur = append(cur, e)
			}
		}
		if len(cur) == 0 {
			break
		}
		level := len(layers)
		for _, e := range cur {
			e.dependsOnLevel = level
			placed[e] = true
			delete(remaining, e)
		}
		layers = append(layers, cur)
	}

	if len(remaining) > 0 {
		var names []string
		for e := range remaining {
			names = append(names, e.Name)
		}
		t.cycles = names
		return &CycleError{Names: names}
	}

	// Layers are visited in ascending order, so every dependency's own list
	// is already closed when an entry inherits it.
	for _, cur := range layers {
		for _, e := range cur {
			var inherited []*Entry
			for dep := range e.dependsOnList {
				for d := range dep.dependsOnList {
					inherited = append(inherited, d)
				}
			}
			for _, d := range inherited {
				e.dependsOnList[d] = true
			}
		}
	}

	t.Layers = layers
	return nil
}

// computeControls computes the per-symbol BFS frontier of spec.md §4.4
// "Controls", bounded-parallel across symbols.
func (t *Tree) computeControls(ctx context.Context) error {
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(concurrencyLimit())

	for _, s := range t.Universe {
		s := s
		eg.Go(func() error {
			i := s.dependsOnLevel
			var lists []map[*Entry]bool
			for j := i + 1; j < len(t.Layers); j++ {
				set := map[*Entry]bool{}
				for _, cand := range t.Layers[j] {
					if cand.dependsOnList[s] {
						set[cand] = true
					}
				}
				if len(set) > 0 {
					lists = append(lists, set)
				}
			}
			s.controlsList = lists
			return nil
		})
	}
	return eg.Wait()
}

// loadInitialDefaults runs the first evaluation pass layer by layer
// (spec.md §4.5), materializing default values in dependency order.
func (t *Tree) loadInitialDefaults(ctx context.Context) error {
	for _, layer := range t.Layers {
		eg, _ := errgroup.WithContext(ctx)
		eg.SetLimit(concurrencyLimit())
		for _, e := range layer {
			e := e
			eg.Go(func() error {
				e.calculate(nil, false, true)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// CirculationDependsOnItems names the symbols a failed load could not
// place into any layer (spec.md §4.4).
func (t *Tree) CirculationDependsOnItems() []string { return t.cycles }

// Symbol looks up an entry by name.
func (t *Tree) Symbol(name string) (*Entry, bool) {
	e, ok := t.ByName[name]
	return e, ok
}

// Symbols returns the flattened symbol universe in document order.
func (t *Tree) Symbols() []*Entry { return t.Universe }
