// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// eval.go implements component H, the evaluator. New relative to the
// teacher: kraftkit's kconfig package never computes a live "current
// value" for a symbol, only its static depends-on set, so this file is
// built fresh from spec.md §4.5/§4.5.1/§4.5.2. Cross-layer sequencing and
// within-layer errgroup concurrency reuse graph.go's concurrencyLimit.

package kconfig

import (
	"context"
	"regexp"
	"strconv"

	"golang.org/x/sync/errgroup"
)

var (
	reInt = regexp.MustCompile(`^-?\d+$`)
	reHex = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
)

// calculate is the unified per-symbol step of spec.md §4.5. source is the
// entry that initiated this cascade (nil for the initial defaults pass);
// propagate controls whether to cascade into controlsList; loadDefaults
// marks the initial pass that materializes default values.
func (e *Entry) calculate(source *Entry, propagate, loadDefaults bool) {
	dependsOnResult := Y
	if e.dependsOnExpr != nil {
		dependsOnResult = e.dependsOnExpr.Calculate()
	}
	e.setBool(&e.isEnable, dependsOnResult != N, FieldEnable)

	for _, a := range e.Attributes {
		if a.ConditionExpr != nil {
			a.ConditionResult = a.ConditionExpr.Calculate()
		} else {
			a.ConditionResult = Y
		}
	}

	switch e.Kind {
	case KindMainMenu, KindMenu:
		visible := true
		if !e.isEnable {
			visible = false
		} else if e.visibleIfExpr != nil {
			visible = e.visibleIfExpr.Calculate() != N
		}
		e.setBool(&e.isVisible, visible, FieldVisible)

	case KindComment:
		e.setBool(&e.isVisible, e.isEnable, FieldVisible)

	case KindConfig, KindMenuConfig, KindChoice:
		e.evalConfigLike(source, loadDefaults)
	}

	if propagate {
		for _, layerSet := range e.controlsList {
			eg, _ := errgroup.WithContext(context.Background())
			eg.SetLimit(concurrencyLimit())
			for t := range layerSet {
				t := t
				eg.Go(func() error {
					t.calculate(source, false, false)
					return nil
				})
			}
			_ = eg.Wait()
		}
	}
}

func (e *Entry) evalConfigLike(source *Entry, loadDefaults bool) {
	promptAttr := e.attr(AttrPrompt)
	prompt := ""
	if promptAttr != nil {
		prompt = promptAttr.Text
	}
	e.setString(&e.Prompt, prompt, FieldPrompt)

	def := e.computeDefault()
	e.setString(&e.Default, def, FieldDefault)

	switch {
	case loadDefaults:
		e.value = def
		e.valueErr = nil
	case prompt == "":
		e.setValueInternal(def, source)
	}

	visible := e.isEnable && prompt != ""
	e.setBool(&e.isVisible, visible, FieldVisible)

	if parent := e.choiceParent(); parent != nil {
		e.applyChoiceChildRule(parent)
	}

	if e.Kind != KindChoice && (e.ValueType == TypeBool || e.ValueType == TypeTristate) {
		e.applyReverseDependencyClamp(source)
	}
}

// computeDefault implements spec.md §4.5 "Default computation". A choice's
// default names a child, not a boolean expression, so it is dispatched on
// Kind before the ValueType switch: validateChoices only assigns a choice's
// ValueType (Bool/Tristate, from its children) after compileExpressions has
// already run, so a choice's own AttrDefault.SymbolValue is never compiled
// and the TypeBool/TypeTristate case below would otherwise always see it
// as absent.
func (e *Entry) computeDefault() string {
	if e.Kind == KindChoice {
		return e.computeChoiceDefault()
	}

	switch e.ValueType {
	case TypeBool, TypeTristate:
		a := e.attr(AttrDefault)
		if a == nil || a.SymbolValue == nil {
			return "n"
		}
		return a.SymbolValue.Calculate().String()

	case TypeInt:
		if a := e.attr(AttrDefault); a != nil {
			return a.Text
		}
		if r := e.attr(AttrRange); r != nil {
			return r.Text
		}
		return "0"

	case TypeHex:
		if a := e.attr(AttrDefault); a != nil {
			return a.Text
		}
		if r := e.attr(AttrRange); r != nil {
			return r.Text
		}
		return "0"

	case TypeString:
		if a := e.attr(AttrDefault); a != nil {
			return a.Text
		}
		return ""
	}

	return ""
}

func (e *Entry) computeChoiceDefault() string {
	children := choiceChildren(e)
	if a := e.attr(AttrDefault); a != nil {
		for _, c := range children {
			if c.Name == a.Text {
				return a.Text
			}
		}
		// "does not match any child, behave as if absent"
	}
	if e.attr(AttrOptional) != nil {
		return ""
	}
	if len(children) == 0 {
		return ""
	}
	return children[0].Name
}

// applyChoiceChildRule implements spec.md §4.5.1.
func (e *Entry) applyChoiceChildRule(parent *Entry) {
	switch {
	case parent.value == e.Name:
		e.setString(&e.value, "y", FieldValue)
	case parent.ValueType != TypeTristate:
		e.setString(&e.value, "n", FieldValue)
	default:
		if e.value == "n" {
			e.setString(&e.value, "n", FieldValue)
		} else {
			e.setString(&e.value, "m", FieldValue)
		}
	}
}

// applyReverseDependencyClamp implements spec.md §4.5.2.
func (e *Entry) applyReverseDependencyClamp(source *Entry) {
	floor := N
	for _, r := range e.beSelected {
		if r.isEnable {
			if t, _ := TriFromString(r.value); t > floor {
				floor = t
			}
		}
	}
	if source != e {
		for _, r := range e.beImplied {
			if r.isEnable {
				if t, _ := TriFromString(r.value); t > floor {
					floor = t
				}
			}
		}
	}

	val, _ := TriFromString(e.value)
	if val < floor {
		val = floor
	}
	if e.ValueType == TypeBool && val == M {
		val = Y
	}

	newVal := val.String()
	if newVal == e.value {
		return
	}
	e.value = newVal
	if source != e {
		e.notify(FieldValue)
	}
}

func (e *Entry) setBool(field *bool, v bool, fieldName string) {
	if *field == v {
		return
	}
	*field = v
	e.notify(fieldName)
}

func (e *Entry) setString(field *string, v string, fieldName string) {
	if *field == v {
		return
	}
	*field = v
	e.notify(fieldName)
}

// SetValue is the public mutator: it validates v against e's kind/type,
// stores it (even if invalid, per spec.md §4.5 "Value validation"), and —
// if valid — cascades the change through e.controlsList.
func (e *Entry) SetValue(v string) error {
	if parent := e.choiceParent(); parent != nil && (e.ValueType == TypeBool || e.ValueType == TypeTristate) {
		return e.setChoiceChildValue(parent, v)
	}
	return e.setValuePublic(v)
}

func (e *Entry) setValuePublic(v string) error {
	err := validateValue(e, v)
	e.value = v
	e.valueErr = err
	e.notify(FieldValue)
	if err != nil {
		return err
	}
	e.calculate(e, true, false)
	return nil
}

// setValueInternal installs v on a hidden (promptless) symbol: v is
// validated, stored and notified. It does not cascade on its own; it runs
// inside the cascade of the symbol that changed, whose controlsList already
// holds every entry downstream of e.
func (e *Entry) setValueInternal(v string, source *Entry) {
	err := validateValue(e, v)
	e.value = v
	e.valueErr = err
	e.notify(FieldValue)
}

// setChoiceChildValue implements the user-assignment half of §4.5.1: "y"
// on a child selects it on the parent; "n" on the active child of an
// optional choice clears the parent; "m" (tristate choices only) is
// accepted directly.
func (e *Entry) setChoiceChildValue(parent *Entry, v string) error {
	switch v {
	case "y":
		return parent.setValuePublic(e.Name)
	case "n":
		if parent.value == e.Name && parent.attr(AttrOptional) != nil {
			return parent.setValuePublic("")
		}
		return nil
	case "m":
		if parent.ValueType != TypeTristate {
			return &ValidationError{Entry: e, Value: v, Msg: "m is only valid for tristate choices"}
		}
		e.value = "m"
		e.notify(FieldValue)
		return nil
	default:
		return &ValidationError{Entry: e, Value: v, Msg: "choice children accept only y, n, or m"}
	}
}

// validateValue implements spec.md §4.5 "Value validation".
func validateValue(e *Entry, v string) error {
	// A choice's value names a child, whatever Bool/Tristate type
	// validateChoices gave it.
	if e.Kind == KindChoice {
		if v == "" {
			if e.attr(AttrOptional) == nil {
				return &ValidationError{Entry: e, Value: v, Msg: "choice requires a selection"}
			}
			return nil
		}
		for _, c := range choiceChildren(e) {
			if c.Name == v {
				return nil
			}
		}
		return &ValidationError{Entry: e, Value: v, Msg: "choice value must name a child"}
	}

	switch e.ValueType {
	case TypeBool:
		if v != "n" && v != "y" {
			return &ValidationError{Entry: e, Value: v, Msg: "bool must be n or y"}
		}
	case TypeTristate:
		if v != "n" && v != "m" && v != "y" {
			return &ValidationError{Entry: e, Value: v, Msg: "tristate must be n, m, or y"}
		}
	case TypeInt:
		if !reInt.MatchString(v) {
			return &ValidationError{Entry: e, Value: v, Msg: "int must match -?\\d+"}
		}
		if err := checkRange(e, v, parseDecimal); err != nil {
			return err
		}
	case TypeHex:
		if !reHex.MatchString(v) {
			return &ValidationError{Entry: e, Value: v, Msg: "hex must match 0x[0-9a-fA-F]+"}
		}
		if err := checkRange(e, v, parseHex); err != nil {
			return err
		}
	case TypeString:
		// any value accepted
	}
	return nil
}

func parseDecimal(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func parseHex(s string) (int64, bool) {
	n, err := strconv.ParseInt(s[2:], 16, 64)
	return n, err == nil
}

func checkRange(e *Entry, v string, parse func(string) (int64, bool)) error {
	r := e.attr(AttrRange)
	if r == nil {
		return nil
	}
	val, ok := parse(v)
	if !ok {
		return nil
	}
	lo, loOK := parse(r.Text)
	hi, hiOK := parse(r.RangeHigh)
	if loOK && val < lo || hiOK && val > hi {
		return &ValidationError{Entry: e, Value: v, Msg: "value outside active range"}
	}
	return nil
}

// FilterSelect marks every entry whose name or prompt matches pattern
// (plain substring, or a regular expression when isRegex is set) as
// filtered, and distinguishes a match's ancestors by explicitly clearing
// their own isFiltered bit so a UI can tell "this is the match" from
// "this is on the path to a match" (spec.md §6 "sets isFiltered on each
// symbol; a match unsets isFiltered on all ancestors"). Serialized against
// parse/writeDotConfig via the tree mutex.
func (t *Tree) FilterSelect(pattern string, isRegex bool) ([]*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var re *regexp.Regexp
	if isRegex {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
	}

	match := func(e *Entry) bool {
		if isRegex {
			return re.MatchString(e.Name) || re.MatchString(e.Prompt)
		}
		return containsFold(e.Name, pattern) || containsFold(e.Prompt, pattern)
	}

	for _, e := range t.Universe {
		e.setBool(&e.isFiltered, false, FieldFiltered)
	}

	var matched []*Entry
	for _, e := range t.Universe {
		if !match(e) {
			continue
		}
		matched = append(matched, e)
		e.setBool(&e.isFiltered, true, FieldFiltered)
		for p := e.ParentEntry; p != nil; p = p.ParentEntry {
			p.setBool(&p.isFiltered, false, FieldFiltered)
		}
	}
	return matched, nil
}

// ClearFilter resets every entry's isFiltered bit.
func (t *Tree) ClearFilter() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.Universe {
		e.setBool(&e.isFiltered, false, FieldFiltered)
	}
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return indexFold(s, substr) >= 0
}

func indexFold(s, substr string) int {
	ls, lsub := len(s), len(substr)
	if lsub == 0 {
		return 0
	}
	for i := 0; i+lsub <= ls; i++ {
		if equalFold(s[i:i+lsub], substr) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
