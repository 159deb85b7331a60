// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// dotconfig.go implements component I, the .config grammar. Directly
// grounded on kraftkit's kconfig/config.go (DotConfigFile, KConfigValue,
// reConfigY/reConfigN, Serialize, ParseConfigData), generalized per
// spec.md §4.6 to overlay onto live *Entry values instead of standing
// alone as a flat map, and to apply the Bool-accepts-on-disk-Tristate
// type-matching rule the teacher's flat file model has no notion of.

package kconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const dotConfigPrefix = "CONFIG_"

var (
	reDotConfigSet   = regexp.MustCompile(`^` + dotConfigPrefix + `([A-Za-z0-9_]+)=(y|m|(?:-?[0-9]+)|(?:0x[0-9a-fA-F]+)|(?:".*"))$`)
	reDotConfigUnset = regexp.MustCompile(`^# ` + dotConfigPrefix + `([A-Za-z0-9_]+) is not set$`)
)

// LoadDotConfigFile reads path and overlays it onto t.
func (t *Tree) LoadDotConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open .config file %v", path)
	}
	return t.LoadDotConfig(data)
}

// LoadDotConfig overlays a .config file's content onto the tree's live
// entries (spec.md §4.6): after the initial default pass, each on-disk
// name is matched to a symbol; if the on-disk type matches the symbol's
// valueType the value is installed, with a Bool symbol additionally
// accepting a Tristate on-disk record. Unmatched names are ignored.
func (t *Tree) LoadDotConfig(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := bufio.NewScanner(bytes.NewReader(data))
	for s.Scan() {
		line := s.Text()
		if m := reDotConfigSet.FindStringSubmatch(line); m != nil {
			t.overlaySet(m[1], unquoteDotConfigValue(m[2]))
		} else if m := reDotConfigUnset.FindStringSubmatch(line); m != nil {
			t.overlaySet(m[1], "n")
		}
	}
	return s.Err()
}

func unquoteDotConfigValue(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}

func (t *Tree) overlaySet(name, value string) {
	e, ok := t.ByName[name]
	if !ok {
		return
	}
	if !onDiskTypeMatches(e.ValueType, value) {
		return
	}
	_ = e.SetValue(value)
}

// onDiskTypeMatches decides whether an on-disk record's apparent shape is
// installable on a symbol of valueType. A Bool also accepts an on-disk "m"
// record; no down-cast is applied: "m" reaches SetValue unchanged, which
// stores it and records a ValidationError.
func onDiskTypeMatches(valueType ValueType, value string) bool {
	switch valueType {
	case TypeBool:
		return value == "n" || value == "y" || value == "m"
	case TypeTristate:
		return value == "n" || value == "m" || value == "y"
	case TypeInt:
		return reInt.MatchString(value)
	case TypeHex:
		return reHex.MatchString(value)
	case TypeString:
		return true
	default:
		return false
	}
}

// WriteDotConfigFile writes the tree's current values to path, without
// re-evaluating them.
func (t *Tree) WriteDotConfigFile(path string) error {
	var buf bytes.Buffer
	if err := t.WriteDotConfig(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// WriteDotConfig walks the tree in document order (spec.md §5 "the .config
// writer walks the tree in document order, which is stable across runs")
// emitting the banner, menu headers, and per-symbol lines of spec.md §6's
// grammar.
func (t *Tree) WriteDotConfig(w interface{ Write([]byte) (int, error) }) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "# Automatically generated file; DO NOT EDIT.")
	fmt.Fprintf(buf, "# %s\n", t.Root.Prompt)

	var walkFn func(e *Entry)
	walkFn = func(e *Entry) {
		switch e.Kind {
		case KindMenu, KindMainMenu:
			if e != t.Root && e.isVisible {
				fmt.Fprintf(buf, "\n#\n# %s\n#\n", e.Prompt)
			}
		case KindConfig, KindMenuConfig:
			writeDotConfigLine(buf, e)
			// KindChoice is deliberately excluded: its value is a child
			// name, not n/m/y, and it's commonly unnamed, so it never has
			// a .config line of its own — only its children do, visited
			// below via ChildEntries regardless of e.Kind.
		}
		for _, c := range e.ChildEntries {
			walkFn(c)
		}
	}
	walkFn(t.Root)

	_, err := w.Write(buf.Bytes())
	return err
}

func writeDotConfigLine(buf *bytes.Buffer, e *Entry) {
	if !e.isVisible {
		return
	}
	if strings.HasPrefix(e.Name, "$") {
		return
	}
	switch e.ValueType {
	case TypeBool, TypeTristate:
		if e.value == "" || e.value == "n" {
			fmt.Fprintf(buf, "# %s%s is not set\n", dotConfigPrefix, e.Name)
		} else {
			fmt.Fprintf(buf, "%s%s=%s\n", dotConfigPrefix, e.Name, e.value)
		}
	case TypeString:
		fmt.Fprintf(buf, "%s%s=%q\n", dotConfigPrefix, e.Name, e.value)
	case TypeInt, TypeHex:
		fmt.Fprintf(buf, "%s%s=%s\n", dotConfigPrefix, e.Name, e.value)
	}
}
