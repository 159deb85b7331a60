// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.

package kconfig

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOverlayTree(entries ...*Entry) *Tree {
	byName := map[string]*Entry{}
	for _, e := range entries {
		if e.Name != "" {
			byName[e.Name] = e
		}
	}
	return &Tree{ByName: byName, Universe: entries}
}

func TestLoadDotConfigSetsMatchingBoolAndTristate(t *testing.T) {
	// a prompt is required for the assigned value to survive: a promptless
	// symbol is always forced back to its computed default on every eval
	// pass, per evalConfigLike's prompt=="" branch.
	promptAttrs := []*Attribute{{Kind: AttrPrompt, Text: "X"}}
	a := &Entry{Kind: KindConfig, Name: "A", ValueType: TypeBool, value: "n", Attributes: promptAttrs}
	b := &Entry{Kind: KindConfig, Name: "B", ValueType: TypeTristate, value: "n", Attributes: promptAttrs}
	tr := newOverlayTree(a, b)

	data := []byte("CONFIG_A=y\nCONFIG_B=m\n")
	require.NoError(t, tr.LoadDotConfig(data))

	assert.Equal(t, "y", a.value)
	assert.Equal(t, "m", b.value)
}

func TestLoadDotConfigNotSetLineSetsN(t *testing.T) {
	a := &Entry{Kind: KindConfig, Name: "A", ValueType: TypeBool, value: "y"}
	tr := newOverlayTree(a)

	require.NoError(t, tr.LoadDotConfig([]byte("# CONFIG_A is not set\n")))
	assert.Equal(t, "n", a.value)
}

func TestLoadDotConfigUnmatchedNameIsIgnored(t *testing.T) {
	a := &Entry{Kind: KindConfig, Name: "A", ValueType: TypeBool, value: "n"}
	tr := newOverlayTree(a)

	assert.NotPanics(t, func() {
		require.NoError(t, tr.LoadDotConfig([]byte("CONFIG_GHOST=y\n")))
	})
	assert.Equal(t, "n", a.value)
}

func TestLoadDotConfigBoolAcceptsOnDiskTristate(t *testing.T) {
	// spec.md §4.6: a Bool symbol accepts an on-disk tristate record, even
	// though "m" then fails the Bool validator (stored anyway, per §4.5
	// "value validation" storing the attempted value regardless of err).
	a := &Entry{Kind: KindConfig, Name: "A", ValueType: TypeBool, value: "n"}
	tr := newOverlayTree(a)

	require.NoError(t, tr.LoadDotConfig([]byte("CONFIG_A=m\n")))
	assert.Equal(t, "m", a.value)
	assert.Error(t, a.valueErr)
}

func TestLoadDotConfigStringAndHexValues(t *testing.T) {
	promptAttrs := []*Attribute{{Kind: AttrPrompt, Text: "X"}}
	s := &Entry{Kind: KindConfig, Name: "S", ValueType: TypeString, Attributes: promptAttrs}
	h := &Entry{Kind: KindConfig, Name: "H", ValueType: TypeHex, Attributes: promptAttrs}
	tr := newOverlayTree(s, h)

	require.NoError(t, tr.LoadDotConfig([]byte(`CONFIG_S="hello world"` + "\nCONFIG_H=0x1F\n")))
	assert.Equal(t, "hello world", s.value)
	assert.Equal(t, "0x1F", h.value)
}

func TestLoadDotConfigFileWrapsReadError(t *testing.T) {
	tr := newOverlayTree()
	err := tr.LoadDotConfigFile("/nonexistent/path/.config")
	require.Error(t, err)
}

func TestWriteDotConfigBannerAndMenuHeader(t *testing.T) {
	root := &Entry{Kind: KindMainMenu, Prompt: "Test Project Configuration"}
	menu := &Entry{Kind: KindMenu, Prompt: "Networking", ParentEntry: root, isVisible: true}
	root.ChildEntries = []*Entry{menu}

	tr := &Tree{Root: root, ByName: map[string]*Entry{}, Universe: []*Entry{root, menu}}

	var buf bytes.Buffer
	require.NoError(t, tr.WriteDotConfig(&buf))

	out := buf.String()
	assert.Contains(t, out, "# Automatically generated file; DO NOT EDIT.")
	assert.Contains(t, out, "# Test Project Configuration")
	assert.Contains(t, out, "# Networking")
}

func TestWriteDotConfigEmitsSetAndUnsetLines(t *testing.T) {
	root := &Entry{Kind: KindMainMenu, Prompt: "Root"}
	on := &Entry{Kind: KindConfig, Name: "ON", ValueType: TypeBool, value: "y", isVisible: true, ParentEntry: root}
	off := &Entry{Kind: KindConfig, Name: "OFF", ValueType: TypeBool, value: "n", isVisible: true, ParentEntry: root}
	root.ChildEntries = []*Entry{on, off}

	tr := &Tree{Root: root, ByName: map[string]*Entry{}, Universe: []*Entry{root, on, off}}

	var buf bytes.Buffer
	require.NoError(t, tr.WriteDotConfig(&buf))

	out := buf.String()
	assert.Contains(t, out, "CONFIG_ON=y\n")
	assert.Contains(t, out, "# CONFIG_OFF is not set\n")
}

func TestWriteDotConfigSkipsInvisibleAndPlaceholderNames(t *testing.T) {
	root := &Entry{Kind: KindMainMenu, Prompt: "Root"}
	hidden := &Entry{Kind: KindConfig, Name: "HIDDEN", ValueType: TypeBool, value: "y", isVisible: false, ParentEntry: root}
	placeholder := &Entry{Kind: KindConfig, Name: "$TMP", ValueType: TypeBool, value: "y", isVisible: true, ParentEntry: root}
	root.ChildEntries = []*Entry{hidden, placeholder}

	tr := &Tree{Root: root, ByName: map[string]*Entry{}, Universe: []*Entry{root, hidden, placeholder}}

	var buf bytes.Buffer
	require.NoError(t, tr.WriteDotConfig(&buf))

	out := buf.String()
	assert.NotContains(t, out, "HIDDEN")
	assert.NotContains(t, out, "TMP")
}

func TestWriteDotConfigSkipsChoiceItselfButWritesChildren(t *testing.T) {
	// a choice's own value names a child ("X"), not n/m/y, and its Name is
	// commonly "" — writing it through writeDotConfigLine would otherwise
	// emit a bogus "CONFIG_=X" line matching no .config grammar form.
	root := &Entry{Kind: KindMainMenu, Prompt: "Root"}
	choice := &Entry{Kind: KindChoice, Name: "", ValueType: TypeBool, value: "X", isVisible: true, ParentEntry: root}
	x := &Entry{Kind: KindConfig, Name: "X", ValueType: TypeBool, value: "y", isVisible: true, ParentEntry: choice}
	y := &Entry{Kind: KindConfig, Name: "Y", ValueType: TypeBool, value: "n", isVisible: true, ParentEntry: choice}
	choice.ChildEntries = []*Entry{x, y}
	root.ChildEntries = []*Entry{choice}

	tr := &Tree{Root: root, ByName: map[string]*Entry{}, Universe: []*Entry{root, choice, x, y}}

	var buf bytes.Buffer
	require.NoError(t, tr.WriteDotConfig(&buf))

	out := buf.String()
	assert.NotContains(t, out, "CONFIG_=")
	assert.Contains(t, out, "CONFIG_X=y\n")
	assert.Contains(t, out, "# CONFIG_Y is not set\n")
}

func TestWriteDotConfigStringAndIntTypes(t *testing.T) {
	root := &Entry{Kind: KindMainMenu, Prompt: "Root"}
	s := &Entry{Kind: KindConfig, Name: "S", ValueType: TypeString, value: "hi", isVisible: true, ParentEntry: root}
	n := &Entry{Kind: KindConfig, Name: "N", ValueType: TypeInt, value: "42", isVisible: true, ParentEntry: root}
	root.ChildEntries = []*Entry{s, n}

	tr := &Tree{Root: root, ByName: map[string]*Entry{}, Universe: []*Entry{root, s, n}}

	var buf bytes.Buffer
	require.NoError(t, tr.WriteDotConfig(&buf))

	out := buf.String()
	assert.Contains(t, out, `CONFIG_S="hi"`)
	assert.Contains(t, out, "CONFIG_N=42")
}
