// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.

package kconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataRequiresMainmenu(t *testing.T) {
	_, err := ParseData([]byte("config A\n bool \"A\"\n"), "Kconfig")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mainmenu")
}

func TestParseDataBasicConfigAndChoice(t *testing.T) {
	src := `
mainmenu "Test Project"

menu "Networking"

config NET_TCP
 bool "TCP support"
 default y

config NET_UDP
 bool "UDP support"
 depends on NET_TCP

endmenu

choice
 prompt "Allocator"
 default ALLOC_BUDDY

config ALLOC_BUDDY
 bool "Buddy allocator"

config ALLOC_SLAB
 bool "Slab allocator"

endchoice
`
	tr, err := ParseData([]byte(src), "Kconfig")
	require.NoError(t, err)

	tcp, ok := tr.Symbol("NET_TCP")
	require.True(t, ok)
	assert.Equal(t, "y", tcp.Value())

	udp, ok := tr.Symbol("NET_UDP")
	require.True(t, ok)
	assert.True(t, udp.IsEnabled())

	buddy, ok := tr.Symbol("ALLOC_BUDDY")
	require.True(t, ok)
	assert.Equal(t, "y", buddy.Value())

	slab, ok := tr.Symbol("ALLOC_SLAB")
	require.True(t, ok)
	assert.Equal(t, "n", slab.Value())
}

func TestParseDataSelectAndImplyAttributes(t *testing.T) {
	src := `
mainmenu "Test"

config BASE
 bool "Base feature"

config DRIVER
 bool "Driver"
 select BASE

config OPTIONAL_FEATURE
 bool "Optional"
 imply BASE
`
	tr, err := ParseData([]byte(src), "Kconfig")
	require.NoError(t, err)

	driver, _ := tr.Symbol("DRIVER")
	require.NoError(t, driver.SetValue("y"))

	base, _ := tr.Symbol("BASE")
	assert.Equal(t, "y", base.Value())
}

func TestParseDataHelpBlockStopsAtDedent(t *testing.T) {
	src := `
mainmenu "Test"

config A
 bool "A"
 help
   This is help text
   spanning two lines.

config B
 bool "B"
`
	tr, err := ParseData([]byte(src), "Kconfig")
	require.NoError(t, err)

	a, ok := tr.Symbol("A")
	require.True(t, ok)
	assert.Contains(t, a.Help, "This is help text")
	assert.Contains(t, a.Help, "spanning two lines.")

	_, ok = tr.Symbol("B")
	assert.True(t, ok)
}

func TestParseDataHelpBlockPreservesRelativeIndentAndLineBreaks(t *testing.T) {
	src := `
mainmenu "Test"

config A
 bool "A"
 help
   first line
     nested deeper
   back to base
`
	tr, err := ParseData([]byte(src), "Kconfig")
	require.NoError(t, err)

	a, ok := tr.Symbol("A")
	require.True(t, ok)
	assert.Equal(t, "first line\n  nested deeper\nback to base", a.Help)
}

func TestParseFileIncludesSource(t *testing.T) {
	dir := t.TempDir()
	sub := "config SUB\n bool \"Sub\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Kconfig.sub"), []byte(sub), 0o644))

	root := `
mainmenu "Test"

source "Kconfig.sub"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Kconfig"), []byte(root), 0o644))

	tr, err := ParseFile(filepath.Join(dir, "Kconfig"))
	require.NoError(t, err)

	_, ok := tr.Symbol("SUB")
	assert.True(t, ok)
}

func TestParseFileMissingSourceKeepsPlaceholderEntry(t *testing.T) {
	dir := t.TempDir()
	root := `
mainmenu "Test"

source "nonexistent/Kconfig"

config A
 bool "A"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Kconfig"), []byte(root), 0o644))

	tr, err := ParseFile(filepath.Join(dir, "Kconfig"))
	require.NoError(t, err)

	var foundSource bool
	for _, e := range tr.Universe {
		if e.Kind == KindSource {
			foundSource = true
		}
	}
	assert.True(t, foundSource)

	_, ok := tr.Symbol("A")
	assert.True(t, ok)
}

func TestParseDataMenuconfigReparenting(t *testing.T) {
	src := `
mainmenu "Test"

menuconfig SUBSYS
 bool "Subsystem"

config FEATURE
 bool "Feature"
 depends on SUBSYS
`
	tr, err := ParseData([]byte(src), "Kconfig")
	require.NoError(t, err)

	subsys, ok := tr.Symbol("SUBSYS")
	require.True(t, ok)
	feature, ok := tr.Symbol("FEATURE")
	require.True(t, ok)

	require.NotNil(t, feature.ParentEntry)
	assert.Same(t, subsys, feature.ParentEntry)
}

func TestParseDataUnknownAttributeWarnsByDefault(t *testing.T) {
	src := `
mainmenu "Test"

config A
 bool "A"
 totally_unknown_attribute blah
`
	_, err := ParseData([]byte(src), "Kconfig")
	require.NoError(t, err)
}

func TestParseDataStrictModeFailsOnUnknownAttribute(t *testing.T) {
	src := `
mainmenu "Test"

config A
 bool "A"
 totally_unknown_attribute blah
`
	_, err := ParseData([]byte(src), "Kconfig", WithStrict(true))
	require.Error(t, err)
}

func TestParseDataRangeAttribute(t *testing.T) {
	src := `
mainmenu "Test"

config N
 int "A number"
 range 1 10
 default 5
`
	tr, err := ParseData([]byte(src), "Kconfig")
	require.NoError(t, err)

	n, ok := tr.Symbol("N")
	require.True(t, ok)
	assert.Equal(t, "5", n.Value())
	assert.Error(t, n.SetValue("20"))
}

func TestParseDataUnbalancedEndmenuFails(t *testing.T) {
	src := `
mainmenu "Test"

endmenu
`
	_, err := ParseData([]byte(src), "Kconfig")
	require.Error(t, err)
}
