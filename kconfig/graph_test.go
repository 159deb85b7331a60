// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.

package kconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOpts() *ParseOptions {
	return &ParseOptions{TabWidth: 8, Env: NewMapEnv(), Ctx: context.Background()}
}

func TestComputeNestDependsOnThroughIf(t *testing.T) {
	root := &Entry{Kind: KindMainMenu}
	ifBlock := &Entry{Kind: KindIf, ifCond: "A", ParentEntry: root}
	child := &Entry{Kind: KindConfig, Name: "B", ParentEntry: ifBlock}
	root.ChildEntries = []*Entry{ifBlock}
	ifBlock.ChildEntries = []*Entry{child}

	tr := &Tree{Root: root, opts: testOpts()}
	require.NoError(t, tr.computeNestDependsOn())

	assert.Equal(t, "", ifBlock.nestDependsOn)
	assert.Equal(t, "A", child.nestDependsOn)
}

func TestComputeNestDependsOnNestedIf(t *testing.T) {
	root := &Entry{Kind: KindMainMenu}
	outer := &Entry{Kind: KindIf, ifCond: "A", ParentEntry: root}
	inner := &Entry{Kind: KindIf, ifCond: "B", ParentEntry: outer}
	child := &Entry{Kind: KindConfig, Name: "C", ParentEntry: inner}
	root.ChildEntries = []*Entry{outer}
	outer.ChildEntries = []*Entry{inner}
	inner.ChildEntries = []*Entry{child}

	tr := &Tree{Root: root, opts: testOpts()}
	require.NoError(t, tr.computeNestDependsOn())

	assert.Equal(t, "A", inner.nestDependsOn)
	assert.Equal(t, "(A) && (B)", child.nestDependsOn)
}

func TestCompileExpressionsResolvesDependsOn(t *testing.T) {
	a := &Entry{Kind: KindConfig, Name: "A", ValueType: TypeBool}
	b := &Entry{Kind: KindConfig, Name: "B", ValueType: TypeBool,
		Attributes: []*Attribute{{Kind: AttrDependsOn, Text: "A"}}}

	tr := &Tree{
		ByName:   map[string]*Entry{"A": a, "B": b},
		Universe: []*Entry{a, b},
		opts:     testOpts(),
	}
	require.NoError(t, tr.compileExpressions(context.Background()))

	require.NotNil(t, b.dependsOnExpr)
	assert.True(t, b.dependsOnList[a])
	assert.Nil(t, a.dependsOnExpr)
}

func TestCompileExpressionsBadExpressionIsNonFatal(t *testing.T) {
	a := &Entry{Kind: KindConfig, Name: "A", ValueType: TypeBool,
		Attributes: []*Attribute{{Kind: AttrDependsOn, Text: "NOT_A_SYMBOL"}}}

	tr := &Tree{
		ByName:   map[string]*Entry{"A": a},
		Universe: []*Entry{a},
		opts:     testOpts(),
	}
	// an unresolvable depends-on expression logs a warning and leaves
	// dependsOnExpr nil rather than failing the whole compile pass.
	require.NoError(t, tr.compileExpressions(context.Background()))
	assert.Nil(t, a.dependsOnExpr)
}

func TestResolveReverseDepsWiresSelectAndImply(t *testing.T) {
	target := &Entry{Kind: KindConfig, Name: "TARGET", ValueType: TypeBool}
	selector := &Entry{Kind: KindConfig, Name: "SEL", ValueType: TypeBool,
		Attributes: []*Attribute{{Kind: AttrSelect, Text: "TARGET"}}}
	implier := &Entry{Kind: KindConfig, Name: "IMP", ValueType: TypeBool,
		Attributes: []*Attribute{{Kind: AttrImply, Text: "TARGET"}}}

	tr := &Tree{
		ByName:   map[string]*Entry{"TARGET": target, "SEL": selector, "IMP": implier},
		Universe: []*Entry{target, selector, implier},
		opts:     testOpts(),
	}
	tr.resolveReverseDeps()

	assert.Contains(t, target.beSelected, selector)
	assert.Contains(t, target.beImplied, implier)
	assert.True(t, target.dependsOnList[selector])
	assert.True(t, target.dependsOnList[implier])
}

func TestResolveReverseDepsUnresolvedTargetLogsAndSkips(t *testing.T) {
	selector := &Entry{Kind: KindConfig, Name: "SEL", ValueType: TypeBool,
		Attributes: []*Attribute{{Kind: AttrSelect, Text: "GHOST"}}}

	tr := &Tree{
		ByName:   map[string]*Entry{"SEL": selector},
		Universe: []*Entry{selector},
		opts:     testOpts(),
	}
	assert.NotPanics(t, tr.resolveReverseDeps)
	assert.Nil(t, selector.Attributes[0].ReverseDependency)
}

func TestValidateChoicesRejectsMixedTypes(t *testing.T) {
	choice := &Entry{Kind: KindChoice, Name: "CH"}
	boolChild := &Entry{Kind: KindConfig, Name: "B1", ValueType: TypeBool, ParentEntry: choice}
	tristateChild := &Entry{Kind: KindConfig, Name: "B2", ValueType: TypeTristate, ParentEntry: choice}
	choice.ChildEntries = []*Entry{boolChild, tristateChild}

	tr := &Tree{Universe: []*Entry{choice, boolChild, tristateChild}, opts: testOpts()}
	err := tr.validateChoices()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixed value types")
}

func TestValidateChoicesRejectsNonBoolishChild(t *testing.T) {
	choice := &Entry{Kind: KindChoice, Name: "CH"}
	strChild := &Entry{Kind: KindConfig, Name: "S1", ValueType: TypeString, ParentEntry: choice}
	choice.ChildEntries = []*Entry{strChild}

	tr := &Tree{Universe: []*Entry{choice, strChild}, opts: testOpts()}
	err := tr.validateChoices()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be bool or tristate")
}

func TestValidateChoicesAcceptsUniformTristateThroughIf(t *testing.T) {
	choice := &Entry{Kind: KindChoice, Name: "CH"}
	ifWrap := &Entry{Kind: KindIf, ParentEntry: choice}
	child := &Entry{Kind: KindConfig, Name: "C1", ValueType: TypeTristate, ParentEntry: ifWrap}
	choice.ChildEntries = []*Entry{ifWrap}
	ifWrap.ChildEntries = []*Entry{child}

	tr := &Tree{Universe: []*Entry{choice, ifWrap, child}, opts: testOpts()}
	require.NoError(t, tr.validateChoices())
	assert.Equal(t, TypeTristate, choice.ValueType)
}

func TestLayerTopologicallyOrdersByDependsOn(t *testing.T) {
	a := &Entry{Kind: KindConfig, Name: "A"}
	b := &Entry{Kind: KindConfig, Name: "B", dependsOnList: map[*Entry]bool{a: true}}
	c := &Entry{Kind: KindConfig, Name: "C", dependsOnList: map[*Entry]bool{b: true}}
	a.dependsOnList = map[*Entry]bool{}

	tr := &Tree{Universe: []*Entry{c, a, b}, opts: testOpts()}
	require.NoError(t, tr.layer())

	assert.Equal(t, 0, a.Level())
	assert.Equal(t, 1, b.Level())
	assert.Equal(t, 2, c.Level())
	require.Len(t, tr.Layers, 3)
}

func TestLayerDetectsCycle(t *testing.T) {
	a := &Entry{Kind: KindConfig, Name: "A"}
	b := &Entry{Kind: KindConfig, Name: "B"}
	a.dependsOnList = map[*Entry]bool{b: true}
	b.dependsOnList = map[*Entry]bool{a: true}

	tr := &Tree{Universe: []*Entry{a, b}, opts: testOpts()}
	err := tr.layer()
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"A", "B"}, cycleErr.Names)
	assert.ElementsMatch(t, []string{"A", "B"}, tr.CirculationDependsOnItems())
}

func TestComputeControlsBuildsPerLayerFrontier(t *testing.T) {
	a := &Entry{Kind: KindConfig, Name: "A"}
	b := &Entry{Kind: KindConfig, Name: "B", dependsOnList: map[*Entry]bool{a: true}}
	c := &Entry{Kind: KindConfig, Name: "C", dependsOnList: map[*Entry]bool{b: true}}
	a.dependsOnList = map[*Entry]bool{}

	tr := &Tree{Universe: []*Entry{a, b, c}, opts: testOpts()}
	require.NoError(t, tr.layer())
	require.NoError(t, tr.computeControls(context.Background()))

	require.Len(t, a.controlsList, 2)
	assert.True(t, a.controlsList[0][b])
	assert.True(t, a.controlsList[1][c])
	assert.Empty(t, c.controlsList)
}
