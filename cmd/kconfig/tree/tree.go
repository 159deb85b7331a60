// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// New subcommand: renders a parsed Kconfig tree with treeprint, the
// library the teacher already uses in unikraft/app/application.go's
// PrintInfo and unikraft/elfloader/elfloader.go for component graphs.
package tree

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/ArdaFu/ArdaKconfigLibrary/internal/cmdfactory"
	"github.com/ArdaFu/ArdaKconfigLibrary/kconfig"
)

type KConfigTree struct {
	File      string `long:"file" short:"f" usage:"Path to the root Kconfig file" default:"Kconfig"`
	DotConfig string `long:"config" short:"c" usage:"Optional .config file to overlay before rendering"`
	Values    bool   `long:"values" usage:"Show the current value alongside each symbol"`
}

func New() *cobra.Command {
	cmd, err := cmdfactory.New(&KConfigTree{}, cobra.Command{
		Short: "Render a parsed Kconfig tree",
		Use:   "tree",
		Aliases: []string{
			"t",
		},
		Long: heredoc.Doc(`
			Parse a Kconfig file and render its menu structure as a tree.`),
		Example: heredoc.Doc(`
			# Render a Kconfig tree with current values
			$ kconfig tree --file Kconfig --config .config --values`),
		Annotations: map[string]string{
			cmdfactory.AnnotationHelpGroup: "misc",
		},
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (k *KConfigTree) Run(cmd *cobra.Command, args []string) error {
	t, err := kconfig.ParseFile(k.File, kconfig.WithContext(cmd.Context()))
	if err != nil {
		return err
	}

	if k.DotConfig != "" {
		if err := t.LoadDotConfigFile(k.DotConfig); err != nil {
			return err
		}
	}

	root := treeprint.NewWithRoot(nodeLabel(t.Root, k.Values))
	addBranches(root, t.Root, k.Values)

	fmt.Fprintln(cmd.OutOrStdout(), root.String())
	return nil
}

func nodeLabel(e *kconfig.Entry, showValues bool) string {
	label := string(e.Kind)
	if e.Name != "" {
		label += " " + e.Name
	} else if e.Prompt != "" {
		label += " " + fmt.Sprintf("%q", e.Prompt)
	}
	if showValues && e.Name != "" {
		label += fmt.Sprintf(" = %s", e.Value())
	}
	return label
}

func addBranches(node treeprint.Tree, e *kconfig.Entry, showValues bool) {
	for _, c := range e.ChildEntries {
		branch := node.AddBranch(nodeLabel(c, showValues))
		addBranches(branch, c, showValues)
	}
}
