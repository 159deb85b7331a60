// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// Adapted from cmd/kraft/kconfig/dump/dump.go: rather than resolving a
// Unikraft project's merged KConfig, this dumps one parsed Kconfig tree,
// optionally overlaid with a .config, using the same litter.Dump call
// the teacher uses.
package dump

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"github.com/ArdaFu/ArdaKconfigLibrary/internal/cmdfactory"
	"github.com/ArdaFu/ArdaKconfigLibrary/kconfig"
)

type KConfigDump struct {
	File      string `long:"file" short:"f" usage:"Path to the root Kconfig file" default:"Kconfig"`
	DotConfig string `long:"config" short:"c" usage:"Optional .config file to overlay before dumping"`
}

func New() *cobra.Command {
	cmd, err := cmdfactory.New(&KConfigDump{}, cobra.Command{
		Short:   "Dump a parsed Kconfig tree",
		Use:     "dump",
		Aliases: []string{"d"},
		Long: heredoc.Doc(`
			Parse a Kconfig file and dump its evaluated tree.`),
		Example: heredoc.Doc(`
			# Dump a Kconfig tree
			$ kconfig dump --file Kconfig --config .config`),
		Annotations: map[string]string{
			cmdfactory.AnnotationHelpGroup: "misc",
		},
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (k *KConfigDump) Run(cmd *cobra.Command, args []string) error {
	t, err := kconfig.ParseFile(k.File, kconfig.WithContext(cmd.Context()))
	if err != nil {
		return err
	}

	if k.DotConfig != "" {
		if err := t.LoadDotConfigFile(k.DotConfig); err != nil {
			return err
		}
	}

	litter.Dump(t.Universe)
	return nil
}
