// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// New subcommand: evaluates a Kconfig tree against an optional .config
// overlay and writes the resolved .config back out, exercising
// dotconfig.go's writer the way cmd/kraft/kconfig/dump never needed to.
package write

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/ArdaFu/ArdaKconfigLibrary/internal/cmdfactory"
	"github.com/ArdaFu/ArdaKconfigLibrary/kconfig"
)

type KConfigWrite struct {
	File      string `long:"file" short:"f" usage:"Path to the root Kconfig file" default:"Kconfig"`
	DotConfig string `long:"config" short:"c" usage:"Optional .config file to overlay before writing"`
	Output    string `long:"output" short:"o" usage:"Path to write the resolved .config to" default:".config"`
}

func New() *cobra.Command {
	cmd, err := cmdfactory.New(&KConfigWrite{}, cobra.Command{
		Short:   "Evaluate a Kconfig tree and write a .config",
		Use:     "write",
		Aliases: []string{"w"},
		Long: heredoc.Doc(`
			Parse a Kconfig file, optionally overlay a .config, and write
			the resolved values back out in .config format.`),
		Example: heredoc.Doc(`
			# Resolve defaults.config against Kconfig and write .config
			$ kconfig write --file Kconfig --config defaults.config --output .config`),
		Annotations: map[string]string{
			cmdfactory.AnnotationHelpGroup: "misc",
		},
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (k *KConfigWrite) Run(cmd *cobra.Command, args []string) error {
	t, err := kconfig.ParseFile(k.File, kconfig.WithContext(cmd.Context()))
	if err != nil {
		return err
	}

	if k.DotConfig != "" {
		if err := t.LoadDotConfigFile(k.DotConfig); err != nil {
			return err
		}
	}

	return t.WriteDotConfigFile(k.Output)
}
