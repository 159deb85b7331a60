// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// Root command for the standalone kconfig binary: adapted from
// cmd/kraft/kconfig/kconfig.go, no longer a subcommand hanging off a
// larger CLI's root.
package kconfig

import (
	"github.com/spf13/cobra"

	"github.com/ArdaFu/ArdaKconfigLibrary/cmd/kconfig/dump"
	"github.com/ArdaFu/ArdaKconfigLibrary/cmd/kconfig/tree"
	"github.com/ArdaFu/ArdaKconfigLibrary/cmd/kconfig/write"
	"github.com/ArdaFu/ArdaKconfigLibrary/internal/cmdfactory"
	"github.com/ArdaFu/ArdaKconfigLibrary/log"
)

type KConfig struct{}

func New() *cobra.Command {
	cmd, err := cmdfactory.New(&KConfig{}, cobra.Command{
		Short: "Parse and evaluate Kconfig trees",
		Use:   "kconfig [FLAGS] SUBCOMMAND",
		Annotations: map[string]string{
			cmdfactory.AnnotationHelpGroup: "misc",
		},
	})
	if err != nil {
		panic(err)
	}

	cmd.AddCommand(dump.New())
	cmd.AddCommand(tree.New())
	cmd.AddCommand(write.New())

	return cmd
}

func (k *KConfig) Run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log.G(ctx).Infof("Usage: kconfig dump|tree|write")
	return cmd.Help()
}
