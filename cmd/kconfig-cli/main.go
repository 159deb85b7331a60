// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// Entrypoint for the standalone kconfig binary, adapted from
// cmd/runu/runu.go's signal-aware cmdfactory.Main wiring (kraftkit's
// cmd/kraft/main.go pulls in packmanager/config machinery this module
// has no use for; runu's leaner main is the closer fit for a tool with
// no plugin host).
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ArdaFu/ArdaKconfigLibrary/cmd/kconfig"
	"github.com/ArdaFu/ArdaKconfigLibrary/internal/cmdfactory"
	"github.com/ArdaFu/ArdaKconfigLibrary/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx = log.WithLogger(ctx, log.L)

	cmd := kconfig.New()
	cmdfactory.Main(ctx, cmd)
}
