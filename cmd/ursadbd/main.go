// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ursadbd is the n-gram search daemon: it opens a database
// directory, publishes its initial snapshot, and serves the textual
// command protocol (select/index/reindex/compact/status/topology) over
// a TCP listener until signalled.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/malwarefrank/ursadb/dataset"
	"github.com/malwarefrank/ursadb/dispatch"
	"github.com/malwarefrank/ursadb/server"
	"github.com/malwarefrank/ursadb/task"
)

// defaultBindAddress is the loopback TCP endpoint ursadbd listens on
// when no bind-address argument is given.
const defaultBindAddress = "127.0.0.1:9281"

// defaultWorkers is the size of the dispatch broker's worker pool.
const defaultWorkers = 3

func main() {
	app := &cli.App{
		Name:      "ursadbd",
		Usage:     "n-gram content-search daemon",
		ArgsUsage: "<database-dir> [bind-address]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Value: defaultWorkers,
				Usage: "number of request-dispatch workers",
			},
		},
		Action: runDaemon,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("ursadbd exiting", "err", err)
		os.Exit(1)
	}
}

func runDaemon(c *cli.Context) error {
	dbPath := c.Args().Get(0)
	if dbPath == "" {
		cli.ShowAppHelp(c)
		os.Exit(1)
	}

	bindAddr := c.Args().Get(1)
	if bindAddr == "" {
		bindAddr = defaultBindAddress
	}

	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return fmt.Errorf("ursadbd: create database directory %s: %w", dbPath, err)
	}

	db, err := dataset.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("ursadbd: open database %s: %w", dbPath, err)
	}

	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return fmt.Errorf("ursadbd: listen on %s: %w", bindAddr, err)
	}
	slog.Info("ursadbd listening", "addr", ln.Addr(), "database", dbPath)

	exec := &server.Executor{DB: db, Tasks: task.NewTracker()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := dispatch.NewBroker(ctx, c.Int("workers"), exec)

	err = server.Serve(ctx, ln, broker)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("ursadbd: serve: %w", err)
	}
	return nil
}
