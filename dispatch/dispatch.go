// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dispatch implements the request/worker broker that sits
// between accepted connections and command execution. It reproduces the
// LRU ROUTER/DEALER broker from ursadb's original ZeroMQ daemon -
// workers announce readiness, the broker hands each incoming request to
// whichever worker has been idle longest - using goroutines and channels
// over net.Listener instead of a message-queue transport.
package dispatch

import (
	"context"
	"fmt"

	"github.com/malwarefrank/ursadb/command"
)

// job is one request in flight between the broker and a worker.
type job struct {
	connID  string
	request string
	reply   chan string
}

// Executor runs one parsed command to completion and produces the
// response body (without the leading "OK\n"/"ERR " framing, which
// Broker adds).
type Executor interface {
	Execute(ctx context.Context, connID string, cmd command.Command) (string, error)
}

type workerIDKey struct{}

// WorkerID recovers the id of the worker goroutine executing ctx's
// command, mainly useful for per-worker metrics or logging.
func WorkerID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(workerIDKey{}).(int)
	return id, ok
}

// Broker is the LRU request dispatcher: Submit enqueues a request frame
// and blocks for its reply frame, the way a frontend connection handler
// waits on a client socket in the original daemon.
type Broker struct {
	exec    Executor
	jobs    chan job
	ready   chan int
	workers []chan job
}

// NewBroker starts numWorkers worker goroutines, each executing commands
// via exec, and the LRU loop goroutine that pairs incoming jobs with the
// worker that has been idle longest. Cancel ctx to shut it down.
func NewBroker(ctx context.Context, numWorkers int, exec Executor) *Broker {
	b := &Broker{
		exec:    exec,
		jobs:    make(chan job),
		ready:   make(chan int, numWorkers),
		workers: make([]chan job, numWorkers),
	}
	for i := 0; i < numWorkers; i++ {
		b.workers[i] = make(chan job)
		go b.worker(ctx, i)
	}
	go b.loop(ctx)
	return b
}

// Submit enqueues request on behalf of connID and blocks until a worker
// has produced a framed reply ("OK\n<body>" or "ERR <message>\n").
func (b *Broker) Submit(connID, request string) string {
	j := job{connID: connID, request: request, reply: make(chan string, 1)}
	b.jobs <- j
	return <-j.reply
}

// loop is the broker's ROUTER/ROUTER poll loop, reimplemented as a
// select over the ready-worker queue and the incoming job queue: a
// request is only pulled off jobs once a worker id is available from
// ready, so requests queue in arrival order and are dispatched to
// workers in the order they became idle (LRU).
func (b *Broker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-b.jobs:
			select {
			case <-ctx.Done():
				return
			case id := <-b.ready:
				b.workers[id] <- j
			}
		}
	}
}

func (b *Broker) worker(ctx context.Context, id int) {
	workerCtx := context.WithValue(ctx, workerIDKey{}, id)
	b.ready <- id
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-b.workers[id]:
			j.reply <- b.run(workerCtx, j.connID, j.request)
			select {
			case b.ready <- id:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *Broker) run(ctx context.Context, connID, request string) string {
	cmd, err := command.Parse(request)
	if err != nil {
		return fmt.Sprintf("ERR %s\n", err)
	}
	body, err := b.exec.Execute(ctx, connID, cmd)
	if err != nil {
		return fmt.Sprintf("ERR %s\n", err)
	}
	return "OK\n" + body
}
