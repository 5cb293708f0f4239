// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"context"
	"fmt"
	"testing"

	"github.com/malwarefrank/ursadb/command"
	"github.com/stretchr/testify/require"
)

// workerTaggingExecutor replies with the id of the worker goroutine that
// handled the request, recovered from the context Broker threads through
// its worker pool.
type workerTaggingExecutor struct{}

func (workerTaggingExecutor) Execute(ctx context.Context, connID string, cmd command.Command) (string, error) {
	id, _ := WorkerID(ctx)
	return fmt.Sprintf("worker-%d", id), nil
}

// TestLRUDispatchRoundRobin is scenario S6: with 3 workers and 6
// sequential (not concurrent) requests, each worker handles exactly two
// requests, since Submit only issues the next request after the
// previous reply has been received, and a worker only re-announces
// readiness after finishing its current job.
func TestLRUDispatchRoundRobin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := NewBroker(ctx, 3, workerTaggingExecutor{})

	var order []string
	counts := map[string]int{}
	for i := 0; i < 6; i++ {
		reply := broker.Submit("conn", `status;`)
		order = append(order, reply)
		counts[reply]++
	}

	require.Len(t, counts, 3, "exactly 3 distinct workers should have responded")
	for worker, n := range counts {
		require.Equalf(t, 2, n, "worker %s handled %d requests, want 2", worker, n)
	}
	require.Equal(t, order[0], order[3])
	require.Equal(t, order[1], order[4])
	require.Equal(t, order[2], order[5])
}

func TestSubmitReturnsParseError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := NewBroker(ctx, 1, workerTaggingExecutor{})
	reply := broker.Submit("conn", `bogus;`)
	require.Contains(t, reply, "ERR ")
}
