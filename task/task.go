// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package task tracks in-flight command executions so `status` can
// report on them while they run.
package task

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Task describes one command execution: its connection, the request
// text that started it, and its progress against an estimate (files to
// index, datasets to compact, and so on).
type Task struct {
	ID            uint64
	ConnID        string
	RequestStr    string
	workDone      atomic.Int64
	workEstimated atomic.Int64
}

// WorkDone is the number of work units completed so far.
func (t *Task) WorkDone() int64 { return t.workDone.Load() }

// WorkEstimated is the total number of work units this task expects to
// perform; it may be adjusted as the task discovers more work.
func (t *Task) WorkEstimated() int64 { return t.workEstimated.Load() }

// SetEstimated sets the total work estimate, e.g. once the file count
// to index is known.
func (t *Task) SetEstimated(n int64) { t.workEstimated.Store(n) }

// Advance adds delta work units to WorkDone.
func (t *Task) Advance(delta int64) { t.workDone.Add(delta) }

// Tracker is the database's registry of currently running tasks.
type Tracker struct {
	mu     sync.Mutex
	nextID uint64
	active map[uint64]*Task
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[uint64]*Task)}
}

// Start allocates and registers a new task for connID's request.
func (tr *Tracker) Start(connID, requestStr string) *Task {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.nextID++
	t := &Task{ID: tr.nextID, ConnID: connID, RequestStr: requestStr}
	tr.active[t.ID] = t
	return t
}

// Finish removes a task from the active set once its command completes.
func (tr *Tracker) Finish(t *Task) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.active, t.ID)
}

// Snapshot returns every currently active task, ordered by id, for the
// `status` command to render.
func (tr *Tracker) Snapshot() []*Task {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]*Task, 0, len(tr.active))
	for _, t := range tr.active {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
