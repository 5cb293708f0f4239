// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/malwarefrank/ursadb/command"
	"github.com/malwarefrank/ursadb/dataset"
	"github.com/malwarefrank/ursadb/ngram"
	"github.com/malwarefrank/ursadb/query"
	"github.com/malwarefrank/ursadb/task"
)

// defaultKinds is used for `index` commands that omit an explicit
// `with [...]` clause (`reindex` always carries one).
var defaultKinds = []ngram.Kind{ngram.GRAM3, ngram.TEXT4, ngram.HASH4}

// Executor runs parsed commands against a dataset.Database, tracking
// each as a task and recording Prometheus metrics for its outcome.
type Executor struct {
	DB    *dataset.Database
	Tasks *task.Tracker
}

func (e *Executor) Execute(ctx context.Context, connID string, cmd command.Command) (body string, err error) {
	kindLabel := commandLabel(cmd.Kind)
	// The task's RequestStr is the command keyword (e.g. "select"), not
	// the full request text, which Execute does not receive.
	t := e.Tasks.Start(connID, kindLabel)
	defer e.Tasks.Finish(t)

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		requestsTotal.WithLabelValues(kindLabel, outcome).Inc()
		requestDuration.WithLabelValues(kindLabel).Observe(time.Since(start).Seconds())
	}()

	switch cmd.Kind {
	case command.KindSelect:
		return e.execSelect(cmd, t)
	case command.KindIndex:
		return e.execIndex(cmd, t)
	case command.KindReindex:
		return e.execReindex(cmd)
	case command.KindCompact:
		return "", e.DB.Compact(cmd.Smart)
	case command.KindStatus:
		return e.execStatus(), nil
	case command.KindTopology:
		return e.execTopology(), nil
	default:
		return "", fmt.Errorf("server: unhandled command kind %d", cmd.Kind)
	}
}

func commandLabel(k command.Kind) string {
	switch k {
	case command.KindSelect:
		return "select"
	case command.KindIndex:
		return "index"
	case command.KindReindex:
		return "reindex"
	case command.KindCompact:
		return "compact"
	case command.KindStatus:
		return "status"
	case command.KindTopology:
		return "topology"
	default:
		return "unknown"
	}
}

func (e *Executor) execSelect(cmd command.Command, t *task.Task) (string, error) {
	snap := e.DB.Snapshot()
	defer snap.Release()
	t.SetEstimated(int64(len(snap.Datasets())))

	var counters query.Counters
	paths, err := e.DB.Select(snap, cmd.Query, &counters)
	if err != nil {
		return "", err
	}
	t.Advance(int64(len(snap.Datasets())))

	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString(p)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func (e *Executor) execIndex(cmd command.Command, t *task.Task) (string, error) {
	paths, err := walkPaths(cmd.Path)
	if err != nil {
		return "", err
	}
	t.SetEstimated(int64(len(paths)))

	kinds := cmd.IndexKinds
	if len(kinds) == 0 {
		kinds = defaultKinds
	}
	if err := e.DB.IndexPaths(paths, kinds); err != nil {
		return "", err
	}
	t.Advance(int64(len(paths)))
	return "", nil
}

func (e *Executor) execReindex(cmd command.Command) (string, error) {
	return "", e.DB.Reindex(cmd.DatasetID, cmd.IndexKinds)
}

func (e *Executor) execStatus() string {
	var sb strings.Builder
	for _, t := range e.Tasks.Snapshot() {
		fmt.Fprintf(&sb, "%d\t%d\t%d\t%s\t%s\n", t.ID, t.WorkDone(), t.WorkEstimated(), t.ConnID, t.RequestStr)
	}
	return sb.String()
}

func (e *Executor) execTopology() string {
	entries := e.DB.Topology()
	sort.Slice(entries, func(i, j int) bool { return entries[i].DatasetID < entries[j].DatasetID })

	var sb strings.Builder
	for _, ent := range entries {
		fmt.Fprintf(&sb, "DATASET %s\n", ent.DatasetID)
		kinds := append([]ngram.Kind(nil), ent.Kinds...)
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, k := range kinds {
			fmt.Fprintf(&sb, "INDEX %s %s\n", ent.DatasetID, k)
		}
	}
	return sb.String()
}

// walkPaths resolves an `index` command's path argument to the set of
// files it covers: the path itself if it names a file, or every
// non-directory entry beneath it if it names a directory.
func walkPaths(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("server: walk %s: %w", root, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("server: %s contains no files to index", root)
	}
	return out, nil
}
