// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import "sync"

// Snapshot is an immutable view of the datasets that made up a Database
// at the moment it was captured. Readers operate exclusively against a
// Snapshot; its datasets remain open and unlinked only after every
// Snapshot referencing them is released.
type Snapshot struct {
	db       *Database
	datasets []*Dataset

	once sync.Once
}

// Datasets lists every dataset visible in this snapshot.
func (s *Snapshot) Datasets() []*Dataset { return s.datasets }

// Release drops this snapshot's references to its datasets. Safe to
// call more than once; only the first call has effect.
func (s *Snapshot) Release() {
	s.once.Do(func() {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
		for _, d := range s.datasets {
			d.release()
		}
	})
}
