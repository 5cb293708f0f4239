// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmapfile provides a scoped, read-only memory-mapped view over a
// file, the backing store for on-disk index files.
package mmapfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// ErrEmptyFile is the distinguished error returned by Open when the file
// has zero length.
var ErrEmptyFile = errors.New("mmapfile: empty file")

// File is a read-only memory-mapped window over a file's bytes. The zero
// value is not usable; construct with Open. A File must not be copied
// after Open; pass it by pointer.
type File struct {
	name string
	f    *os.File
	data []byte
}

// Open maps path read-only for the lifetime of the returned File. The
// caller must call Close to unmap and release the underlying descriptor.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: stat %s: %w", path, err)
	}
	if st.Size() == 0 {
		f.Close()
		return nil, ErrEmptyFile
	}
	size := st.Size()
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapfile: mmap %s: %w", path, err)
	}
	if err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM); err != nil {
		slog.Warn("fadvise(RANDOM) failed", "file", path, "error", err)
	}
	return &File{name: path, f: f, data: data}, nil
}

// Data returns the mapped byte slice. It is valid only until Close.
func (m *File) Data() []byte { return m.data }

// Size returns the length of the mapped region.
func (m *File) Size() int { return len(m.data) }

// Name returns the path the file was opened from.
func (m *File) Name() string { return m.name }

// Close unmaps the file and releases the descriptor.
func (m *File) Close() error {
	var err error
	if m.data != nil {
		err = unix.Munmap(m.data)
		m.data = nil
	}
	if cerr := m.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
