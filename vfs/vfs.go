// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vfs is the file system resources read their backing data from.
// Paths are slash separated and relative to the root of a FileSystem.
package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"time"
)

// package errors
var (
	ErrNotExist = fmt.Errorf("vfs: %w", fs.ErrNotExist)
	ErrReadOnly = errors.New("vfs: file system is read-only")
)

// Metadata describes one file.
type Metadata struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileSystem opens streams by path.
type FileSystem interface {
	OpenInput(path string) (io.ReadCloser, error)
	OpenOutput(path string) (io.WriteCloser, error)
	Stat(path string) (Metadata, error)
}

// ReadFile reads the whole file at p.
func ReadFile(fsys FileSystem, p string) ([]byte, error) {
	r, err := fsys.OpenInput(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// WriteFile replaces the file at p with data.
func WriteFile(fsys FileSystem, p string, data []byte) error {
	w, err := fsys.OpenOutput(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Clean normalizes p and strips any leading slash or parent references
// so it cannot leave the root.
func Clean(p string) string {
	return path.Clean("/" + p)[1:]
}

func notExist(p string) error {
	return fmt.Errorf("%s: %w", p, ErrNotExist)
}

func readOnly(p string) error {
	return fmt.Errorf("%s: %w", p, ErrReadOnly)
}
