// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vfs

import (
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/devblok/korures/utility/kar"
)

// Archive serves files out of a kar archive. It is read-only.
type Archive struct {
	ar      *kar.Archive
	modTime time.Time
}

// NewArchive wraps an opened archive.
func NewArchive(ar *kar.Archive) *Archive {
	return &Archive{
		ar:      ar,
		modTime: time.Unix(ar.Header().DateCreated, 0),
	}
}

// OpenArchive memory maps the archive at path.
func OpenArchive(path string) (*Archive, error) {
	ar, err := kar.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return NewArchive(ar), nil
}

// OpenInput implements interface
func (a *Archive) OpenInput(p string) (io.ReadCloser, error) {
	r, err := a.ar.Open(Clean(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notExist(p)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// OpenOutput implements interface
func (a *Archive) OpenOutput(p string) (io.WriteCloser, error) {
	return nil, readOnly(p)
}

// Stat implements interface
func (a *Archive) Stat(p string) (Metadata, error) {
	e, err := a.ar.Stat(Clean(p))
	if err != nil {
		return Metadata{}, notExist(p)
	}
	return Metadata{
		Name:    e.Name,
		Size:    e.Size,
		ModTime: a.modTime,
	}, nil
}

// Close unmaps the archive.
func (a *Archive) Close() error {
	return a.ar.Close()
}
