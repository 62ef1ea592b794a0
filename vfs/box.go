// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vfs

import (
	"bytes"
	"errors"
	"io"
	"io/fs"

	"github.com/gobuffalo/packr"
)

// Box serves files embedded in the binary with packr. In development
// builds packr falls back to the directory the box was created for.
type Box struct {
	box packr.Box
}

// NewBox wraps a packr box.
func NewBox(box packr.Box) *Box {
	return &Box{box: box}
}

// OpenInput implements interface
func (b *Box) OpenInput(p string) (io.ReadCloser, error) {
	data, err := b.find(p)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// OpenOutput implements interface
func (b *Box) OpenOutput(p string) (io.WriteCloser, error) {
	return nil, readOnly(p)
}

// Stat implements interface
func (b *Box) Stat(p string) (Metadata, error) {
	data, err := b.find(p)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Name: Clean(p), Size: int64(len(data))}, nil
}

// List returns the names of the embedded files.
func (b *Box) List() []string {
	return b.box.List()
}

func (b *Box) find(p string) ([]byte, error) {
	data, err := b.box.Find(Clean(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notExist(p)
	}
	return data, err
}
