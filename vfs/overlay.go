// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vfs

import (
	"errors"
	"io"
)

// Overlay stacks file systems. Reads come from the first layer that has
// the file, writes go to the first layer that accepts them.
type Overlay []FileSystem

// NewOverlay stacks layers, the first one on top.
func NewOverlay(layers ...FileSystem) Overlay {
	return Overlay(layers)
}

// OpenInput implements interface
func (o Overlay) OpenInput(p string) (io.ReadCloser, error) {
	for _, layer := range o {
		r, err := layer.OpenInput(p)
		if errors.Is(err, ErrNotExist) {
			continue
		}
		return r, err
	}
	return nil, notExist(p)
}

// OpenOutput implements interface
func (o Overlay) OpenOutput(p string) (io.WriteCloser, error) {
	for _, layer := range o {
		w, err := layer.OpenOutput(p)
		if errors.Is(err, ErrReadOnly) {
			continue
		}
		return w, err
	}
	return nil, readOnly(p)
}

// Stat implements interface
func (o Overlay) Stat(p string) (Metadata, error) {
	for _, layer := range o {
		md, err := layer.Stat(p)
		if errors.Is(err, ErrNotExist) {
			continue
		}
		return md, err
	}
	return Metadata{}, notExist(p)
}
