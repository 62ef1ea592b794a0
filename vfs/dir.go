// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vfs

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir is a FileSystem rooted at a directory of the host.
type Dir string

func (d Dir) resolve(p string) string {
	return filepath.Join(string(d), filepath.FromSlash(Clean(p)))
}

// OpenInput implements interface
func (d Dir) OpenInput(p string) (io.ReadCloser, error) {
	f, err := os.Open(d.resolve(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notExist(p)
	} else if err != nil {
		return nil, err
	}
	return f, nil
}

// OpenOutput implements interface, creating parent directories.
func (d Dir) OpenOutput(p string) (io.WriteCloser, error) {
	full := d.resolve(p)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(full)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Stat implements interface
func (d Dir) Stat(p string) (Metadata, error) {
	info, err := os.Stat(d.resolve(p))
	if errors.Is(err, fs.ErrNotExist) {
		return Metadata{}, notExist(p)
	} else if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Name:    Clean(p),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}
