// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vfs

import (
	"bytes"
	"io"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Caching keeps the contents of recently read small files in memory.
// Writing through it invalidates the cached copy.
type Caching struct {
	fs      FileSystem
	maxSize int64
	cache   *lru.Cache[string, []byte]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCaching caches up to entries files no larger than maxSize bytes each.
func NewCaching(fsys FileSystem, entries int, maxSize int64) (*Caching, error) {
	cache, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, err
	}
	return &Caching{
		fs:      fsys,
		maxSize: maxSize,
		cache:   cache,
	}, nil
}

// OpenInput implements interface
func (c *Caching) OpenInput(p string) (io.ReadCloser, error) {
	key := Clean(p)
	if data, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	c.misses.Add(1)

	md, err := c.fs.Stat(p)
	if err != nil {
		return nil, err
	}
	if md.IsDir || md.Size > c.maxSize {
		return c.fs.OpenInput(p)
	}
	data, err := ReadFile(c.fs, p)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, data)
	return io.NopCloser(bytes.NewReader(data)), nil
}

// OpenOutput implements interface
func (c *Caching) OpenOutput(p string) (io.WriteCloser, error) {
	c.cache.Remove(Clean(p))
	return c.fs.OpenOutput(p)
}

// Stat implements interface
func (c *Caching) Stat(p string) (Metadata, error) {
	return c.fs.Stat(p)
}

// Stats returns cache hits and misses so far.
func (c *Caching) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
