// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// NewBuilder creates a new Builder. Do not fill the Index in
// the header, it will be overwritten anyway.
func NewBuilder(header Header) (*Builder, error) {
	temp, err := os.MkdirTemp("", "karBuilder")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTempFail, err)
	}
	return &Builder{
		tempDir: temp,
		header:  header,
		names:   make(map[string]struct{}),
	}, nil
}

type tempFile struct {

	// Name is the actual name of the file
	Name string

	// TempName is the temporary name given by the Builder
	TempName string

	// Size in uncompressed state
	Size int64

	Compressed int64
}

// Builder is the high level builder for the archive format.
// Arhives are versioned and cannot be appended to, This Builder
// is the way to create an archive. Whenever Add is called, Builder
// stores the compressed file in its temporary dir, then finally
// bundles them together and writes them out with WriteTo.
// Close removes the temporary dir.
type Builder struct {
	tempDir string
	header  Header

	mutex sync.Mutex
	files []tempFile
	names map[string]struct{}
}

// Add compresses everything read from r into the builder under name.
// Will block until compression finishes. Is safe
// to use concurrently in different goroutines.
func (b *Builder) Add(name string, r io.Reader) error {
	if err := b.reserve(name); err != nil {
		return err
	}
	tf, err := b.compress(name, r)
	if err != nil {
		b.mutex.Lock()
		delete(b.names, name)
		b.mutex.Unlock()
		return err
	}
	b.mutex.Lock()
	b.files = append(b.files, tf)
	b.mutex.Unlock()
	return nil
}

func (b *Builder) reserve(name string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if _, ok := b.names[name]; ok {
		return fmt.Errorf("kar: %q: %w", name, ErrDuplicate)
	}
	b.names[name] = struct{}{}
	return nil
}

func (b *Builder) compress(name string, r io.Reader) (tempFile, error) {
	f, err := os.CreateTemp(b.tempDir, "entry-*")
	if err != nil {
		return tempFile{}, fmt.Errorf("%w: %v", ErrTempFail, err)
	}
	defer f.Close()

	writer, err := b.header.Compression.newWriter(f)
	if err != nil {
		return tempFile{}, err
	}
	written, err := io.Copy(writer, r)
	if err != nil {
		return tempFile{}, fmt.Errorf("kar: compressing %q: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return tempFile{}, fmt.Errorf("kar: compressing %q: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		return tempFile{}, fmt.Errorf("%w: %v", ErrTempFail, err)
	}
	return tempFile{
		Name:       name,
		TempName:   filepath.Base(f.Name()),
		Size:       written,
		Compressed: info.Size(),
	}, nil
}

// AddFiles adds the files at paths, relative to root, in parallel.
// Archive names are the slash separated relative paths.
func (b *Builder) AddFiles(root string, paths []string) error {
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, p := range paths {
		p := p
		g.Go(func() error {
			f, err := os.Open(filepath.Join(root, p))
			if err != nil {
				return err
			}
			defer f.Close()
			return b.Add(filepath.ToSlash(p), f)
		})
	}
	return g.Wait()
}

// Len returns the number of files added so far.
func (b *Builder) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.files)
}

// WriteTo bundles and writes all of the files added to the Builder
// into a kar archive that is ready to use. Files are ordered by name.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	files := make([]tempFile, len(b.files))
	copy(files, b.files)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	header := b.header
	header.Index = make([]IndexEntry, 0, len(files))
	var offset int64
	for _, v := range files {
		header.Index = append(header.Index, IndexEntry{
			Name:           v.Name,
			Offset:         offset,
			Size:           v.Size,
			CompressedSize: v.Compressed,
		})
		offset += v.Compressed
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, err
	}

	var written int64
	for _, chunk := range [][]byte{[]byte(Magic), int64ToBinary(int64(len(rawHeader))), rawHeader} {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	for _, v := range files {
		n, err := b.copyTemp(w, v)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (b *Builder) copyTemp(w io.Writer, v tempFile) (int64, error) {
	f, err := os.Open(filepath.Join(b.tempDir, v.TempName))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTempFail, err)
	}
	defer f.Close()
	n, err := io.Copy(w, f)
	if err == nil && n != v.Compressed {
		err = fmt.Errorf("%w: %q changed size", ErrTempFail, v.Name)
	}
	return n, err
}

// Close removes the temporary files. The Builder is unusable afterwards.
func (b *Builder) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files = nil
	return os.RemoveAll(b.tempDir)
}
