// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"fmt"
	"io"
	"math"
)

// Open opens the kar archived from r. It will also check
// if the file is actually a kar archive, will return an error
// when file incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	magic := make([]byte, MagicLength)
	if err := readFullAt(r, magic, 0); err != nil {
		return nil, err
	} else if string(magic) != Magic {
		return nil, ErrFileFormat
	}

	headerSizeBytes := make([]byte, HeaderSizeNumberLength)
	if err := readFullAt(r, headerSizeBytes, MagicLength); err != nil {
		return nil, err
	}

	headerSize, err := binaryToint64(headerSizeBytes)
	if err != nil || headerSize <= 0 || headerSize > maxHeaderSize {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if err := readFullAt(r, headerBytes, MagicLength+HeaderSizeNumberLength); err != nil {
		return nil, err
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileFormat, err)
	}

	ar := &Archive{
		reader:     r,
		header:     header,
		dataOffset: MagicLength + HeaderSizeNumberLength + headerSize,
		index:      make(map[string]int, len(header.Index)),
	}
	for i, e := range header.Index {
		if e.Offset < 0 || e.CompressedSize < 0 || e.Size < 0 {
			return nil, ErrFileFormat
		}
		ar.index[e.Name] = i
	}
	return ar, nil
}

// readFullAt reads len(p) bytes at off, treating a short read as a
// format error.
func readFullAt(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		return ErrFileFormat
	}
	return err
}

// Archive provides concurrent io for a kar file, and can provide
// an io.Reader for each file separately to perform actions on.
type Archive struct {
	reader     io.ReaderAt
	closer     io.Closer
	header     Header
	dataOffset int64
	index      map[string]int
}

// Header returns the archive header including the index.
func (a *Archive) Header() Header {
	return a.header
}

// Names lists the files in the archive in index order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.header.Index))
	for _, e := range a.header.Index {
		names = append(names, e.Name)
	}
	return names
}

// Stat returns the index entry of a file.
func (a *Archive) Stat(name string) (IndexEntry, error) {
	i, ok := a.index[name]
	if !ok {
		return IndexEntry{}, fmt.Errorf("kar: %q: %w", name, ErrNotExist)
	}
	return a.header.Index[i], nil
}

// ReadAll returns the entire contents of a file with a given name
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// The index size is not trusted for allocation; one extra byte
	// detects an entry that decodes longer than declared.
	limit := r.entry.Size
	if limit < math.MaxInt64 {
		limit++
	}
	buf, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return nil, fmt.Errorf("kar: reading %q: %w", name, err)
	}
	if int64(len(buf)) != r.entry.Size {
		return nil, fmt.Errorf("kar: %q decoded to %d bytes, index says %d: %w",
			name, len(buf), r.entry.Size, ErrFileFormat)
	}
	return buf, nil
}

// Open returns a Reader for a file in the Archive
func (a *Archive) Open(name string) (*Reader, error) {
	entry, err := a.Stat(name)
	if err != nil {
		return nil, err
	}
	section := io.NewSectionReader(a.reader, a.dataOffset+entry.Offset, entry.CompressedSize)
	dec, err := a.header.Compression.newReader(section)
	if err != nil {
		return nil, err
	}
	return &Reader{
		entry: entry,
		dec:   dec,
	}, nil
}

// Close releases the underlying mapping when the archive was opened
// with OpenFile.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Reader is a reader for a single file in an Archive.
// Abstracts away the location that needs to be known.
type Reader struct {
	entry IndexEntry
	dec   io.ReadCloser
}

// Read reads already decompressed data
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.dec.Read(p)
}

// Size returns the decompressed size of the file.
func (r *Reader) Size() int64 {
	return r.entry.Size
}

// Close releases the decompressor.
func (r *Reader) Close() error {
	return r.dec.Close()
}
