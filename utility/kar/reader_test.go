package kar_test

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/korures/utility/kar"
	"golang.org/x/exp/mmap"
)

func writeArchive(t *testing.T) string {
	t.Helper()
	data := buildArchive(t, kar.LZ4, map[string]string{
		"test/test1.txt": "this is a test",
		"test/test2.txt": "this is another test",
	})
	path := filepath.Join(t.TempDir(), "opentest.kar")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpen(t *testing.T) {
	r, err := os.Open(writeArchive(t))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ar, err := kar.Open(r)
	if err != nil {
		t.Fatal(err)
	}

	if len(ar.Names()) != 2 {
		t.Errorf("unexpected index: %v", ar.Names())
	}
}

func TestOpenmmap(t *testing.T) {
	r, err := mmap.Open(writeArchive(t))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ar, err := kar.Open(r)
	if err != nil {
		t.Fatal(err)
	}

	if f, err := ar.ReadAll("test/test1.txt"); err != nil {
		t.Error(err)
	} else if string(f) != "this is a test" {
		t.Error(errors.New("result is not expected value"))
	}
}

func TestOpenFileAndReadAll(t *testing.T) {
	ar, err := kar.OpenFile(writeArchive(t))
	if err != nil {
		t.Fatal(err)
	}
	defer ar.Close()

	if f, err := ar.ReadAll("test/test1.txt"); err != nil {
		t.Error(err)
	} else if string(f) != "this is a test" {
		t.Error(errors.New("result is not expected value"))
	}

	if f, err := ar.ReadAll("test/test2.txt"); err != nil {
		t.Error(err)
	} else if string(f) != "this is another test" {
		t.Error(errors.New("result is not expected value"))
	}

	if e, err := ar.Stat("test/test2.txt"); err != nil {
		t.Error(err)
	} else if e.Size != int64(len("this is another test")) {
		t.Errorf("incorrect size %d", e.Size)
	}
}

func TestMissingFile(t *testing.T) {
	ar, err := kar.OpenFile(writeArchive(t))
	if err != nil {
		t.Fatal(err)
	}
	defer ar.Close()

	if _, err := ar.Open("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestOpenCorrupted(t *testing.T) {
	data := buildArchive(t, kar.LZ4, map[string]string{"a": "b"})

	cases := map[string][]byte{
		"empty":       {},
		"bad magic":   append([]byte("TAR\x00"), data[4:]...),
		"truncated":   data[:10],
		"huge header": append(append([]byte(kar.Magic), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f), data[12:]...),
	}
	for name, raw := range cases {
		if _, err := kar.Open(bytes.NewReader(raw)); !errors.Is(err, kar.ErrFileFormat) {
			t.Errorf("%s: expected ErrFileFormat, got %v", name, err)
		}
	}
}

// withIndexSize rewrites the header of an archive so the first entry
// declares size decompressed bytes.
func withIndexSize(t *testing.T, data []byte, size int64) []byte {
	t.Helper()
	ar, err := kar.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	header := ar.Header()
	header.Index[0].Size = size

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(header); err != nil {
		t.Fatal(err)
	}
	oldLen := int64(binary.LittleEndian.Uint64(data[kar.MagicLength:]))
	payload := data[kar.MagicLength+kar.HeaderSizeNumberLength+oldLen:]

	out := []byte(kar.Magic)
	out = binary.LittleEndian.AppendUint64(out, uint64(raw.Len()))
	out = append(out, raw.Bytes()...)
	return append(out, payload...)
}

func TestReadAllWrongIndexSize(t *testing.T) {
	data := buildArchive(t, kar.LZ4, map[string]string{"a": "some content"})

	for name, size := range map[string]int64{
		"huge":  1 << 50,
		"max":   math.MaxInt64,
		"short": 4,
	} {
		ar, err := kar.Open(bytes.NewReader(withIndexSize(t, data, size)))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if _, err := ar.ReadAll("a"); !errors.Is(err, kar.ErrFileFormat) {
			t.Errorf("%s: expected ErrFileFormat, got %v", name, err)
		}
	}
}
