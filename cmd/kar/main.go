// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/devblok/korures/utility/kar"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

func init() {
	currentUserName = "unknown"
	if u, err := user.Current(); err == nil {
		currentUserName = u.Name
	}
}

var (
	currentUserName string
	author          = flag.String("author", "", "Set the author of the package when compressing (default: current user)")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	compression     = flag.String("z", "lz4", "Compression when creating: lz4 or zstd")
	extract         = flag.String("e", "", "Extract the archive given")
	compress        = flag.String("c", "", "Compress the given folder")
	list            = flag.String("l", "", "List the contents of the archive given")
	dstFile         = flag.String("f", "out.kar", "Destination file when compressing, directory when extracting")
	silent          = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	ops := 0
	for _, op := range []string{*extract, *compress, *list} {
		if op != "" {
			ops++
		}
	}
	if ops > 1 {
		log.Fatal("only one operation at a time")
	}

	var err error
	switch {
	case *compress != "":
		err = compressFiles()
	case *extract != "":
		err = extractFiles()
	case *list != "":
		err = listFiles(os.Stdout)
	default:
		flag.PrintDefaults()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func compressFiles() error {
	if _, err := os.Stat(*dstFile); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}
	comp, err := kar.ParseCompression(*compression)
	if err != nil {
		return err
	}

	var filesToCompress []string
	err = filepath.WalkDir(*compress, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(*compress, path)
		if err != nil {
			return err
		}
		filesToCompress = append(filesToCompress, rel)
		return nil
	})
	if err != nil {
		return err
	}

	name := *author
	if name == "" {
		name = currentUserName
	}
	karBuilder, err := kar.NewBuilder(kar.Header{
		Author:      name,
		DateCreated: time.Now().Unix(),
		Version:     *version,
		Compression: comp,
	})
	if err != nil {
		return err
	}
	defer karBuilder.Close()

	if err := karBuilder.AddFiles(*compress, filesToCompress); err != nil {
		return err
	}

	dst, err := os.Create(*dstFile)
	if err != nil {
		return err
	}
	written, err := karBuilder.WriteTo(dst)
	if err != nil {
		dst.Close()
		return err
	}
	log.WithFields(log.Fields{
		"files":       karBuilder.Len(),
		"size":        humanize.Bytes(uint64(written)),
		"compression": comp,
	}).Infof("wrote %s", *dstFile)
	return dst.Close()
}

func extractFiles() error {
	ar, err := kar.OpenFile(*extract)
	if err != nil {
		return err
	}
	defer ar.Close()

	dir := *dstFile
	if dir == "out.kar" {
		dir = "."
	}
	for _, name := range ar.Names() {
		if err := extractOne(ar, name, dir); err != nil {
			return err
		}
	}
	log.WithField("files", len(ar.Names())).Infof("extracted %s", *extract)
	return nil
}

func extractOne(ar *kar.Archive, name, dir string) error {
	path := filepath.Join(dir, filepath.FromSlash(name))
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return fmt.Errorf("refusing to extract %q outside of %s", name, dir)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	r, err := ar.Open(name)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	log.Debugf("extracted %s", name)
	return f.Close()
}

func listFiles(w io.Writer) error {
	ar, err := kar.OpenFile(*list)
	if err != nil {
		return err
	}
	defer ar.Close()

	h := ar.Header()
	fmt.Fprintf(w, "author: %s, version: %d, compression: %s, created %s\n",
		h.Author, h.Version, h.Compression, humanize.Time(time.Unix(h.DateCreated, 0)))
	var total, compressed uint64
	for _, e := range h.Index {
		fmt.Fprintf(w, "%10s %10s  %s\n", humanize.Bytes(uint64(e.Size)), humanize.Bytes(uint64(e.CompressedSize)), e.Name)
		total += uint64(e.Size)
		compressed += uint64(e.CompressedSize)
	}
	fmt.Fprintf(w, "%d files, %s (%s compressed)\n", len(h.Index), humanize.Bytes(total), humanize.Bytes(compressed))
	return nil
}
