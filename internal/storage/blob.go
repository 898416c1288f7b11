// Package storage reads and writes content packages as streams of named
// entries, whether they live in a zip archive or a directory tree.
package storage

import (
	"io"
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Source is a readable package.
type Source interface {
	// Names lists every regular entry, slash separated, hidden entries skipped.
	Names() ([]string, error)
	Open(name string) (io.ReadCloser, error)
	Close() error
}

// Sink is a writable package. Entries are written in call order.
type Sink interface {
	Put(name string, r io.Reader) error
	Close() error
}

// BlobStore keeps export artifacts addressable by key.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	SignedURL(key string) (string, error) // fs returns "file://..." for dev
}

// Open opens a zip file or a directory as a package source.
func Open(p string) (Source, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, errors.Wrapf(err, "open package %s", p)
	}
	if info.IsDir() {
		return NewDirSource(p), nil
	}
	zs, err := OpenZip(p)
	if err != nil {
		return nil, err
	}
	return zs, nil
}

// Create opens a sink writing a zip file, or a directory tree when dir is set.
func Create(p string, dir bool) (Sink, error) {
	if dir {
		ds, err := NewDirSink(p)
		if err != nil {
			return nil, err
		}
		return ds, nil
	}
	zs, err := CreateZip(p)
	if err != nil {
		return nil, err
	}
	return zs, nil
}

// Copy streams entry name of src into dst as target.
func Copy(dst Sink, src Source, name, target string) error {
	rc, err := src.Open(name)
	if err != nil {
		return errors.Wrapf(err, "open %s", name)
	}
	defer rc.Close()
	if err := dst.Put(target, rc); err != nil {
		return errors.Wrapf(err, "write %s", target)
	}
	return nil
}

// ReadAll returns the content of one entry.
func ReadAll(src Source, name string) ([]byte, error) {
	rc, err := src.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// cleanName turns an entry name into its slash separated, package relative
// form. It returns "" for names escaping the package root.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	name = strings.TrimPrefix(name, "/")
	if name == "" || name == "." {
		return ""
	}
	return name
}

// hidden reports entries the package never exposes: dot files, dot
// directories and resource-fork folders added by archivers.
func hidden(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") || seg == "__MACOSX" {
			return true
		}
	}
	return false
}
