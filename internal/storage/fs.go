package storage

import (
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
)

type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) path(key string) (string, error) {
	clean := cleanName(key)
	if clean == "" {
		return "", errors.New("empty key")
	}
	return filepath.Join(s.base, filepath.FromSlash(clean)), nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return cleanName(key), nil
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *FSStore) SignedURL(key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

// FSSource exposes an fs.FS (a directory, an embedded bundle) as a package.
type FSSource struct {
	fsys fs.FS
}

func NewFSSource(fsys fs.FS) *FSSource { return &FSSource{fsys: fsys} }

// NewDirSource reads the package rooted at dir.
func NewDirSource(dir string) *FSSource { return NewFSSource(os.DirFS(dir)) }

func (s *FSSource) Names() ([]string, error) {
	var out []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if hidden(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (s *FSSource) Open(name string) (io.ReadCloser, error) {
	clean := cleanName(name)
	if clean == "" {
		return nil, fs.ErrNotExist
	}
	return s.fsys.Open(clean)
}

func (s *FSSource) Close() error { return nil }

// DirSink writes entries as files below a base directory.
type DirSink struct {
	store *FSStore
}

func NewDirSink(dir string) (*DirSink, error) {
	st, err := NewFSStore(dir)
	if err != nil {
		return nil, err
	}
	return &DirSink{store: st}, nil
}

func (d *DirSink) Put(name string, r io.Reader) error {
	_, err := d.store.Put(name, r)
	return err
}

func (d *DirSink) Close() error { return nil }
