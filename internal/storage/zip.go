package storage

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// ZipSource reads a package from a zip archive.
type ZipSource struct {
	files  map[string]*zip.File
	closer io.Closer
}

// OpenZip opens the archive at p.
func OpenZip(p string) (*ZipSource, error) {
	rc, err := zip.OpenReader(p)
	if err != nil {
		return nil, errors.Wrapf(err, "open zip %s", p)
	}
	return newZipSource(&rc.Reader, rc), nil
}

// ZipFromBytes reads an archive held in memory, e.g. an upload.
func ZipFromBytes(b []byte) (*ZipSource, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, errors.Wrap(err, "read zip")
	}
	return newZipSource(zr, nil), nil
}

func newZipSource(zr *zip.Reader, closer io.Closer) *ZipSource {
	s := &ZipSource{files: map[string]*zip.File{}, closer: closer}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := cleanName(f.Name)
		if name == "" || hidden(name) {
			continue
		}
		s.files[name] = f
	}
	return s
}

func (s *ZipSource) Names() ([]string, error) {
	out := make([]string, 0, len(s.files))
	for n := range s.files {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (s *ZipSource) Open(name string) (io.ReadCloser, error) {
	f, ok := s.files[cleanName(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return f.Open()
}

func (s *ZipSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ZipSink writes entries into a zip archive.
type ZipSink struct {
	zw   *zip.Writer
	file *os.File
	seen map[string]bool
}

// NewZipSink writes the archive to w; closing the sink does not close w.
func NewZipSink(w io.Writer) *ZipSink {
	return &ZipSink{zw: zip.NewWriter(w), seen: map[string]bool{}}
}

// CreateZip creates (or truncates) the archive file at p.
func CreateZip(p string) (*ZipSink, error) {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, errors.Wrapf(err, "create zip %s", p)
	}
	s := NewZipSink(f)
	s.file = f
	return s, nil
}

func (s *ZipSink) Put(name string, r io.Reader) error {
	clean := cleanName(name)
	if clean == "" {
		return errors.Errorf("invalid entry name %q", name)
	}
	if s.seen[clean] {
		return errors.Errorf("duplicate entry %q", clean)
	}
	s.seen[clean] = true
	w, err := s.zw.Create(clean)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

func (s *ZipSink) Close() error {
	err := s.zw.Close()
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
