package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEntries(t *testing.T, sink Sink, entries map[string]string, order []string) {
	t.Helper()
	for _, name := range order {
		require.NoError(t, sink.Put(name, strings.NewReader(entries[name])))
	}
	require.NoError(t, sink.Close())
}

func readEntries(t *testing.T, src Source) map[string]string {
	t.Helper()
	names, err := src.Names()
	require.NoError(t, err)
	out := map[string]string{}
	for _, n := range names {
		b, err := ReadAll(src, n)
		require.NoError(t, err)
		out[n] = string(b)
	}
	return out
}

func TestZipAndDirRoundTrip(t *testing.T) {
	entries := map[string]string{
		"imsmanifest.xml":    "<manifest/>",
		"sco/page.html":      "<html/>",
		"common/.DS_Store":   "junk",
		"common/scorm.js":    "var api;",
		".hidden/secret.txt": "x",
	}
	order := []string{"imsmanifest.xml", "sco/page.html", "common/.DS_Store", "common/scorm.js", ".hidden/secret.txt"}
	want := map[string]string{
		"imsmanifest.xml": "<manifest/>",
		"sco/page.html":   "<html/>",
		"common/scorm.js": "var api;",
	}

	for _, dir := range []bool{false, true} {
		target := filepath.Join(t.TempDir(), "pkg")
		if !dir {
			target += ".zip"
		}
		sink, err := Create(target, dir)
		require.NoError(t, err)
		writeEntries(t, sink, entries, order)

		src, err := Open(target)
		require.NoError(t, err)
		assert.Equal(t, want, readEntries(t, src))
		require.NoError(t, src.Close())
	}
}

func TestZipSinkRejectsDuplicates(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZipSink(&buf)
	require.NoError(t, sink.Put("a.txt", strings.NewReader("1")))
	assert.Error(t, sink.Put("./a.txt", strings.NewReader("2")))
	require.NoError(t, sink.Close())

	src, err := ZipFromBytes(buf.Bytes())
	require.NoError(t, err)
	names, err := src.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names)
}

func TestFSStoreStaysInsideBase(t *testing.T) {
	base := t.TempDir()
	st, err := NewFSStore(filepath.Join(base, "store"))
	require.NoError(t, err)

	key, err := st.Put("../../escape.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "escape.txt", key)
	_, err = os.Stat(filepath.Join(base, "store", "escape.txt"))
	require.NoError(t, err)

	rc, err := st.Get(key)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "x", string(b))

	u, err := st.SignedURL(key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
}

func TestFSStorePut(t *testing.T) {
	st, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key, err := st.Put("exports/run.zip", strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, "exports/run.zip", key)
	key, err = st.Put("exports/run.zip", strings.NewReader("second"))
	require.NoError(t, err)
	rc, err := st.Get(key)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "second", string(b))

	_, err = st.Put("exports/broken.zip", iotest.ErrReader(io.ErrUnexpectedEOF))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	require.NoError(t, os.MkdirAll(filepath.Join(st.base, "taken"), 0o755))
	_, err = st.Put("taken", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	var buf bytes.Buffer
	sink := NewZipSink(&buf)
	require.NoError(t, Copy(sink, NewDirSource(dir), "a.txt", "copied/a.txt"))
	require.NoError(t, sink.Close())

	src, err := ZipFromBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"copied/a.txt": "hello"}, readEntries(t, src))
	assert.Error(t, Copy(sink, NewDirSource(dir), "missing.txt", "x"))
}
