package sitemap

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"sitemapkit/internal/errors"
)

const (
	arrayOpen  = "[\n"
	separator  = ",\n"
	indent     = "  "
	arrayClose = "\n]\n"
)

// ErrWriterClosed is returned by Write and End once the writer has been
// finalized or aborted.
var ErrWriterClosed = errors.New(errors.WriterClosed, "sitemap writer is closed", nil)

// FileWriter streams records into a JSON array file.
//
// Records go to a temporary file next to the destination, which is renamed
// into place by End. A run that never reaches End leaves the destination
// untouched. Destinations ending in .gz are gzip-compressed.
type FileWriter struct {
	mu sync.Mutex

	path string
	tmp  *os.File
	gz   *gzip.Writer
	buf  *bufio.Writer
	enc  bytes.Buffer

	count  int
	closed bool
}

// Create opens a writer for path and writes the array opening eagerly.
func Create(path string) (*FileWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, outputFailed("cannot create output directory", err, path)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, outputFailed("cannot open output file", err, path)
	}

	w := &FileWriter{path: path, tmp: tmp}
	var sink io.Writer = tmp
	if strings.HasSuffix(path, ".gz") {
		w.gz = gzip.NewWriter(tmp)
		sink = w.gz
	}
	w.buf = bufio.NewWriterSize(sink, 64*1024)

	if _, err := w.buf.WriteString(arrayOpen); err != nil {
		_ = w.Abort()
		return nil, outputFailed("cannot write output file", err, path)
	}
	return w, nil
}

// Path returns the destination path.
func (w *FileWriter) Path() string {
	return w.path
}

// Write implements Sink. Each record is encoded on its own; nothing is buffered
// beyond the current record and the bufio window.
func (w *FileWriter) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	w.enc.Reset()
	enc := json.NewEncoder(&w.enc)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return errors.New(errors.InternalError, "cannot encode sitemap record", err)
	}
	line := bytes.TrimSuffix(w.enc.Bytes(), []byte{'\n'})

	if w.count > 0 {
		if _, err := w.buf.WriteString(separator); err != nil {
			return outputFailed("cannot write output file", err, w.path)
		}
	}
	if _, err := w.buf.WriteString(indent); err != nil {
		return outputFailed("cannot write output file", err, w.path)
	}
	if _, err := w.buf.Write(line); err != nil {
		return outputFailed("cannot write output file", err, w.path)
	}
	w.count++
	return nil
}

// End implements Sink. The file handle is closed whether or not End succeeds.
func (w *FileWriter) End() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return w.count, ErrWriterClosed
	}
	w.closed = true

	if err := w.finish(); err != nil {
		w.tmp.Close()
		os.Remove(w.tmp.Name())
		return w.count, outputFailed("cannot finalize output file", err, w.path)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		os.Remove(w.tmp.Name())
		return w.count, outputFailed("cannot move output file into place", err, w.path)
	}
	return w.count, nil
}

func (w *FileWriter) finish() error {
	if _, err := w.buf.WriteString(arrayClose); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			return err
		}
	}
	if err := w.tmp.Sync(); err != nil {
		return err
	}
	if err := w.tmp.Chmod(0o644); err != nil {
		return err
	}
	return w.tmp.Close()
}

// Abort implements Sink: it closes and removes the temporary file.
func (w *FileWriter) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	closeErr := w.tmp.Close()
	if err := os.Remove(w.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}

func outputFailed(msg string, err error, path string) error {
	return errors.New(errors.OutputFailed, msg, err).WithDetails(map[string]string{"path": path})
}
