package output

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hupe1980/def2cmake/internal/logging"
)

// Writer receives generated content.
type Writer interface {
	Write(data []byte) error
}

// StreamWriter forwards generated content to an io.Writer, typically the
// stdout of a command.
type StreamWriter struct {
	out io.Writer
}

// NewStreamWriter creates a StreamWriter on w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{out: w}
}

// Write forwards data.
func (sw *StreamWriter) Write(data []byte) error {
	if _, err := sw.out.Write(data); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}

// FileWriter writes one generated file, creating parent directories as
// needed. A file that already holds the same content and permissions is
// left untouched, so CMake does not see a newer manifest and reconfigure.
type FileWriter struct {
	path      string
	perm      os.FileMode
	logger    *slog.Logger
	unchanged bool
}

// FileWriterOption configures a FileWriter.
type FileWriterOption func(*FileWriter)

// WithPermissions overrides the default file permissions (0644). Zero is
// ignored.
func WithPermissions(perm os.FileMode) FileWriterOption {
	return func(fw *FileWriter) {
		if perm != 0 {
			fw.perm = perm
		}
	}
}

// WithLogger sets a logger for the FileWriter.
func WithLogger(logger *slog.Logger) FileWriterOption {
	return func(fw *FileWriter) {
		if logger != nil {
			fw.logger = logger
		}
	}
}

// NewFileWriter creates a writer for the file at path.
func NewFileWriter(path string, opts ...FileWriterOption) *FileWriter {
	fw := &FileWriter{
		path:   path,
		perm:   0o644,
		logger: logging.Discard(),
	}

	for _, opt := range opts {
		opt(fw)
	}

	return fw
}

// Write replaces the file with data unless it already matches.
func (fw *FileWriter) Write(data []byte) error {
	fw.unchanged = fw.matches(data)
	if fw.unchanged {
		fw.logger.Debug("file unchanged", slog.String("path", fw.path))
		return nil
	}

	dir := filepath.Dir(fw.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := os.WriteFile(fw.path, data, fw.perm); err != nil {
		return fmt.Errorf("writing file %s: %w", fw.path, err)
	}

	// WriteFile leaves the mode of an existing file untouched.
	if err := os.Chmod(fw.path, fw.perm); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", fw.path, err)
	}

	return nil
}

func (fw *FileWriter) matches(data []byte) bool {
	info, err := os.Stat(fw.path)
	if err != nil || !info.Mode().IsRegular() || info.Mode().Perm() != fw.perm || info.Size() != int64(len(data)) {
		return false
	}

	current, err := os.ReadFile(fw.path)
	if err != nil {
		return false
	}

	return bytes.Equal(current, data)
}

// Unchanged reports whether the last Write found the file already up to
// date.
func (fw *FileWriter) Unchanged() bool {
	return fw.unchanged
}

// Path returns the output file path.
func (fw *FileWriter) Path() string {
	return fw.path
}
