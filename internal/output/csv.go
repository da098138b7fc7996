package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nao1215/drugindex/internal/model"
)

// StdoutPath is the output path that selects standard output.
const StdoutPath = "-"

var (
	// ErrNotStarted is returned when entries are written before Begin.
	ErrNotStarted = errors.New("output not started")

	// ErrAlreadyStarted is returned when Begin is called twice.
	ErrAlreadyStarted = errors.New("output already started")
)

// Header is the CSV header row.
var Header = []string{"name", "url"}

// CSVSink writes entries to a CSV destination.
// The destination is opened lazily by Begin, so a run that is refused
// permission never creates or truncates the output file.
type CSVSink struct {
	path   string
	dst    io.Writer
	closer io.Closer
	w      *csv.Writer
	rows   int
}

// NewFileSink creates a sink writing to path, or to stdout when path is "-".
func NewFileSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// NewWriterSink creates a sink writing to w. The caller owns w.
func NewWriterSink(w io.Writer) *CSVSink {
	return &CSVSink{path: StdoutPath, dst: w}
}

// Path returns the configured output path.
func (s *CSVSink) Path() string {
	return s.path
}

// Rows returns the number of data rows written so far.
func (s *CSVSink) Rows() int {
	return s.rows
}

// Begin opens the destination and writes the header row.
func (s *CSVSink) Begin() error {
	if s.w != nil {
		return ErrAlreadyStarted
	}

	if s.dst == nil {
		if s.path == StdoutPath || s.path == "" {
			s.dst = os.Stdout
		} else {
			f, err := os.Create(s.path)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			s.dst = f
			s.closer = f
		}
	}

	s.w = csv.NewWriter(s.dst)
	if err := s.w.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

// WriteEntries appends one row per entry and flushes.
func (s *CSVSink) WriteEntries(entries []model.LinkEntry) error {
	if s.w == nil {
		return ErrNotStarted
	}
	for _, e := range entries {
		if err := s.w.Write([]string{e.Name, e.URL}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		s.rows++
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes pending rows and closes a file destination.
// It is safe to call on a sink that was never started.
func (s *CSVSink) Close() error {
	if s.w != nil {
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			if s.closer != nil {
				_ = s.closer.Close()
				s.closer = nil
			}
			return err
		}
	}
	if s.closer != nil {
		err := s.closer.Close()
		s.closer = nil
		return err
	}
	return nil
}
