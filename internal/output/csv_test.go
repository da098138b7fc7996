package output

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/drugindex/internal/model"
)

func TestCSVSinkWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewWriterSink(&buf)

	if err := s.WriteEntries([]model.LinkEntry{{Name: "x", URL: "y"}}); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("WriteEntries() before Begin error = %v, want ErrNotStarted", err)
	}
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := s.Begin(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Begin() error = %v, want ErrAlreadyStarted", err)
	}

	entries := []model.LinkEntry{
		{Name: "Abacavir", URL: "https://www.drugs.com/abacavir.html"},
		{Name: "Acetaminophen, Codeine", URL: "https://www.drugs.com/mtm/acetaminophen-codeine.html"},
		{Name: `Brand "X"`, URL: "https://www.drugs.com/x.html"},
	}
	if err := s.WriteEntries(entries); err != nil {
		t.Fatalf("WriteEntries() error = %v", err)
	}
	if err := s.WriteEntries(nil); err != nil {
		t.Fatalf("WriteEntries(nil) error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4 (header + 3)", len(records))
	}
	if records[0][0] != "name" || records[0][1] != "url" {
		t.Errorf("header = %v", records[0])
	}
	for i, e := range entries {
		if records[i+1][0] != e.Name || records[i+1][1] != e.URL {
			t.Errorf("record %d = %v, want %v", i+1, records[i+1], e)
		}
	}
	if s.Rows() != 3 {
		t.Errorf("Rows() = %d, want 3", s.Rows())
	}
}

func TestCSVSinkFile(t *testing.T) {
	t.Parallel()

	t.Run("file is created by Begin, not by the constructor", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "drugs_index.csv")
		s := NewFileSink(path)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("file exists before Begin: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("Close() on unstarted sink error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("file created without Begin: %v", err)
		}
	})

	t.Run("rows are flushed per batch", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "out.csv")
		s := NewFileSink(path)
		if err := s.Begin(); err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		if err := s.WriteEntries([]model.LinkEntry{{Name: "A", URL: "https://example.com/a.html"}}); err != nil {
			t.Fatalf("WriteEntries() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		want := "name,url\nA,https://example.com/a.html\n"
		if string(data) != want {
			t.Errorf("file before Close = %q, want %q", data, want)
		}
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	t.Run("unwritable path fails at Begin", func(t *testing.T) {
		t.Parallel()
		s := NewFileSink(filepath.Join(t.TempDir(), "missing", "out.csv"))
		if err := s.Begin(); err == nil {
			t.Error("Begin() expected error for missing directory")
		}
	})
}
