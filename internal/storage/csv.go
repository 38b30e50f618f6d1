// Package storage persists flight records as CSV files and, optionally, in
// Postgres.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/flight"
)

// CSVStore keeps one file per name under Dir.
type CSVStore struct {
	Dir    string
	Logger zerolog.Logger
}

func NewCSVStore(dir string, logger zerolog.Logger) *CSVStore {
	return &CSVStore{Dir: dir, Logger: logger.With().Str("comp", "csv").Logger()}
}

// Path returns the file for name. Names without the .csv suffix get it;
// absolute names are used as they are.
func (s *CSVStore) Path(name string) string {
	if !strings.HasSuffix(name, ".csv") {
		name += ".csv"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Dir, name)
}

// Write replaces the file for name with a header row and recs.
func (s *CSVStore) Write(name string, recs []flight.Record) (string, error) {
	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("csv dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	if err := writeRows(f, true, recs); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if len(recs) == 0 {
		s.Logger.Warn().Str("path", path).Msg("no records, header only")
	} else {
		s.Logger.Info().Str("path", path).Int("rows", len(recs)).Msg("records saved")
	}
	return path, f.Close()
}

// Append adds recs to the file for name, creating it with a header when it
// does not exist yet. An existing file must carry the same header.
func (s *CSVStore) Append(name string, recs []flight.Record) (string, error) {
	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("csv dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return "", fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", err
	}
	fresh := st.Size() == 0
	if !fresh {
		head, err := csv.NewReader(f).Read()
		if err != nil {
			return "", fmt.Errorf("read header of %s: %w", path, err)
		}
		if !slices.Equal(head, flight.Header) {
			return "", fmt.Errorf("append %s: header %v does not match %v", path, head, flight.Header)
		}
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return "", err
		}
	}
	if err := writeRows(f, fresh, recs); err != nil {
		return "", fmt.Errorf("append %s: %w", path, err)
	}
	s.Logger.Info().Str("path", path).Int("rows", len(recs)).Msg("records appended")
	return path, f.Close()
}

// Read loads every record of the file for name.
func (s *CSVStore) Read(name string) ([]flight.Record, error) {
	path := s.Path(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	recs, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s.Logger.Info().Str("path", path).Int("rows", len(recs)).Msg("records read")
	return recs, nil
}

// ReadRecords decodes a header row followed by record rows.
func ReadRecords(r io.Reader) ([]flight.Record, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []flight.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		rec, err := flight.FromRow(header, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
}

func writeRows(w io.Writer, header bool, recs []flight.Record) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(flight.Header); err != nil {
			return err
		}
	}
	for _, r := range recs {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
