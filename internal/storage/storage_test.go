package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/flight"
)

func sample() []flight.Record {
	return []flight.Record{
		{DepartureTime: "10:30", ArrivalTime: "11:45", Airline: "AJet", Price: flight.IntPtr(1499), Connection: flight.Direct, Duration: "1s 15dk", Index: 1},
		{DepartureTime: "13:05", ArrivalTime: "N/A", Airline: "Türk Hava Yolları, \"THY\"", Connection: "1 Stop", Duration: "N/A", Index: 2},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "reports"), zerolog.Nop())

	path, err := s.Write("flights", sample())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "flights.csv" {
		t.Fatalf("path = %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if first, _, _ := strings.Cut(string(raw), "\n"); first != strings.Join(flight.Header, ",") {
		t.Fatalf("header line = %q", first)
	}

	got, err := s.Read("flights.csv")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sample(), got); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestCSVAppend(t *testing.T) {
	s := NewCSVStore(t.TempDir(), zerolog.Nop())
	recs := sample()

	if _, err := s.Append("runs", recs[:1]); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append("runs", recs[1:]); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read("runs")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestCSVAppendRejectsForeignHeader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "other.csv"), []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewCSVStore(dir, zerolog.Nop())
	if _, err := s.Append("other", sample()); err == nil {
		t.Fatal("append to a foreign file succeeded")
	}
}

func TestCSVWriteEmptyKeepsHeader(t *testing.T) {
	s := NewCSVStore(t.TempDir(), zerolog.Nop())
	if _, err := s.Write("empty", nil); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read("empty")
	if err != nil || len(got) != 0 {
		t.Fatalf("Read = %v, %v", got, err)
	}
}

func TestReadMissingFile(t *testing.T) {
	s := NewCSVStore(t.TempDir(), zerolog.Nop())
	if _, err := s.Read("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}

func TestPostgresSaveRun(t *testing.T) {
	dsn := os.Getenv("FLIGHTCHECK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FLIGHTCHECK_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	run := Run{ID: uuid.New(), Scenario: "analysis", Origin: "Istanbul", Destination: "Lefkoşa", Records: sample()}
	n, err := store.SaveRun(ctx, run)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(run.Records) {
		t.Fatalf("saved %d records", n)
	}
	got, err := store.Records(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(run.Records, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNullPrice(t *testing.T) {
	if nullPrice(nil).Valid {
		t.Error("nil price must be NULL")
	}
	if p := nullPrice(flight.IntPtr(42)); !p.Valid || p.Int64 != 42 {
		t.Errorf("nullPrice(42) = %+v", p)
	}
}
