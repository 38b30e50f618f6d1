package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/polzovatel/flightcheck/internal/flight"
)

type storedRuns map[uuid.UUID][]flight.Record

func (s storedRuns) Records(_ context.Context, id uuid.UUID) ([]flight.Record, error) {
	recs, ok := s[id]
	if !ok {
		return nil, errors.New("no such run")
	}
	return recs, nil
}

func TestReadRun(t *testing.T) {
	id := uuid.New()
	want := []flight.Record{{DepartureTime: "10:30", Airline: "AJet", Price: flight.IntPtr(1200), Connection: flight.Direct, Index: 1}}
	db := storedRuns{id: want}

	got, err := readRun(context.Background(), db, id.String())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}
	if _, err := readRun(context.Background(), db, "not-a-uuid"); err == nil {
		t.Error("malformed id accepted")
	}
	if _, err := readRun(context.Background(), db, uuid.NewString()); err == nil {
		t.Error("unknown run accepted")
	}
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flights.csv")
	data := "airline,arrival_time,connection,departure_time,duration,flight_index,price\nAJet,11:45,Direct,10:30,1s 15dk,1,1200\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, err := readCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Airline != "AJet" || *recs[0].Price != 1200 {
		t.Errorf("records = %+v", recs)
	}
	if _, err := readCSV(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("missing file accepted")
	}
}
