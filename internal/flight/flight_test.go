package flight

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRowRoundTrip(t *testing.T) {
	recs := []Record{
		{DepartureTime: "10:30", ArrivalTime: "11:45", Airline: "AJet", Price: IntPtr(1234), Connection: Direct, Duration: "1s 15dk", Index: 1},
		{DepartureTime: NA, ArrivalTime: NA, Airline: "Pegasus", Connection: "1 Stop", Duration: NA, Index: 7},
	}
	for _, want := range recs {
		got, err := FromRow(Header, want.Row())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip (-want +got):\n%s", diff)
		}
	}
}

func TestRowNilPriceIsEmptyCell(t *testing.T) {
	row := Record{Airline: "THY", Index: 2}.Row()
	if row[len(row)-1] != "" {
		t.Fatalf("price cell = %q", row[len(row)-1])
	}
}

func TestFromRowColumnOrder(t *testing.T) {
	header := []string{"price", "flight_index", "airline", "extra"}
	got, err := FromRow(header, []string{"899.0", "3", "THY", "x"})
	if err != nil {
		t.Fatal(err)
	}
	want := Record{Airline: "THY", Price: IntPtr(899), Index: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestFromRowErrors(t *testing.T) {
	if _, err := FromRow(Header, []string{"a"}); err == nil {
		t.Error("short row accepted")
	}
	row := Record{Airline: "THY"}.Row()
	row[6] = "cheap"
	if _, err := FromRow(Header, row); err == nil {
		t.Error("non-numeric price accepted")
	}
}

func TestRetained(t *testing.T) {
	cases := []struct {
		rec  Record
		want bool
	}{
		{Record{DepartureTime: NA, Airline: UnknownAirline}, false},
		{Record{DepartureTime: "10:30", Airline: UnknownAirline}, true},
		{Record{DepartureTime: NA, Airline: "AJet"}, true},
		{Record{}, false},
	}
	for _, tc := range cases {
		if got := tc.rec.Retained(); got != tc.want {
			t.Errorf("%+v.Retained() = %v, want %v", tc.rec, got, tc.want)
		}
	}
}

func TestHour(t *testing.T) {
	cases := map[string]int{"10:30": 10, " 07:05 ": 7, "23:59": 23}
	for in, want := range cases {
		if got, ok := Hour(in); !ok || got != want {
			t.Errorf("Hour(%q) = %d, %v", in, got, ok)
		}
	}
	for _, in := range []string{"N/A", "", "25:00", "ab:cd"} {
		if _, ok := Hour(in); ok {
			t.Errorf("Hour(%q) accepted", in)
		}
	}
}
