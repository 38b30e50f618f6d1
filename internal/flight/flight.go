// Package flight holds the extracted search-result record and its flat row form.
package flight

import (
	"fmt"
	"strconv"
	"strings"
)

// Sentinels for fields that could not be read from a card.
const (
	NA             = "N/A"
	UnknownAirline = "Unknown"
	Direct         = "Direct"
)

// Record is one extracted result card.
type Record struct {
	DepartureTime string `json:"departure_time" yaml:"departure_time"`
	ArrivalTime   string `json:"arrival_time" yaml:"arrival_time"`
	Airline       string `json:"airline" yaml:"airline"`
	Price         *int   `json:"price" yaml:"price"`
	Connection    string `json:"connection" yaml:"connection"`
	Duration      string `json:"duration" yaml:"duration"`
	Index         int    `json:"flight_index" yaml:"flight_index"`
}

// Header is the column order of flat rows.
var Header = []string{"airline", "arrival_time", "connection", "departure_time", "duration", "flight_index", "price"}

// Row renders r in Header order. A nil price is an empty cell.
func (r Record) Row() []string {
	price := ""
	if r.Price != nil {
		price = strconv.Itoa(*r.Price)
	}
	return []string{
		r.Airline,
		r.ArrivalTime,
		r.Connection,
		r.DepartureTime,
		r.Duration,
		strconv.Itoa(r.Index),
		price,
	}
}

// FromRow decodes a row whose columns are named by header, in any order.
// Unknown columns are ignored.
func FromRow(header, row []string) (Record, error) {
	if len(row) != len(header) {
		return Record{}, fmt.Errorf("row has %d cells, header %d", len(row), len(header))
	}
	var r Record
	for i, name := range header {
		v := row[i]
		switch strings.TrimSpace(name) {
		case "airline":
			r.Airline = v
		case "arrival_time":
			r.ArrivalTime = v
		case "connection":
			r.Connection = v
		case "departure_time":
			r.DepartureTime = v
		case "duration":
			r.Duration = v
		case "flight_index":
			if v == "" {
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return Record{}, fmt.Errorf("flight_index %q: %w", v, err)
			}
			r.Index = n
		case "price":
			if v == "" {
				continue
			}
			n, err := parseNumber(v)
			if err != nil {
				return Record{}, fmt.Errorf("price %q: %w", v, err)
			}
			r.Price = &n
		}
	}
	return r, nil
}

// parseNumber accepts integers and the float form spreadsheets write back.
func parseNumber(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Priced reports the price when it is known.
func (r Record) Priced() (int, bool) {
	if r.Price == nil {
		return 0, false
	}
	return *r.Price, true
}

// DepartureHour parses the hour of an "HH:MM" departure time.
func (r Record) DepartureHour() (int, bool) {
	return Hour(r.DepartureTime)
}

// Hour parses the hour of an "HH:MM" clock text.
func Hour(clock string) (int, bool) {
	h, _, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || n < 0 || n > 23 {
		return 0, false
	}
	return n, true
}

// KnownAirline reports whether the airline field was read from the card.
func (r Record) KnownAirline() bool {
	return r.Airline != "" && r.Airline != UnknownAirline
}

// Retained is the extraction rule: a record is worth keeping when either its
// departure time or its airline is known.
func (r Record) Retained() bool {
	return (r.DepartureTime != "" && r.DepartureTime != NA) || r.KnownAirline()
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
