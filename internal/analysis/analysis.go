// Package analysis computes price statistics over extracted flight records.
package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/polzovatel/flightcheck/internal/flight"
)

// CostEffectiveQuantile is the price quantile at or below which a flight
// counts as cost effective.
const CostEffectiveQuantile = 0.30

// AirlineStat is the price summary of one airline.
type AirlineStat struct {
	Airline string  `json:"airline" yaml:"airline"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Avg     float64 `json:"avg" yaml:"avg"`
	Count   int     `json:"count" yaml:"count"`
}

// AirlineStats summarises prices per airline. Records without a price or a
// known airline are skipped.
func AirlineStats(recs []flight.Record) map[string]AirlineStat {
	out := make(map[string]AirlineStat)
	sums := make(map[string]float64)
	for _, r := range recs {
		p, ok := r.Priced()
		if !ok || !r.KnownAirline() {
			continue
		}
		v := float64(p)
		st, seen := out[r.Airline]
		if !seen {
			st = AirlineStat{Airline: r.Airline, Min: v, Max: v}
		}
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
		st.Count++
		sums[r.Airline] += v
		out[r.Airline] = st
	}
	for name, st := range out {
		st.Avg = sums[name] / float64(st.Count)
		out[name] = st
	}
	return out
}

// SortedStats returns AirlineStats ordered by airline name.
func SortedStats(recs []flight.Record) []AirlineStat {
	m := AirlineStats(recs)
	out := make([]AirlineStat, 0, len(m))
	for _, st := range m {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Airline < out[j].Airline })
	return out
}

// Quantile returns the q-quantile of vals with linear interpolation between
// the closest ranks. vals is not modified.
func Quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(s) {
		hi = len(s) - 1
	}
	return s[lo] + (pos-float64(lo))*(s[hi]-s[lo])
}

// Prices returns the known prices of recs in record order.
func Prices(recs []flight.Record) []float64 {
	out := make([]float64, 0, len(recs))
	for _, r := range recs {
		if p, ok := r.Priced(); ok {
			out = append(out, float64(p))
		}
	}
	return out
}

// CostEffective returns the priced records at or below the 30th price
// percentile, cheapest first. Equal prices keep record order.
func CostEffective(recs []flight.Record) []flight.Record {
	prices := Prices(recs)
	if len(prices) == 0 {
		return nil
	}
	limit := Quantile(prices, CostEffectiveQuantile)
	var out []flight.Record
	for _, r := range recs {
		if p, ok := r.Priced(); ok && float64(p) <= limit {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Price < *out[j].Price })
	return out
}

// HourlyMatrix is the mean price per departure hour laid out as four
// six-hour rows. Hours without priced flights are NaN.
func HourlyMatrix(recs []flight.Record) [4][6]float64 {
	var sum [24]float64
	var n [24]int
	for _, r := range recs {
		p, ok := r.Priced()
		if !ok {
			continue
		}
		h, ok := r.DepartureHour()
		if !ok {
			continue
		}
		sum[h] += float64(p)
		n[h]++
	}
	var m [4][6]float64
	for h := 0; h < 24; h++ {
		v := math.NaN()
		if n[h] > 0 {
			v = sum[h] / float64(n[h])
		}
		m[h/6][h%6] = v
	}
	return m
}

// WithinWindow counts departure times whose hour lies in [start, end], out of
// those that could be parsed.
func WithinWindow(times []string, start, end int) (inside, parsed int) {
	for _, t := range times {
		h, ok := flight.Hour(t)
		if !ok {
			continue
		}
		parsed++
		if h >= start && h <= end {
			inside++
		}
	}
	return inside, parsed
}

// SortedAscending reports whether prices never decrease. On failure it also
// returns the index of the first price lower than its predecessor.
func SortedAscending(prices []int) (bool, int) {
	for i := 1; i < len(prices); i++ {
		if prices[i] < prices[i-1] {
			return false, i
		}
	}
	return true, -1
}

// AirlineShare is the fraction of airline names matching any keyword.
// Names that could not be read count as matches.
func AirlineShare(names []string, keywords []string) float64 {
	if len(names) == 0 {
		return 0
	}
	hit := 0
	for _, name := range names {
		low := strings.ToLower(strings.TrimSpace(name))
		if low == "" || low == strings.ToLower(flight.UnknownAirline) {
			hit++
			continue
		}
		for _, k := range keywords {
			if strings.Contains(low, strings.ToLower(k)) {
				hit++
				break
			}
		}
	}
	return float64(hit) / float64(len(names))
}

// Summary is the overall price picture of a result list.
type Summary struct {
	Records int     `json:"records" yaml:"records"`
	Priced  int     `json:"priced" yaml:"priced"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Avg     float64 `json:"avg" yaml:"avg"`
}

func Summarize(recs []flight.Record) Summary {
	prices := Prices(recs)
	s := Summary{Records: len(recs), Priced: len(prices)}
	if len(prices) == 0 {
		return s
	}
	s.Min, s.Max = prices[0], prices[0]
	total := 0.0
	for _, p := range prices {
		s.Min = math.Min(s.Min, p)
		s.Max = math.Max(s.Max, p)
		total += p
	}
	s.Avg = total / float64(len(prices))
	return s
}
