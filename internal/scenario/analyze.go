package scenario

import (
	"errors"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/analysis"
	"github.com/polzovatel/flightcheck/internal/flight"
)

// Analysis is the price breakdown of one record set.
type Analysis struct {
	Summary       analysis.Summary       `json:"summary" yaml:"summary"`
	Airlines      []analysis.AirlineStat `json:"airlines" yaml:"airlines"`
	Threshold     float64                `json:"cost_effective_threshold" yaml:"cost_effective_threshold"`
	CostEffective []flight.Record        `json:"cost_effective" yaml:"cost_effective"`
	Charts        []string               `json:"charts" yaml:"charts"`
}

// Analyze computes statistics over recs and renders the charts into dir.
// Chart failures are logged and leave the chart out.
func Analyze(recs []flight.Record, dir string, logger zerolog.Logger) Analysis {
	log := logger.With().Str("comp", "analysis").Logger()
	a := Analysis{
		Summary:       analysis.Summarize(recs),
		Airlines:      analysis.SortedStats(recs),
		CostEffective: analysis.CostEffective(recs),
	}
	if prices := analysis.Prices(recs); len(prices) > 0 {
		a.Threshold = analysis.Quantile(prices, analysis.CostEffectiveQuantile)
	}
	for _, s := range a.Airlines {
		log.Info().Str("airline", s.Airline).Float64("min", s.Min).Float64("max", s.Max).Float64("avg", s.Avg).Int("flights", s.Count).Msg("airline prices")
	}
	log.Info().Int("cost_effective", len(a.CostEffective)).Float64("threshold", a.Threshold).Msg("cost effective flights")

	charts := []struct {
		file   string
		render func([]flight.Record, string) error
	}{
		{"airline_comparison.png", analysis.AirlineComparisonChart},
		{"price_heatmap.png", analysis.HourlyHeatmapChart},
		{"price_distribution.png", analysis.PriceDistributionChart},
	}
	for _, c := range charts {
		path := filepath.Join(dir, c.file)
		switch err := c.render(recs, path); {
		case errors.Is(err, analysis.ErrNoData):
			log.Warn().Str("chart", c.file).Msg("no data to chart")
		case err != nil:
			log.Warn().Err(err).Str("chart", c.file).Msg("chart failed")
		default:
			log.Info().Str("path", path).Msg("chart saved")
			a.Charts = append(a.Charts, path)
		}
	}
	return a
}
