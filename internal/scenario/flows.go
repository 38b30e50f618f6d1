package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/polzovatel/flightcheck/internal/pages"
	"github.com/polzovatel/flightcheck/internal/storage"
)

func init() {
	register(Scenario{
		Name:        "basic-search",
		Description: "round-trip search with a departure time window",
		Run:         basicSearch,
	})
	register(Scenario{
		Name:        "airline-price-sort",
		Description: "time window plus airline filter, airline share and price order",
		Run:         airlinePriceSort,
	})
	register(Scenario{
		Name:        "critical-path",
		Description: "full user journey from search to flight details",
		Run:         criticalPath,
	})
	register(Scenario{
		Name:        "analysis",
		Description: "extract every flight, store it and chart prices",
		Run:         analysisRun,
	})
}

// search opens the site and submits a round trip between origin and dest.
func (e *Env) search(ctx context.Context, origin, dest string) error {
	dep, ret := e.Config.SearchDates(e.Now())
	e.Outcome.Query = pages.Query{Origin: origin, Destination: dest, Departure: dep, Return: ret}
	if err := e.Home.Open(ctx, e.Config.Site.URL); err != nil {
		return err
	}
	return e.Home.SearchRoundTrip(ctx, e.Outcome.Query)
}

// awaitResults waits for the list and fails when it is empty.
func (e *Env) awaitResults(ctx context.Context) (int, error) {
	n, err := e.Results.WaitForResults(ctx)
	if err != nil {
		return 0, err
	}
	e.Outcome.Flights = n
	if n == 0 {
		return 0, ErrNoResults
	}
	return n, nil
}

// timeWindow applies the configured departure window. A missing filter panel
// is tolerated; the departure check still runs.
func (e *Env) timeWindow(ctx context.Context) error {
	d := e.Config.Defaults
	err := e.Results.ApplyTimeFilter(ctx, d.DepartStartHour, d.DepartEndHour)
	if errors.Is(err, pages.ErrFilterUnavailable) {
		e.Logger.Warn().Err(err).Msg("time filter not applied")
		return nil
	}
	return err
}

func (e *Env) departures(ctx context.Context, required bool) error {
	d := e.Config.Defaults
	inside, total, ok, err := e.Results.VerifyDepartureTimes(ctx, d.DepartStartHour, d.DepartEndHour)
	if err != nil {
		return err
	}
	return e.check("departure-window", ok, required,
		fmt.Sprintf("%d of %d departures within %02d:00-%02d:00", inside, total, d.DepartStartHour, d.DepartEndHour))
}

func basicSearch(ctx context.Context, e *Env) error {
	d := e.Config.Defaults
	if err := e.search(ctx, d.Origin, d.Destination); err != nil {
		return err
	}
	if _, err := e.awaitResults(ctx); err != nil {
		return err
	}
	if err := e.timeWindow(ctx); err != nil {
		return err
	}
	if _, err := e.awaitResults(ctx); err != nil {
		return err
	}
	return e.departures(ctx, true)
}

func airlinePriceSort(ctx context.Context, e *Env) error {
	d := e.Config.Defaults
	v := e.Config.Verify
	if err := e.search(ctx, d.Origin, d.Destination); err != nil {
		return err
	}
	if _, err := e.awaitResults(ctx); err != nil {
		return err
	}
	if err := e.timeWindow(ctx); err != nil {
		return err
	}
	if err := e.Results.ApplyAirlineFilter(ctx, d.AirlineCode, d.AirlineName); err != nil {
		return err
	}
	if _, err := e.awaitResults(ctx); err != nil {
		return err
	}

	share, ok, err := e.Results.VerifyAirlineShare(ctx, v.AirlineKeywords, v.AirlineShare)
	if err != nil {
		return err
	}
	if err := e.check("airline-share", ok, true, fmt.Sprintf("%.0f%% %s, need %.0f%%", share*100, d.AirlineCode, v.AirlineShare*100)); err != nil {
		return err
	}
	sorted, prices, err := e.Results.VerifyPricesAscending(ctx, v.PriceSample)
	if err != nil {
		return err
	}
	if err := e.check("price-order", sorted, false, fmt.Sprintf("%d prices read", len(prices))); err != nil {
		return err
	}
	return e.departures(ctx, false)
}

func criticalPath(ctx context.Context, e *Env) error {
	d := e.Config.Defaults
	if err := e.search(ctx, d.Origin, d.Destination); err != nil {
		return err
	}
	before, err := e.awaitResults(ctx)
	if err != nil {
		return err
	}
	if err := e.timeWindow(ctx); err != nil {
		return err
	}
	if err := e.departures(ctx, false); err != nil {
		return err
	}
	after, err := e.Results.FlightCount(ctx)
	if err != nil {
		return err
	}
	e.Logger.Info().Int("before", before).Int("after", after).Msg("time filter narrowed list")

	prices, err := e.Results.AllPrices(ctx, e.Config.Verify.PriceSample)
	if err != nil {
		return err
	}
	if err := e.check("prices-readable", len(prices) > 0, false, fmt.Sprintf("%d prices read", len(prices))); err != nil {
		return err
	}
	details, err := e.Results.FlightDetails(ctx, 0)
	if err != nil {
		return fmt.Errorf("first flight details: %w", err)
	}
	if err := e.check("first-flight", true, true, details.Airline+" "+details.Price); err != nil {
		return err
	}
	return e.check("flights-listed", after > 0, true, fmt.Sprintf("%d flights", after))
}

func analysisRun(ctx context.Context, e *Env) error {
	d := e.Config.Defaults
	if err := e.search(ctx, d.AnalysisOrigin, d.AnalysisDestination); err != nil {
		return err
	}
	if _, err := e.awaitResults(ctx); err != nil {
		return err
	}
	rep, err := e.Results.Extract(ctx)
	if err != nil {
		return err
	}
	if len(rep.Records) == 0 {
		return fmt.Errorf("extract: %w (%s)", ErrNoResults, rep)
	}
	e.Outcome.Records = rep.Records
	e.Logger.Info().Stringer("report", rep).Msg("flights extracted")

	name := csvName(d.AnalysisOrigin, d.AnalysisDestination, e.Now().Format("20060102"))
	path, err := e.CSV.Write(name, rep.Records)
	if err != nil {
		return err
	}
	e.Outcome.CSVPath = path
	loaded, err := e.CSV.Read(name)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if err := e.check("csv-roundtrip", len(loaded) == len(rep.Records), true,
		fmt.Sprintf("%d written, %d read", len(rep.Records), len(loaded))); err != nil {
		return err
	}

	if hist, err := e.CSV.Append(HistoryFile, loaded); err != nil {
		e.Logger.Warn().Err(err).Msg("history not updated")
	} else {
		e.Outcome.HistoryPath = hist
	}

	a := Analyze(loaded, e.Config.Paths.Charts, e.Logger)
	e.Outcome.Analysis = &a
	e.Outcome.Charts = a.Charts

	if e.DB != nil {
		n, err := e.DB.SaveRun(ctx, storage.Run{
			ID:            e.Outcome.RunID,
			Scenario:      e.Outcome.Scenario,
			Origin:        e.Outcome.Query.Origin,
			Destination:   e.Outcome.Query.Destination,
			DepartureDate: e.Outcome.Query.Departure,
			ReturnDate:    e.Outcome.Query.Return,
			StartedAt:     e.Outcome.StartedAt,
			Records:       loaded,
		})
		if err != nil {
			e.Logger.Warn().Err(err).Msg("run not saved to database")
		} else {
			e.Outcome.Saved = n
		}
	}
	return nil
}

// HistoryFile accumulates the records of every analysis run.
const HistoryFile = "flight_history"

func csvName(origin, dest, day string) string {
	clean := func(s string) string { return strings.ReplaceAll(strings.TrimSpace(s), " ", "_") }
	return fmt.Sprintf("flight_data_%s_%s_%s", clean(origin), clean(dest), day)
}
