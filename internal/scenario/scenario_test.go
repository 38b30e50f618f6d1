package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/autocomplete"
	"github.com/polzovatel/flightcheck/internal/browser/browsertest"
	"github.com/polzovatel/flightcheck/internal/config"
	"github.com/polzovatel/flightcheck/internal/diag"
	"github.com/polzovatel/flightcheck/internal/extract"
	"github.com/polzovatel/flightcheck/internal/flight"
	"github.com/polzovatel/flightcheck/internal/locate"
	"github.com/polzovatel/flightcheck/internal/pages"
	"github.com/polzovatel/flightcheck/internal/storage"
	"github.com/polzovatel/flightcheck/internal/tabs"
)

const resultsURL = "https://www.enuygun.com/ucak-bileti/arama/istanbul-ankara"

type fakeSession struct {
	*browsertest.Contexts
	closed bool
}

func (s *fakeSession) Close(context.Context) error {
	s.closed = true
	return nil
}

type fakeDB struct {
	runs []storage.Run
}

func (d *fakeDB) SaveRun(_ context.Context, run storage.Run) (int, error) {
	d.runs = append(d.runs, run)
	return len(run.Records), nil
}

type site struct {
	page    *browsertest.Page
	airline *browsertest.Element
	handles []*browsertest.Element
}

func resultCard(airline, dep, price string) *browsertest.Element {
	return browsertest.NewElement(airline, "").
		WithChild(extract.DepartureSelectors[0], browsertest.NewElement("dep", dep)).
		WithChild(extract.AirlineSelectors[1], browsertest.NewElement("air", airline)).
		WithChild("[class*='airline']", browsertest.NewElement("air", airline)).
		WithChild(".money-int", browsertest.NewElement("price", price))
}

// newSite builds one page that serves both the search form and the results.
func newSite(cards bool) *site {
	p := browsertest.NewPage("about:blank")
	for _, f := range []locate.Field{locate.Origin, locate.Destination, locate.DepartureDate, locate.ReturnDate, locate.Submit} {
		p.Add(f.Candidates[0].Selector(), browsertest.NewElement(f.Name, ""))
	}
	list := browsertest.NewElement("list", "").WithChild(autocomplete.Items,
		browsertest.NewElement("ist", "İstanbul, Türkiye"),
		browsertest.NewElement("ank", "Ankara Esenboğa"),
		browsertest.NewElement("ecn", "Ercan (Lefkoşa)"),
	)
	p.Add(autocomplete.Containers[0], list)
	s := &site{page: p}
	if !cards {
		return s
	}

	p.Add(extract.CardPatterns[0],
		resultCard("Türk Hava Yolları", "10:30", "1.100 TL"),
		resultCard("THY", "12:00", "1.250 TL"),
		resultCard("Türk Hava Yolları", "17:45", "1.900 TL"),
	)
	p.Add(extract.ContainerPatterns[0], browsertest.NewElement("list-body", ""))
	p.Add(pages.DepartureProbes[0],
		browsertest.NewElement("t1", "10:30"),
		browsertest.NewElement("t2", "12:00"),
		browsertest.NewElement("t3", "17:45"),
	)
	p.Add(pages.TimeFilterCards[0], browsertest.NewElement("time-card", ""))
	s.handles = []*browsertest.Element{
		browsertest.NewElement("lo", "").WithAttr("aria-valuenow", "600"),
		browsertest.NewElement("hi", "").WithAttr("aria-valuenow", "1080"),
	}
	p.Add(pages.Sliders[0], browsertest.NewElement("slider", "").WithChild(pages.SliderHandle, s.handles...))
	p.Add(pages.AirlineFilterCards[0], browsertest.NewElement("airline-card", ""))
	s.airline = browsertest.NewElement("tk", "")
	p.Add("input[id*='TK'], input[value*='TK']", s.airline)
	return s
}

type harness struct {
	runner *Runner
	sess   *fakeSession
	db     *fakeDB
	dir    string
}

func newHarness(t *testing.T, s *site) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Timing = config.Timing{}
	cfg.Site.URL = resultsURL
	cfg.Site.EntryURL = tabs.EntryURL
	cfg.Paths.Charts = filepath.Join(dir, "charts")

	h := &harness{sess: &fakeSession{Contexts: browsertest.NewContexts(s.page)}, db: &fakeDB{}, dir: dir}
	open := func(context.Context) (Session, error) { return h.sess, nil }
	capture := diag.NewRecorder(filepath.Join(dir, "shots"), zerolog.Nop())
	h.runner = NewRunner(cfg, open, capture, storage.NewCSVStore(filepath.Join(dir, "reports"), zerolog.Nop()), h.db, zerolog.Nop())
	h.runner.Now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }
	return h
}

func checkNames(cs []Check) map[string]bool {
	out := make(map[string]bool)
	for _, c := range cs {
		out[c.Name] = c.Passed
	}
	return out
}

func TestRunBasicSearch(t *testing.T) {
	s := newSite(true)
	h := newHarness(t, s)

	out, err := h.runner.Run(context.Background(), "basic-search")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]bool{"departure-window": true}, checkNames(out.Checks)); diff != "" {
		t.Errorf("checks (-want +got):\n%s", diff)
	}
	want := pages.Query{Origin: "İstanbul", Destination: "Ankara", Departure: "24.10.2026", Return: "31.10.2026"}
	if diff := cmp.Diff(want, out.Query); diff != "" {
		t.Errorf("query (-want +got):\n%s", diff)
	}
	if out.Flights != 3 {
		t.Errorf("flights = %d, want 3", out.Flights)
	}
	if !s.handles[0].Called("click") {
		t.Error("time filter not applied")
	}
	if !h.sess.closed {
		t.Error("session left open")
	}
	if len(s.page.Shots) != 0 {
		t.Errorf("unexpected captures %v", s.page.Shots)
	}
}

func TestRunAirlinePriceSort(t *testing.T) {
	s := newSite(true)
	h := newHarness(t, s)

	out, err := h.runner.Run(context.Background(), "airline-price-sort")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"airline-share": true, "price-order": true, "departure-window": true}
	if diff := cmp.Diff(want, checkNames(out.Checks)); diff != "" {
		t.Errorf("checks (-want +got):\n%s", diff)
	}
	if !s.airline.Called("click") {
		t.Error("airline filter not ticked")
	}
	if len(out.Failed()) != 0 {
		t.Errorf("failed checks %v", out.Failed())
	}
}

func TestRunCriticalPath(t *testing.T) {
	h := newHarness(t, newSite(true))
	out, err := h.runner.Run(context.Background(), "critical-path")
	if err != nil {
		t.Fatal(err)
	}
	got := checkNames(out.Checks)
	for _, name := range []string{"departure-window", "prices-readable", "first-flight", "flights-listed"} {
		if !got[name] {
			t.Errorf("check %s missing or failed: %v", name, out.Checks)
		}
	}
}

func TestRunAnalysis(t *testing.T) {
	h := newHarness(t, newSite(true))
	out, err := h.runner.Run(context.Background(), "analysis")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(out.Records))
	}
	if !strings.HasSuffix(out.CSVPath, "flight_data_İstanbul_Lefkoşa_20261017.csv") {
		t.Errorf("csv path = %s", out.CSVPath)
	}
	if _, err := os.Stat(out.CSVPath); err != nil {
		t.Error(err)
	}
	if len(out.Charts) != 3 {
		t.Errorf("charts = %v, want 3", out.Charts)
	}
	if out.Analysis == nil || out.Analysis.Summary.Priced != 3 {
		t.Errorf("analysis = %+v", out.Analysis)
	}
	if len(h.db.runs) != 1 || h.db.runs[0].ID != out.RunID || out.Saved != 3 {
		t.Errorf("saved runs = %+v, saved = %d", h.db.runs, out.Saved)
	}
	if out.HistoryPath != h.runner.CSV.Path(HistoryFile) {
		t.Errorf("history path = %q", out.HistoryPath)
	}
	hist, err := h.runner.CSV.Read(HistoryFile)
	if err != nil || len(hist) != 3 {
		t.Fatalf("history after one run: %d records, %v", len(hist), err)
	}

	if _, err := h.runner.Run(context.Background(), "analysis"); err != nil {
		t.Fatal(err)
	}
	hist, err = h.runner.CSV.Read(HistoryFile)
	if err != nil || len(hist) != 6 {
		t.Errorf("history after two runs: %d records, %v", len(hist), err)
	}
}

func TestRunFailureCapturesAndCloses(t *testing.T) {
	s := &site{page: browsertest.NewPage("about:blank")}
	h := newHarness(t, s)

	_, err := h.runner.Run(context.Background(), "basic-search")
	if !errors.Is(err, locate.ErrStructuralNotFound) {
		t.Fatalf("err = %v, want structural not found", err)
	}
	if !strings.Contains(err.Error(), "origin") {
		t.Errorf("error %q does not name the field", err)
	}
	var failure bool
	for _, shot := range s.page.Shots {
		if strings.Contains(shot, "basic-search_failure") {
			failure = true
		}
	}
	if !failure {
		t.Errorf("shots = %v, want a failure capture", s.page.Shots)
	}
	if !h.sess.closed {
		t.Error("session left open")
	}
}

func TestRunNoResults(t *testing.T) {
	h := newHarness(t, newSite(false))
	if _, err := h.runner.Run(context.Background(), "basic-search"); !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want no results", err)
	}
}

func TestRunUnknownScenario(t *testing.T) {
	h := newHarness(t, newSite(false))
	if _, err := h.runner.Run(context.Background(), "nope"); !errors.Is(err, ErrUnknownScenario) {
		t.Fatalf("err = %v, want unknown scenario", err)
	}
	if h.sess.closed {
		t.Error("session opened for an unknown scenario")
	}
}

func TestAll(t *testing.T) {
	var names []string
	for _, s := range All() {
		names = append(names, s.Name)
	}
	want := []string{"airline-price-sort", "analysis", "basic-search", "critical-path"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("scenarios (-want +got):\n%s", diff)
	}
}

func TestAnalyze(t *testing.T) {
	recs := []flight.Record{
		{DepartureTime: "06:10", Airline: "Pegasus", Price: flight.IntPtr(900), Index: 1},
		{DepartureTime: "10:30", Airline: "AJet", Price: flight.IntPtr(1200), Index: 2},
		{DepartureTime: "18:00", Airline: "Pegasus", Price: flight.IntPtr(2000), Index: 3},
		{DepartureTime: "21:45", Airline: "AJet", Index: 4},
	}
	dir := t.TempDir()
	a := Analyze(recs, dir, zerolog.Nop())
	if len(a.Charts) != 3 {
		t.Errorf("charts = %v", a.Charts)
	}
	if len(a.Airlines) != 2 || a.Airlines[0].Airline != "AJet" {
		t.Errorf("airlines = %+v", a.Airlines)
	}
	if len(a.CostEffective) != 1 || *a.CostEffective[0].Price != 900 {
		t.Errorf("cost effective = %+v", a.CostEffective)
	}

	empty := Analyze([]flight.Record{{DepartureTime: "10:00", Airline: "AJet"}}, t.TempDir(), zerolog.Nop())
	if len(empty.Charts) != 0 {
		t.Errorf("charts without prices = %v", empty.Charts)
	}
}
