// Package scenario runs the end-to-end flight search flows against a live
// browser session and records what each run found.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/browser"
	"github.com/polzovatel/flightcheck/internal/config"
	"github.com/polzovatel/flightcheck/internal/diag"
	"github.com/polzovatel/flightcheck/internal/flight"
	"github.com/polzovatel/flightcheck/internal/pages"
	"github.com/polzovatel/flightcheck/internal/storage"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrNoResults       = errors.New("no flights listed")
	ErrCheckFailed     = errors.New("check failed")
)

// Session is one browser with its contexts.
type Session interface {
	browser.Contexts
	Close(ctx context.Context) error
}

// Opener starts a fresh session for one run.
type Opener func(ctx context.Context) (Session, error)

// RunSaver persists a finished run.
type RunSaver interface {
	SaveRun(ctx context.Context, run storage.Run) (int, error)
}

// Check is one verification a scenario made.
type Check struct {
	Name     string
	Passed   bool
	Required bool
	Detail   string
}

// Outcome is what one run produced.
type Outcome struct {
	RunID       uuid.UUID
	Scenario    string
	StartedAt   time.Time
	Elapsed     time.Duration
	Query       pages.Query
	Flights     int
	Checks      []Check
	Records     []flight.Record
	CSVPath     string
	HistoryPath string
	Charts      []string
	Analysis    *Analysis
	Saved       int
}

// Failed lists the required checks that did not pass.
func (o Outcome) Failed() []Check {
	var out []Check
	for _, c := range o.Checks {
		if c.Required && !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// Scenario is one named flow.
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) error
}

var registry = map[string]Scenario{}

func register(s Scenario) { registry[s.Name] = s }

// Lookup returns the scenario called name.
func Lookup(name string) (Scenario, bool) {
	s, ok := registry[name]
	return s, ok
}

// All returns every scenario sorted by name.
func All() []Scenario {
	out := make([]Scenario, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Env is what a scenario works with during one run.
type Env struct {
	Config  config.Config
	Home    *pages.HomePage
	Results *pages.ResultsPage
	CSV     *storage.CSVStore
	DB      RunSaver
	Logger  zerolog.Logger
	Now     func() time.Time
	Outcome *Outcome
}

// check records a verification; a failed required one becomes an error.
func (e *Env) check(name string, passed, required bool, detail string) error {
	e.Outcome.Checks = append(e.Outcome.Checks, Check{Name: name, Passed: passed, Required: required, Detail: detail})
	ev := e.Logger.Info()
	if !passed {
		ev = e.Logger.Warn()
	}
	ev.Str("check", name).Bool("passed", passed).Str("detail", detail).Msg("check")
	if required && !passed {
		return fmt.Errorf("%w: %s (%s)", ErrCheckFailed, name, detail)
	}
	return nil
}

type Runner struct {
	Config  config.Config
	Open    Opener
	Capture diag.Capturer
	CSV     *storage.CSVStore
	DB      RunSaver
	Logger  zerolog.Logger
	Now     func() time.Time
}

func NewRunner(cfg config.Config, open Opener, capture diag.Capturer, csv *storage.CSVStore, db RunSaver, logger zerolog.Logger) *Runner {
	if capture == nil {
		capture = diag.Discard{}
	}
	return &Runner{
		Config:  cfg,
		Open:    open,
		Capture: capture,
		CSV:     csv,
		DB:      db,
		Logger:  logger,
		Now:     time.Now,
	}
}

func (r *Runner) timing() pages.Timing {
	t := r.Config.Timing
	return pages.Timing{
		Field:   t.FieldTimeout,
		Probe:   t.CandidateWait,
		Settle:  t.Settle,
		Page:    t.PageSettle,
		Suggest: t.SuggestWait,
		Results: t.ResultsWait,
		Loader:  t.LoaderWait,
	}
}

// Run executes the named scenario in a fresh session. The session is closed
// and, on failure, the active page captured before Run returns.
func (r *Runner) Run(ctx context.Context, name string) (Outcome, error) {
	sc, ok := Lookup(name)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}
	out := Outcome{RunID: uuid.New(), Scenario: name, StartedAt: now()}
	log := r.Logger.With().Str("run", out.RunID.String()).Str("scenario", name).Logger()
	log.Info().Msg("scenario started")

	sess, err := r.Open(ctx)
	if err != nil {
		return out, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("session close failed")
		}
	}()

	kit := pages.NewKit(r.timing(), r.Config.Timing.CandidateWait, r.Config.Site.EntryURL, r.Capture, log)
	env := &Env{
		Config:  r.Config,
		Home:    pages.NewHomePage(kit, sess),
		Results: pages.NewResultsPage(kit, sess),
		CSV:     r.CSV,
		DB:      r.DB,
		Logger:  log,
		Now:     now,
		Outcome: &out,
	}

	err = sc.Run(ctx, env)
	out.Elapsed = now().Sub(out.StartedAt)
	if err != nil {
		shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		r.Capture.Capture(shotCtx, sess.Active(), name+"_failure")
		cancel()
		log.Error().Err(err).Dur("elapsed", out.Elapsed).Msg("scenario failed")
		return out, fmt.Errorf("%s: %w", name, err)
	}
	log.Info().Dur("elapsed", out.Elapsed).Int("checks", len(out.Checks)).Msg("scenario passed")
	return out, nil
}
