// Package pages drives the flight-search site: the home page search form and
// the results page with its filters and checks.
package pages

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/autocomplete"
	"github.com/polzovatel/flightcheck/internal/browser"
	"github.com/polzovatel/flightcheck/internal/diag"
	"github.com/polzovatel/flightcheck/internal/extract"
	"github.com/polzovatel/flightcheck/internal/interact"
	"github.com/polzovatel/flightcheck/internal/locate"
	"github.com/polzovatel/flightcheck/internal/tabs"
)

// Timing holds the waits page drivers use. Zero values mean no wait.
type Timing struct {
	Field   time.Duration // whole-field resolution budget
	Probe   time.Duration // one optional selector
	Settle  time.Duration // after a single interaction
	Page    time.Duration // after navigation or a filter change
	Suggest time.Duration
	Results time.Duration
	Loader  time.Duration
}

// Kit bundles the components both page drivers share.
type Kit struct {
	Resolver  *locate.Resolver
	Sequencer *interact.Sequencer
	Suggest   *autocomplete.Disambiguator
	Tabs      *tabs.Reconciler
	Extractor *extract.Extractor
	Capture   diag.Capturer
	Timing    Timing
	Logger    zerolog.Logger
}

// NewKit wires the default components around capture and logger.
func NewKit(t Timing, candidateWait time.Duration, entryURL string, capture diag.Capturer, logger zerolog.Logger) *Kit {
	if capture == nil {
		capture = diag.Discard{}
	}
	r := locate.NewResolver(candidateWait, capture, logger)
	return &Kit{
		Resolver:  r,
		Sequencer: interact.NewSequencer(r, t.Settle, t.Field, logger),
		Suggest:   autocomplete.New(t.Suggest, logger),
		Tabs:      tabs.NewReconciler(entryURL, logger),
		Extractor: extract.New(logger),
		Capture:   capture,
		Timing:    t,
		Logger:    logger.With().Str("comp", "pages").Logger(),
	}
}

const (
	readyStateScript = `() => document.readyState`
	hideOverlays     = `(sel) => {
		let hidden = 0;
		document.querySelectorAll(sel).forEach(el => {
			const style = window.getComputedStyle(el);
			if (style.display !== 'none' && style.visibility !== 'hidden') {
				el.style.display = 'none';
				hidden++;
			}
		});
		return hidden;
	}`
	loaderSelector = "[data-testid*='loading']"
)

// waitReady polls document.readyState until it is complete or budget runs out.
func (k *Kit) waitReady(ctx context.Context, page browser.Page, budget time.Duration) {
	deadline := time.Now().Add(budget)
	for {
		v, err := page.Eval(ctx, readyStateScript, nil)
		if s, _ := v.(string); err == nil && s == "complete" {
			return
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			k.Logger.Warn().Str("url", page.URL()).Msg("page not complete, continuing")
			return
		}
		_ = browser.Pause(ctx, 200*time.Millisecond)
	}
}

// waitLoader waits for the results loader to go away. Absence is fine.
func (k *Kit) waitLoader(ctx context.Context, page browser.Page) {
	if err := page.WaitGone(ctx, loaderSelector, k.Timing.Loader); err != nil {
		k.Logger.Debug().Err(err).Msg("loader still present or not found")
	}
}

// asInt reads a numeric script result.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
