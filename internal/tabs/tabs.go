// Package tabs reconciles the set of open windows and tabs after a
// navigation so that exactly one flight-search context stays active.
package tabs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/browser"
)

// EntryURL is where a session is sent back to when it lands off target.
const EntryURL = "https://www.enuygun.com/ucak-bileti/"

// ErrWrongContext means the session ended on an off-target page with no
// alternative context to switch to.
var ErrWrongContext = errors.New("wrong browsing context")

type Class int

const (
	Unknown Class = iota
	Target
	OffTarget
)

func (c Class) String() string {
	switch c {
	case Target:
		return "target"
	case OffTarget:
		return "off-target"
	default:
		return "unknown"
	}
}

// Classifier sorts URLs by keyword. Exclude is checked before Include.
type Classifier struct {
	Exclude []string
	Include []string
}

func DefaultClassifier() Classifier {
	return Classifier{
		Exclude: []string{"otel", "hotel"},
		Include: []string{"ucak", "flight", "bileti", "arama"},
	}
}

func (c Classifier) Classify(url string) Class {
	u := strings.ToLower(url)
	for _, k := range c.Exclude {
		if strings.Contains(u, strings.ToLower(k)) {
			return OffTarget
		}
	}
	for _, k := range c.Include {
		if strings.Contains(u, strings.ToLower(k)) {
			return Target
		}
	}
	return Unknown
}

// Reconciler owns switching of the active context.
type Reconciler struct {
	Classifier Classifier
	EntryURL   string
	Logger     zerolog.Logger
}

func NewReconciler(entry string, logger zerolog.Logger) *Reconciler {
	if entry == "" {
		entry = EntryURL
	}
	return &Reconciler{
		Classifier: DefaultClassifier(),
		EntryURL:   entry,
		Logger:     logger.With().Str("comp", "tabs").Logger(),
	}
}

// Reconcile closes off-target contexts and activates the first target one.
// Without a target it falls back to the first surviving context that is not
// off target, with a warning.
//
// When every context is off target, whether one or several, the first is
// kept, the others closed, and the kept one sent to the entry URL. That case
// returns ErrWrongContext: it is fatal for the search, not a warning.
func (r *Reconciler) Reconcile(ctx context.Context, cs browser.Contexts) (browser.Page, error) {
	pages := cs.Pages()
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no open context", ErrWrongContext)
	}

	classes := make([]Class, len(pages))
	off := 0
	for i, p := range pages {
		classes[i] = r.Classifier.Classify(p.URL())
		if classes[i] == OffTarget {
			off++
		}
		r.Logger.Debug().Str("url", p.URL()).Str("class", classes[i].String()).Msg("context classified")
	}

	if off == len(pages) {
		keep := pages[0]
		for _, p := range pages[1:] {
			r.close(p)
		}
		if err := r.activate(cs, keep); err != nil {
			return nil, err
		}
		return keep, r.backToEntry(ctx, keep)
	}

	var (
		target    browser.Page
		surviving []browser.Page
	)
	for i, p := range pages {
		switch classes[i] {
		case OffTarget:
			r.close(p)
			continue
		case Target:
			if target == nil {
				target = p
			}
		}
		surviving = append(surviving, p)
	}
	if target == nil {
		target = surviving[0]
		r.Logger.Warn().Str("url", target.URL()).Msg("no flight context found, using first open context")
	}
	if err := r.activate(cs, target); err != nil {
		return nil, err
	}
	if len(pages) > 1 {
		r.Logger.Info().Int("contexts", len(pages)).Int("closed", off).Str("url", target.URL()).Msg("contexts reconciled")
	}
	return target, nil
}

// Verify checks page after a navigation: off target sends it to the entry
// URL and fails, unknown is only a warning.
func (r *Reconciler) Verify(ctx context.Context, page browser.Page) error {
	switch r.Classifier.Classify(page.URL()) {
	case OffTarget:
		return r.backToEntry(ctx, page)
	case Unknown:
		r.Logger.Warn().Str("url", page.URL()).Msg("unexpected url format")
	default:
		r.Logger.Debug().Str("url", page.URL()).Msg("on flight results")
	}
	return nil
}

func (r *Reconciler) backToEntry(ctx context.Context, page browser.Page) error {
	landed := page.URL()
	r.Logger.Error().Str("url", landed).Str("entry", r.EntryURL).Msg("landed off target, returning to entry")
	if err := page.Goto(ctx, r.EntryURL); err != nil {
		return fmt.Errorf("%w: %s (return to entry: %v)", ErrWrongContext, landed, err)
	}
	return fmt.Errorf("%w: %s", ErrWrongContext, landed)
}

func (r *Reconciler) activate(cs browser.Contexts, p browser.Page) error {
	if cs.Active() == p {
		return nil
	}
	if err := cs.Activate(p); err != nil {
		return fmt.Errorf("activate %s: %w", p.URL(), err)
	}
	return nil
}

func (r *Reconciler) close(p browser.Page) {
	url := p.URL()
	if err := p.Close(); err != nil {
		r.Logger.Warn().Err(err).Str("url", url).Msg("closing off-target context failed")
		return
	}
	r.Logger.Info().Str("url", url).Msg("off-target context closed")
}
