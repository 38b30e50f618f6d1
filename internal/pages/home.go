package pages

import (
	"context"
	"fmt"

	"github.com/polzovatel/flightcheck/internal/browser"
	"github.com/polzovatel/flightcheck/internal/interact"
	"github.com/polzovatel/flightcheck/internal/locate"
)

// Query is one round-trip search. Dates use the site's display format.
type Query struct {
	Origin      string `json:"origin" yaml:"origin"`
	Destination string `json:"destination" yaml:"destination"`
	Departure   string `json:"departure" yaml:"departure"`
	Return      string `json:"return" yaml:"return"`
}

type HomePage struct {
	kit      *Kit
	contexts browser.Contexts
}

func NewHomePage(kit *Kit, contexts browser.Contexts) *HomePage {
	return &HomePage{kit: kit, contexts: contexts}
}

func (h *HomePage) page() browser.Page { return h.contexts.Active() }

// Open navigates to url, waits for the document and clears popups.
func (h *HomePage) Open(ctx context.Context, url string) error {
	page := h.page()
	if err := page.Goto(ctx, url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	h.kit.waitReady(ctx, page, h.kit.Timing.Results)
	h.kit.Logger.Info().Str("url", url).Msg("site opened")
	if err := browser.Pause(ctx, h.kit.Timing.Page); err != nil {
		return err
	}
	h.DismissPopups(ctx)
	return nil
}

// DismissPopups closes the cookie banner and any modal, then hides leftover
// overlays. Nothing here fails the flow.
func (h *HomePage) DismissPopups(ctx context.Context) {
	page := h.page()
	log := h.kit.Logger
	if el, i := locate.First(ctx, page, locate.CookieAccept, h.kit.Timing.Probe); el != nil {
		if err := interact.ClickElement(el); err != nil {
			log.Warn().Err(err).Msg("cookie banner click failed")
		} else {
			log.Info().Int("selector", i+1).Msg("cookie banner closed")
		}
	} else {
		log.Debug().Msg("no cookie banner")
	}
	if el, i := locate.First(ctx, page, locate.PopupClose, h.kit.Timing.Probe); el != nil {
		if err := interact.ClickElement(el); err != nil {
			log.Warn().Err(err).Msg("popup close failed")
		} else {
			log.Info().Int("selector", i+1).Msg("popup closed")
		}
	}
	if v, err := page.Eval(ctx, hideOverlays, locate.Overlays); err != nil {
		log.Debug().Err(err).Msg("overlay cleanup failed")
	} else if n, ok := asInt(v); ok && n > 0 {
		log.Info().Int("hidden", n).Msg("overlays hidden")
	}
}

// SearchRoundTrip fills the search form and submits it, then reconciles the
// windows the submit opened. Required fields that cannot be found abort the
// search with a *locate.NotFoundError.
func (h *HomePage) SearchRoundTrip(ctx context.Context, q Query) error {
	k := h.kit
	page := h.page()

	if out, err := k.Resolver.Lookup(ctx, page, locate.RoundTrip, k.Timing.Field); err != nil {
		k.Logger.Warn().Msg("round-trip toggle not found, using default form")
	} else if _, err := k.Sequencer.Apply(ctx, page, locate.RoundTrip, out.Element, interact.Click().Optional()); err != nil {
		k.Logger.Warn().Err(err).Msg("round-trip toggle failed")
	}

	if err := h.city(ctx, page, locate.Origin, q.Origin); err != nil {
		return err
	}
	if err := h.city(ctx, page, locate.Destination, q.Destination); err != nil {
		return err
	}
	if err := h.date(ctx, page, locate.DepartureDate, q.Departure); err != nil {
		return err
	}
	if err := h.date(ctx, page, locate.ReturnDate, q.Return); err != nil {
		return err
	}

	submit, err := k.Resolver.Resolve(ctx, page, locate.Submit, k.Timing.Field)
	if err != nil {
		return err
	}
	if h.consentShowing(ctx, page) {
		h.DismissPopups(ctx)
	}
	if _, err := k.Sequencer.Apply(ctx, page, locate.Submit, submit.Element, interact.Click()); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	k.Logger.Info().Str("from", q.Origin).Str("to", q.Destination).Str("depart", q.Departure).Str("return", q.Return).Msg("search submitted")

	if err := browser.Pause(ctx, k.Timing.Page); err != nil {
		return err
	}
	landed, err := k.Tabs.Reconcile(ctx, h.contexts)
	if err != nil {
		return fmt.Errorf("after search: %w", err)
	}
	return k.Tabs.Verify(ctx, landed)
}

func (h *HomePage) city(ctx context.Context, page browser.Page, field locate.Field, name string) error {
	k := h.kit
	el, err := k.Sequencer.Run(ctx, page, field, interact.Click(), interact.Clear(), interact.Type(name))
	if err != nil {
		return fmt.Errorf("%s input: %w", field.Name, err)
	}
	if err := browser.Pause(ctx, k.Timing.Settle); err != nil {
		return err
	}
	res := k.Suggest.Select(ctx, page, el, name, k.Timing.Suggest)
	k.Logger.Info().Str("field", field.Name).Str("value", name).Str("via", res.Kind.String()).Str("item", res.Text).Msg("city chosen")
	return browser.Pause(ctx, k.Timing.Settle)
}

func (h *HomePage) date(ctx context.Context, page browser.Page, field locate.Field, value string) error {
	if _, err := h.kit.Sequencer.Run(ctx, page, field, interact.Click(), interact.SetValue(value)); err != nil {
		return fmt.Errorf("%s: %w", field.Name, err)
	}
	h.kit.Logger.Info().Str("field", field.Name).Str("value", value).Msg("date set")
	return nil
}

func (h *HomePage) consentShowing(ctx context.Context, page browser.Page) bool {
	els, err := page.QueryAll(ctx, locate.ConsentOverlay)
	if err != nil {
		return false
	}
	for _, el := range els {
		if ok, err := el.IsVisible(); err == nil && ok {
			return true
		}
	}
	return false
}
