package pages

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/polzovatel/flightcheck/internal/analysis"
	"github.com/polzovatel/flightcheck/internal/browser"
	"github.com/polzovatel/flightcheck/internal/extract"
	"github.com/polzovatel/flightcheck/internal/flight"
	"github.com/polzovatel/flightcheck/internal/interact"
	"github.com/polzovatel/flightcheck/internal/locate"
)

// ErrFilterUnavailable means a results filter panel could not be found or
// operated.
var ErrFilterUnavailable = errors.New("filter unavailable")

var (
	TimeFilterCards = []string{
		".ctx-filter-departure-return-time",
		"xpath=//span[contains(text(), 'Gidiş kalkış / varış saatleri')]/parent::*",
	}
	AirlineFilterCards = []string{
		".ctx-filter-airline",
		"xpath=//span[contains(text(),'Havayolları')]/parent::*",
	}
	ExpandIcons = []string{".ei-expand-more", "i[class*='expand']"}
	Sliders     = []string{
		"[data-testid='departureDepartureTimeSlider']",
		".search__filter_departure",
		".rc-slider",
	}
	SliderHandle = ".rc-slider-handle"

	DepartureProbes = []string{
		"[data-testid*='departureTime']",
		"[class*='departure-time']",
		"[class*='time']",
	}
	AirlineProbes = []string{
		"[class*='airline']",
		"[data-testid*='airline']",
		"[class*='carrier']",
		".summary-marketing-airlines",
	}
)

// setSlider moves the two range handles to [start, end] minutes and fires the
// events the filter listens to.
const setSlider = `(box, range) => {
	const [start, end] = range;
	const min = 0, max = 1439;
	const handles = box.querySelectorAll('.rc-slider-handle');
	if (handles.length < 2) return false;
	const pct = v => ((v - min) / (max - min)) * 100;
	[start, end].forEach((v, i) => {
		const h = handles[i];
		h.setAttribute('aria-valuenow', String(v));
		h.style.left = pct(v) + '%';
		['mousedown', 'mousemove', 'mouseup', 'change'].forEach(t =>
			h.dispatchEvent(new Event(t, {bubbles: true})));
	});
	const track = box.querySelector('.rc-slider-track');
	if (track) {
		track.style.left = pct(start) + '%';
		track.style.width = (pct(end) - pct(start)) + '%';
	}
	box.querySelectorAll('input[type="hidden"]').forEach((inp, i) => {
		inp.value = String(i === 0 ? start : end);
		inp.dispatchEvent(new Event('change', {bubbles: true}));
	});
	box.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
}`

// Details is what the list shows for one flight.
type Details struct {
	Airline string
	Price   string
}

type ResultsPage struct {
	kit      *Kit
	contexts browser.Contexts
}

func NewResultsPage(kit *Kit, contexts browser.Contexts) *ResultsPage {
	return &ResultsPage{kit: kit, contexts: contexts}
}

func (r *ResultsPage) page() browser.Page { return r.contexts.Active() }

// WaitForResults checks the context, waits for the list and returns the
// number of cards. Zero cards is not an error here; callers decide.
func (r *ResultsPage) WaitForResults(ctx context.Context) (int, error) {
	k := r.kit
	page := r.page()
	if err := k.Tabs.Verify(ctx, page); err != nil {
		return 0, err
	}
	k.waitLoader(ctx, page)
	if el, _ := locate.First(ctx, page, extract.ContainerPatterns, k.Timing.Results); el == nil {
		if _, err := page.WaitFor(ctx, extract.SummaryCards, k.Timing.Probe); err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			k.Logger.Warn().Msg("results list not visible")
		}
	}
	n, err := r.FlightCount(ctx)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		k.Capture.Capture(ctx, page, "no_results")
		k.Logger.Warn().Str("url", page.URL()).Msg("no flights listed")
		return 0, nil
	}
	k.Logger.Info().Int("flights", n).Msg("results loaded")
	return n, nil
}

func (r *ResultsPage) FlightCount(ctx context.Context) (int, error) {
	cards, err := r.kit.Extractor.Cards(ctx, r.page())
	if err != nil {
		return 0, err
	}
	return len(cards), nil
}

// expand finds a filter card and opens it if it has an expand icon.
func (r *ResultsPage) expand(ctx context.Context, page browser.Page, cards []string, name string) (browser.Element, error) {
	card, _ := locate.First(ctx, page, cards, r.kit.Timing.Probe)
	if card == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.kit.Capture.Capture(ctx, page, "debug_"+name+"_filter")
		return nil, fmt.Errorf("%w: %s card", ErrFilterUnavailable, name)
	}
	for _, sel := range ExpandIcons {
		icon, err := card.Query(sel)
		if err != nil {
			continue
		}
		if err := interact.ClickElement(icon); err != nil {
			r.kit.Logger.Debug().Err(err).Str("filter", name).Msg("expand click failed")
		}
		break
	}
	return card, browser.Pause(ctx, r.kit.Timing.Settle)
}

// ApplyTimeFilter narrows outbound departures to [start, end] hours.
func (r *ResultsPage) ApplyTimeFilter(ctx context.Context, start, end int) error {
	if start < 0 || end > 23 || start > end {
		return fmt.Errorf("time window %d-%d: hours must satisfy 0 <= start <= end <= 23", start, end)
	}
	k := r.kit
	page := r.page()
	if _, err := r.expand(ctx, page, TimeFilterCards, "time"); err != nil {
		return err
	}
	slider, _ := locate.First(ctx, page, Sliders, k.Timing.Probe)
	if slider == nil {
		k.Capture.Capture(ctx, page, "debug_time_slider")
		return fmt.Errorf("%w: departure slider", ErrFilterUnavailable)
	}
	handles, err := slider.QueryAll(SliderHandle)
	if err != nil {
		return fmt.Errorf("slider handles: %w", err)
	}
	if len(handles) < 2 {
		return fmt.Errorf("%w: slider has %d handles", ErrFilterUnavailable, len(handles))
	}
	want := []int{start * 60, end * 60}
	if _, err := slider.Eval(setSlider, want); err != nil {
		return fmt.Errorf("move slider: %w", err)
	}
	for i, h := range handles[:2] {
		if err := interact.ClickElement(h); err != nil {
			k.Logger.Debug().Err(err).Int("handle", i).Msg("handle click failed")
		}
	}
	for i, h := range handles[:2] {
		raw, err := h.Attribute("aria-valuenow")
		if err != nil {
			continue
		}
		got, err := strconv.Atoi(raw)
		if err != nil || got-want[i] > 1 || want[i]-got > 1 {
			k.Logger.Warn().Int("handle", i).Str("value", raw).Int("want", want[i]).Msg("slider handle did not settle")
		}
	}
	k.waitLoader(ctx, page)
	k.Logger.Info().Int("start", start).Int("end", end).Msg("time filter applied")
	return browser.Pause(ctx, k.Timing.Page)
}

func airlineCheckboxes(code, name string) []string {
	return []string{
		fmt.Sprintf(".search__filter_airlines-%s input[type='checkbox']", code),
		fmt.Sprintf("input[id*='%s'], input[value*='%s']", code, code),
		fmt.Sprintf("xpath=//label[contains(., '%s')]//input[@type='checkbox']", name),
	}
}

// ApplyAirlineFilter ticks the airline's checkbox unless it already is.
func (r *ResultsPage) ApplyAirlineFilter(ctx context.Context, code, name string) error {
	k := r.kit
	page := r.page()
	if _, err := r.expand(ctx, page, AirlineFilterCards, "airline"); err != nil {
		return err
	}
	box, _ := locate.First(ctx, page, airlineCheckboxes(code, name), k.Timing.Probe)
	if box == nil {
		k.Capture.Capture(ctx, page, "debug_airline_"+code)
		return fmt.Errorf("%w: %s checkbox", ErrFilterUnavailable, code)
	}
	checked, err := box.IsChecked()
	if err != nil {
		return fmt.Errorf("airline checkbox: %w", err)
	}
	if checked {
		k.Logger.Info().Str("airline", code).Msg("airline filter already set")
		return nil
	}
	_ = box.ScrollIntoView()
	if err := interact.ClickElement(box); err != nil {
		return fmt.Errorf("airline checkbox: %w", err)
	}
	k.waitLoader(ctx, page)
	k.Logger.Info().Str("airline", code).Msg("airline filter applied")
	return browser.Pause(ctx, k.Timing.Page)
}

// DepartureTimes returns the departure clock texts the list shows, from the
// first candidate selector that yields any.
func (r *ResultsPage) DepartureTimes(ctx context.Context) ([]string, error) {
	page := r.page()
	for _, sel := range DepartureProbes {
		els, err := page.QueryAll(ctx, sel)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		var out []string
		for _, el := range els {
			if t, err := el.Text(); err == nil && t != "" {
				out = append(out, t)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, nil
}

// VerifyDepartureTimes reports how many listed departures fall in
// [start, end] hours. It passes when at least one does.
func (r *ResultsPage) VerifyDepartureTimes(ctx context.Context, start, end int) (inside, total int, ok bool, err error) {
	times, err := r.DepartureTimes(ctx)
	if err != nil {
		return 0, 0, false, err
	}
	inside, total = analysis.WithinWindow(times, start, end)
	r.kit.Logger.Info().Int("inside", inside).Int("parsed", total).Int("start", start).Int("end", end).Msg("departure times checked")
	return inside, total, inside > 0, nil
}

// FlightDetails reads the airline and price shown on the i-th card (0-based).
func (r *ResultsPage) FlightDetails(ctx context.Context, i int) (Details, error) {
	cards, err := r.kit.Extractor.Cards(ctx, r.page())
	if err != nil {
		return Details{}, err
	}
	if i < 0 || i >= len(cards) {
		return Details{}, fmt.Errorf("flight %d: only %d listed", i, len(cards))
	}
	rec, _ := extract.Card(cards[i], i+1)
	d := Details{Airline: rec.Airline, Price: flight.NA}
	if p, ok := rec.Priced(); ok {
		d.Price = strconv.Itoa(p)
	}
	return d, nil
}

// AllPrices reads prices from the first limit cards, skipping unpriced ones.
func (r *ResultsPage) AllPrices(ctx context.Context, limit int) ([]int, error) {
	cards, err := r.kit.Extractor.Cards(ctx, r.page())
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	var prices []int
	for i, card := range cards {
		rec, _ := extract.Card(card, i+1)
		if p, ok := rec.Priced(); ok {
			prices = append(prices, p)
		}
	}
	return prices, nil
}

// VerifyPricesAscending reports whether the first limit prices are in
// non-decreasing order. Fewer than two prices pass.
func (r *ResultsPage) VerifyPricesAscending(ctx context.Context, limit int) (bool, []int, error) {
	prices, err := r.AllPrices(ctx, limit)
	if err != nil {
		return false, nil, err
	}
	ok, at := analysis.SortedAscending(prices)
	if !ok {
		r.kit.Logger.Warn().Int("position", at).Ints("prices", prices).Msg("prices out of order")
	} else {
		r.kit.Logger.Info().Int("checked", len(prices)).Msg("prices ascending")
	}
	return ok, prices, nil
}

// AirlineNames reads the airline label of every card. Cards without one
// yield an empty name.
func (r *ResultsPage) AirlineNames(ctx context.Context) ([]string, error) {
	cards, err := r.kit.Extractor.Cards(ctx, r.page())
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cards))
	for _, card := range cards {
		names = append(names, airlineOf(card))
	}
	return names, nil
}

func airlineOf(card browser.Element) string {
	for _, sel := range AirlineProbes {
		el, err := card.Query(sel)
		if err != nil {
			continue
		}
		if t, err := el.Text(); err == nil && lower(t) != "" {
			return t
		}
		if alt, err := el.Attribute("alt"); err == nil && alt != "" {
			return alt
		}
	}
	return ""
}

// VerifyAirlineShare checks that at least threshold of listed flights match
// one of keywords.
func (r *ResultsPage) VerifyAirlineShare(ctx context.Context, keywords []string, threshold float64) (float64, bool, error) {
	names, err := r.AirlineNames(ctx)
	if err != nil {
		return 0, false, err
	}
	if len(names) == 0 {
		return 0, false, errors.New("airline share: no flights listed")
	}
	share := analysis.AirlineShare(names, keywords)
	ok := share >= threshold
	ev := r.kit.Logger.Info()
	if !ok {
		ev = r.kit.Logger.Warn()
	}
	ev.Float64("share", share).Float64("threshold", threshold).Int("flights", len(names)).Msg("airline share checked")
	return share, ok, nil
}

// Extract verifies the context and reads every card into records.
func (r *ResultsPage) Extract(ctx context.Context) (extract.Report, error) {
	page := r.page()
	if err := r.kit.Tabs.Verify(ctx, page); err != nil {
		return extract.Report{}, err
	}
	return r.kit.Extractor.ExtractAll(ctx, page)
}

// Screenshot captures the current page under name.
func (r *ResultsPage) Screenshot(ctx context.Context, name string) string {
	return r.kit.Capture.Capture(ctx, r.page(), name)
}
