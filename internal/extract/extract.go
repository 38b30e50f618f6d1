// Package extract reads flight result cards into records, one field at a
// time, degrading unreadable fields to sentinels instead of failing.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/browser"
	"github.com/polzovatel/flightcheck/internal/flight"
)

// Card location, tried in order.
var (
	CardPatterns = []string{
		"div.flight-item",
		"div[id^='flight-']",
		"[class*='flight-item']",
	}
	ContainerPatterns = []string{
		".flight-list-body",
		"[class*='flight-list-body']",
	}
	ContainerItems = "div.flight-item, div[id^='flight-']"
	SummaryCards   = "div[class*='summary-airports']"
)

// Card-local selector chains per field.
var (
	DepartureSelectors = []string{
		"[data-testid='departureTime']",
		".flight-departure-time",
		"[data-testid*='departureTime']",
		"xpath=.//div[contains(@class, 'flight-departure-time')]",
	}
	ArrivalSelectors = []string{
		"[data-testid='arrivalTime']",
		".flight-arrival-time",
		"[data-testid*='arrivalTime']",
		"xpath=.//div[contains(@class, 'arrival-time')]",
	}
	AirlineSelectors = []string{
		"[data-testid='AJet'], [data-testid='THY'], [data-testid='Pegasus'], [data-testid='AnadoluJet']",
		".summary-marketing-airlines",
		"[class*='summary-marketing-airlines']",
		"xpath=.//div[@data-testid and (contains(@data-testid, 'AJet') or contains(@data-testid, 'THY') or contains(@data-testid, 'Pegasus'))]",
	}
	PriceSelectors = []string{
		"[data-price]",
		".summary-average-price[data-price]",
		".money-int",
		"[class*='money-int']",
		"[class*='money']",
		"xpath=.//div[contains(@class, 'summary-average-price')]//span[contains(@class, 'money-int')]",
	}
	ConnectionSelectors = []string{
		"[data-testid='transferStateDirect']",
		"[data-testid*='transferState']",
		".summary-transit",
		"[class*='summary-transit']",
	}
	DurationSelectors = []string{
		"[data-testid='departureFlightTime']",
		"[data-testid*='FlightTime']",
		"[data-testid*='duration']",
	}
)

// Report is the outcome of one extraction pass. Degraded counts sentinel
// substitutions per field across all cards, kept or not.
type Report struct {
	Records   []flight.Record
	Cards     int
	Discarded int
	Degraded  map[string]int
}

func (r Report) String() string {
	return fmt.Sprintf("%d records from %d cards (%d discarded, degraded %v)", len(r.Records), r.Cards, r.Discarded, r.Degraded)
}

type Extractor struct {
	Logger zerolog.Logger
}

func New(logger zerolog.Logger) *Extractor {
	return &Extractor{Logger: logger.With().Str("comp", "extract").Logger()}
}

// Cards locates result cards: direct item patterns, then items inside the
// list container, then the generic summary card.
func (x *Extractor) Cards(ctx context.Context, page browser.Page) ([]browser.Element, error) {
	for _, sel := range CardPatterns {
		cards, err := page.QueryAll(ctx, sel)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if len(cards) > 0 {
			x.Logger.Debug().Str("pattern", sel).Int("cards", len(cards)).Msg("cards found")
			return cards, nil
		}
	}
	for _, sel := range ContainerPatterns {
		boxes, err := page.QueryAll(ctx, sel)
		if err != nil || len(boxes) == 0 {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		cards, err := boxes[0].QueryAll(ContainerItems)
		if err == nil && len(cards) > 0 {
			x.Logger.Debug().Str("container", sel).Int("cards", len(cards)).Msg("cards found in list body")
			return cards, nil
		}
	}
	cards, err := page.QueryAll(ctx, SummaryCards)
	if err != nil {
		return nil, fmt.Errorf("summary cards: %w", err)
	}
	x.Logger.Warn().Int("cards", len(cards)).Msg("no flight-item cards, using summary cards")
	return cards, nil
}

// ExtractAll reads every card on page. Only cancellation and a failure to
// list cards are errors.
func (x *Extractor) ExtractAll(ctx context.Context, page browser.Page) (Report, error) {
	cards, err := x.Cards(ctx, page)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Cards: len(cards), Degraded: make(map[string]int)}
	for i, card := range cards {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rec, missing := Card(card, i+1)
		for _, f := range missing {
			rep.Degraded[f]++
		}
		if !rec.Retained() {
			rep.Discarded++
			x.Logger.Debug().Int("card", i+1).Msg("card discarded, no departure time or airline")
			continue
		}
		rep.Records = append(rep.Records, rec)
		if (i+1)%10 == 0 {
			x.Logger.Debug().Int("cards", i+1).Msg("extraction progress")
		}
	}
	x.Logger.Info().Int("records", len(rep.Records)).Int("cards", rep.Cards).Int("discarded", rep.Discarded).Msg("extraction done")
	return rep, nil
}

// Card reads one card into a record with the given index, and names the
// fields that fell back to their sentinel.
func Card(card browser.Element, index int) (flight.Record, []string) {
	var missing []string
	take := func(name string, v string, ok bool, sentinel string) string {
		if !ok {
			missing = append(missing, name)
			return sentinel
		}
		return v
	}

	rec := flight.Record{Index: index}
	v, ok := firstText(card, DepartureSelectors, isClock)
	rec.DepartureTime = take("departure_time", v, ok, flight.NA)
	v, ok = firstText(card, ArrivalSelectors, isClock)
	rec.ArrivalTime = take("arrival_time", v, ok, flight.NA)
	v, ok = firstText(card, AirlineSelectors, isAirline)
	rec.Airline = take("airline", v, ok, flight.UnknownAirline)

	if p, ok := price(card); ok {
		rec.Price = &p
	} else {
		missing = append(missing, "price")
	}

	v, ok = firstText(card, ConnectionSelectors, nonEmpty)
	rec.Connection = take("connection", NormalizeConnection(v), ok, flight.Direct)
	v, ok = firstText(card, DurationSelectors, nonEmpty)
	rec.Duration = take("duration", v, ok, flight.NA)
	return rec, missing
}

// firstText returns the first trimmed text under card that accept allows.
func firstText(card browser.Element, selectors []string, accept func(string) bool) (string, bool) {
	for _, sel := range selectors {
		el, err := card.Query(sel)
		if err != nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); accept(text) {
			return text, true
		}
	}
	return "", false
}

func price(card browser.Element) (int, bool) {
	for _, sel := range PriceSelectors {
		el, err := card.Query(sel)
		if err != nil {
			continue
		}
		if attr, err := el.Attribute("data-price"); err == nil && attr != "" {
			if f, err := strconv.ParseFloat(strings.TrimSpace(attr), 64); err == nil {
				return int(f), true
			}
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		if p := ParsePrice(text); p != nil {
			return *p, true
		}
	}
	return 0, false
}

func isClock(s string) bool  { return strings.Contains(s, ":") }
func nonEmpty(s string) bool { return s != "" }
func isAirline(s string) bool {
	return s != "" && !strings.EqualFold(s, flight.UnknownAirline)
}

var digits = regexp.MustCompile(`\d+`)

// ParsePrice strips grouping punctuation from currency text and parses the
// first digit run. Text without digits yields nil.
func ParsePrice(text string) *int {
	clean := strings.NewReplacer(".", "", ",", "").Replace(text)
	run := digits.FindString(clean)
	if run == "" {
		return nil
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return nil
	}
	return &n
}

var (
	directWords   = []string{"direkt", "direct", "aktarmasız", "nonstop", "non-stop"}
	transferWords = []string{"aktarma", "transfer", "stop"}
	zeroTransfers = regexp.MustCompile(`^0\s*(aktarma|transfer|stop)`)
)

// NormalizeConnection maps direct text to Direct and transfer text to
// "1 Stop". Anything else passes through trimmed.
func NormalizeConnection(text string) string {
	t := strings.TrimSpace(text)
	low := strings.ToLower(t)
	if t == "" {
		return ""
	}
	if containsAny(low, directWords) || zeroTransfers.MatchString(low) {
		return flight.Direct
	}
	if containsAny(low, transferWords) {
		return "1 Stop"
	}
	return t
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
