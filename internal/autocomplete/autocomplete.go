// Package autocomplete picks an entry from a transient suggestion list after
// text was typed into a search input.
package autocomplete

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/browser"
	"github.com/polzovatel/flightcheck/internal/interact"
)

const defaultWait = 3 * time.Second

// Containers are the structural patterns a suggestion list is looked up by.
var Containers = []string{
	"[role='listbox']",
	"[class*='autocomplete']",
	"ul[role='listbox']",
	"div[class*='autocomplete']",
}

// Items selects the entries of a suggestion container.
const Items = "li, div[role='option'], [class*='option'], [class*='item']"

// Synonyms groups alternate names of places the site lists under another
// spelling or airport name.
var Synonyms = [][]string{
	{"lefkoşa", "lefkosa", "nicosia", "ercan"},
	{"ankara", "esenboğa", "esenboga"},
}

// Kind tells which path produced the selection.
type Kind int

const (
	Matched Kind = iota
	FirstItem
	EnterKey
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case FirstItem:
		return "first-item"
	default:
		return "enter-key"
	}
}

type Result struct {
	Kind Kind
	Text string
}

type Disambiguator struct {
	Containers []string
	Items      string
	Synonyms   [][]string
	// Wait caps the wait for each container pattern.
	Wait   time.Duration
	Logger zerolog.Logger
}

func New(wait time.Duration, logger zerolog.Logger) *Disambiguator {
	return &Disambiguator{
		Containers: Containers,
		Items:      Items,
		Synonyms:   Synonyms,
		Wait:       wait,
		Logger:     logger.With().Str("comp", "autocomplete").Logger(),
	}
}

// Select chooses the suggestion for query. The first item whose text matches
// wins, else the first item, else Enter is sent to input. It never fails.
func (d *Disambiguator) Select(ctx context.Context, page browser.Page, input browser.Element, query string, timeout time.Duration) Result {
	wait := d.Wait
	if wait <= 0 {
		wait = defaultWait
	}
	if timeout > 0 && timeout < wait {
		wait = timeout
	}

	var items []browser.Element
	for _, sel := range d.Containers {
		if ctx.Err() != nil {
			break
		}
		box, err := page.WaitFor(ctx, sel, wait)
		if err != nil {
			continue
		}
		items, err = box.QueryAll(d.Items)
		if err != nil {
			d.Logger.Debug().Err(err).Str("container", sel).Msg("reading suggestions failed")
			continue
		}
		d.Logger.Debug().Str("container", sel).Int("items", len(items)).Msg("suggestion list found")
		break
	}

	for _, it := range items {
		text, err := it.Text()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if !d.Matches(text, query) {
			continue
		}
		if err := interact.ClickElement(it); err != nil {
			d.Logger.Debug().Err(err).Str("item", text).Msg("suggestion click failed")
			continue
		}
		d.Logger.Info().Str("query", query).Str("item", text).Msg("suggestion selected")
		return Result{Kind: Matched, Text: text}
	}

	if len(items) > 0 {
		text, _ := items[0].Text()
		text = strings.TrimSpace(text)
		if err := interact.ClickElement(items[0]); err == nil {
			d.Logger.Info().Str("query", query).Str("item", text).Msg("first suggestion selected")
			return Result{Kind: FirstItem, Text: text}
		}
	}

	if err := input.Press("Enter"); err != nil {
		d.Logger.Warn().Err(err).Str("query", query).Msg("confirm keystroke failed")
	} else {
		d.Logger.Info().Str("query", query).Msg("no suggestion picked, confirmed with Enter")
	}
	return Result{Kind: EnterKey}
}

// Matches reports whether item answers query: containment either way, or
// both naming the same place in a synonym group.
func (d *Disambiguator) Matches(item, query string) bool {
	it, q := fold(item), fold(query)
	if it == "" || q == "" {
		return false
	}
	if strings.Contains(it, q) || strings.Contains(q, it) {
		return true
	}
	for _, group := range d.Synonyms {
		if !containsAny(q, group) {
			continue
		}
		if containsAny(it, group) {
			return true
		}
	}
	return false
}

func containsAny(s string, aliases []string) bool {
	for _, a := range aliases {
		if a = fold(a); a != "" && strings.Contains(s, a) {
			return true
		}
	}
	return false
}

var dotless = strings.NewReplacer("\u0307", "", "ı", "i")

// fold lowercases s so that Turkish dotted and dotless I compare equal to i.
func fold(s string) string {
	return dotless.Replace(strings.ToLower(strings.TrimSpace(s)))
}
