// Package locate turns logical fields into live elements by walking an
// ordered chain of locator candidates, then a positional fallback.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/browser"
	"github.com/polzovatel/flightcheck/internal/diag"
)

const defaultCandidateWait = 3 * time.Second

// ErrStructuralNotFound means no declared locator matched: the page markup
// most likely changed. It is not retryable.
var ErrStructuralNotFound = errors.New("structural not found")

// NotFoundError reports which field failed and where its artifact went.
type NotFoundError struct {
	Field    string
	Artifact string
	Err      error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("locate %s: %v", e.Field, ErrStructuralNotFound)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Artifact != "" {
		msg += " (screenshot " + e.Artifact + ")"
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool { return target == ErrStructuralNotFound }

func (e *NotFoundError) Unwrap() error { return e.Err }

// Strategy is how a candidate pattern is matched.
type Strategy int

const (
	ExactAttr Strategy = iota
	AttrContains
	TextContains
	CSS
	XPath
)

func (s Strategy) String() string {
	switch s {
	case ExactAttr:
		return "exact-attr"
	case AttrContains:
		return "attr-contains"
	case TextContains:
		return "text-contains"
	case CSS:
		return "css"
	case XPath:
		return "xpath"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Candidate is one way of finding an element.
type Candidate struct {
	Strategy Strategy
	Tag      string // optional element name for attribute and text strategies
	Attr     string
	Pattern  string
}

func Attr(tag, attr, value string) Candidate {
	return Candidate{Strategy: ExactAttr, Tag: tag, Attr: attr, Pattern: value}
}

func AttrHas(tag, attr, part string) Candidate {
	return Candidate{Strategy: AttrContains, Tag: tag, Attr: attr, Pattern: part}
}

func Text(tag, text string) Candidate {
	return Candidate{Strategy: TextContains, Tag: tag, Pattern: text}
}

func Query(css string) Candidate { return Candidate{Strategy: CSS, Pattern: css} }

func Path(xpath string) Candidate { return Candidate{Strategy: XPath, Pattern: xpath} }

// Selector renders the candidate as a playwright selector.
func (c Candidate) Selector() string {
	switch c.Strategy {
	case ExactAttr:
		return fmt.Sprintf("%s[%s=%s]", c.Tag, c.Attr, quote(c.Pattern))
	case AttrContains:
		return fmt.Sprintf("%s[%s*=%s]", c.Tag, c.Attr, quote(c.Pattern))
	case TextContains:
		tag := c.Tag
		if tag == "" {
			tag = "*"
		}
		return fmt.Sprintf("xpath=//%s[contains(text(), %s)]", tag, xpathLiteral(c.Pattern))
	case XPath:
		return "xpath=" + c.Pattern
	default:
		return c.Pattern
	}
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	switch {
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return "concat(" + strings.Join(parts, `, '"', `) + ")"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// Positional picks the Index-th (zero based) match of Selector in DOM order.
type Positional struct {
	Selector string
	Index    int
}

// Field is a named slot of the page with its immutable candidate chain.
type Field struct {
	Name       string
	Candidates []Candidate
	Fallback   Positional
}

// Outcome is a resolved field. Index is the winning candidate; Positional is
// set when the fallback produced the element instead.
type Outcome struct {
	Field      string
	Element    browser.Element
	Index      int
	Positional bool
}

// Resolver walks field chains against a page.
type Resolver struct {
	// CandidateWait caps the wait for each single candidate.
	CandidateWait time.Duration
	Capture       diag.Capturer
	Logger        zerolog.Logger
}

func NewResolver(wait time.Duration, capture diag.Capturer, logger zerolog.Logger) *Resolver {
	if capture == nil {
		capture = diag.Discard{}
	}
	return &Resolver{
		CandidateWait: wait,
		Capture:       capture,
		Logger:        logger.With().Str("comp", "locate").Logger(),
	}
}

// Resolve returns exactly one live element for f or a *NotFoundError. A
// total failure captures a screenshot first; callers treat it as fatal.
func (r *Resolver) Resolve(ctx context.Context, page browser.Page, f Field, timeout time.Duration) (Outcome, error) {
	out, err := r.Lookup(ctx, page, f, timeout)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}
	artifact := ""
	if r.Capture != nil {
		artifact = r.Capture.Capture(ctx, page, "debug_"+f.Name+"_not_found")
	}
	r.Logger.Error().Str("field", f.Name).Str("artifact", artifact).Msg("field not found")
	return Outcome{}, &NotFoundError{Field: f.Name, Artifact: artifact, Err: err}
}

// Lookup is Resolve without the diagnostic artifact, for best-effort chains.
func (r *Resolver) Lookup(ctx context.Context, page browser.Page, f Field, timeout time.Duration) (Outcome, error) {
	wait := r.CandidateWait
	if wait <= 0 {
		wait = defaultCandidateWait
	}
	if timeout > 0 && timeout < wait {
		wait = timeout
	}
	var last error
	for i, c := range f.Candidates {
		el, err := page.WaitFor(ctx, c.Selector(), wait)
		if err == nil {
			r.Logger.Debug().Str("field", f.Name).Int("candidate", i+1).Str("strategy", c.Strategy.String()).Msg("resolved")
			return Outcome{Field: f.Name, Element: el, Index: i}, nil
		}
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		last = err
		r.Logger.Debug().Err(err).Str("field", f.Name).Int("candidate", i+1).Msg("candidate missed")
	}

	if f.Fallback.Selector != "" {
		els, err := page.QueryAll(ctx, f.Fallback.Selector)
		switch {
		case err != nil:
			last = err
		case f.Fallback.Index >= 0 && f.Fallback.Index < len(els):
			r.Logger.Debug().Str("field", f.Name).Int("offset", f.Fallback.Index).Msg("resolved by position")
			return Outcome{Field: f.Name, Element: els[f.Fallback.Index], Index: len(f.Candidates), Positional: true}, nil
		default:
			last = fmt.Errorf("%w: %d matches for %s, need index %d", browser.ErrNotFound, len(els), f.Fallback.Selector, f.Fallback.Index)
		}
	}
	if last == nil {
		last = fmt.Errorf("%w: field %s declares no locators", browser.ErrNotFound, f.Name)
	}
	return Outcome{}, last
}

// First waits for the first of selectors to show up, each for at most wait.
// It returns the matching index, or -1.
func First(ctx context.Context, page browser.Page, selectors []string, wait time.Duration) (browser.Element, int) {
	for i, sel := range selectors {
		if ctx.Err() != nil {
			return nil, -1
		}
		if el, err := page.WaitFor(ctx, sel, wait); err == nil {
			return el, i
		}
	}
	return nil, -1
}
