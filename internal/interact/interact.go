// Package interact drives action sequences against resolved elements, with
// scripted fallbacks and a single stale-handle recovery.
package interact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/browser"
	"github.com/polzovatel/flightcheck/internal/locate"
)

// maxReresolve bounds stale recovery per Apply call.
const maxReresolve = 1

type Kind int

const (
	KindClick Kind = iota
	KindClear
	KindType
	KindConfirm
	KindSetValue
)

func (k Kind) String() string {
	switch k {
	case KindClick:
		return "click"
	case KindClear:
		return "clear"
	case KindType:
		return "type"
	case KindConfirm:
		return "confirm"
	case KindSetValue:
		return "set-value"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is one atomic step. BestEffort steps log and continue when both the
// native and scripted attempts fail.
type Action struct {
	Kind       Kind
	Value      string
	BestEffort bool
}

func Click() Action            { return Action{Kind: KindClick} }
func Clear() Action            { return Action{Kind: KindClear} }
func Type(text string) Action  { return Action{Kind: KindType, Value: text} }
func Confirm() Action          { return Action{Kind: KindConfirm} }
func SetValue(v string) Action { return Action{Kind: KindSetValue, Value: v} }

// Optional marks a as best-effort.
func (a Action) Optional() Action {
	a.BestEffort = true
	return a
}

func (a Action) String() string {
	if a.Value == "" {
		return a.Kind.String()
	}
	return a.Kind.String() + "(" + a.Value + ")"
}

const (
	scrollScript = `el => el.scrollIntoView({block: 'center', inline: 'center'})`
	clickScript  = `el => el.click()`
	valueScript  = `(el, v) => {
		el.value = v;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}`
	appendScript = `(el, v) => {
		el.value = (el.value || '') + v;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}`
	enterScript = `el => {
		for (const type of ['keydown', 'keypress', 'keyup']) {
			el.dispatchEvent(new KeyboardEvent(type, { key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true }));
		}
	}`
)

// Sequencer applies actions. Resolver is used for stale recovery only.
type Sequencer struct {
	Resolver *locate.Resolver
	// Settle is observed after scrolling, before the first action.
	Settle time.Duration
	// Timeout bounds re-resolution of a field after a stale fault.
	Timeout time.Duration
	Logger  zerolog.Logger
}

func NewSequencer(r *locate.Resolver, settle, timeout time.Duration, logger zerolog.Logger) *Sequencer {
	return &Sequencer{
		Resolver: r,
		Settle:   settle,
		Timeout:  timeout,
		Logger:   logger.With().Str("comp", "interact").Logger(),
	}
}

// Run resolves field and applies actions to it. It returns the element the
// sequence finally succeeded on.
func (s *Sequencer) Run(ctx context.Context, page browser.Page, field locate.Field, actions ...Action) (browser.Element, error) {
	out, err := s.Resolver.Resolve(ctx, page, field, s.Timeout)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, page, field, out.Element, actions...)
}

// Apply runs actions on el. A stale handle triggers one re-resolution of field
// and a restart from the first action; a second stale fault is reported as a
// *locate.NotFoundError.
func (s *Sequencer) Apply(ctx context.Context, page browser.Page, field locate.Field, el browser.Element, actions ...Action) (browser.Element, error) {
	for attempt := 0; ; attempt++ {
		err := s.sequence(ctx, el, actions)
		if err == nil {
			return el, nil
		}
		if !browser.IsStale(err) {
			return nil, fmt.Errorf("%s: %w", field.Name, err)
		}
		if attempt >= maxReresolve {
			artifact := ""
			if s.Resolver != nil && s.Resolver.Capture != nil {
				artifact = s.Resolver.Capture.Capture(ctx, page, "debug_"+field.Name+"_stale")
			}
			s.Logger.Error().Err(err).Str("field", field.Name).Msg("element stale again after re-resolution")
			return nil, &locate.NotFoundError{Field: field.Name, Artifact: artifact, Err: err}
		}
		s.Logger.Warn().Str("field", field.Name).Msg("stale element, re-resolving")
		if s.Resolver == nil {
			return nil, &locate.NotFoundError{Field: field.Name, Err: err}
		}
		out, rerr := s.Resolver.Resolve(ctx, page, field, s.Timeout)
		if rerr != nil {
			return nil, rerr
		}
		el = out.Element
	}
}

func (s *Sequencer) sequence(ctx context.Context, el browser.Element, actions []Action) error {
	if err := s.centre(el); err != nil {
		return err
	}
	if err := browser.Pause(ctx, s.Settle); err != nil {
		return err
	}
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.do(el, a)
		switch {
		case err == nil:
		case browser.IsStale(err):
			return err
		case a.BestEffort:
			s.Logger.Warn().Err(err).Str("action", a.String()).Msg("best-effort action failed")
		default:
			return fmt.Errorf("%s: %w", a, err)
		}
	}
	return nil
}

// centre scrolls el to the middle of the viewport. Only a stale handle is an
// error here; a failed scroll still lets the actions try.
func (s *Sequencer) centre(el browser.Element) error {
	_, err := el.Eval(scrollScript, nil)
	if err == nil {
		return nil
	}
	if browser.IsStale(err) {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		if browser.IsStale(err) {
			return err
		}
		s.Logger.Debug().Err(err).Msg("scroll into view failed")
	}
	return nil
}

func (s *Sequencer) do(el browser.Element, a Action) error {
	nerr := native(el, a)
	if nerr == nil {
		return nil
	}
	if browser.IsStale(nerr) {
		return nerr
	}
	s.Logger.Debug().Err(nerr).Str("action", a.String()).Msg("native action failed, using script")
	serr := scripted(el, a)
	if serr == nil {
		return nil
	}
	if browser.IsStale(serr) {
		return serr
	}
	return fmt.Errorf("native: %v; script: %w", nerr, serr)
}

func native(el browser.Element, a Action) error {
	switch a.Kind {
	case KindClick:
		return el.Click()
	case KindClear:
		return el.Fill("")
	case KindType:
		return el.Type(a.Value)
	case KindConfirm:
		return el.Press("Enter")
	case KindSetValue:
		return el.Fill(a.Value)
	}
	return fmt.Errorf("unknown action %v", a.Kind)
}

func scripted(el browser.Element, a Action) error {
	var err error
	switch a.Kind {
	case KindClick:
		_, err = el.Eval(clickScript, nil)
	case KindClear:
		_, err = el.Eval(valueScript, "")
	case KindType:
		_, err = el.Eval(appendScript, a.Value)
	case KindConfirm:
		_, err = el.Eval(enterScript, nil)
	case KindSetValue:
		_, err = el.Eval(valueScript, a.Value)
	default:
		err = errors.ErrUnsupported
	}
	return err
}

// ClickElement clicks el natively, falling back to a scripted click.
func ClickElement(el browser.Element) error {
	err := el.Click()
	if err == nil || browser.IsStale(err) {
		return err
	}
	_, err = el.Eval(clickScript, nil)
	return err
}
