// Package browsertest provides in-memory fakes of the browser interfaces.
//
// Selectors are matched literally: a Page or Element answers a selector only
// when a test registered elements under exactly that string.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/polzovatel/flightcheck/internal/browser"
)

// Element is a scripted DOM node.
type Element struct {
	Label    string
	Content  string
	Value    string
	Attrs    map[string]string
	Hidden   bool
	Checked  bool
	Detached bool
	Children map[string][]*Element

	// NativeErr fails the named native operation (click, fill, type, press, scroll).
	NativeErr map[string]error
	// ScriptErr fails every Eval call.
	ScriptErr error
	// EvalResult is returned by successful Eval calls.
	EvalResult any

	Calls []string
}

// NewElement returns a visible element with the given text.
func NewElement(label, text string) *Element {
	return &Element{Label: label, Content: text}
}

// WithAttr sets an attribute and returns the element.
func (e *Element) WithAttr(name, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[name] = value
	return e
}

// WithChild registers children under selector and returns the element.
func (e *Element) WithChild(selector string, children ...*Element) *Element {
	if e.Children == nil {
		e.Children = make(map[string][]*Element)
	}
	e.Children[selector] = append(e.Children[selector], children...)
	return e
}

// Called reports whether a call with the given prefix was recorded.
func (e *Element) Called(prefix string) bool {
	for _, c := range e.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (e *Element) native(op string) error {
	if e.Detached {
		return fmt.Errorf("%s: %w", op, browser.ErrStale)
	}
	if err := e.NativeErr[op]; err != nil {
		return err
	}
	return nil
}

func (e *Element) Click() error {
	if err := e.native("click"); err != nil {
		return err
	}
	e.Calls = append(e.Calls, "click")
	return nil
}

func (e *Element) Fill(value string) error {
	if err := e.native("fill"); err != nil {
		return err
	}
	e.Value = value
	e.Calls = append(e.Calls, "fill:"+value)
	return nil
}

func (e *Element) Type(text string) error {
	if err := e.native("type"); err != nil {
		return err
	}
	e.Value += text
	e.Calls = append(e.Calls, "type:"+text)
	return nil
}

func (e *Element) Press(key string) error {
	if err := e.native("press"); err != nil {
		return err
	}
	e.Calls = append(e.Calls, "press:"+key)
	return nil
}

func (e *Element) ScrollIntoView() error {
	if err := e.native("scroll"); err != nil {
		return err
	}
	e.Calls = append(e.Calls, "scroll")
	return nil
}

func (e *Element) Text() (string, error) {
	if e.Detached {
		return "", browser.ErrStale
	}
	return e.Content, nil
}

func (e *Element) Attribute(name string) (string, error) {
	if e.Detached {
		return "", browser.ErrStale
	}
	return e.Attrs[name], nil
}

func (e *Element) IsVisible() (bool, error) {
	if e.Detached {
		return false, browser.ErrStale
	}
	return !e.Hidden, nil
}

func (e *Element) IsChecked() (bool, error) {
	if e.Detached {
		return false, browser.ErrStale
	}
	return e.Checked, nil
}

func (e *Element) Query(selector string) (browser.Element, error) {
	if e.Detached {
		return nil, browser.ErrStale
	}
	if cs := e.Children[selector]; len(cs) > 0 {
		return cs[0], nil
	}
	return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, selector)
}

func (e *Element) QueryAll(selector string) ([]browser.Element, error) {
	if e.Detached {
		return nil, browser.ErrStale
	}
	return asElements(e.Children[selector]), nil
}

func (e *Element) Eval(script string, arg any) (any, error) {
	if e.Detached {
		return nil, browser.ErrStale
	}
	if e.ScriptErr != nil {
		return nil, e.ScriptErr
	}
	e.Calls = append(e.Calls, "eval")
	if s, ok := arg.(string); ok {
		e.Value = s
	}
	return e.EvalResult, nil
}

func asElements(in []*Element) []browser.Element {
	out := make([]browser.Element, 0, len(in))
	for _, e := range in {
		out = append(out, e)
	}
	return out
}

// Page is a scripted browsing context.
type Page struct {
	Address  string
	Heading  string
	Elements map[string][]*Element
	// Stuck lists selectors WaitGone treats as still present.
	Stuck map[string]bool
	// EvalFunc answers page-level Eval calls; nil returns (nil, nil).
	EvalFunc func(script string, arg any) (any, error)
	// BeforeWait runs before every WaitFor lookup.
	BeforeWait func(p *Page, selector string)
	// GotoErr fails every Goto call.
	GotoErr error

	Waited  []string
	Gotos   []string
	Shots   []string
	Scripts []string
	Closed  bool
	Fronted int
}

// NewPage returns an empty page at url.
func NewPage(url string) *Page {
	return &Page{Address: url, Elements: make(map[string][]*Element)}
}

// Add registers elements under selector and returns the page.
func (p *Page) Add(selector string, elems ...*Element) *Page {
	if p.Elements == nil {
		p.Elements = make(map[string][]*Element)
	}
	p.Elements[selector] = append(p.Elements[selector], elems...)
	return p
}

// WaitCount reports how many times selector was waited for.
func (p *Page) WaitCount(selector string) int {
	n := 0
	for _, s := range p.Waited {
		if s == selector {
			n++
		}
	}
	return n
}

func (p *Page) URL() string { return p.Address }

func (p *Page) Title() (string, error) { return p.Heading, nil }

func (p *Page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Gotos = append(p.Gotos, url)
	if p.GotoErr != nil {
		return p.GotoErr
	}
	p.Address = url
	return nil
}

func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.Waited = append(p.Waited, selector)
	if p.BeforeWait != nil {
		p.BeforeWait(p, selector)
	}
	for _, e := range p.Elements[selector] {
		if !e.Hidden {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s after %s", browser.ErrNotFound, selector, timeout)
}

func (p *Page) WaitGone(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Stuck[selector] {
		return fmt.Errorf("%w: %s still present after %s", browser.ErrNotFound, selector, timeout)
	}
	return nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return asElements(p.Elements[selector]), nil
}

func (p *Page) Eval(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.Scripts = append(p.Scripts, script)
	if p.EvalFunc != nil {
		return p.EvalFunc(script, arg)
	}
	return nil, nil
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Shots = append(p.Shots, path)
	return nil
}

func (p *Page) BringToFront() error {
	p.Fronted++
	return nil
}

func (p *Page) Close() error {
	p.Closed = true
	return nil
}

func (p *Page) IsClosed() bool { return p.Closed }

// Contexts is a scripted browsing-context set.
type Contexts struct {
	List    []*Page
	Current browser.Page
}

// NewContexts returns a set whose first page is active.
func NewContexts(pages ...*Page) *Contexts {
	c := &Contexts{List: pages}
	if len(pages) > 0 {
		c.Current = pages[0]
	}
	return c
}

func (c *Contexts) Pages() []browser.Page {
	out := make([]browser.Page, 0, len(c.List))
	for _, p := range c.List {
		if !p.Closed {
			out = append(out, p)
		}
	}
	return out
}

func (c *Contexts) Active() browser.Page { return c.Current }

func (c *Contexts) Activate(p browser.Page) error {
	if err := p.BringToFront(); err != nil {
		return err
	}
	c.Current = p
	return nil
}
