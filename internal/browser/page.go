package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

type pwPage struct {
	page   playwright.Page
	nav    time.Duration
	action time.Duration
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Title() (string, error) {
	t, err := p.page.Title()
	return t, wrap(err)
}

func (p *pwPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.nav.Milliseconds())),
	})
	return wrap(err)
}

func (p *pwPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = p.action
	}
	h, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, wrap(err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return &pwElement{handle: h, action: p.action}, nil
}

func (p *pwPage) WaitGone(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = p.action
	}
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateDetached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return wrap(err)
}

func (p *pwPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hs, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, wrap(err)
	}
	return wrapHandles(hs, p.action), nil
}

func (p *pwPage) Eval(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		val any
		err error
	)
	if arg == nil {
		val, err = p.page.Evaluate(script)
	} else {
		val, err = p.page.Evaluate(script, arg)
	}
	return val, wrap(err)
}

func (p *pwPage) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("screenshot dir: %w", err)
	}
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(false),
	})
	return wrap(err)
}

func (p *pwPage) BringToFront() error {
	return wrap(p.page.BringToFront())
}

func (p *pwPage) Close() error {
	return wrap(p.page.Close())
}

func (p *pwPage) IsClosed() bool {
	return p.page.IsClosed()
}

type pwElement struct {
	handle playwright.ElementHandle
	action time.Duration
}

func wrapHandles(hs []playwright.ElementHandle, action time.Duration) []Element {
	out := make([]Element, 0, len(hs))
	for _, h := range hs {
		if h == nil {
			continue
		}
		out = append(out, &pwElement{handle: h, action: action})
	}
	return out
}

func (e *pwElement) timeout() *float64 {
	return playwright.Float(float64(e.action.Milliseconds()))
}

func (e *pwElement) Click() error {
	return wrap(e.handle.Click(playwright.ElementHandleClickOptions{Timeout: e.timeout()}))
}

func (e *pwElement) Fill(value string) error {
	return wrap(e.handle.Fill(value, playwright.ElementHandleFillOptions{Timeout: e.timeout()}))
}

func (e *pwElement) Type(text string) error {
	return wrap(e.handle.Type(text, playwright.ElementHandleTypeOptions{
		Delay:   playwright.Float(40),
		Timeout: e.timeout(),
	}))
}

func (e *pwElement) Press(key string) error {
	return wrap(e.handle.Press(key, playwright.ElementHandlePressOptions{Timeout: e.timeout()}))
}

func (e *pwElement) ScrollIntoView() error {
	return wrap(e.handle.ScrollIntoViewIfNeeded(playwright.ElementHandleScrollIntoViewIfNeededOptions{
		Timeout: e.timeout(),
	}))
}

func (e *pwElement) Text() (string, error) {
	t, err := e.handle.InnerText()
	if err == nil {
		return t, nil
	}
	if werr := wrap(err); IsStale(werr) {
		return "", werr
	}
	// innerText is unavailable on some SVG/non-HTML nodes.
	t, err = e.handle.TextContent()
	return t, wrap(err)
}

func (e *pwElement) Attribute(name string) (string, error) {
	v, err := e.handle.GetAttribute(name)
	return v, wrap(err)
}

func (e *pwElement) IsVisible() (bool, error) {
	v, err := e.handle.IsVisible()
	return v, wrap(err)
}

func (e *pwElement) IsChecked() (bool, error) {
	v, err := e.handle.IsChecked()
	return v, wrap(err)
}

func (e *pwElement) Query(selector string) (Element, error) {
	h, err := e.handle.QuerySelector(selector)
	if err != nil {
		return nil, wrap(err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return &pwElement{handle: h, action: e.action}, nil
}

func (e *pwElement) QueryAll(selector string) ([]Element, error) {
	hs, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, wrap(err)
	}
	return wrapHandles(hs, e.action), nil
}

func (e *pwElement) Eval(script string, arg any) (any, error) {
	var (
		val any
		err error
	)
	if arg == nil {
		val, err = e.handle.Evaluate(script)
	} else {
		val, err = e.handle.Evaluate(script, arg)
	}
	return val, wrap(err)
}
