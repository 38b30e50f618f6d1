package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	defaultNavTimeout = 30 * time.Second
	defaultActionTime = 10 * time.Second
)

// Page is one browsing context (window or tab) of the session.
type Page interface {
	URL() string
	Title() (string, error)
	Goto(ctx context.Context, url string) error
	// WaitFor blocks until selector matches a visible element or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// WaitGone blocks until selector matches nothing or timeout elapses.
	WaitGone(ctx context.Context, selector string, timeout time.Duration) error
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Eval(ctx context.Context, script string, arg any) (any, error)
	Screenshot(ctx context.Context, path string) error
	BringToFront() error
	Close() error
	IsClosed() bool
}

// Element is a live handle to one DOM node. Operations on a handle whose node
// left the document fail with ErrStale.
type Element interface {
	Click() error
	Fill(value string) error
	Type(text string) error
	Press(key string) error
	ScrollIntoView() error
	Text() (string, error)
	Attribute(name string) (string, error)
	IsVisible() (bool, error)
	IsChecked() (bool, error)
	// Query returns the first descendant matching selector, or ErrNotFound.
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
	// Eval runs script as a function receiving the element and arg.
	Eval(script string, arg any) (any, error)
}

// Contexts is the set of open browsing contexts plus the one that is active.
type Contexts interface {
	Pages() []Page
	Active() Page
	Activate(p Page) error
}

// Options configure the launcher and the session it creates.
type Options struct {
	Browser        string // chromium or firefox
	Headless       bool
	Width          int
	Height         int
	ActionTimeout  time.Duration
	NavTimeout     time.Duration
	IgnoreHTTPSErr bool
}

// Launcher owns playwright lifecycle.
type Launcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
}

func NewLauncher(ctx context.Context, opts Options) (*Launcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	var bt playwright.BrowserType
	switch strings.ToLower(strings.TrimSpace(opts.Browser)) {
	case "firefox":
		bt = pw.Firefox
	case "", "chrome", "chromium":
		bt = pw.Chromium
	default:
		_ = pw.Stop()
		return nil, fmt.Errorf("unsupported browser %q", opts.Browser)
	}
	args := []string{
		"--disable-dev-shm-usage",
		"--no-sandbox",
	}
	if bt == pw.Chromium && opts.Width > 0 && opts.Height > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", opts.Width, opts.Height))
	}
	browser, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     args,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch %s: %w", bt.Name(), err)
	}
	return &Launcher{pw: pw, browser: browser, opts: opts}, nil
}

// NewSession opens a fresh browser context with one blank page.
func (l *Launcher) NewSession(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(l.opts.IgnoreHTTPSErr),
	}
	if l.opts.Width > 0 && l.opts.Height > 0 {
		opts.Viewport = &playwright.Size{Width: l.opts.Width, Height: l.opts.Height}
	}
	bctx, err := l.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	nav := l.opts.NavTimeout
	if nav <= 0 {
		nav = defaultNavTimeout
	}
	action := l.opts.ActionTimeout
	if action <= 0 {
		action = defaultActionTime
	}
	bctx.SetDefaultTimeout(float64(action.Milliseconds()))
	bctx.SetDefaultNavigationTimeout(float64(nav.Milliseconds()))

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	s := &Session{
		context: bctx,
		wrapped: make(map[playwright.Page]*pwPage),
		nav:     nav,
		action:  action,
	}
	s.active = s.wrap(page)
	return s, nil
}

func (l *Launcher) Close() error {
	if l.browser != nil {
		_ = l.browser.Close()
	}
	if l.pw != nil {
		return l.pw.Stop()
	}
	return nil
}

// Session is the single browsing session driven by one scenario. It tracks
// which context is active; only the reconciler switches it.
type Session struct {
	mu      sync.Mutex
	context playwright.BrowserContext
	wrapped map[playwright.Page]*pwPage
	active  *pwPage
	nav     time.Duration
	action  time.Duration
}

func (s *Session) wrap(p playwright.Page) *pwPage {
	if w, ok := s.wrapped[p]; ok {
		return w
	}
	w := &pwPage{page: p, nav: s.nav, action: s.action}
	s.wrapped[p] = w
	return w
}

// Pages lists open contexts in the order the browser reports them.
func (s *Session) Pages() []Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := s.context.Pages()
	out := make([]Page, 0, len(raw))
	for _, p := range raw {
		if p.IsClosed() {
			continue
		}
		out = append(out, s.wrap(p))
	}
	return out
}

func (s *Session) Active() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) Activate(p Page) error {
	w, ok := p.(*pwPage)
	if !ok {
		return fmt.Errorf("activate: foreign page %T", p)
	}
	if err := w.BringToFront(); err != nil {
		return err
	}
	s.mu.Lock()
	s.active = w
	s.mu.Unlock()
	return nil
}

func (s *Session) Close(ctx context.Context) error {
	_ = ctx
	if s.context != nil {
		return s.context.Close()
	}
	return nil
}

// Pause waits d or until ctx is done. Settle delays go through it so tests can
// zero them.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
