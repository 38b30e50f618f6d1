package interact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/browser"
	"github.com/polzovatel/flightcheck/internal/browser/browsertest"
	"github.com/polzovatel/flightcheck/internal/locate"
)

type shots struct{ names []string }

func (s *shots) Capture(_ context.Context, _ browser.Page, name string) string {
	s.names = append(s.names, name)
	return name + ".png"
}

func newSequencer(capture *shots) *Sequencer {
	r := locate.NewResolver(0, capture, zerolog.Nop())
	return NewSequencer(r, 0, 0, zerolog.Nop())
}

func originSelector() string { return locate.Origin.Candidates[0].Selector() }

func TestApplyNativeActions(t *testing.T) {
	el := browsertest.NewElement("origin", "")
	s := newSequencer(&shots{})

	got, err := s.Apply(context.Background(), browsertest.NewPage("about:blank"), locate.Origin, el,
		Click(), Clear(), Type("Istanbul"), Confirm())
	if err != nil {
		t.Fatal(err)
	}
	if got != el {
		t.Fatal("Apply returned a different element")
	}
	want := []string{"eval", "click", "fill:", "type:Istanbul", "press:Enter"}
	if diff := cmp.Diff(want, el.Calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
}

func TestApplyFallsBackToScript(t *testing.T) {
	el := browsertest.NewElement("date", "")
	el.NativeErr = map[string]error{
		"click": errors.New("element is intercepted by overlay"),
		"fill":  errors.New("element is readonly"),
	}
	s := newSequencer(&shots{})

	_, err := s.Apply(context.Background(), browsertest.NewPage("about:blank"), locate.DepartureDate, el,
		Click(), SetValue("20.11.2026"))
	if err != nil {
		t.Fatal(err)
	}
	if el.Value != "20.11.2026" {
		t.Fatalf("value = %q", el.Value)
	}
	// scroll, scripted click, scripted value
	if diff := cmp.Diff([]string{"eval", "eval", "eval"}, el.Calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
}

func TestApplyRestartsFromTopAfterStale(t *testing.T) {
	old := browsertest.NewElement("old", "")
	old.NativeErr = map[string]error{"type": fmt.Errorf("type: %w", browser.ErrStale)}
	fresh := browsertest.NewElement("fresh", "")
	page := browsertest.NewPage("about:blank").Add(originSelector(), fresh)
	capture := &shots{}
	s := newSequencer(capture)

	got, err := s.Apply(context.Background(), page, locate.Origin, old, Click(), Clear(), Type("Istanbul"))
	if err != nil {
		t.Fatal(err)
	}
	if got != fresh {
		t.Fatal("Apply did not return the re-resolved element")
	}
	if old.Called("type") {
		t.Fatal("stale handle recorded a type call")
	}
	want := []string{"eval", "click", "fill:", "type:Istanbul"}
	if diff := cmp.Diff(want, fresh.Calls); diff != "" {
		t.Fatalf("fresh calls (-want +got):\n%s", diff)
	}
	if page.WaitCount(originSelector()) != 1 {
		t.Fatalf("re-resolved %d times", page.WaitCount(originSelector()))
	}
	if len(capture.names) != 0 {
		t.Fatalf("unexpected artifacts %v", capture.names)
	}
}

func TestApplySecondStaleIsStructural(t *testing.T) {
	old := &browsertest.Element{Label: "old", Detached: true}
	fresh := &browsertest.Element{Label: "fresh", Detached: true}
	page := browsertest.NewPage("about:blank").Add(originSelector(), fresh)
	capture := &shots{}
	s := newSequencer(capture)

	_, err := s.Apply(context.Background(), page, locate.Origin, old, Click())
	if !errors.Is(err, locate.ErrStructuralNotFound) {
		t.Fatalf("err = %v, want structural not found", err)
	}
	if !errors.Is(err, browser.ErrStale) {
		t.Fatalf("err = %v, want stale cause", err)
	}
	var nf *locate.NotFoundError
	if !errors.As(err, &nf) || nf.Field != "origin" {
		t.Fatalf("err = %#v", err)
	}
	if page.WaitCount(originSelector()) != 1 {
		t.Fatalf("re-resolved %d times, want exactly one", page.WaitCount(originSelector()))
	}
	if diff := cmp.Diff([]string{"debug_origin_stale"}, capture.names); diff != "" {
		t.Fatalf("artifacts (-want +got):\n%s", diff)
	}
}

func TestApplyBestEffortFailureIsSwallowed(t *testing.T) {
	el := browsertest.NewElement("popup", "")
	el.NativeErr = map[string]error{"press": errors.New("no keyboard focus")}
	el.ScriptErr = errors.New("script blocked")
	s := newSequencer(&shots{})

	if _, err := s.Apply(context.Background(), browsertest.NewPage("about:blank"), locate.Origin, el,
		Confirm().Optional(), Click()); err != nil {
		t.Fatalf("best-effort failure propagated: %v", err)
	}
	if !el.Called("click") || !el.Called("scroll") {
		t.Fatalf("calls = %v", el.Calls)
	}

	_, err := s.Apply(context.Background(), browsertest.NewPage("about:blank"), locate.Origin, el, Confirm())
	if err == nil || !strings.Contains(err.Error(), "confirm") {
		t.Fatalf("mandatory failure = %v", err)
	}
	if errors.Is(err, locate.ErrStructuralNotFound) {
		t.Fatal("exhausted fallbacks are not a structural failure")
	}
}

func TestRunResolvesFirst(t *testing.T) {
	el := browsertest.NewElement("submit", "Ara")
	page := browsertest.NewPage("about:blank").Add(locate.Submit.Candidates[0].Selector(), el)
	s := newSequencer(&shots{})

	if _, err := s.Run(context.Background(), page, locate.Submit, Click()); err != nil {
		t.Fatal(err)
	}
	if !el.Called("click") {
		t.Fatal("submit not clicked")
	}

	_, err := s.Run(context.Background(), browsertest.NewPage("about:blank"), locate.Submit, Click())
	if !errors.Is(err, locate.ErrStructuralNotFound) {
		t.Fatalf("missing submit = %v", err)
	}
}

func TestClickElement(t *testing.T) {
	el := browsertest.NewElement("cb", "")
	el.NativeErr = map[string]error{"click": errors.New("intercepted")}
	if err := ClickElement(el); err != nil {
		t.Fatal(err)
	}
	if !el.Called("eval") {
		t.Fatal("script click not used")
	}

	stale := &browsertest.Element{Detached: true}
	if err := ClickElement(stale); !browser.IsStale(err) {
		t.Fatalf("stale click = %v", err)
	}
}
