package browser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/playwright-community/playwright-go"
)

func TestWrapClassifiesStaleErrors(t *testing.T) {
	cases := []string{
		"Element is not attached to the DOM",
		"elementHandle.click: Element is detached from document",
		"Execution context was destroyed, most likely because of a navigation",
	}
	for _, msg := range cases {
		err := wrap(errors.New(msg))
		if !IsStale(err) {
			t.Errorf("wrap(%q) = %v, want stale", msg, err)
		}
	}
}

func TestWrapClassifiesTimeoutAsNotFound(t *testing.T) {
	err := wrap(fmt.Errorf("waiting for selector: %w", playwright.ErrTimeout))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrap(timeout) = %v, want ErrNotFound", err)
	}
	if IsStale(err) {
		t.Fatal("timeout must not be classified as stale")
	}
}

func TestWrapPrefixesOtherErrors(t *testing.T) {
	base := errors.New("boom")
	err := wrap(base)
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error lost its cause: %v", err)
	}
	if got := err.Error(); got != "playwright: boom" {
		t.Fatalf("wrap = %q", got)
	}
	if wrap(nil) != nil {
		t.Fatal("wrap(nil) must be nil")
	}
}
