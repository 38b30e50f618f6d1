package browser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

var (
	// ErrStale reports a handle whose node is no longer attached to the document.
	ErrStale = errors.New("stale element reference")
	// ErrNotFound reports a selector that matched nothing within its wait.
	ErrNotFound = errors.New("element not found")
)

var staleMarkers = []string{
	"not attached to the dom",
	"element is detached",
	"stale element",
	"node is detached",
	"execution context was destroyed",
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStale) || errors.Is(err, ErrNotFound) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("playwright: %w", err)
}

// IsStale reports whether err stems from a detached element handle.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}
