// Package diag captures failure artifacts: a viewport screenshot plus a JSON
// summary of the page the failure happened on.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/browser"
)

// Capturer stores a diagnostic artifact for page and returns its path, or ""
// when nothing could be written. Capturing never fails the caller.
type Capturer interface {
	Capture(ctx context.Context, page browser.Page, name string) string
}

// Recorder writes artifacts under Dir.
type Recorder struct {
	Dir    string
	Logger zerolog.Logger
	// Summaries also stores a JSON page summary next to each screenshot.
	Summaries bool

	now func() time.Time
}

func NewRecorder(dir string, logger zerolog.Logger) *Recorder {
	return &Recorder{
		Dir:       dir,
		Logger:    logger.With().Str("comp", "diag").Logger(),
		Summaries: true,
		now:       time.Now,
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func (r *Recorder) Capture(ctx context.Context, page browser.Page, name string) string {
	if page == nil {
		return ""
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	base := fmt.Sprintf("%s_%d", unsafeName.ReplaceAllString(name, "_"), now().Unix())
	shot := filepath.Join(r.Dir, base+".png")
	if err := page.Screenshot(ctx, shot); err != nil {
		r.Logger.Warn().Err(err).Str("name", name).Msg("screenshot failed")
		return ""
	}
	r.Logger.Info().Str("path", shot).Str("url", page.URL()).Msg("screenshot saved")

	if r.Summaries {
		if err := r.writeSummary(ctx, page, filepath.Join(r.Dir, base+".json")); err != nil {
			r.Logger.Debug().Err(err).Msg("page summary skipped")
		}
	}
	return shot
}

func (r *Recorder) writeSummary(ctx context.Context, page browser.Page, path string) error {
	sum, err := Collect(ctx, page)
	if err != nil && sum.URL == "" {
		return err
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Discard is a Capturer that records nothing.
type Discard struct{}

func (Discard) Capture(context.Context, browser.Page, string) string { return "" }
