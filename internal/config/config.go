// Package config loads run settings from a YAML file with environment
// overrides on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is how the site's date inputs expect dates (DD.MM.YYYY).
const DateLayout = "02.01.2006"

type Config struct {
	Browser  Browser  `yaml:"browser"`
	Site     Site     `yaml:"site"`
	Defaults Defaults `yaml:"defaults"`
	Dates    Dates    `yaml:"dates"`
	Timing   Timing   `yaml:"timing"`
	Paths    Paths    `yaml:"paths"`
	Logging  Logging  `yaml:"logging"`
	Verify   Verify   `yaml:"verify"`
	Storage  Storage  `yaml:"storage"`
}

type Browser struct {
	Name           string        `yaml:"name"`
	Headless       bool          `yaml:"headless"`
	Width          int           `yaml:"width"`
	Height         int           `yaml:"height"`
	ActionTimeout  time.Duration `yaml:"action_timeout"`
	NavTimeout     time.Duration `yaml:"nav_timeout"`
	IgnoreHTTPSErr bool          `yaml:"ignore_https_errors"`
}

type Site struct {
	URL      string `yaml:"url"`
	EntryURL string `yaml:"entry_url"`
}

type Defaults struct {
	Origin      string `yaml:"origin"`
	Destination string `yaml:"destination"`
	// Analysis scenario route.
	AnalysisOrigin      string `yaml:"analysis_origin"`
	AnalysisDestination string `yaml:"analysis_destination"`
	DepartStartHour     int    `yaml:"depart_start_hour"`
	DepartEndHour       int    `yaml:"depart_end_hour"`
	AirlineCode         string `yaml:"airline_code"`
	AirlineName         string `yaml:"airline_name"`
}

// Dates are offsets in days from today.
type Dates struct {
	DepartureOffset int    `yaml:"departure_offset"`
	ReturnOffset    int    `yaml:"return_offset"`
	Layout          string `yaml:"layout"`
}

type Timing struct {
	CandidateWait time.Duration `yaml:"candidate_wait"`
	FieldTimeout  time.Duration `yaml:"field_timeout"`
	Settle        time.Duration `yaml:"settle"`
	PageSettle    time.Duration `yaml:"page_settle"`
	SuggestWait   time.Duration `yaml:"suggest_wait"`
	ResultsWait   time.Duration `yaml:"results_wait"`
	LoaderWait    time.Duration `yaml:"loader_wait"`
}

type Paths struct {
	Screenshots string `yaml:"screenshots"`
	Reports     string `yaml:"reports"`
	Charts      string `yaml:"charts"`
	Logs        string `yaml:"logs"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Verify struct {
	AirlineShare    float64  `yaml:"airline_share"`
	AirlineKeywords []string `yaml:"airline_keywords"`
	PriceSample     int      `yaml:"price_sample"`
}

type Storage struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

func Default() Config {
	return Config{
		Browser: Browser{
			Name:          "chromium",
			Headless:      true,
			Width:         1920,
			Height:        1080,
			ActionTimeout: 10 * time.Second,
			NavTimeout:    30 * time.Second,
		},
		Site: Site{
			URL:      "https://www.enuygun.com/",
			EntryURL: "https://www.enuygun.com/ucak-bileti/",
		},
		Defaults: Defaults{
			Origin:              "İstanbul",
			Destination:         "Ankara",
			AnalysisOrigin:      "İstanbul",
			AnalysisDestination: "Lefkoşa",
			DepartStartHour:     10,
			DepartEndHour:       18,
			AirlineCode:         "TK",
			AirlineName:         "Türk Hava Yolları",
		},
		Dates: Dates{DepartureOffset: 7, ReturnOffset: 14, Layout: DateLayout},
		Timing: Timing{
			CandidateWait: 3 * time.Second,
			FieldTimeout:  8 * time.Second,
			Settle:        500 * time.Millisecond,
			PageSettle:    2 * time.Second,
			SuggestWait:   3 * time.Second,
			ResultsWait:   15 * time.Second,
			LoaderWait:    8 * time.Second,
		},
		Paths: Paths{
			Screenshots: "screenshots",
			Reports:     "reports",
			Charts:      "reports/charts",
			Logs:        "logs",
		},
		Logging: Logging{Level: "info", File: "flightcheck.log"},
		Verify: Verify{
			AirlineShare:    0.8,
			AirlineKeywords: []string{"türk", "turkish", "thy", "tk"},
			PriceSample:     20,
		},
	}
}

// Load reads path over the defaults. A missing file leaves the defaults in
// place; environment overrides are applied either way.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.Browser.Headless = parseBoolEnv("FLIGHTCHECK_HEADLESS", cfg.Browser.Headless)
	if v := strings.TrimSpace(os.Getenv("FLIGHTCHECK_BROWSER")); v != "" {
		cfg.Browser.Name = v
	}
	if v := strings.TrimSpace(os.Getenv("FLIGHTCHECK_URL")); v != "" {
		cfg.Site.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("FLIGHTCHECK_POSTGRES_DSN")); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("FLIGHTCHECK_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Site.URL == "" {
		errs = append(errs, errors.New("site.url is empty"))
	}
	if c.Verify.AirlineShare < 0 || c.Verify.AirlineShare > 1 {
		errs = append(errs, fmt.Errorf("verify.airline_share %v outside [0, 1]", c.Verify.AirlineShare))
	}
	if c.Defaults.DepartStartHour < 0 || c.Defaults.DepartEndHour > 23 || c.Defaults.DepartStartHour > c.Defaults.DepartEndHour {
		errs = append(errs, fmt.Errorf("departure window %d-%d is invalid", c.Defaults.DepartStartHour, c.Defaults.DepartEndHour))
	}
	if c.Dates.ReturnOffset < c.Dates.DepartureOffset {
		errs = append(errs, errors.New("dates.return_offset is before departure_offset"))
	}
	return errors.Join(errs...)
}

// SearchDates formats the configured departure and return dates relative to now.
func (c Config) SearchDates(now time.Time) (departure, ret string) {
	layout := c.Dates.Layout
	if layout == "" {
		layout = DateLayout
	}
	return now.AddDate(0, 0, c.Dates.DepartureOffset).Format(layout),
		now.AddDate(0, 0, c.Dates.ReturnOffset).Format(layout)
}

func parseBoolEnv(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
