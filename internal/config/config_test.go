package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("FLIGHTCHECK_HEADLESS", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Site.URL != Default().Site.URL || cfg.Verify.AirlineShare != 0.8 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
browser:
  name: firefox
  headless: true
  action_timeout: 4s
defaults:
  origin: Izmir
verify:
  airline_share: 0.9
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FLIGHTCHECK_HEADLESS", "off")
	t.Setenv("FLIGHTCHECK_URL", "https://staging.example.test/")
	t.Setenv("FLIGHTCHECK_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Browser.Name != "firefox" || cfg.Browser.Headless || cfg.Browser.ActionTimeout != 4*time.Second {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if cfg.Defaults.Origin != "Izmir" || cfg.Defaults.Destination != "Ankara" {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if cfg.Site.URL != "https://staging.example.test/" || cfg.Logging.Level != "debug" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Site, cfg.Logging)
	}
	if cfg.Verify.AirlineShare != 0.9 {
		t.Errorf("share = %v", cfg.Verify.AirlineShare)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("verify:\n  airline_share: 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("share above 1 accepted")
	}
	if err := os.WriteFile(path, []byte("browser: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("broken yaml accepted")
	}
}

func TestSearchDates(t *testing.T) {
	cfg := Default()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	dep, ret := cfg.SearchDates(now)
	if dep != "24.10.2026" || ret != "31.10.2026" {
		t.Fatalf("SearchDates = %s, %s", dep, ret)
	}
}

func TestParseBoolEnv(t *testing.T) {
	const name = "FLIGHTCHECK_TEST_BOOL"
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"OFF", true, false},
		{"maybe", true, true},
	}
	for _, tc := range cases {
		t.Setenv(name, tc.val)
		if got := parseBoolEnv(name, tc.def); got != tc.want {
			t.Errorf("parseBoolEnv(%q, %v) = %v, want %v", tc.val, tc.def, got, tc.want)
		}
	}
}
