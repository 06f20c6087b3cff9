package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.GeneratorURL != "http://localhost:8000" {
		t.Errorf("GeneratorURL = %q", cfg.GeneratorURL)
	}
	if cfg.GeneratorTimeout != 60*time.Second {
		t.Errorf("GeneratorTimeout = %v", cfg.GeneratorTimeout)
	}
	if cfg.TimetableMode != "upsert" {
		t.Errorf("TimetableMode = %q", cfg.TimetableMode)
	}
	if !reflect.DeepEqual(cfg.TimetableDays, defaultDays) {
		t.Errorf("TimetableDays = %v", cfg.TimetableDays)
	}
	if cfg.LoginRateLimit != 10 || cfg.LoginRateWindow != 15*time.Minute {
		t.Errorf("login limiter = %d/%v", cfg.LoginRateLimit, cfg.LoginRateWindow)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GENERATOR_URL", "http://solver:9000/")
	t.Setenv("GENERATOR_TIMEOUT", "5")
	t.Setenv("TIMETABLE_DAYS", "MON, TUE ,,WED")
	t.Setenv("TIMETABLE_MODE", "REPLACE")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("DB_PORT", "not-a-number")

	cfg := Load()

	if cfg.GeneratorURL != "http://solver:9000" {
		t.Errorf("GeneratorURL = %q", cfg.GeneratorURL)
	}
	if cfg.GeneratorTimeout != 5*time.Second {
		t.Errorf("GeneratorTimeout = %v", cfg.GeneratorTimeout)
	}
	if want := []string{"MON", "TUE", "WED"}; !reflect.DeepEqual(cfg.TimetableDays, want) {
		t.Errorf("TimetableDays = %v, want %v", cfg.TimetableDays, want)
	}
	if cfg.TimetableMode != "replace" {
		t.Errorf("TimetableMode = %q", cfg.TimetableMode)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, want fallback 5432", cfg.DBPort)
	}
}

func TestUnknownModeFallsBack(t *testing.T) {
	t.Setenv("TIMETABLE_MODE", "merge")
	if got := Load().TimetableMode; got != "upsert" {
		t.Errorf("TimetableMode = %q", got)
	}
}
