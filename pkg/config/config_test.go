package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8087" {
		t.Errorf("Expected Port to be 8087, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}
	if cfg.OutputMode != "notion" {
		t.Errorf("Expected OutputMode to be notion, got %s", cfg.OutputMode)
	}
	if cfg.HKDataMode != "etf" {
		t.Errorf("Expected HKDataMode to be etf, got %s", cfg.HKDataMode)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("Expected HTTPTimeout to be 30s, got %v", cfg.HTTPTimeout)
	}

	if !cfg.Domestic.Enabled || cfg.Domestic.TimeOfDay != "15:05" || cfg.Domestic.ActiveDays != "MON-FRI" {
		t.Errorf("Unexpected domestic schedule defaults: %+v", cfg.Domestic)
	}
	if cfg.US.TimeOfDay != "06:00" || cfg.US.ActiveDays != "TUE-SAT" {
		t.Errorf("Unexpected US schedule defaults: %+v", cfg.US)
	}
	if cfg.HK.TimeOfDay != "16:05" || cfg.HK.ActiveDays != "MON-FRI" {
		t.Errorf("Unexpected HK schedule defaults: %+v", cfg.HK)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("OUTPUT_MODE", "both")
	os.Setenv("US_ENABLED", "false")
	os.Setenv("US_SCHEDULE_TIME", "07:30")
	os.Setenv("HK_DATA_MODE", "index")
	os.Setenv("HTTP_TIMEOUT", "10s")
	defer func() {
		for _, k := range []string{"PORT", "ENV", "OUTPUT_MODE", "US_ENABLED", "US_SCHEDULE_TIME", "HK_DATA_MODE", "HTTP_TIMEOUT"} {
			os.Unsetenv(k)
		}
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}
	if cfg.OutputMode != "both" {
		t.Errorf("Expected OutputMode to be both, got %s", cfg.OutputMode)
	}
	if cfg.US.Enabled {
		t.Error("Expected US market to be disabled")
	}
	if cfg.US.TimeOfDay != "07:30" {
		t.Errorf("Expected US schedule time 07:30, got %s", cfg.US.TimeOfDay)
	}
	if cfg.HKDataMode != "index" {
		t.Errorf("Expected HKDataMode to be index, got %s", cfg.HKDataMode)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("Expected HTTPTimeout to be 10s, got %v", cfg.HTTPTimeout)
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid env", "ENV", "sandbox"},
		{"invalid output mode", "OUTPUT_MODE", "email"},
		{"invalid hk data mode", "HK_DATA_MODE", "scrape"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			os.Setenv(tc.key, tc.value)
			defer os.Unsetenv(tc.key)

			if _, err := Load(); err == nil {
				t.Errorf("Expected validation error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	os.Setenv("TEST_BOOL", "true")
	defer os.Unsetenv("TEST_BOOL")

	if !getEnvAsBool("TEST_BOOL", false) {
		t.Error("Expected true")
	}
	if getEnvAsBool("TEST_BOOL_MISSING", false) {
		t.Error("Expected default false")
	}

	os.Setenv("TEST_BOOL", "garbage")
	if !getEnvAsBool("TEST_BOOL", true) {
		t.Error("Expected default on parse failure")
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "45s")
	defer os.Unsetenv("TEST_DURATION")

	if d := getEnvAsDuration("TEST_DURATION", "30s"); d != 45*time.Second {
		t.Errorf("Expected 45s, got %v", d)
	}
	if d := getEnvAsDuration("TEST_DURATION_MISSING", "30s"); d != 30*time.Second {
		t.Errorf("Expected default 30s, got %v", d)
	}
}
