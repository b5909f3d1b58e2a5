package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	def := Default()
	if *cfg != *def {
		t.Errorf("Load with empty environment = %+v, want %+v", cfg, def)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HOSTBRIDGE_LOG_LEVEL", "debug")
	t.Setenv("HOSTBRIDGE_MEMORY_LIMIT_PAGES", "16")
	t.Setenv("HOSTBRIDGE_TICK_INTERVAL", "50ms")
	t.Setenv("HOSTBRIDGE_INPUT_ORIGIN_X", "-8")
	t.Setenv("HOSTBRIDGE_FORMATS_FILE", "/etc/formats.yaml")
	t.Setenv("HOSTBRIDGE_STRICT_UTF8", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" || cfg.MemoryLimit != 16 || cfg.TickInterval != 50*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.OriginX != -8 || cfg.FormatsFile != "/etc/formats.yaml" || !cfg.StrictUTF8 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparseable duration", "HOSTBRIDGE_TICK_INTERVAL", "soon"},
		{"zero tick", "HOSTBRIDGE_TICK_INTERVAL", "0s"},
		{"unknown level", "HOSTBRIDGE_LOG_LEVEL", "loud"},
		{"limit too large", "HOSTBRIDGE_MEMORY_LIMIT_PAGES", "65537"},
		{"pages above limit", "HOSTBRIDGE_MEMORY_PAGES", "300"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s accepted", tt.key, tt.value)
			}
			if cfg := LoadOrDefault(); cfg.TickInterval != Default().TickInterval {
				t.Error("LoadOrDefault did not fall back")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{false, true} {
		cfg := Default()
		cfg.LogDevelopment = dev
		logger, err := cfg.NewLogger()
		if err != nil {
			t.Fatalf("dev=%v: %v", dev, err)
		}
		logger.Debug("probe")
		_ = logger.Sync()
	}

	cfg := Default()
	cfg.LogLevel = "verbose"
	if _, err := cfg.NewLogger(); err == nil {
		t.Error("unknown level accepted")
	}
}
