package config

import (
	"strings"
	"testing"
)

// clearEnv blanks every variable Load reads so ambient shell state cannot
// leak into the assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MODE", "PORT", "MAX_UPLOAD_MB", "API_KEY", "MODEL_DIR", "MODEL_ID",
		"DEVICE", "AUDIT_LOG", "TEMP_DIR", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != ModeDevelopment {
		t.Errorf("Mode = %q, want development", cfg.Mode)
	}
	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.MaxUploadMB != 25 {
		t.Errorf("MaxUploadMB = %d, want 25", cfg.MaxUploadMB)
	}
	if cfg.MaxUploadBytes() != 25*1024*1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes())
	}
	if cfg.Device != "auto" {
		t.Errorf("Device = %q, want auto", cfg.Device)
	}
	if cfg.ModelID != "whisper-base" {
		t.Errorf("ModelID = %q", cfg.ModelID)
	}
	if cfg.Production() {
		t.Error("default mode must not be production")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODE", "production")
	t.Setenv("API_KEY", "s3cret")
	t.Setenv("PORT", "8080")
	t.Setenv("MAX_UPLOAD_MB", "100")
	t.Setenv("DEVICE", "cuda")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.Production() {
		t.Error("Production() = false")
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.MaxUploadBytes() != 100*1024*1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes())
	}
	if cfg.Device != "cuda" {
		t.Errorf("Device = %q", cfg.Device)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad mode", map[string]string{"MODE": "staging"}, "MODE"},
		{"production without key", map[string]string{"MODE": "production"}, "API_KEY"},
		{"bad device", map[string]string{"DEVICE": "tpu"}, "DEVICE"},
		{"non-numeric upload limit", map[string]string{"MAX_UPLOAD_MB": "lots"}, "MAX_UPLOAD_MB"},
		{"zero upload limit", map[string]string{"MAX_UPLOAD_MB": "0"}, "MAX_UPLOAD_MB"},
		{"negative upload limit", map[string]string{"MAX_UPLOAD_MB": "-5"}, "MAX_UPLOAD_MB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestProductionWithKeyValidates(t *testing.T) {
	cfg := &Config{Mode: ModeProduction, APIKey: "k", Device: "cpu"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
