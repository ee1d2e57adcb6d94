package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig_StoreKindValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		expectError bool
		errorSubstr string
	}{
		{
			name:        "default store kind",
			args:        []string{},
			expectError: false,
		},
		{
			name:        "sqlite from flag",
			args:        []string{"-store", "sqlite"},
			expectError: false,
		},
		{
			name:        "sqlite from env",
			envVars:     map[string]string{"ORBWEAVER_STORE": "sqlite"},
			expectError: false,
		},
		{
			name:        "mixed case is normalized",
			args:        []string{"-store", "SQLite"},
			expectError: false,
		},
		{
			name:        "unknown store kind",
			args:        []string{"-store", "postgres"},
			expectError: true,
			errorSubstr: "unsupported store kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			cfg, err := LoadConfig(tt.args)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errorSubstr)
				} else if !strings.Contains(err.Error(), tt.errorSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errorSubstr, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				} else if cfg.StoreKind != "json" && cfg.StoreKind != "sqlite" {
					t.Errorf("expected a normalized store kind, got %q", cfg.StoreKind)
				}
			}
		})
	}
}

func TestLoadConfig_AddrResolution(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		cfg, err := LoadConfig([]string{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Addr != defaultAddr {
			t.Errorf("expected default addr %q, got %q", defaultAddr, cfg.Addr)
		}
	})

	t.Run("port env expands to loopback addr", func(t *testing.T) {
		os.Setenv("ORBWEAVER_PORT", "9100")
		defer os.Unsetenv("ORBWEAVER_PORT")

		cfg, err := LoadConfig([]string{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Addr != "127.0.0.1:9100" {
			t.Errorf("expected 127.0.0.1:9100, got %q", cfg.Addr)
		}
	})

	t.Run("flag overrides env", func(t *testing.T) {
		os.Setenv("ORBWEAVER_ADDR", "0.0.0.0:1234")
		defer os.Unsetenv("ORBWEAVER_ADDR")

		cfg, err := LoadConfig([]string{"-addr", "127.0.0.1:5678"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Addr != "127.0.0.1:5678" {
			t.Errorf("expected flag addr to win, got %q", cfg.Addr)
		}
	})
}

func TestLoadConfig_RelayRequiresChannel(t *testing.T) {
	_, err := LoadConfig([]string{"-redis", "127.0.0.1:6379", "-redis-channel", ""})
	if err == nil {
		t.Fatal("expected error for relay without a channel")
	}
	if !strings.Contains(err.Error(), "requires a channel") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ResolvesRelativePaths(t *testing.T) {
	cfg, err := LoadConfig([]string{"-metadata", "data/meta.json", "-db", "data/orb.db"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(cfg.MetadataPath) {
		t.Errorf("expected absolute metadata path, got %q", cfg.MetadataPath)
	}
	if !filepath.IsAbs(cfg.DBPath) {
		t.Errorf("expected absolute db path, got %q", cfg.DBPath)
	}
}
