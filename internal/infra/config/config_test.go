package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "token")
	t.Setenv("ADMIN_USER_IDS", "1,2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telegram.Token != "token" {
		t.Fatalf("token not loaded: %q", cfg.Telegram.Token)
	}
	if len(cfg.AdminUserIDs) != 2 || cfg.AdminUserIDs[1] != 2 {
		t.Fatalf("unexpected admins %v", cfg.AdminUserIDs)
	}
	if cfg.BackendURL != "http://localhost:4000" {
		t.Fatalf("unexpected backend url %q", cfg.BackendURL)
	}
	if cfg.Registry.RefreshInterval != 5*time.Minute {
		t.Fatalf("unexpected refresh interval %v", cfg.Registry.RefreshInterval)
	}
	if cfg.Gate.ValidateTimeout != 30*time.Second || cfg.Gate.NotifyTimeout != 5*time.Second {
		t.Fatalf("unexpected gate timeouts %+v", cfg.Gate)
	}
	if err := cfg.ValidateBot(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "token")
	t.Setenv("ADMIN_USER_IDS", "10")
	t.Setenv("BACKEND_URL", "https://api.example.com")
	t.Setenv("GATE_NOTIFY_TIMEOUT", "2s")
	t.Setenv("REGISTRY_REFRESH_INTERVAL", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BackendURL != "https://api.example.com" || cfg.Gate.NotifyTimeout != 2*time.Second || cfg.Registry.RefreshInterval != time.Minute {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestValidateBotRequiresTokenAndAdmins(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "")
	t.Setenv("ADMIN_USER_IDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = cfg.ValidateBot()
	if !errors.Is(err, ErrMissingToken) || !errors.Is(err, ErrMissingAdmins) {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestLoadRejectsBadAdminIDs(t *testing.T) {
	t.Setenv("ADMIN_USER_IDS", "abc")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric admin id")
	}
}
