package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/webshopd/shopnotify/internal/domain"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, _, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Main.BackendURL != domain.DefaultBackendURL {
		t.Errorf("backend url = %q", cfg.Main.BackendURL)
	}
	if cfg.Main.RealtimeURL != domain.DefaultRealtimeURL {
		t.Errorf("realtime url = %q", cfg.Main.RealtimeURL)
	}
	if cfg.Main.PushRelayURL != domain.DefaultPushRelayURL {
		t.Errorf("push relay url = %q", cfg.Main.PushRelayURL)
	}
	if cfg.Main.PermissionPolicy != domain.PermissionPolicyAsk {
		t.Errorf("permission policy = %q", cfg.Main.PermissionPolicy)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not written: %v", err)
	}
}

func TestSaveAndReloadSubscription(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, _, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg.Main.UAID = "uaid-1"
	cfg.Main.VAPIDPublicKey = "BKey"
	cfg.Subscription = &domain.StoredSubscription{
		Endpoint:   "https://relay.test/wpush/v2/abc",
		P256DH:     "pub",
		Auth:       "auth",
		PrivateKey: "priv",
		ChannelID:  "chan-1",
	}
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, _, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Main.UAID != "uaid-1" || reloaded.Main.VAPIDPublicKey != "BKey" {
		t.Fatalf("main section lost: %+v", reloaded.Main)
	}
	if reloaded.Subscription == nil || *reloaded.Subscription != *cfg.Subscription {
		t.Fatalf("subscription = %+v, want %+v", reloaded.Subscription, cfg.Subscription)
	}
}

func TestLoadConfigFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("main:\n  listen_port: 8088\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, _, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Main.ListenPort != 8088 {
		t.Errorf("listen port = %d", cfg.Main.ListenPort)
	}
	if cfg.Main.BackendURL != domain.DefaultBackendURL {
		t.Errorf("backend default not applied: %q", cfg.Main.BackendURL)
	}
	if cfg.Main.PermissionPolicy != domain.PermissionPolicyAsk {
		t.Errorf("permission default not applied: %q", cfg.Main.PermissionPolicy)
	}
}
