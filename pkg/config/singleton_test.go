package config

import (
	"sync"
	"testing"
)

func resetGlobal() {
	SetConfig(nil)
	loadOnce = sync.Once{}
}

func TestInitialize(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8181"
store:
  backend: memory
`)

	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Server.ListenAddress != "127.0.0.1:8181" {
		t.Errorf("unexpected listen address %q", cfg.Server.ListenAddress)
	}

	// A second call is ignored.
	other := writeConfig(t, "server:\n  listen_address: \"0.0.0.0:1\"\nstore:\n  backend: memory\n")
	if err := Initialize(other); err != nil {
		t.Fatalf("second Initialize returned error: %v", err)
	}
	if GetConfig().Server.ListenAddress != "127.0.0.1:8181" {
		t.Error("second Initialize should not replace the configuration")
	}
}

func TestInitialize_Error(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	if err := Initialize("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if GetConfig() != nil {
		t.Error("config should remain nil after failed initialization")
	}
}

func TestSetConfig(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	cfg := Default()
	SetConfig(cfg)
	if GetConfig() != cfg {
		t.Fatal("GetConfig should return the injected configuration")
	}

	// Initialize still loads once; the injected value is replaced.
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize with defaults failed: %v", err)
	}
	if GetConfig() == cfg {
		t.Error("Initialize should store the loaded configuration")
	}
}
