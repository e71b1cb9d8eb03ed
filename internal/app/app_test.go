package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ppemonitor/internal/config"
	"ppemonitor/internal/ppe"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Port:          0,
		CameraSource:  "udp://127.0.0.1:0",
		ModelPath:     filepath.Join(dir, "missing.onnx"),
		Thresholds:    ppe.DefaultThresholds(),
		FrameInterval: 10 * time.Millisecond,
		ErrorBackoff:  10 * time.Millisecond,
		JPEGQuality:   80,
		LogDirectory:  filepath.Join(dir, "logs"),
		LogMaxSizeMB:  1,
		StaticDir:     dir,
	}
}

func TestLoadCatalog(t *testing.T) {
	cfg := testConfig(t)

	catalog, err := LoadCatalog(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if catalog.Len() != ppe.DefaultCatalog().Len() {
		t.Errorf("Expected the built-in catalog, got %d classes", catalog.Len())
	}

	cfg.CatalogPath = filepath.Join(t.TempDir(), "catalog.yaml")
	os.WriteFile(cfg.CatalogPath, []byte("classes:\n  - id: 0\n    name: Person\n"), 0644)
	catalog, err = LoadCatalog(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if catalog.Len() != 1 {
		t.Errorf("Expected 1 class, got %d", catalog.Len())
	}

	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := LoadCatalog(cfg); err == nil {
		t.Error("Expected an error for a missing catalog")
	}
}

func TestNewApp_DegradedWithoutModel(t *testing.T) {
	cfg := testConfig(t)

	a, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("Expected degraded start, got %v", err)
	}
	if a.manager.ModelLoaded() {
		t.Error("Expected no model to be loaded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected a clean shutdown, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Expected Run to return after cancel")
	}
}

func TestNewApp_InvalidCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "catalog.yaml")
	os.WriteFile(cfg.CatalogPath, []byte("classes: []\n"), 0644)

	if _, err := NewApp(cfg); err == nil {
		t.Error("Expected an error for an empty catalog")
	}
}
