package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSourceFile(t *testing.T, dir, itemID, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, itemID+".yml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
}

func TestConfigCache_LoadAndGet(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "book-light-in-attic", `
url: https://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html
adapter: books_toscrape
enabled: true
`)
	writeSourceFile(t, dir, "widget-amazon", `
url: https://www.amazon.com/dp/B000TEST
adapter: amazon
user_agent: "custom-agent/1.0"
enabled: false
`)

	cache := NewConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Expected no error loading configs, got: %v", err)
	}

	if cache.GetConfigCount() != 2 {
		t.Fatalf("Expected 2 configs, got %d", cache.GetConfigCount())
	}

	cfg, err := cache.GetConfig("book-light-in-attic")
	if err != nil {
		t.Fatalf("Expected config to be found, got: %v", err)
	}
	if cfg.AdapterID != "books_toscrape" {
		t.Errorf("Expected adapter 'books_toscrape', got: %s", cfg.AdapterID)
	}
	if !cfg.Enabled {
		t.Error("Expected source to be enabled")
	}

	enabled := cache.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled config, got %d", len(enabled))
	}
	if enabled[0].ItemID != "book-light-in-attic" {
		t.Errorf("Expected enabled item 'book-light-in-attic', got: %s", enabled[0].ItemID)
	}

	amazon, err := cache.GetConfig("widget-amazon")
	if err != nil {
		t.Fatalf("Expected config to be found, got: %v", err)
	}
	if amazon.UserAgent != "custom-agent/1.0" {
		t.Errorf("Expected user agent override, got: %s", amazon.UserAgent)
	}
}

func TestConfigCache_DefaultAdapter(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "plain-item", `
url: https://example.com/product/1
enabled: true
`)

	cache := NewConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	cfg, err := cache.GetConfig("plain-item")
	if err != nil {
		t.Fatalf("Expected config to be found, got: %v", err)
	}
	if cfg.AdapterID != "generic" {
		t.Errorf("Expected default adapter 'generic', got: %s", cfg.AdapterID)
	}
}

func TestConfigCache_UnknownItem(t *testing.T) {
	cache := NewConfigCache(t.TempDir())

	_, err := cache.GetConfig("missing")
	if err == nil {
		t.Fatal("Expected error for unknown item")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigError, got: %T", err)
	}
}

func TestValidate(t *testing.T) {
	valid := &Config{ItemID: "a", URL: "https://example.com/p", AdapterID: "generic"}
	if err := Validate(valid); err != nil {
		t.Errorf("Expected valid config to pass, got: %v", err)
	}

	missingURL := &Config{ItemID: "a", AdapterID: "generic"}
	if err := Validate(missingURL); err == nil {
		t.Error("Expected error for missing url")
	}

	malformed := &Config{ItemID: "a", URL: "not a url", AdapterID: "generic"}
	if err := Validate(malformed); err == nil {
		t.Error("Expected error for malformed url")
	}
}

func TestConfigCache_MissingDirectory(t *testing.T) {
	cache := NewConfigCache("/nonexistent/path")
	if err := cache.Run(); err != nil {
		t.Errorf("Expected missing directory to be tolerated, got: %v", err)
	}
	if cache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got %d", cache.GetConfigCount())
	}
}
