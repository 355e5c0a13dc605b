package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Retrieval.RelevanceFloor != 1e-9 || cfg.Retrieval.ExcerptLength != 200 {
		t.Errorf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if !cfg.Cache.Enabled {
		t.Errorf("cache should be enabled by default")
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "documents:\n  dir: /srv/policies\nretrieval:\n  top_k: 3\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Documents.Dir != "/srv/policies" || cfg.Retrieval.TopK != 3 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Documents.Pattern != "*.json" || cfg.Retrieval.MinConfidence != 0.65 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if !cfg.Cache.Enabled {
		t.Errorf("omitted boolean should keep its default")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "retrieval: [", "parse"},
		{"negative top_k", "retrieval:\n  top_k: -1\n", "top_k"},
		{"floor out of range", "retrieval:\n  relevance_floor: 2\n", "relevance_floor"},
		{"min confidence out of range", "retrieval:\n  min_confidence: -0.1\n", "min_confidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Documents.Watch = true
	cfg.Client.AuthHeader = "Bearer token"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Documents.Watch || loaded.Client.AuthHeader != "Bearer token" {
		t.Errorf("saved values lost: %+v", loaded)
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	if cfg.Cache.TTL() != 5*time.Minute {
		t.Errorf("cache TTL = %v", cfg.Cache.TTL())
	}
	if cfg.Server.WriteTimeout() != 30*time.Second {
		t.Errorf("write timeout = %v", cfg.Server.WriteTimeout())
	}
	if cfg.Client.Timeout() != 30*time.Second {
		t.Errorf("client timeout = %v", cfg.Client.Timeout())
	}
}
