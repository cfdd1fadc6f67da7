package main

import (
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(envMap(map[string]string{
		"STORAGE_CONNECTION_STRING": "UseDevelopmentStorage=true",
		"REDIS_CONNECTION_STRING":   "redis://localhost:6379/0",
		"AUTH0_DOMAIN":              "tenant.auth0.com",
		"AUTH0_AUDIENCE":            "api://prism",
	}))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.StoreBackend != backendTables || cfg.CacheBackend != backendRedis {
		t.Fatalf("unexpected backends %s/%s", cfg.StoreBackend, cfg.CacheBackend)
	}
	if cfg.CacheTTL != 300*time.Second {
		t.Fatalf("expected 300s cache ttl, got %v", cfg.CacheTTL)
	}
	if cfg.ListenAddr != ":8080" || cfg.ProjectsTable != "projects" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(envMap(map[string]string{
		"STORE_BACKEND":                "mongo",
		"MONGO_URI":                    "mongodb://localhost:27017",
		"CACHE_BACKEND":                "memory",
		"AUTH0_TEST_MODE":              "1",
		"TEST_JWT_SECRET":              "s3cret",
		"DASHBOARD_CACHE_TTL":          "90s",
		"DEBUG":                        "true",
		"LOG_FORMAT":                   "JSON",
		"FUNCTIONS_CUSTOMHANDLER_PORT": "7071",
	}))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.StoreBackend != backendMongo || cfg.CacheBackend != backendMemory || !cfg.TestMode {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.CacheTTL != 90*time.Second || !cfg.Debug || !cfg.JSONLog || cfg.ListenAddr != ":7071" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no storage", map[string]string{"CACHE_BACKEND": "memory", "AUTH0_TEST_MODE": "1", "TEST_JWT_SECRET": "x"}, "STORAGE_CONNECTION_STRING"},
		{"bad backend", map[string]string{"STORE_BACKEND": "sqlite", "CACHE_BACKEND": "memory", "AUTH0_TEST_MODE": "1", "TEST_JWT_SECRET": "x"}, "STORE_BACKEND"},
		{"no redis", map[string]string{"STORAGE_CONNECTION_STRING": "c", "AUTH0_TEST_MODE": "1", "TEST_JWT_SECRET": "x"}, "redis"},
		{"no secret", map[string]string{"STORAGE_CONNECTION_STRING": "c", "CACHE_BACKEND": "memory", "AUTH0_TEST_MODE": "1"}, "TEST_JWT_SECRET"},
		{"no auth0", map[string]string{"STORAGE_CONNECTION_STRING": "c", "CACHE_BACKEND": "memory"}, "Auth0"},
		{"bad ttl", map[string]string{"STORAGE_CONNECTION_STRING": "c", "CACHE_BACKEND": "memory", "AUTH0_TEST_MODE": "1", "TEST_JWT_SECRET": "x", "DASHBOARD_CACHE_TTL": "-5s"}, "DASHBOARD_CACHE_TTL"},
		{"bad bool", map[string]string{"STORAGE_CONNECTION_STRING": "c", "CACHE_BACKEND": "memory", "AUTH0_TEST_MODE": "1", "TEST_JWT_SECRET": "x", "STORAGE_INIT": "maybe"}, "STORAGE_INIT"},
		{"queue without storage", map[string]string{"STORE_BACKEND": "mongo", "MONGO_URI": "m", "CHANGES_QUEUE": "changes", "CACHE_BACKEND": "memory", "AUTH0_TEST_MODE": "1", "TEST_JWT_SECRET": "x"}, "CHANGES_QUEUE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(envMap(tt.env))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
