package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"prism-dashboard/dashboard"
)

// Store backends.
const (
	backendTables = "tables"
	backendMongo  = "mongo"
	backendRedis  = "redis"
	backendMemory = "memory"
)

type config struct {
	Debug   bool
	JSONLog bool

	StoreBackend  string
	StorageConn   string
	ProjectsTable string
	MembersTable  string
	TasksTable    string
	ChangesQueue  string
	StorageInit   bool
	MongoURI      string
	MongoDatabase string

	CacheBackend        string
	RedisConn           string
	CacheTTL            time.Duration
	InvalidationChannel string

	Auth0Domain   string
	Auth0Audience string
	TestMode      bool
	TestJWTSecret string
	RoleClaim     string
	JWKSCacheTTL  time.Duration

	OTelStdout bool
	ListenAddr string
}

// loadConfig reads the service configuration through getenv.
func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		StoreBackend:        strings.ToLower(orDefault(getenv("STORE_BACKEND"), backendTables)),
		StorageConn:         getenv("STORAGE_CONNECTION_STRING"),
		ProjectsTable:       orDefault(getenv("PROJECTS_TABLE"), "projects"),
		MembersTable:        orDefault(getenv("MEMBERS_TABLE"), "projectmembers"),
		TasksTable:          orDefault(getenv("TASKS_TABLE"), "tasks"),
		ChangesQueue:        getenv("CHANGES_QUEUE"),
		MongoURI:            getenv("MONGO_URI"),
		MongoDatabase:       orDefault(getenv("MONGO_DATABASE"), "prism"),
		CacheBackend:        strings.ToLower(orDefault(getenv("CACHE_BACKEND"), backendRedis)),
		RedisConn:           getenv("REDIS_CONNECTION_STRING"),
		CacheTTL:            dashboard.DefaultTTL,
		InvalidationChannel: getenv("INVALIDATION_CHANNEL"),
		Auth0Domain:         getenv("AUTH0_DOMAIN"),
		Auth0Audience:       getenv("AUTH0_AUDIENCE"),
		TestMode:            getenv("AUTH0_TEST_MODE") == "1",
		TestJWTSecret:       getenv("TEST_JWT_SECRET"),
		RoleClaim:           getenv("ROLE_CLAIM"),
		JWKSCacheTTL:        15 * time.Minute,
		JSONLog:             strings.EqualFold(getenv("LOG_FORMAT"), "json"),
		ListenAddr:          ":8080",
	}

	var errs []error
	boolVar := func(name string, dst *bool) {
		if v := getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	durationVar := func(name string, dst *time.Duration) {
		if v := getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				errs = append(errs, fmt.Errorf("invalid %s: %q", name, v))
				return
			}
			*dst = d
		}
	}
	boolVar("DEBUG", &cfg.Debug)
	boolVar("STORAGE_INIT", &cfg.StorageInit)
	boolVar("OTEL_STDOUT", &cfg.OTelStdout)
	durationVar("DASHBOARD_CACHE_TTL", &cfg.CacheTTL)
	durationVar("JWKS_CACHE_TTL", &cfg.JWKSCacheTTL)
	if port := getenv("FUNCTIONS_CUSTOMHANDLER_PORT"); port != "" {
		cfg.ListenAddr = ":" + port
	}

	switch cfg.StoreBackend {
	case backendTables:
		if cfg.StorageConn == "" {
			errs = append(errs, errors.New("missing STORAGE_CONNECTION_STRING"))
		}
	case backendMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("missing MONGO_URI"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend))
	}
	if cfg.ChangesQueue != "" && cfg.StorageConn == "" {
		errs = append(errs, errors.New("CHANGES_QUEUE requires STORAGE_CONNECTION_STRING"))
	}

	switch cfg.CacheBackend {
	case backendRedis:
		if cfg.RedisConn == "" {
			errs = append(errs, errors.New("missing redis config"))
		}
	case backendMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported CACHE_BACKEND %q", cfg.CacheBackend))
	}

	if cfg.TestMode {
		if cfg.TestJWTSecret == "" {
			errs = append(errs, errors.New("TEST_JWT_SECRET must be set when AUTH0_TEST_MODE=1"))
		}
	} else if cfg.Auth0Domain == "" || cfg.Auth0Audience == "" {
		errs = append(errs, errors.New("missing Auth0 config"))
	}

	return cfg, errors.Join(errs...)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
