package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvAPIURL    = "PARLEY_API_URL"
	EnvCategory  = "PARLEY_CATEGORY"
	EnvTimeoutMS = "PARLEY_API_TIMEOUT_MS"
)

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
	EnvFile  string
}

// Load resolves, reads, parses, and validates the runtime configuration, then
// applies .env and process environment overrides.
func Load(explicitPath string) (Loaded, error) {
	return load(explicitPath, DefaultEnvFile, os.LookupEnv)
}

func load(explicitPath string, envFile string, lookup func(string) (string, bool)) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}
	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		cfg, warnings, err := Parse(string(content), loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Config = cfg
		loaded.Warnings = append(loaded.Warnings, warnings...)
		loaded.Exists = true
	}

	dotenv, err := readEnvFile(envFile)
	if err != nil {
		return Loaded{}, err
	}
	if dotenv != nil {
		loaded.EnvFile = envFile
	}

	overridden, err := applyEnv(&loaded.Config, func(key string) (string, bool) {
		if value, ok := lookup(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	})
	if err != nil {
		return Loaded{}, err
	}
	if overridden {
		if _, err := Validate(loaded.Config); err != nil {
			return Loaded{}, fmt.Errorf("environment override: %w", err)
		}
	}

	return loaded, nil
}

// readEnvFile returns nil when path is unset or missing.
func readEnvFile(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %q: %w", path, err)
	}
	return values, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) (bool, error) {
	overridden := false

	if value, ok := lookup(EnvAPIURL); ok && strings.TrimSpace(value) != "" {
		cfg.API.BaseURL = strings.TrimSpace(value)
		overridden = true
	}
	if value, ok := lookup(EnvCategory); ok && strings.TrimSpace(value) != "" {
		cfg.Interview.Category = strings.ToLower(strings.TrimSpace(value))
		overridden = true
	}
	if value, ok := lookup(EnvTimeoutMS); ok && strings.TrimSpace(value) != "" {
		ms, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return false, fmt.Errorf("%s: %w", EnvTimeoutMS, err)
		}
		cfg.API.TimeoutMS = ms
		overridden = true
	}

	return overridden, nil
}
