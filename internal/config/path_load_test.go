package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "parley", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "parley", "config.jsonc"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := load(path, "", noEnv)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "api": {"base_url": "http://127.0.0.1:8000"},
  "interview": {"category": "hr"},
  "audio": {
    "input": "default",
    "fallback": "default",
  },
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := load(path, "", noEnv)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "http://127.0.0.1:8000", loaded.Config.API.BaseURL)
	require.Equal(t, "hr", loaded.Config.Interview.Category)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := load(path, "", noEnv)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}

func TestLoadAppliesEnvFileThenProcessEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"interview":{"category":"general"}}`), 0o600))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PARLEY_API_URL=https://dotenv.example.com\nPARLEY_CATEGORY=technical\nOPENAI_API_KEY=ignored\n"), 0o600))

	processEnv := map[string]string{"PARLEY_CATEGORY": "HR"}
	lookup := func(key string) (string, bool) {
		value, ok := processEnv[key]
		return value, ok
	}

	loaded, err := load(path, envFile, lookup)
	require.NoError(t, err)
	require.Equal(t, envFile, loaded.EnvFile)
	require.Equal(t, "https://dotenv.example.com", loaded.Config.API.BaseURL)
	require.Equal(t, "hr", loaded.Config.Interview.Category)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	loaded, err := load(filepath.Join(dir, "config.jsonc"), filepath.Join(dir, ".env"), noEnv)
	require.NoError(t, err)
	require.Empty(t, loaded.EnvFile)
}

func TestLoadRejectsInvalidEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")

	_, err := load(path, "", func(key string) (string, bool) {
		if key == EnvCategory {
			return "sales", true
		}
		return "", false
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "environment override")

	_, err = load(path, "", func(key string) (string, bool) {
		if key == EnvTimeoutMS {
			return "soon", true
		}
		return "", false
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), EnvTimeoutMS)
}
