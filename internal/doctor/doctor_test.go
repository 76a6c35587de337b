package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/parley/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	require.Equal(t, "[OK] one: good\n[FAIL] two: bad", report.String())
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "/run/user/1000")

	check := checkEnv("TEST_DOCTOR_ENV", func(v string) bool { return v != "" }, "looks good", "unexpected")
	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)

	t.Setenv("TEST_DOCTOR_ENV", "")
	check = checkEnv("TEST_DOCTOR_ENV", func(v string) bool { return v != "" }, "looks good", "unexpected")
	require.False(t, check.Pass)
	require.Equal(t, "unexpected", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	installStub(t, "fake-bin", "exit 0")

	check := checkCommand([]string{"fake-bin", "--arg"}, "clipboard_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "clipboard_cmd command is available")
}

func TestCheckAPIReadySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Mock Interview API is running"}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.Default().API
	cfg.BaseURL = server.URL

	check := checkAPIReady(context.Background(), cfg)
	require.True(t, check.Pass)
	require.Equal(t, "Mock Interview API is running ("+server.URL+")", check.Message)
}

func TestCheckAPIReadyFailureStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default().API
	cfg.BaseURL = server.URL

	check := checkAPIReady(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "status 503")
}

func TestCheckAPIReadyEmptyBaseURL(t *testing.T) {
	cfg := config.Default().API
	cfg.BaseURL = " "

	check := checkAPIReady(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "api.base_url is empty")
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default().Audio)
	require.False(t, check.Pass)
	require.Equal(t, "audio.device", check.Name)
}

func TestCheckHyprlandReportsTag(t *testing.T) {
	installStub(t, "hyprctl", `echo '{"tag":"v0.49.0"}'`)

	check := checkHyprland(context.Background())
	require.True(t, check.Pass)
	require.Equal(t, "Hyprland v0.49.0", check.Message)
}

func TestConfigCheckMentionsDefaultsAndEnvFile(t *testing.T) {
	check := configCheck(config.Loaded{Path: "/tmp/parley/config.jsonc", EnvFile: ".env"})
	require.True(t, check.Pass)
	require.Equal(t, `using defaults ("/tmp/parley/config.jsonc" not found), env from ".env"`, check.Message)
}

func TestRunSelectsIndicatorChecks(t *testing.T) {
	installStub(t, "hyprctl", `echo '{"tag":"v0.49.0"}'`)
	installStub(t, "busctl", "exit 0")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	cfg := config.Default()
	cfg.API.BaseURL = "http://127.0.0.1:1"
	cfg.Clipboard = config.CommandConfig{}

	names := func(report Report) []string {
		var out []string
		for _, check := range report.Checks {
			out = append(out, check.Name)
		}
		return out
	}

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Exists: true, Config: cfg})
	require.Equal(t, []string{"config", "XDG_RUNTIME_DIR", "api.ready", "audio.device", "hyprctl"}, names(report))
	require.False(t, report.OK())

	cfg.Indicator.Backend = "desktop"
	cfg.Clipboard = config.CommandConfig{Raw: "busctl", Argv: []string{"busctl"}}
	report = Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Exists: true, Config: cfg})
	require.Equal(t, []string{"config", "XDG_RUNTIME_DIR", "api.ready", "audio.device", "busctl", "busctl"}, names(report))

	cfg.Indicator.Enable = false
	report = Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Exists: true, Config: cfg})
	require.Equal(t, []string{"config", "XDG_RUNTIME_DIR", "api.ready", "audio.device", "busctl"}, names(report))
}

func installStub(t *testing.T, name string, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
