// Package config resolves, parses, validates, and defaults parley configuration.
package config

// Config is the fully materialized runtime configuration used by parley.
type Config struct {
	API       APIConfig
	Interview InterviewConfig
	Audio     AudioConfig
	Playback  PlaybackConfig
	Indicator IndicatorConfig
	Clipboard CommandConfig
	Export    ExportConfig
	Debug     DebugConfig
}

// APIConfig locates the interview backend.
type APIConfig struct {
	BaseURL    string
	TimeoutMS  int
	HealthPath string
}

// InterviewConfig selects the interviewer persona.
type InterviewConfig struct {
	Category string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input           string
	Fallback        string
	VoiceProcessing bool
}

// PlaybackConfig controls interviewer audio playback.
type PlaybackConfig struct {
	Autoplay bool
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	ErrorTimeoutMS    int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// ExportConfig controls transcript export defaults.
type ExportConfig struct {
	Format string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
