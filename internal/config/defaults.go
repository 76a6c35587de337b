package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		API: APIConfig{
			BaseURL:    "http://localhost:8000",
			TimeoutMS:  60000,
			HealthPath: "/",
		},
		Interview: InterviewConfig{Category: "general"},
		Audio: AudioConfig{
			Input:           "default",
			Fallback:        "default",
			VoiceProcessing: true,
		},
		Playback: PlaybackConfig{Autoplay: true},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "parley",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Clipboard: CommandConfig{Raw: clipboard, Argv: mustSplitCommand(clipboard)},
		Export:    ExportConfig{Format: "markdown"},
		Debug:     DebugConfig{},
	}
}
