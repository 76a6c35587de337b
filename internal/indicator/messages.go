package indicator

import (
	"os"
	"strings"

	"github.com/rbright/parley/internal/fsm"
)

type locale string

const (
	localeEnglish locale = "en"
)

type messages struct {
	recording    string
	opening      string
	transcribing string
	thinking     string
	errorText    string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			recording:    "Recording…",
			opening:      "Starting interview…",
			transcribing: "Transcribing…",
			thinking:     "Interviewer is thinking…",
			errorText:    "Interview error",
		}
	}
}

// busyText maps an in-flight state to its indicator label.
func (m messages) busyText(state fsm.State) string {
	switch state {
	case fsm.StateAwaitingInitialQuestion:
		return m.opening
	case fsm.StateAwaitingTranscription:
		return m.transcribing
	case fsm.StateAwaitingReply:
		return m.thinking
	default:
		return ""
	}
}
