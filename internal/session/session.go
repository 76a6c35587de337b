// Package session coordinates interview turn state, remote collaborators, and the conversation log.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/fsm"
)

// Category selects the interviewer persona on the dialogue backend.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryTechnical Category = "technical"
	CategoryHR        Category = "hr"
)

// Categories lists every supported interview category.
func Categories() []Category {
	return []Category{CategoryGeneral, CategoryTechnical, CategoryHR}
}

// ParseCategory normalizes and validates a category name.
func ParseCategory(raw string) (Category, error) {
	value := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, candidate := range Categories() {
		if value == candidate {
			return value, nil
		}
	}
	return "", fmt.Errorf("unknown interview category %q (want general, technical, or hr)", raw)
}

// Session identifies one interview on the dialogue backend.
type Session struct {
	ID        string
	Category  Category
	CreatedAt time.Time
}

// AdvanceRequest asks the dialogue collaborator for the next interviewer turn.
// An empty Transcript requests the opening question.
type AdvanceRequest struct {
	SessionID  string
	Transcript string
	Category   Category
}

// Reply is one interviewer turn produced by the dialogue collaborator.
type Reply struct {
	Text           string
	AudioReference string
}

// Transcriber converts a recorded clip to candidate text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip audio.Clip) (string, error)
}

// Dialogue produces interviewer turns.
type Dialogue interface {
	AdvanceInterview(ctx context.Context, req AdvanceRequest) (Reply, error)
}

// TranscribeFunc adapts a function to the Transcriber interface.
type TranscribeFunc func(context.Context, audio.Clip) (string, error)

func (f TranscribeFunc) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	return f(ctx, clip)
}

// DialogueFunc adapts a function to the Dialogue interface.
type DialogueFunc func(context.Context, AdvanceRequest) (Reply, error)

func (f DialogueFunc) AdvanceInterview(ctx context.Context, req AdvanceRequest) (Reply, error) {
	return f(ctx, req)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowBusy(context.Context, fsm.State)
	ShowError(context.Context, string)
	CueComplete(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowBusy(context.Context, fsm.State) {}
func (noopIndicator) ShowError(context.Context, string)   {}
func (noopIndicator) CueComplete(context.Context)         {}
func (noopIndicator) Hide(context.Context)                {}

var (
	// ErrInitializationFailed marks a failed opening-question request.
	ErrInitializationFailed = errors.New("interview initialization failed")
	// ErrTranscriptionFailed marks a failed clip transcription.
	ErrTranscriptionFailed = errors.New("transcription failed")
	// ErrReplyFailed marks a failed follow-up question request.
	ErrReplyFailed = errors.New("interviewer reply failed")

	// ErrNotReady rejects a clip submitted while a request is in flight.
	ErrNotReady = errors.New("interview is busy")
	// ErrClosed rejects work after the interview ended.
	ErrClosed = errors.New("interview has ended")
)

// Error pairs a failure kind with the collaborator error that caused it.
// errors.Is matches both.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message returns the short user-visible text for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInitializationFailed):
		return "Could not start the interview"
	case errors.Is(err, ErrTranscriptionFailed):
		return "Could not transcribe your answer"
	case errors.Is(err, ErrReplyFailed):
		return "The interviewer did not respond"
	case errors.Is(err, audio.ErrPermissionDenied):
		return "Microphone access denied"
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "Microphone unavailable"
	case errors.Is(err, audio.ErrRecorderClosed):
		return "The interview has ended"
	default:
		return "Something went wrong"
	}
}
