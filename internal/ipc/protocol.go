// Package ipc carries newline-delimited JSON requests between parley clients and the interview owner.
package ipc

import (
	"fmt"
	"time"
)

// Commands understood by the interview owner.
const (
	CommandStatus     = "status"
	CommandRecord     = "record"
	CommandCancel     = "cancel"
	CommandReplay     = "replay"
	CommandRetry      = "retry"
	CommandTranscript = "transcript"
	CommandExport     = "export"
	CommandEnd        = "end"
)

// Request is one client command. Role filters transcript listings; Turn
// selects the log index for replay.
type Request struct {
	Command string `json:"command"`
	Role    string `json:"role,omitempty"`
	Turn    *int   `json:"turn,omitempty"`
}

// Response reports the owner's state after handling a request.
type Response struct {
	OK        bool         `json:"ok"`
	State     string       `json:"state,omitempty"`
	Busy      bool         `json:"busy,omitempty"`
	Recording bool         `json:"recording,omitempty"`
	ElapsedS  int          `json:"elapsed_s,omitempty"`
	Message   string       `json:"message,omitempty"`
	Error     string       `json:"error,omitempty"`
	Session   *SessionView `json:"session,omitempty"`
	Turns     []TurnView   `json:"turns,omitempty"`
}

// SessionView identifies the running interview.
type SessionView struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnView is a log entry without its audio payload.
type TurnView struct {
	Index     int       `json:"index"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	HasAudio  bool      `json:"has_audio"`
}

// Elapsed formats ElapsedS as m:ss.
func (r Response) Elapsed() string {
	return fmt.Sprintf("%d:%02d", r.ElapsedS/60, r.ElapsedS%60)
}
