// Package export assembles interview transcripts with a lightweight evaluation
// and renders them as json, yaml, or markdown.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rbright/parley/internal/conversation"
	"github.com/rbright/parley/internal/session"
)

const evaluationNotes = "Automated evaluation based on response patterns and engagement."

// ErrMalformedDocument means remote export bytes did not decode into a Document.
var ErrMalformedDocument = errors.New("malformed export document")

// Document is the exported interview.
type Document struct {
	SessionInfo  SessionInfo `json:"session_info" yaml:"session_info"`
	Conversation []Entry     `json:"conversation" yaml:"conversation"`
	Evaluation   Evaluation  `json:"evaluation" yaml:"evaluation"`
}

// SessionInfo identifies the interview. Duration counts turns, not seconds.
type SessionInfo struct {
	ID        string `json:"id" yaml:"id"`
	Type      string `json:"type" yaml:"type"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
	Duration  int    `json:"duration" yaml:"duration"`
}

// Entry is one exported turn. Audio is never exported.
type Entry struct {
	Role      string `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Evaluation summarizes candidate engagement.
type Evaluation struct {
	TotalResponses        int     `json:"total_responses" yaml:"total_responses"`
	AverageResponseLength float64 `json:"average_response_length" yaml:"average_response_length"`
	EngagementScore       int     `json:"engagement_score" yaml:"engagement_score"`
	Notes                 string  `json:"notes" yaml:"notes"`
}

// Build assembles a document from the local log.
func Build(sess session.Session, turns []conversation.Turn) Document {
	entries := make([]Entry, 0, len(turns))
	for _, turn := range turns {
		entry := Entry{Role: string(turn.Role), Content: turn.Content}
		if !turn.Timestamp.IsZero() {
			entry.Timestamp = turn.Timestamp.Format(time.RFC3339)
		}
		entries = append(entries, entry)
	}

	info := SessionInfo{
		ID:       sess.ID,
		Type:     string(sess.Category),
		Duration: len(entries),
	}
	if !sess.CreatedAt.IsZero() {
		info.CreatedAt = sess.CreatedAt.Format(time.RFC3339)
	}

	return Document{
		SessionInfo:  info,
		Conversation: entries,
		Evaluation:   Evaluate(entries),
	}
}

// Evaluate scores candidate entries: two points per response, capped at 10.
func Evaluate(entries []Entry) Evaluation {
	total := 0
	chars := 0
	for _, entry := range entries {
		if entry.Role != string(conversation.RoleCandidate) {
			continue
		}
		total++
		chars += utf8.RuneCountInString(entry.Content)
	}

	eval := Evaluation{
		TotalResponses:  total,
		EngagementScore: min(10, total*2),
		Notes:           evaluationNotes,
	}
	if total > 0 {
		eval.AverageResponseLength = float64(chars) / float64(total)
	}
	return eval
}

// Decode parses an export produced by the backend.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if doc.SessionInfo.ID == "" {
		return Document{}, fmt.Errorf("%w: missing session_info.id", ErrMalformedDocument)
	}
	return doc, nil
}
