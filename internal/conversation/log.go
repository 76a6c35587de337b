// Package conversation holds the ordered, append-only interview turn log.
package conversation

import (
	"fmt"
	"sync"
	"time"
)

// Role identifies which party spoke a turn.
type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

// ParseRole validates a role filter value. Empty means no filter.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case "":
		return "", nil
	case RoleCandidate, RoleInterviewer:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q (want candidate or interviewer)", raw)
	}
}

// Turn is one utterance. Candidate turns never carry an AudioReference.
type Turn struct {
	Role           Role
	Content        string
	Timestamp      time.Time
	AudioReference string
}

// HasAudio reports whether the turn can be played back.
func (t Turn) HasAudio() bool {
	return t.AudioReference != ""
}

// Log is the append-only turn sequence for one session.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds turn at the end of the log and returns its index.
func (l *Log) Append(turn Turn) (int, error) {
	switch turn.Role {
	case RoleCandidate:
		if turn.AudioReference != "" {
			return 0, fmt.Errorf("candidate turn must not carry an audio reference")
		}
	case RoleInterviewer:
	default:
		return 0, fmt.Errorf("unknown role %q", turn.Role)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turn)
	return len(l.turns) - 1, nil
}

// Len returns the number of turns appended so far.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Turns returns a snapshot copy in creation order.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// At returns the turn at index i.
func (l *Log) At(i int) (Turn, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.turns) {
		return Turn{}, false
	}
	return l.turns[i], true
}

// ByRole filters the log on read. An empty role returns every turn.
func (l *Log) ByRole(role Role) []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, 0, len(l.turns))
	for _, turn := range l.turns {
		if role == "" || turn.Role == role {
			out = append(out, turn)
		}
	}
	return out
}

// Last returns the most recent turn spoken by role.
func (l *Log) Last(role Role) (Turn, int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].Role == role {
			return l.turns[i], i, true
		}
	}
	return Turn{}, -1, false
}
