package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle                    State = "idle"
	StateAwaitingInitialQuestion State = "awaiting_initial_question"
	StateReady                   State = "ready"
	StateAwaitingTranscription   State = "awaiting_transcription"
	StateAwaitingReply           State = "awaiting_reply"
	StateClosed                  State = "closed"
)

const (
	EventBegin       Event = "begin"
	EventOpened      Event = "opened"
	EventClip        Event = "clip"
	EventTranscribed Event = "transcribed"
	EventReplied     Event = "replied"
	EventFail        Event = "fail"
	EventEnd         Event = "end"
)

// Busy reports whether a state has a remote request in flight.
func (s State) Busy() bool {
	switch s {
	case StateAwaitingInitialQuestion, StateAwaitingTranscription, StateAwaitingReply:
		return true
	default:
		return false
	}
}

func Transition(current State, event Event) (State, error) {
	if event == EventEnd {
		return StateClosed, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventBegin:
			return StateAwaitingInitialQuestion, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingInitialQuestion:
		switch event {
		case EventOpened:
			return StateReady, nil
		case EventFail:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateReady:
		switch event {
		case EventClip:
			return StateAwaitingTranscription, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingTranscription:
		switch event {
		case EventTranscribed:
			return StateAwaitingReply, nil
		case EventFail:
			return StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAwaitingReply:
		switch event {
		case EventReplied, EventFail:
			return StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateClosed:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
