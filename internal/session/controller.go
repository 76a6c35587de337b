package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/conversation"
	"github.com/rbright/parley/internal/fsm"
)

// TurnFunc observes each turn appended by the controller.
type TurnFunc func(index int, turn conversation.Turn)

// Controller orchestrates interview state transitions, collaborator calls, and the log.
// Remote calls run outside the state lock; their results are applied only while
// the state that issued them is still current.
type Controller struct {
	logger      *slog.Logger
	session     Session
	transcriber Transcriber
	dialogue    Dialogue
	log         *conversation.Log
	indicator   Indicator
	now         func() time.Time

	mu      sync.RWMutex
	state   fsm.State
	lastErr error
	onTurn  TurnFunc
}

// NewController constructs a turn controller in the idle state.
func NewController(
	logger *slog.Logger,
	sess Session,
	transcriber Transcriber,
	dialogue Dialogue,
	log *conversation.Log,
	indicator Indicator,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if log == nil {
		log = conversation.NewLog()
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}

	return &Controller{
		logger:      logger,
		session:     sess,
		transcriber: transcriber,
		dialogue:    dialogue,
		log:         log,
		indicator:   indicator,
		now:         time.Now,
		state:       fsm.StateIdle,
	}
}

// OnTurn registers a hook called after every appended turn.
func (c *Controller) OnTurn(fn TurnFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTurn = fn
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsBusy reports whether recording must be refused right now.
func (c *Controller) IsBusy() bool {
	return c.State() != fsm.StateReady
}

// CanRecord reports whether a new clip would be accepted.
func (c *Controller) CanRecord() bool {
	return !c.IsBusy()
}

// Messages returns a snapshot of the conversation in creation order.
func (c *Controller) Messages() []conversation.Turn {
	return c.log.Turns()
}

// Log exposes the underlying conversation log for read-only views.
func (c *Controller) Log() *conversation.Log {
	return c.log
}

// Session returns the interview identity.
func (c *Controller) Session() Session {
	return c.session
}

// LastError returns the most recent collaborator failure, cleared by the next success.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Initialize requests the opening question. It may be repeated after a failure.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state == fsm.StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err := c.transitionLocked(fsm.EventBegin); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	c.indicator.ShowBusy(ctx, fsm.StateAwaitingInitialQuestion)
	reply, err := c.dialogue.AdvanceInterview(ctx, AdvanceRequest{
		SessionID: c.session.ID,
		Category:  c.session.Category,
	})

	c.mu.Lock()
	if c.state != fsm.StateAwaitingInitialQuestion {
		c.mu.Unlock()
		c.logger.Info("late opening question discarded", "state", string(c.State()))
		return ErrClosed
	}
	if err != nil {
		failure := c.failLocked(ErrInitializationFailed, err)
		c.mu.Unlock()
		c.reportFailure(ctx, failure)
		return failure
	}
	index, turn := c.appendLocked(conversation.Turn{
		Role:           conversation.RoleInterviewer,
		Content:        reply.Text,
		AudioReference: reply.AudioReference,
	})
	_ = c.transitionLocked(fsm.EventOpened)
	c.lastErr = nil
	hook := c.onTurn
	c.mu.Unlock()

	c.turnAppended(hook, index, turn)
	c.settle(ctx)
	return nil
}

// SubmitRecordedClip transcribes clip, records the candidate turn, and requests
// the follow-up question. Outside the ready state it changes nothing.
func (c *Controller) SubmitRecordedClip(ctx context.Context, clip audio.Clip) error {
	c.mu.Lock()
	switch c.state {
	case fsm.StateReady:
	case fsm.StateClosed:
		c.mu.Unlock()
		c.logger.Info("submit rejected", "state", string(fsm.StateClosed), "clip_id", clip.ID)
		return ErrClosed
	default:
		state := c.state
		c.mu.Unlock()
		c.logger.Info("submit rejected", "state", string(state), "clip_id", clip.ID)
		return ErrNotReady
	}
	_ = c.transitionLocked(fsm.EventClip)
	c.mu.Unlock()

	c.indicator.ShowBusy(ctx, fsm.StateAwaitingTranscription)
	transcript, err := c.transcriber.Transcribe(ctx, clip)

	c.mu.Lock()
	if c.state != fsm.StateAwaitingTranscription {
		c.mu.Unlock()
		c.logger.Info("late transcript discarded", "clip_id", clip.ID)
		return ErrClosed
	}
	if err != nil {
		failure := c.failLocked(ErrTranscriptionFailed, err)
		c.mu.Unlock()
		c.reportFailure(ctx, failure)
		return failure
	}
	index, turn := c.appendLocked(conversation.Turn{
		Role:    conversation.RoleCandidate,
		Content: transcript,
	})
	_ = c.transitionLocked(fsm.EventTranscribed)
	hook := c.onTurn
	c.mu.Unlock()

	c.turnAppended(hook, index, turn)
	c.indicator.ShowBusy(ctx, fsm.StateAwaitingReply)
	reply, err := c.dialogue.AdvanceInterview(ctx, AdvanceRequest{
		SessionID:  c.session.ID,
		Transcript: transcript,
		Category:   c.session.Category,
	})

	c.mu.Lock()
	if c.state != fsm.StateAwaitingReply {
		c.mu.Unlock()
		c.logger.Info("late reply discarded", "clip_id", clip.ID)
		return ErrClosed
	}
	if err != nil {
		failure := c.failLocked(ErrReplyFailed, err)
		c.mu.Unlock()
		c.reportFailure(ctx, failure)
		return failure
	}
	index, turn = c.appendLocked(conversation.Turn{
		Role:           conversation.RoleInterviewer,
		Content:        reply.Text,
		AudioReference: reply.AudioReference,
	})
	_ = c.transitionLocked(fsm.EventReplied)
	c.lastErr = nil
	hook = c.onTurn
	c.mu.Unlock()

	c.turnAppended(hook, index, turn)
	c.settle(ctx)
	return nil
}

// End closes the interview. Results that arrive afterwards are discarded.
func (c *Controller) End() {
	c.mu.Lock()
	previous := c.state
	_ = c.transitionLocked(fsm.EventEnd)
	c.mu.Unlock()

	if previous != fsm.StateClosed {
		c.logger.Info("interview ended", "session_id", c.session.ID, "previous_state", string(previous), "turns", c.log.Len())
		c.indicator.Hide(context.Background())
	}
}

// transitionLocked applies one FSM event. Callers hold c.mu.
func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) failLocked(kind error, cause error) *Error {
	failure := &Error{Kind: kind, Err: cause}
	_ = c.transitionLocked(fsm.EventFail)
	c.lastErr = failure
	return failure
}

// appendLocked adds a timestamped turn. Callers hold c.mu.
func (c *Controller) appendLocked(turn conversation.Turn) (int, conversation.Turn) {
	turn.Timestamp = c.now()
	index, err := c.log.Append(turn)
	if err != nil {
		c.logger.Error("append turn failed", "error", err.Error())
	}
	return index, turn
}

func (c *Controller) turnAppended(hook TurnFunc, index int, turn conversation.Turn) {
	c.logger.Debug("turn appended",
		"index", index,
		"role", string(turn.Role),
		"chars", len(turn.Content),
		"has_audio", turn.HasAudio(),
	)
	if hook != nil {
		hook(index, turn)
	}
}

func (c *Controller) reportFailure(ctx context.Context, failure *Error) {
	attrs := []any{"error", failure.Error(), "state", string(c.State())}
	var status interface{ StatusCode() int }
	if errors.As(failure.Err, &status) {
		attrs = append(attrs, "status", status.StatusCode())
	}
	c.logger.Error("turn failed", attrs...)
	c.indicator.ShowError(ctx, Message(failure))
}

func (c *Controller) settle(ctx context.Context) {
	c.indicator.Hide(ctx)
	c.indicator.CueComplete(ctx)
}
