package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/conversation"
	"github.com/rbright/parley/internal/fsm"
	"github.com/stretchr/testify/require"
)

type fakeIndicator struct {
	mu           sync.Mutex
	busy         []fsm.State
	errors       []string
	completeCues atomic.Int32
	hides        atomic.Int32
}

func (f *fakeIndicator) ShowBusy(_ context.Context, state fsm.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = append(f.busy, state)
}

func (f *fakeIndicator) ShowError(_ context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, text)
}

func (f *fakeIndicator) CueComplete(context.Context) { f.completeCues.Add(1) }
func (f *fakeIndicator) Hide(context.Context)        { f.hides.Add(1) }

func (f *fakeIndicator) errorTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.errors...)
}

type scriptedDialogue struct {
	mu       sync.Mutex
	requests []AdvanceRequest
	replies  []Reply
	errs     []error
}

func (d *scriptedDialogue) AdvanceInterview(_ context.Context, req AdvanceRequest) (Reply, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	call := len(d.requests)
	d.requests = append(d.requests, req)
	if call < len(d.errs) && d.errs[call] != nil {
		return Reply{}, d.errs[call]
	}
	if call < len(d.replies) {
		return d.replies[call], nil
	}
	return Reply{Text: fmt.Sprintf("question %d", call), AudioReference: fmt.Sprintf("ref-%d", call)}, nil
}

func (d *scriptedDialogue) calls() []AdvanceRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]AdvanceRequest(nil), d.requests...)
}

func echoTranscriber(text string) TranscribeFunc {
	return func(context.Context, audio.Clip) (string, error) { return text, nil }
}

func technicalSession() Session {
	return Session{ID: "sess-1", Category: CategoryTechnical, CreatedAt: time.Unix(1700000000, 0)}
}

func newReadyController(t *testing.T, transcriber Transcriber, dialogue Dialogue, ind Indicator) *Controller {
	t.Helper()
	ctrl := NewController(nil, technicalSession(), transcriber, dialogue, nil, ind)
	require.NoError(t, ctrl.Initialize(context.Background()))
	require.Equal(t, fsm.StateReady, ctrl.State())
	return ctrl
}

func TestControllerEndToEndInterview(t *testing.T) {
	dialogue := &scriptedDialogue{replies: []Reply{
		{Text: "Tell me about yourself.", AudioReference: "ref-1"},
		{Text: "Which systems have you scaled?", AudioReference: "ref-42"},
	}}
	ind := &fakeIndicator{}
	ctrl := NewController(nil, technicalSession(), echoTranscriber("I have five years of experience"), dialogue, nil, ind)
	require.True(t, ctrl.IsBusy())
	require.False(t, ctrl.CanRecord())

	require.NoError(t, ctrl.Initialize(context.Background()))
	require.Equal(t, 1, ctrl.Log().Len())
	first := ctrl.Messages()[0]
	require.Equal(t, conversation.RoleInterviewer, first.Role)
	require.Equal(t, "Tell me about yourself.", first.Content)
	require.True(t, ctrl.CanRecord())

	require.NoError(t, ctrl.SubmitRecordedClip(context.Background(), audio.Clip{ID: "clip-1"}))

	turns := ctrl.Messages()
	require.Len(t, turns, 3)
	require.Equal(t, conversation.RoleCandidate, turns[1].Role)
	require.Equal(t, "I have five years of experience", turns[1].Content)
	require.False(t, turns[1].HasAudio())
	require.Equal(t, conversation.RoleInterviewer, turns[2].Role)
	require.Equal(t, "ref-42", turns[2].AudioReference)
	require.Equal(t, fsm.StateReady, ctrl.State())
	require.NoError(t, ctrl.LastError())

	calls := dialogue.calls()
	require.Len(t, calls, 2)
	require.Equal(t, AdvanceRequest{SessionID: "sess-1", Category: CategoryTechnical}, calls[0])
	require.Equal(t, AdvanceRequest{SessionID: "sess-1", Transcript: "I have five years of experience", Category: CategoryTechnical}, calls[1])

	require.Equal(t, []fsm.State{
		fsm.StateAwaitingInitialQuestion,
		fsm.StateAwaitingTranscription,
		fsm.StateAwaitingReply,
	}, ind.busy)
	require.Equal(t, int32(2), ind.completeCues.Load())
}

func TestControllerLogAlternatesAcrossTurns(t *testing.T) {
	ctrl := newReadyController(t, echoTranscriber("answer"), &scriptedDialogue{}, nil)

	for n := 1; n <= 5; n++ {
		require.NoError(t, ctrl.SubmitRecordedClip(context.Background(), audio.Clip{ID: fmt.Sprintf("clip-%d", n)}))
		turns := ctrl.Messages()
		require.Len(t, turns, 1+2*n)
		for i, turn := range turns {
			want := conversation.RoleInterviewer
			if i%2 == 1 {
				want = conversation.RoleCandidate
			}
			require.Equal(t, want, turn.Role, "turn %d", i)
		}
	}
}

func TestControllerTimestampsTurns(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	ctrl := NewController(nil, technicalSession(), echoTranscriber("hi"), &scriptedDialogue{}, nil, nil)
	ctrl.now = func() time.Time { return at }

	require.NoError(t, ctrl.Initialize(context.Background()))
	turn, ok := ctrl.Log().At(0)
	require.True(t, ok)
	require.Equal(t, at, turn.Timestamp)
}

func TestControllerInitializationFailureStaysIdle(t *testing.T) {
	down := errors.New("connection refused")
	dialogue := &scriptedDialogue{errs: []error{down}}
	ind := &fakeIndicator{}
	ctrl := NewController(nil, technicalSession(), echoTranscriber("x"), dialogue, nil, ind)

	err := ctrl.Initialize(context.Background())
	require.ErrorIs(t, err, ErrInitializationFailed)
	require.ErrorIs(t, err, down)
	require.Equal(t, fsm.StateIdle, ctrl.State())
	require.Zero(t, ctrl.Log().Len())
	require.ErrorIs(t, ctrl.LastError(), ErrInitializationFailed)
	require.Equal(t, []string{"Could not start the interview"}, ind.errorTexts())

	require.ErrorIs(t, ctrl.SubmitRecordedClip(context.Background(), audio.Clip{}), ErrNotReady)

	require.NoError(t, ctrl.Initialize(context.Background()))
	require.Equal(t, fsm.StateReady, ctrl.State())
	require.Equal(t, 1, ctrl.Log().Len())
	require.NoError(t, ctrl.LastError())
}

func TestControllerInitializeRejectedOutsideIdle(t *testing.T) {
	ctrl := newReadyController(t, echoTranscriber("x"), &scriptedDialogue{}, nil)

	err := ctrl.Initialize(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid transition")
	require.Equal(t, 1, ctrl.Log().Len())

	ctrl.End()
	require.ErrorIs(t, ctrl.Initialize(context.Background()), ErrClosed)
}

func TestControllerTranscriptionFailureKeepsLog(t *testing.T) {
	cause := errors.New("status 500")
	transcriber := TranscribeFunc(func(context.Context, audio.Clip) (string, error) { return "", cause })
	ind := &fakeIndicator{}
	ctrl := newReadyController(t, transcriber, &scriptedDialogue{}, ind)

	err := ctrl.SubmitRecordedClip(context.Background(), audio.Clip{ID: "clip-1"})
	require.ErrorIs(t, err, ErrTranscriptionFailed)
	require.ErrorIs(t, err, cause)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	require.Equal(t, ErrTranscriptionFailed, typed.Kind)

	require.Equal(t, fsm.StateReady, ctrl.State())
	require.Equal(t, 1, ctrl.Log().Len())
	require.Equal(t, []string{"Could not transcribe your answer"}, ind.errorTexts())
}

func TestControllerReplyFailureKeepsCandidateTurn(t *testing.T) {
	cause := errors.New("timeout")
	dialogue := &scriptedDialogue{errs: []error{nil, cause}}
	ctrl := newReadyController(t, echoTranscriber("my answer"), dialogue, nil)

	err := ctrl.SubmitRecordedClip(context.Background(), audio.Clip{ID: "clip-1"})
	require.ErrorIs(t, err, ErrReplyFailed)
	require.ErrorIs(t, err, cause)
	require.Equal(t, fsm.StateReady, ctrl.State())

	turns := ctrl.Messages()
	require.Len(t, turns, 2)
	require.Equal(t, conversation.RoleCandidate, turns[1].Role)
	require.Equal(t, "my answer", turns[1].Content)

	require.NoError(t, ctrl.SubmitRecordedClip(context.Background(), audio.Clip{ID: "clip-2"}))
	require.Equal(t, 4, ctrl.Log().Len())
	require.Len(t, dialogue.calls(), 3)
}

func TestControllerSubmitWhileBusyIsNoop(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	transcriber := TranscribeFunc(func(ctx context.Context, _ audio.Clip) (string, error) {
		close(entered)
		<-release
		return "slow answer", nil
	})
	ctrl := newReadyController(t, transcriber, &scriptedDialogue{}, nil)

	done := make(chan error, 1)
	go func() { done <- ctrl.SubmitRecordedClip(context.Background(), audio.Clip{ID: "clip-1"}) }()
	<-entered

	require.True(t, ctrl.IsBusy())
	require.Equal(t, fsm.StateAwaitingTranscription, ctrl.State())
	require.ErrorIs(t, ctrl.SubmitRecordedClip(context.Background(), audio.Clip{ID: "clip-2"}), ErrNotReady)
	require.Equal(t, 1, ctrl.Log().Len())
	require.Equal(t, fsm.StateAwaitingTranscription, ctrl.State())

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 3, ctrl.Log().Len())
}

func TestControllerDiscardsLateReplyAfterEnd(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var calls atomic.Int32
	dialogue := DialogueFunc(func(ctx context.Context, req AdvanceRequest) (Reply, error) {
		if calls.Add(1) == 1 {
			return Reply{Text: "opening"}, nil
		}
		entered <- struct{}{}
		<-release
		return Reply{Text: "too late", AudioReference: "ref-late"}, nil
	})
	ctrl := newReadyController(t, echoTranscriber("answer"), dialogue, nil)

	var appended atomic.Int32
	ctrl.OnTurn(func(int, conversation.Turn) { appended.Add(1) })

	done := make(chan error, 1)
	go func() { done <- ctrl.SubmitRecordedClip(context.Background(), audio.Clip{ID: "clip-1"}) }()
	<-entered
	require.Equal(t, fsm.StateAwaitingReply, ctrl.State())

	ctrl.End()
	require.Equal(t, fsm.StateClosed, ctrl.State())
	close(release)

	require.ErrorIs(t, <-done, ErrClosed)
	require.Equal(t, 2, ctrl.Log().Len())
	require.Equal(t, int32(1), appended.Load())
	require.Equal(t, fsm.StateClosed, ctrl.State())
}

func TestControllerDiscardsLateTranscriptAfterEnd(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	transcriber := TranscribeFunc(func(context.Context, audio.Clip) (string, error) {
		close(entered)
		<-release
		return "answer", nil
	})
	dialogue := &scriptedDialogue{}
	ctrl := newReadyController(t, transcriber, dialogue, nil)

	done := make(chan error, 1)
	go func() { done <- ctrl.SubmitRecordedClip(context.Background(), audio.Clip{}) }()
	<-entered
	ctrl.End()
	close(release)

	require.ErrorIs(t, <-done, ErrClosed)
	require.Equal(t, 1, ctrl.Log().Len())
	require.Len(t, dialogue.calls(), 1)
}

func TestControllerEndIsIdempotent(t *testing.T) {
	ind := &fakeIndicator{}
	ctrl := NewController(nil, technicalSession(), echoTranscriber("x"), &scriptedDialogue{}, nil, ind)

	ctrl.End()
	ctrl.End()
	require.Equal(t, fsm.StateClosed, ctrl.State())
	require.Equal(t, int32(1), ind.hides.Load())
	require.ErrorIs(t, ctrl.SubmitRecordedClip(context.Background(), audio.Clip{}), ErrClosed)
	require.True(t, ctrl.IsBusy())
}

func TestOnTurnSeesEveryAppend(t *testing.T) {
	var seen []int
	ctrl := NewController(nil, technicalSession(), echoTranscriber("x"), &scriptedDialogue{}, nil, nil)
	ctrl.OnTurn(func(index int, _ conversation.Turn) { seen = append(seen, index) })

	require.NoError(t, ctrl.Initialize(context.Background()))
	require.NoError(t, ctrl.SubmitRecordedClip(context.Background(), audio.Clip{}))
	require.Equal(t, []int{0, 1, 2}, seen)
}
