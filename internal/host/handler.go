package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/parley/internal/conversation"
	"github.com/rbright/parley/internal/fsm"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/session"
)

// Handle implements ipc.Handler for the owner process.
func (h *Host) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return h.status()
	case ipc.CommandRecord:
		return h.toggleRecord(ctx)
	case ipc.CommandCancel:
		return h.cancelRecording(ctx)
	case ipc.CommandReplay:
		return h.replay(req.Turn)
	case ipc.CommandRetry:
		return h.retry()
	case ipc.CommandTranscript:
		return h.transcript(req.Role)
	case ipc.CommandExport:
		return h.export()
	case ipc.CommandEnd:
		return h.requestEnd(ctx)
	default:
		return h.fail(fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (h *Host) status() ipc.Response {
	resp := h.response("status")
	resp.Session = h.sessionView()
	if resp.Recording {
		resp.ElapsedS = int(h.recorder.Elapsed().Seconds())
	}
	if err := h.controller.LastError(); err != nil {
		resp.Error = session.Message(err)
	}
	return resp
}

// toggleRecord starts a capture, or stops the active one and queues its clip.
func (h *Host) toggleRecord(ctx context.Context) ipc.Response {
	if h.recorder.Active() {
		clip, ok, err := h.recorder.StopCapture(ctx)
		if err != nil {
			return h.fail(fmt.Errorf("stop recording: %w", err))
		}
		h.indicator.CueStop(ctx)
		if !ok {
			return h.response("not recording")
		}
		h.logger.Info("recording stopped", "clip_id", clip.ID, "duration_ms", clip.Duration.Milliseconds())
		return h.response("answer submitted")
	}

	switch state := h.controller.State(); {
	case state == fsm.StateClosed:
		return h.fail(session.ErrClosed)
	case !h.controller.CanRecord():
		return h.fail(fmt.Errorf("%w (%s)", session.ErrNotReady, state))
	}

	if err := h.recorder.StartCapture(ctx); err != nil {
		h.logger.Error("start recording failed", "error", err.Error())
		h.indicator.ShowError(ctx, session.Message(err))
		return h.fail(err)
	}
	h.indicator.ShowRecording(ctx)
	return h.response("recording")
}

func (h *Host) cancelRecording(ctx context.Context) ipc.Response {
	if !h.recorder.Cancel() {
		return h.response("not recording")
	}
	h.indicator.CueCancel(ctx)
	h.indicator.Hide(ctx)
	return h.response("recording cancelled")
}

// replay plays the selected turn, defaulting to the latest interviewer turn.
func (h *Host) replay(index *int) ipc.Response {
	log := h.controller.Log()

	var (
		turn conversation.Turn
		at   int
		ok   bool
	)
	if index == nil {
		turn, at, ok = log.Last(conversation.RoleInterviewer)
		if !ok {
			return h.fail(errors.New("no interviewer turn to replay"))
		}
	} else {
		at = *index
		turn, ok = log.At(at)
		if !ok {
			return h.fail(fmt.Errorf("turn %d does not exist", at))
		}
	}
	if !turn.HasAudio() {
		return h.fail(fmt.Errorf("turn %d has no audio", at))
	}
	if !h.play(at, turn.AudioReference) {
		return h.fail(errors.New("playback unavailable"))
	}
	return h.response(fmt.Sprintf("replaying turn %d", at))
}

// retry re-requests the opening question after it failed.
func (h *Host) retry() ipc.Response {
	if state := h.controller.State(); state != fsm.StateIdle {
		return h.fail(fmt.Errorf("nothing to retry in state %s", state))
	}
	h.spawn(h.initialize)
	return h.response("retrying")
}

func (h *Host) transcript(rawRole string) ipc.Response {
	role, err := conversation.ParseRole(rawRole)
	if err != nil {
		return h.fail(err)
	}

	log := h.controller.Log()
	turns := log.Turns()
	views := make([]ipc.TurnView, 0, len(turns))
	for i, turn := range turns {
		if role != "" && turn.Role != role {
			continue
		}
		views = append(views, turnView(i, turn))
	}

	resp := h.response("transcript")
	resp.Turns = views
	return resp
}

func (h *Host) export() ipc.Response {
	resp := h.transcript("")
	resp.Message = "export"
	resp.Session = h.sessionView()
	return resp
}

func (h *Host) requestEnd(ctx context.Context) ipc.Response {
	if !h.end() {
		return h.response("interview already ended")
	}
	h.indicator.Hide(ctx)
	return h.response("interview ended")
}

func (h *Host) response(message string) ipc.Response {
	return ipc.Response{
		OK:        true,
		State:     string(h.controller.State()),
		Busy:      h.controller.IsBusy(),
		Recording: h.recorder.Active(),
		Message:   message,
	}
}

func (h *Host) fail(err error) ipc.Response {
	resp := h.response("")
	resp.OK = false
	resp.Error = err.Error()
	return resp
}

func (h *Host) sessionView() *ipc.SessionView {
	sess := h.controller.Session()
	return &ipc.SessionView{
		ID:        sess.ID,
		Category:  string(sess.Category),
		CreatedAt: sess.CreatedAt,
	}
}

func turnView(index int, turn conversation.Turn) ipc.TurnView {
	return ipc.TurnView{
		Index:     index,
		Role:      string(turn.Role),
		Content:   turn.Content,
		Timestamp: turn.Timestamp,
		HasAudio:  turn.HasAudio(),
	}
}
