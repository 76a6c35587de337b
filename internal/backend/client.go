// Package backend talks to the interview API over HTTP/JSON.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/session"
)

const (
	// DefaultBaseURL matches the API's local development address.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a single request, including speech synthesis.
	DefaultTimeout = 60 * time.Second

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 4096
)

// ErrEmptyResponse means a 2xx response lacked its required field.
var ErrEmptyResponse = errors.New("backend returned an empty response")

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	detail := strings.TrimSpace(e.Body)
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal([]byte(detail), &payload) == nil && payload.Detail != "" {
		detail = payload.Detail
	}
	if detail == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, detail)
}

// StatusCode returns the HTTP status.
func (e *StatusError) StatusCode() int {
	return e.Code
}

// Client calls the interview API. It satisfies session.Transcriber and session.Dialogue.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	HealthPath string
	NewID      func() string
}

// NewClient builds a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HealthPath: "/",
		NewID:      uuid.NewString,
	}
}

type createSessionRequest struct {
	InterviewType string `json:"interview_type"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

type interviewRequest struct {
	SessionID     string `json:"session_id"`
	Transcript    string `json:"transcript"`
	InterviewType string `json:"interview_type"`
}

type interviewResponse struct {
	SessionID           string `json:"session_id"`
	InterviewerResponse string `json:"interviewer_response"`
	AudioBase64         string `json:"audio_base64"`
}

type healthResponse struct {
	Message string `json:"message"`
}

// CreateSession registers a new interview and returns its identity.
func (c *Client) CreateSession(ctx context.Context, category session.Category) (session.Session, error) {
	var out createSessionResponse
	if err := c.postJSON(ctx, "/create_session", createSessionRequest{InterviewType: string(category)}, &out); err != nil {
		return session.Session{}, fmt.Errorf("create session: %w", err)
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return session.Session{}, fmt.Errorf("create session: %w", ErrEmptyResponse)
	}
	return session.Session{ID: out.SessionID, Category: category, CreatedAt: time.Now()}, nil
}

// Transcribe uploads clip as a multipart WAV file and returns the recognized text verbatim.
func (c *Client) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	filename := clip.Filename
	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("transcribe: build form: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return "", fmt.Errorf("transcribe: build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("transcribe: build form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out transcribeResponse
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return out.Transcript, nil
}

// AdvanceInterview sends the candidate transcript and returns the next interviewer turn.
// Synthesized audio comes back as a data URI audio reference.
func (c *Client) AdvanceInterview(ctx context.Context, req session.AdvanceRequest) (session.Reply, error) {
	payload := interviewRequest{
		SessionID:     req.SessionID,
		Transcript:    req.Transcript,
		InterviewType: string(req.Category),
	}
	var out interviewResponse
	if err := c.postJSON(ctx, "/interview", payload, &out); err != nil {
		return session.Reply{}, fmt.Errorf("advance interview: %w", err)
	}
	if strings.TrimSpace(out.InterviewerResponse) == "" {
		return session.Reply{}, fmt.Errorf("advance interview: %w", ErrEmptyResponse)
	}

	reply := session.Reply{Text: out.InterviewerResponse}
	if out.AudioBase64 != "" {
		reply.AudioReference = "data:audio/mpeg;base64," + out.AudioBase64
	}
	return reply, nil
}

// Export fetches the API's own export document for sessionID as raw JSON.
func (c *Client) Export(ctx context.Context, sessionID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/session/"+url.PathEscape(sessionID)+"/export", nil)
	if err != nil {
		return nil, fmt.Errorf("export session: %w", err)
	}
	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, fmt.Errorf("export session: %w", err)
	}
	return raw, nil
}

// Health probes the API root and returns its banner message.
func (c *Client) Health(ctx context.Context) (string, error) {
	path := c.HealthPath
	if path == "" {
		path = "/"
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", fmt.Errorf("health: %w", err)
	}
	var out healthResponse
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("health: %w", err)
	}
	return out.Message, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method string, path string, body io.Reader) (*http.Request, error) {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return nil, err
	}
	newID := c.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	req.Header.Set(requestIDHeader, newID())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: req.Method,
			Path:   req.URL.Path,
			Code:   resp.StatusCode,
			Body:   string(b),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
