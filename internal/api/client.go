package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/response"
)

// Client talks to the exam REST API. All responses use the standardized
// envelope; errors carry the server's typed error code.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// New creates an API client. baseURL is the versioned API root
// (e.g. http://host:8080/api/v1); token is the student bearer token.
func New(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "api_client").Logger(),
	}
}

// LoginResponse is the auth payload returned on student login.
type LoginResponse struct {
	Token     string `json:"token"`
	StudentID int    `json:"student_id"`
	Name      string `json:"name"`
}

// Login authenticates a student and stores the returned token on the
// client for subsequent calls.
func (c *Client) Login(ctx context.Context, nisn, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/student/login",
		map[string]string{"nisn": nisn, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Token returns the bearer token currently held by the client.
func (c *Client) Token() string { return c.token }

// StartAttempt begins (or resumes) an attempt at the exam. Fails with
// ErrAccessCodeRequired / ErrAccessCodeInvalid when the exam is
// code-protected; both are recoverable with user input.
func (c *Client) StartAttempt(ctx context.Context, examID uuid.UUID, accessCode string) (*model.Attempt, error) {
	var out model.Attempt
	req := model.StartAttemptRequest{AccessCode: accessCode}
	if err := c.do(ctx, http.MethodPost, "/student/exams/"+examID.String()+"/start", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveAnswer progressively persists one answer. Fire-and-forget at the
// call site: the controller logs and swallows failures.
func (c *Client) SaveAnswer(ctx context.Context, examID uuid.UUID, req *model.SaveAnswerRequest) error {
	return c.do(ctx, http.MethodPost, "/student/exams/"+examID.String()+"/answers", req, nil)
}

// SubmitAttempt finalizes the attempt with the complete answer map.
// Irrevocable server-side on success.
func (c *Client) SubmitAttempt(ctx context.Context, examID uuid.UUID, req *model.SubmitRequest) (*model.Result, error) {
	var out model.Result
	if err := c.do(ctx, http.MethodPost, "/student/exams/"+examID.String()+"/submit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchResult retrieves the full graded breakdown for a submitted attempt.
func (c *Client) FetchResult(ctx context.Context, examID, attemptID uuid.UUID) (*model.Result, error) {
	var out model.Result
	path := "/student/exams/" + examID.String() + "/attempts/" + attemptID.String() + "/result"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes one request and decodes the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env response.Response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	if env.Error != nil {
		return &Error{Status: resp.StatusCode, Code: env.Error.Code, Message: env.Error.Message}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &Error{Status: resp.StatusCode, Code: response.ErrInternal, Message: http.StatusText(resp.StatusCode)}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
