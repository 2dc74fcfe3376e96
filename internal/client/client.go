// Package client talks to the prepai server on behalf of the interview
// runner: transcription, evaluation and saving finished interviews.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"prepai-go/internal/config"
	"prepai-go/internal/interview"
	"prepai-go/internal/models"
)

// Client implements interview.Transcriber and interview.Evaluator over HTTP.
type Client struct {
	http *resty.Client
}

// New returns a client for the server at cfg.URL.
func New(cfg config.GatewayConfig) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// Transcribe uploads one recorded answer. A non-2xx answer is returned as
// *interview.TranscriptionError carrying the status and body.
func (c *Client) Transcribe(ctx context.Context, questionID int, audio []byte) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("file", fmt.Sprintf("answer-%d.wav", questionID), "audio/wav", bytes.NewReader(audio)).
		SetFormData(map[string]string{"questionId": strconv.Itoa(questionID)}).
		SetResult(&out).
		Post("/transcribe")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &interview.TranscriptionError{Err: err}
	}
	if resp.IsError() {
		return "", &interview.TranscriptionError{
			StatusCode: resp.StatusCode(),
			Body:       errorBody(resp),
			Err:        errors.New(http.StatusText(resp.StatusCode())),
		}
	}
	return out.Text, nil
}

type evaluationBody struct {
	OverallScore    float64                    `json:"overallScore"`
	OverallFeedback string                     `json:"overallFeedback"`
	PerQuestion     *[]interview.QuestionScore `json:"perQuestion"`
}

// Evaluate sends all answers for scoring. A response without a perQuestion
// list is an *interview.EvaluationError wrapping ErrMalformedEvaluation.
func (c *Client) Evaluate(ctx context.Context, req interview.EvaluationRequest) (*interview.EvaluationResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/evaluate")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &interview.EvaluationError{Err: err}
	}
	if resp.IsError() {
		return nil, &interview.EvaluationError{
			StatusCode: resp.StatusCode(),
			Body:       errorBody(resp),
			Err:        errors.New(http.StatusText(resp.StatusCode())),
		}
	}

	var body evaluationBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.PerQuestion == nil {
		return nil, &interview.EvaluationError{
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.String(), 500),
			Err:        interview.ErrMalformedEvaluation,
		}
	}
	return &interview.EvaluationResult{
		OverallScore:    body.OverallScore,
		OverallFeedback: body.OverallFeedback,
		PerQuestion:     *body.PerQuestion,
	}, nil
}

// SaveInterview stores a finished interview in the server's history and
// returns its ID.
func (c *Client) SaveInterview(ctx context.Context, sub models.InterviewSubmission) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(sub).
		SetResult(&out).
		Post("/interviews")
	if err != nil {
		return "", fmt.Errorf("failed to save interview: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("failed to save interview: status %d: %s", resp.StatusCode(), errorBody(resp))
	}
	return out.ID, nil
}

// errorBody prefers the server's {"error","detail"} fields over the raw body.
func errorBody(resp *resty.Response) string {
	var e struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(resp.Body(), &e) == nil && e.Error != "" {
		if e.Detail != "" {
			return e.Error + ": " + e.Detail
		}
		return e.Error
	}
	return truncate(strings.TrimSpace(resp.String()), 500)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
