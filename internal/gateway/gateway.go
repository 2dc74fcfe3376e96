// Package gateway forwards transcription and scoring work to the upstream AI
// provider and normalizes what comes back.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"prepai-go/internal/interview"
)

// CredentialName is the environment variable holding the provider key.
const CredentialName = "OPENAI_API_KEY"

var (
	// ErrMissingCredential is returned by every call while the server has
	// no provider key.
	ErrMissingCredential = errors.New("server missing " + CredentialName)
	// ErrNoQuestions rejects an evaluation without answers.
	ErrNoQuestions = errors.New("questions must be a non-empty list")
)

// Audio is one uploaded answer.
type Audio struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// Provider is the upstream AI service.
type Provider interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
	Complete(ctx context.Context, system, user string) (string, error)
}

// UpstreamError is a failed provider call. StatusCode is 0 when the
// provider never answered.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: upstream status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Service runs the two gateway operations against a Provider.
type Service struct {
	provider Provider
	timeout  time.Duration
	log      *zap.Logger
}

// NewService returns a service using provider, which is nil when no
// credential is configured.
func NewService(provider Provider, timeout time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{provider: provider, timeout: timeout, log: log.Named("gateway")}
}

// Ready reports whether a provider is configured.
func (s *Service) Ready() bool {
	return s.provider != nil
}

// Transcribe returns the text spoken in audio. Silence yields "".
func (s *Service) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if s.provider == nil {
		return "", ErrMissingCredential
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	text, err := s.provider.Transcribe(ctx, audio)
	if err != nil {
		return "", wrapUpstream("transcription", err)
	}
	s.log.Debug("Transcribed answer", zap.String("file", audio.Name), zap.Duration("took", time.Since(start)), zap.Int("chars", len(text)))
	return text, nil
}

// Evaluate scores every answer in req.
func (s *Service) Evaluate(ctx context.Context, req interview.EvaluationRequest) (*interview.EvaluationResult, error) {
	if len(req.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if s.provider == nil {
		return nil, ErrMissingCredential
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	system, user := BuildEvaluationPrompt(req)
	content, err := s.provider.Complete(ctx, system, user)
	if err != nil {
		return nil, wrapUpstream("evaluation", err)
	}

	result, err := ParseEvaluation(content, req.Questions)
	if err != nil {
		s.log.Warn("Unparseable evaluation from provider", zap.Error(err), zap.Int("length", len(content)))
		return nil, err
	}
	return result, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func wrapUpstream(op string, err error) error {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}
