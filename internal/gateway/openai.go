package gateway

import (
	"context"
	"errors"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"prepai-go/internal/config"
)

// OpenAIProvider is the Provider backed by the OpenAI API (or any server
// speaking the same protocol at BaseURL).
type OpenAIProvider struct {
	client             openai.Client
	transcriptionModel string
	evaluationModel    string
	temperature        float64
}

// NewOpenAIProvider returns ErrMissingCredential when cfg carries no API key.
func NewOpenAIProvider(cfg config.ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIProvider{
		client:             openai.NewClient(opts...),
		transcriptionModel: cfg.TranscriptionModel,
		evaluationModel:    cfg.EvaluationModel,
		temperature:        cfg.Temperature,
	}, nil
}

// namedReader gives the multipart encoder a file name and content type.
type namedReader struct {
	io.Reader
	name        string
	contentType string
}

func (r namedReader) Filename() string    { return r.name }
func (r namedReader) ContentType() string { return r.contentType }

func (p *OpenAIProvider) Transcribe(ctx context.Context, audio Audio) (string, error) {
	name := audio.Name
	if name == "" {
		name = "answer.webm"
	}
	contentType := audio.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  namedReader{Reader: audio.Data, name: name, contentType: contentType},
		Model: openai.AudioModel(p.transcriptionModel),
	})
	if err != nil {
		return "", toUpstream("transcription", err)
	}
	return resp.Text, nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.evaluationModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(p.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", toUpstream("evaluation", err)
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Op: "evaluation", Err: errors.New("no choices returned")}
	}
	return resp.Choices[0].Message.Content, nil
}

func toUpstream(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &UpstreamError{Op: op, StatusCode: apiErr.StatusCode, Err: err}
	}
	return &UpstreamError{Op: op, Err: err}
}

// NewServiceFromConfig builds a Service on the OpenAI provider. Without a
// credential the service still runs and every call fails with
// ErrMissingCredential.
func NewServiceFromConfig(cfg config.ProviderConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	var provider Provider
	p, err := NewOpenAIProvider(cfg)
	if err != nil {
		log.Warn("AI provider not configured, gateway calls will fail", zap.Error(err))
	} else {
		provider = p
	}
	return NewService(provider, cfg.Timeout, log)
}
