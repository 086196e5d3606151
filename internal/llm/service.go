// Package llm wraps the OpenAI-compatible chat API used as the narrative
// generator. The server only trusts the structural shape of what comes back;
// all content flows through the patch normalizer afterwards.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"medievalrpg/internal/debug"
	"medievalrpg/internal/observability"
)

// Config selects the upstream endpoint and model. BaseURL may point at any
// OpenAI-compatible provider.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type Service struct {
	client    *openai.Client
	model     string
	maxTokens int
	debug     *debug.Logger
	tracer    trace.Tracer
}

func NewService(cfg Config, dbg *debug.Logger) *Service {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = "grok-beta"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &Service{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		debug:     dbg,
		tracer:    otel.Tracer("llm-service"),
	}
}

// CompleteJSON runs one chat completion in JSON-object response mode and
// returns the raw message content. Transport failures, non-success statuses
// and empty choice lists all surface as errors; the caller owns retries.
func (s *Service) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "scene_generation",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.GenAIAttributes("openai", s.model)...),
	)
	defer span.End()

	if sessionID := observability.SessionIDFromContext(ctx); sessionID != "" {
		span.SetAttributes(attribute.String("session.id", sessionID))
	}
	span.SetAttributes(attribute.Int("gen_ai.request.max_tokens", s.maxTokens))

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		MaxCompletionTokens: openai.Int(int64(s.maxTokens)),
		Temperature:         openai.Float(0.6),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: func() *shared.ResponseFormatJSONObjectParam {
				p := shared.NewResponseFormatJSONObjectParam()
				return &p
			}(),
		},
	}

	start := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, req)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		s.debug.Printf("generator call failed: %v", err)
		return "", fmt.Errorf("scene generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("scene generation: no completion choices returned")
		span.RecordError(err)
		return "", err
	}

	content := resp.Choices[0].Message.Content
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int64("response_time_ms", time.Since(start).Milliseconds()),
	)
	s.debug.Printf("generator response: %d chars, tokens %d/%d, %v",
		len(content), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, time.Since(start))
	return content, nil
}
