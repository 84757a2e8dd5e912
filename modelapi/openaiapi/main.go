package openaiapi

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"salestrainerdev/logger"
	"salestrainerdev/modelapi"
)

const DEFAULT_MODEL = "gpt-4o-mini"

type OpenAI struct {
	logger    *logger.LogMiddleware
	semaphore *semaphore.Weighted
	client    *openai.Client
}

type OpenAIConnectProps struct {
	Logger *logger.LogMiddleware
	APIKey string
}

func Connect(ctx context.Context, args OpenAIConnectProps) *OpenAI {
	tracer := otel.Tracer("openaiapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	maxWorkers := 10
	sem := semaphore.NewWeighted(int64(maxWorkers))

	apiKey := args.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_SECRET_KEY")
	}

	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers))
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &OpenAI{logger: args.Logger, semaphore: sem, client: &client}
}

// GetProspectReply asks OpenAI for the simulated prospect's next line.
func (d *OpenAI) GetProspectReply(ctx context.Context, args modelapi.ProspectReplyProps) (string, error) {
	tracer := otel.Tracer("openaiapi/GetProspectReply")
	ctx, span := tracer.Start(ctx, "GetProspectReply")
	defer span.End()

	if err := d.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer d.semaphore.Release(1)

	model := args.Model
	if model == "" {
		model = DEFAULT_MODEL
	}

	span.SetAttributes(
		attribute.String("request.model", model),
		attribute.Int("request.max_tokens", args.MaxTokens),
	)
	d.logger.Logger(ctx).Info("[OpenAIAPI] Generating prospect reply", zap.String("model", model))

	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(args.SystemPrompt),
			openai.UserMessage(args.UserPrompt),
		},
		MaxTokens:   openai.Int(int64(args.MaxTokens)),
		Temperature: openai.Float(args.Temperature),
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no response received")
	}

	return resp.Choices[0].Message.Content, nil
}
