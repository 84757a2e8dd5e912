package geminiapi

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"salestrainerdev/logger"
	"salestrainerdev/modelapi"
)

const (
	GEMINI_MODEL_NAME = "gemini-2.5-flash"
)

type GeminiConnectProps struct {
	Logger *logger.LogMiddleware
	APIKey string
}

const (
	maxRetries = 3
	baseDelay  = 1 * time.Second
)

type Gemini struct {
	logger *logger.LogMiddleware
	client *genai.Client
}

func exponentialBackoff(attempt int) time.Duration {
	return baseDelay * time.Duration(1<<uint(attempt))
}

func Connect(ctx context.Context, args GeminiConnectProps) *Gemini {
	tracer := otel.Tracer("geminiapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()
	args.Logger.Logger(ctx).Info("[GeminiAPI] Connecting Gemini API client")

	apiKey := args.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_SECRET_KEY")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		args.Logger.Logger(ctx).Error("[GeminiAPI] Could not create Gemini client", zap.Error(err))
		span.RecordError(err)
		return &Gemini{logger: args.Logger}
	}

	return &Gemini{logger: args.Logger, client: client}
}

func (g *Gemini) generateContentWithRetry(ctx context.Context, model string, userPrompt string, systemPrompt string, maxTokens int, temperature float64) (*genai.GenerateContentResponse, error) {
	tracer := otel.Tracer("geminiapi/generateContentWithRetry")
	ctx, span := tracer.Start(ctx, "generateContentWithRetry")
	defer span.End()
	g.logger.Logger(ctx).Info("[GeminiAPI] generateContentWithRetry called", zap.Int("prompt.length", len(userPrompt)))

	var resp *genai.GenerateContentResponse
	var err error

	thinkingBudget := int32(0)
	temp := float32(temperature)

	for attempt := 0; attempt < maxRetries; attempt++ {
		span.AddEvent("Attempt", trace.WithAttributes(attribute.Int("attemptNumber", attempt+1)))
		g.logger.Logger(ctx).Info("[GeminiAPI] LLM generation attempt", zap.Int("attempt", attempt+1))

		resp, err = g.client.Models.GenerateContent(ctx, model, genai.Text(userPrompt), &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
			MaxOutputTokens:   int32(maxTokens),
			Temperature:       &temp,
			ThinkingConfig: &genai.ThinkingConfig{
				IncludeThoughts: false,
				ThinkingBudget:  &thinkingBudget,
			},
		})

		if err != nil || resp == nil || len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			if err != nil {
				g.logger.Logger(ctx).Warn("[GeminiAPI] Error generating LLM content, retrying...",
					zap.Error(err),
					zap.Int("attempt", attempt+1),
					zap.Int("maxRetries", maxRetries))
				span.RecordError(err)
			} else {
				g.logger.Logger(ctx).Warn("[GeminiAPI] Received empty or invalid response, retrying...",
					zap.Int("attempt", attempt+1),
					zap.Int("maxRetries", maxRetries))
				span.AddEvent("EmptyResponse")
			}

			if attempt < maxRetries-1 {
				delay := exponentialBackoff(attempt)
				span.AddEvent("Backoff", trace.WithAttributes(attribute.Int64("delayMs", delay.Milliseconds())))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
			}
			continue
		}

		break
	}

	if err != nil {
		g.logger.Logger(ctx).Error("[GeminiAPI] Final error generating LLM content after retries:", zap.Error(err))
		return nil, err
	}
	if resp == nil || len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response after retries")
	}

	span.AddEvent("LLM generation successful")
	return resp, nil
}

// GetProspectReply asks Gemini for the simulated prospect's next line.
func (g *Gemini) GetProspectReply(ctx context.Context, args modelapi.ProspectReplyProps) (string, error) {
	tracer := otel.Tracer("geminiapi/GetProspectReply")
	ctx, span := tracer.Start(ctx, "GetProspectReply")
	defer span.End()

	if g.client == nil {
		return "", fmt.Errorf("gemini client not configured")
	}

	model := args.Model
	if model == "" {
		model = GEMINI_MODEL_NAME
	}

	span.SetAttributes(
		attribute.String("request.model", model),
		attribute.Int("request.max_tokens", args.MaxTokens),
	)

	resp, err := g.generateContentWithRetry(ctx, model, args.UserPrompt, args.SystemPrompt, args.MaxTokens, args.Temperature)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text in Gemini response")
	}

	return text, nil
}
