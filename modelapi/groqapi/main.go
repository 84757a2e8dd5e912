package groqapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"salestrainerdev/httpmiddleware"
	"salestrainerdev/logger"
	"salestrainerdev/modelapi"
)

const (
	ASSISTANT = "assistant"
	SYSTEM    = "system"
	USER      = "user"
)

const DEFAULT_MODEL = "llama-3.1-8b-instant"

type ChatCompletionInputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequestInput struct {
	Model       string                       `json:"model"`
	Messages    []ChatCompletionInputMessage `json:"messages"`
	MaxTokens   int                          `json:"max_tokens"`
	Temperature float64                      `json:"temperature"`
}

type GroqResponse struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GroqConnectProps struct {
	Logger *logger.LogMiddleware
	APIKey string
}

type Groq struct {
	logger    *logger.LogMiddleware
	apiKey    string
	semaphore *semaphore.Weighted
}

func Connect(ctx context.Context, args GroqConnectProps) *Groq {
	tracer := otel.Tracer("groqapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	maxWorkers := 10
	sem := semaphore.NewWeighted(int64(maxWorkers))

	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers))

	apiKey := args.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_SECRET_KEY")
	}

	return &Groq{logger: args.Logger, apiKey: apiKey, semaphore: sem}
}

type MakeAPIRequestProps struct {
	Retries      int
	RequestInput ChatRequestInput
}

// Used for retry logic.
func GetExponentialDelaySeconds(retryNumber int) int {
	delayTime := int(5 * math.Pow(2, float64(retryNumber)))
	return delayTime
}

func (o *Groq) MakeAPIRequest(ctx context.Context, args MakeAPIRequestProps) (*GroqResponse, error) {
	tracer := otel.Tracer("groqapi/MakeAPIRequest")
	ctx, span := tracer.Start(ctx, "MakeAPIRequest")
	defer span.End()

	URL := "https://api.groq.com/openai/v1/chat/completions"

	span.SetAttributes(
		attribute.String("api.url", URL),
		attribute.Int("request.max_tokens", args.RequestInput.MaxTokens),
		attribute.String("request.model", args.RequestInput.Model),
	)

	chatInput := args.RequestInput
	retries := args.Retries
	originalRetries := args.Retries

	jsonData, err := json.Marshal(chatInput)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not generate request body: %w", err)
	}

	span.SetAttributes(attribute.Int("retries", retries))

	for retries > 0 {
		sleepTime := GetExponentialDelaySeconds(originalRetries - retries)
		span.SetAttributes(attribute.Int("sleep_time", sleepTime))

		if err := o.semaphore.Acquire(ctx, 1); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to acquire semaphore")
		}
		defer o.semaphore.Release(1)

		respBody, err := httpmiddleware.HttpRequest(httpmiddleware.HttpRequestStruct{
			Method: "POST",
			Url:    URL,
			Body:   bytes.NewBuffer(jsonData),
			Headers: map[string]string{
				"authorization": "Bearer " + o.apiKey,
				"content-type":  "application/json",
			},
		})

		if err != nil {
			span.RecordError(err)
			o.logger.Logger(ctx).Error(
				"[Groq-API] Could not make request to Groq. Retrying after sleeping.",
				zap.Error(err),
				zap.Int("retries_left", retries),
				zap.Int("sleep_time", sleepTime),
			)
			retries -= 1
			time.Sleep(time.Duration(sleepTime) * time.Second)
		} else {
			var messageResponse GroqResponse
			err = json.Unmarshal(respBody, &messageResponse)
			if err != nil || len(messageResponse.Choices) == 0 {
				span.RecordError(err)
				retries -= 1
				o.logger.Logger(ctx).Error(
					"[Groq-API] Could not parse Groq response. Retrying after sleeping.",
					zap.Int("retries_left", retries),
					zap.Int("sleep_time", sleepTime),
					zap.Error(err),
					zap.String("response_body", string(respBody)),
					zap.Int("content_length", len(messageResponse.Choices)),
				)
				time.Sleep(time.Duration(sleepTime) * time.Second)
			} else {
				span.AddEvent("Request successful")
				return &messageResponse, nil
			}
		}
	}

	span.AddEvent("All retries exhausted")
	return nil, fmt.Errorf("groq requests failed")
}

// GetProspectReply asks Groq for the simulated prospect's next line.
func (a *Groq) GetProspectReply(ctx context.Context, args modelapi.ProspectReplyProps) (string, error) {
	tracer := otel.Tracer("groqapi/GetProspectReply")
	ctx, span := tracer.Start(ctx, "GetProspectReply")
	defer span.End()

	if a.apiKey == "" {
		return "", fmt.Errorf("GROQ_SECRET_KEY not set")
	}

	model := args.Model
	if model == "" {
		model = DEFAULT_MODEL
	}

	span.SetAttributes(
		attribute.String("request.model", model),
		attribute.Int("request.max_tokens", args.MaxTokens),
	)

	messages := []ChatCompletionInputMessage{
		{Role: SYSTEM, Content: args.SystemPrompt},
		{Role: USER, Content: args.UserPrompt},
	}

	requestInput := MakeAPIRequestProps{
		Retries: 3,
		RequestInput: ChatRequestInput{
			Model:       model,
			MaxTokens:   args.MaxTokens,
			Temperature: args.Temperature,
			Messages:    messages,
		},
	}

	resp, err := a.MakeAPIRequest(ctx, requestInput)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Content) == 0 {
		return "", fmt.Errorf("no response received")
	}

	return resp.Choices[0].Message.Content, nil
}
