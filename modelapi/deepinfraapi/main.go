package deepinfraapi

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"

	"salestrainerdev/logger"
)

const (
	KOKORO_TTS   = "hexgrad/Kokoro-82M"
	KOKORO_VOICE = "af_bella"
)

type DeepInfra struct {
	logger    *logger.LogMiddleware
	semaphore *semaphore.Weighted
	client    *openai.Client
}

type DeepInfraConnectProps struct {
	Logger *logger.LogMiddleware
}

func Connect(ctx context.Context, args DeepInfraConnectProps) *DeepInfra {
	tracer := otel.Tracer("deepinfraapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	maxWorkers := 10
	sem := semaphore.NewWeighted(int64(maxWorkers))

	DEEPINFRA_SECRET_KEY := os.Getenv("DEEPINFRA_SECRET_KEY")

	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers))
	client := openai.NewClient(
		option.WithAPIKey(DEEPINFRA_SECRET_KEY),
		option.WithBaseURL("https://api.deepinfra.com/v1/openai"),
	)

	return &DeepInfra{logger: args.Logger, semaphore: sem, client: &client}
}

// GenerateSpeech is the budget TTS path, used when Cartesia is unavailable.
// One Kokoro voice for every persona.
func (d *DeepInfra) GenerateSpeech(ctx context.Context, inputText string) ([]byte, error) {
	tracer := otel.Tracer("deepinfraapi/GenerateSpeech")
	ctx, span := tracer.Start(ctx, "GenerateSpeech")
	defer span.End()

	if err := d.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer d.semaphore.Release(1)

	d.logger.Logger(ctx).Info("[DeepInfraAPI] Generating speech", zap.Int("inputText.length", len(inputText)))

	res, err := d.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Model:          KOKORO_TTS,
		Input:          inputText,
		Voice:          KOKORO_VOICE,
		Speed:          param.Opt[float64]{Value: 1.0},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("deepinfra speech request failed: %w", err)
	}
	defer res.Body.Close()

	audioBytes, err := io.ReadAll(res.Body)

	return audioBytes, err
}
