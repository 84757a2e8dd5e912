package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/hyperdxio/opentelemetry-logs-go/exporters/otlp/otlplogs"
	sdk "github.com/hyperdxio/opentelemetry-logs-go/sdk/logs"
	"github.com/hyperdxio/otel-config-go/otelconfig"

	"salestrainerdev/agent"
	"salestrainerdev/database/postgres"
	"salestrainerdev/dataset"
	"salestrainerdev/logger"
	"salestrainerdev/modelapi/cartesiaapi"
	"salestrainerdev/modelapi/deepgramapi"
	"salestrainerdev/modelapi/deepinfraapi"
	"salestrainerdev/modelapi/geminiapi"
	"salestrainerdev/modelapi/groqapi"
	"salestrainerdev/modelapi/openaiapi"
	"salestrainerdev/sessionstore"
	"salestrainerdev/telegram"
)

const defaultPort = "8080"

func main() {
	godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	production := os.Getenv("PRODUCTION") != ""

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		log.Fatalf("Error setting up OTel SDK - %e", err)
	}
	defer otelShutdown()
	ctx := context.Background()

	logExporter, _ := otlplogs.NewExporter(ctx)
	loggerProvider := sdk.NewLoggerProvider(sdk.WithBatcher(logExporter))
	defer loggerProvider.Shutdown(ctx)

	LogMiddleware := logger.Connect(logger.LoggerConnectProps{Production: production, LoggerProvider: loggerProvider})
	defer LogMiddleware.Sync()
	Logger := LogMiddleware.Logger(ctx)

	var db *postgres.Database
	if postgres.Configured() {
		db = postgres.Connect(ctx, postgres.DatabaseConnectProps{Logger: LogMiddleware})
	} else {
		Logger.Info("[Server] POSTGRES_DB_HOST not set, running without the session index")
	}

	store, err := sessionstore.Connect(sessionstore.StoreConnectProps{Logger: LogMiddleware, Dir: os.Getenv("RECORDINGS_DIR")})
	if err != nil {
		Logger.Fatal("[Server] Could not open the recordings directory", zap.Error(err))
	}

	// Best-effort reference dataset, the trainer works without it.
	if _, err := dataset.EnsureDataset(ctx, dataset.EnsureDatasetProps{Logger: LogMiddleware}); err != nil {
		Logger.Warn("[Server] Dataset download skipped", zap.Error(err))
	}

	cfg := agent.ConfigFromEnv()

	groqClient := groqapi.Connect(ctx, groqapi.GroqConnectProps{Logger: LogMiddleware})
	geminiClient := geminiapi.Connect(ctx, geminiapi.GeminiConnectProps{Logger: LogMiddleware, APIKey: cfg.APIKey})
	openaiClient := openaiapi.Connect(ctx, openaiapi.OpenAIConnectProps{Logger: LogMiddleware, APIKey: cfg.APIKey})
	cartesiaClient := cartesiaapi.Connect(ctx, cartesiaapi.CartesiaConnectProps{Logger: LogMiddleware})
	deepinfraClient := deepinfraapi.Connect(ctx, deepinfraapi.DeepInfraConnectProps{Logger: LogMiddleware})
	deepgramClient := deepgramapi.Connect(LogMiddleware)

	replyAgent := agent.Connect(ctx, agent.AgentConnectProps{
		Logger: LogMiddleware,
		Config: cfg,
		OpenAI: openaiClient,
		Gemini: geminiClient,
		Groq:   groqClient,
	})

	telegramBot := telegram.Connect(ctx, telegram.TelegramConnectProps{
		Logger:    LogMiddleware,
		Agent:     replyAgent,
		Cartesia:  cartesiaClient,
		DeepInfra: deepinfraClient,
		Deepgram:  deepgramClient,
		Store:     store,
		DB:        db,
	})

	go serveAdmin(LogMiddleware, store, db, port)

	if production == false {
		Logger.Info("[Telegram] Bot starting in development mode")
	} else {
		Logger.Info("[Telegram] Bot starting in production mode")
	}

	// Start Telegram bot (blocking call)
	telegramBot.Listen(ctx)
}

// serveAdmin exposes the admin view: saved snapshot listing and retrieval,
// plus a health check.
func serveAdmin(logMiddleware *logger.LogMiddleware, store *sessionstore.Store, db *postgres.Database, port string) {
	r := chi.NewRouter()
	r.Use(requestLoggerMiddleware(logMiddleware))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/admin/sessions", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		files, err := store.List(ctx)
		if err != nil {
			http.Error(w, "could not list sessions", http.StatusInternalServerError)
			return
		}

		payload := map[string]any{"files": files}
		if db != nil {
			if records, err := db.ListRecentSessions(ctx, 50); err == nil {
				payload["index"] = records
			} else {
				logMiddleware.Logger(ctx).Warn("[Admin] Could not read session index", zap.Error(err))
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	})

	r.Get("/admin/sessions/{name}", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		turns, err := store.Load(ctx, chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(turns)
	})

	handler := otelhttp.NewHandler(r, "admin")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		logMiddleware.Logger(context.Background()).Error("[Admin] HTTP server stopped", zap.Error(err))
	}
}

func requestLoggerMiddleware(logger *logger.LogMiddleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger.Logger(ctx).Info("Request Received", zap.String("url", r.URL.Path), zap.String("method", r.Method))
			next.ServeHTTP(w, r)
			logger.Logger(ctx).Info("Request Completed", zap.String("path", r.URL.Path), zap.String("method", r.Method))
		})
	}
}
