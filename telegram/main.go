package telegram

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"salestrainerdev/agent"
	"salestrainerdev/conversation"
	"salestrainerdev/database/postgres"
	"salestrainerdev/httpmiddleware"
	"salestrainerdev/logger"
	"salestrainerdev/modelapi/cartesiaapi"
	"salestrainerdev/modelapi/deepgramapi"
	"salestrainerdev/modelapi/deepinfraapi"
	"salestrainerdev/persona"
	"salestrainerdev/scoring"
	"salestrainerdev/sessionstore"
)

const (
	defaultScenario = "Cold call"
	defaultPersona  = "Friendly"
)

type TelegramConnectProps struct {
	Logger    *logger.LogMiddleware
	Agent     *agent.Agent
	Cartesia  *cartesiaapi.Cartesia
	DeepInfra *deepinfraapi.DeepInfra
	Deepgram  *deepgramapi.DeepgramAPI
	Store     *sessionstore.Store
	DB        *postgres.Database
}

// chatState is one chat's live practice session. One chat owns one session;
// the bot's single update loop is the only writer.
type chatState struct {
	session *conversation.Session
	voice   bool
}

type Telegram struct {
	logger    *logger.LogMiddleware
	bot       *tgbotapi.BotAPI
	agent     *agent.Agent
	cartesia  *cartesiaapi.Cartesia
	deepinfra *deepinfraapi.DeepInfra
	deepgram  *deepgramapi.DeepgramAPI
	store     *sessionstore.Store
	db        *postgres.Database

	mu    sync.Mutex
	chats map[int64]*chatState
}

func Connect(ctx context.Context, args TelegramConnectProps) *Telegram {
	tracer := otel.Tracer("telegram/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		args.Logger.Logger(ctx).Fatal("TELEGRAM_BOT_TOKEN environment variable not set")
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		args.Logger.Logger(ctx).Fatal("Failed to create Telegram bot", zap.Error(err))
	}

	debug := os.Getenv("TELEGRAM_DEBUG") == "true"
	bot.Debug = debug

	span.SetAttributes(
		attribute.String("bot.username", bot.Self.UserName),
		attribute.Bool("bot.debug", debug),
	)

	args.Logger.Logger(ctx).Info("Telegram bot connected successfully",
		zap.String("username", bot.Self.UserName),
		zap.Bool("debug", debug),
	)

	return &Telegram{
		logger:    args.Logger,
		bot:       bot,
		agent:     args.Agent,
		cartesia:  args.Cartesia,
		deepinfra: args.DeepInfra,
		deepgram:  args.Deepgram,
		store:     args.Store,
		db:        args.DB,
		chats:     make(map[int64]*chatState),
	}
}

func (t *Telegram) Listen(ctx context.Context) {
	tracer := otel.Tracer("telegram/Listen")
	ctx, span := tracer.Start(ctx, "Listen")
	defer span.End()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)

	t.logger.Logger(ctx).Info("Starting Telegram bot message listener")

	for {
		select {
		case <-ctx.Done():
			t.logger.Logger(ctx).Info("Shutting down Telegram bot listener")
			return
		case update := <-updates:
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	tracer := otel.Tracer("telegram/handleUpdate")
	ctx, span := tracer.Start(ctx, "handleUpdate")
	defer span.End()

	if update.Message == nil {
		return
	}
	t.handleMessage(ctx, update.Message)
}

func (t *Telegram) state(chatID int64) *chatState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.chats[chatID]
	if !ok {
		st = &chatState{session: conversation.NewSession(defaultScenario, defaultPersona)}
		t.chats[chatID] = st
	}
	return st
}

func (t *Telegram) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	tracer := otel.Tracer("telegram/handleMessage")
	ctx, span := tracer.Start(ctx, "handleMessage")
	defer span.End()

	if message.From == nil {
		return
	}

	user := message.From
	span.SetAttributes(
		attribute.Int64("user.id", user.ID),
		attribute.String("user.username", user.UserName),
	)

	t.logger.Logger(ctx).Info("Received message",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.UserName),
	)

	if message.IsCommand() {
		t.handleCommand(ctx, message)
		return
	}

	if message.Voice != nil || message.Audio != nil {
		t.handleVoiceMessage(ctx, message)
		return
	}

	if message.Text != "" {
		t.handlePracticeTurn(ctx, message.Chat.ID, message.Text)
	}
}

func (t *Telegram) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	tracer := otel.Tracer("telegram/handleCommand")
	ctx, span := tracer.Start(ctx, "handleCommand")
	defer span.End()

	span.SetAttributes(attribute.String("command", message.Command()))

	chatID := message.Chat.ID
	st := t.state(chatID)
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		t.registerUser(ctx, message.From)
		t.send(ctx, chatID, welcomeText())

	case "scenario":
		if args == "" {
			t.send(ctx, chatID, "Current scenario: "+st.session.Scenario+"\nPick one of:\n- "+strings.Join(conversation.Scenarios, "\n- "))
			return
		}
		if !conversation.KnownScenario(args) {
			t.send(ctx, chatID, "Unknown scenario. Pick one of:\n- "+strings.Join(conversation.Scenarios, "\n- "))
			return
		}
		st.session = conversation.NewSession(args, st.session.Persona)
		t.send(ctx, chatID, "Scenario set to "+args+". Conversation reset, go ahead.")

	case "persona":
		if args == "" {
			t.send(ctx, chatID, "Current persona: "+st.session.Persona+"\nPick one of:\n- "+strings.Join(persona.Names(), "\n- "))
			return
		}
		if !persona.Known(args) {
			// Unknown names still work (neutral default profile), but the
			// menu nudges people to the cataloged ones.
			t.send(ctx, chatID, "Persona set to "+args+" (uncataloged, using the neutral profile). Conversation reset.")
		} else {
			t.send(ctx, chatID, "Persona set to "+args+". Conversation reset, go ahead.")
		}
		st.session = conversation.NewSession(st.session.Scenario, args)

	case "voice":
		switch strings.ToLower(args) {
		case "on":
			st.voice = true
			t.send(ctx, chatID, "Voice replies on.")
		case "off":
			st.voice = false
			t.send(ctx, chatID, "Voice replies off.")
		default:
			t.send(ctx, chatID, "Usage: /voice on or /voice off")
		}

	case "reset":
		st.session.Reset()
		t.send(ctx, chatID, "Conversation reset.")

	case "score":
		result := scoring.Score(st.session)
		t.send(ctx, chatID, formatScore(result))

	case "save":
		t.saveSession(ctx, chatID, message.From, st)

	default:
		t.send(ctx, chatID, "Unknown command. Try /scenario, /persona, /voice, /score, /save, /reset.")
	}
}

func (t *Telegram) registerUser(ctx context.Context, user *tgbotapi.User) {
	if t.db == nil || user == nil {
		return
	}
	_, err := t.db.SetupNewUser(ctx, postgres.SetupNewUserProps{
		TelegramUserID:    user.ID,
		TelegramUsername:  user.UserName,
		TelegramFirstName: user.FirstName,
		TelegramLastName:  user.LastName,
	})
	if err != nil {
		t.logger.Logger(ctx).Warn("Could not register user", zap.Error(err), zap.Int64("user_id", user.ID))
	}
}

// handlePracticeTurn runs one rep turn: append it, get the prospect's reply,
// append that, and answer in text (plus a voice note when enabled).
func (t *Telegram) handlePracticeTurn(ctx context.Context, chatID int64, text string) {
	tracer := otel.Tracer("telegram/handlePracticeTurn")
	ctx, span := tracer.Start(ctx, "handlePracticeTurn")
	defer span.End()

	st := t.state(chatID)

	if _, err := st.session.Append(conversation.SpeakerRep, text); err != nil {
		span.AddEvent("Empty rep turn rejected")
		t.send(ctx, chatID, "Say something to the prospect first — empty messages are not added to the call.")
		return
	}

	p := persona.Persona{Name: st.session.Persona}
	reply := t.agent.Reply(ctx, text, st.session.Scenario, p)

	if _, err := st.session.Append(conversation.SpeakerAI, reply); err != nil {
		// Reply is always non-empty by the agent's contract; log if that
		// ever breaks rather than dropping the session.
		t.logger.Logger(ctx).Error("Prospect reply could not be appended", zap.Error(err))
		span.RecordError(err)
		return
	}

	t.send(ctx, chatID, "Prospect ("+st.session.Persona+"): "+reply)

	if st.voice {
		t.sendVoiceReply(ctx, chatID, reply, st.session.Persona)
	}
}

// sendVoiceReply tries Cartesia first and the DeepInfra fallback second. A
// failed synthesis only skips playback; the text reply already went out.
func (t *Telegram) sendVoiceReply(ctx context.Context, chatID int64, text, personaName string) {
	tracer := otel.Tracer("telegram/sendVoiceReply")
	ctx, span := tracer.Start(ctx, "sendVoiceReply")
	defer span.End()

	audio, err := t.cartesia.GenerateSpeech(ctx, text, personaName)
	if err != nil {
		t.logger.Logger(ctx).Warn("Cartesia synthesis failed, trying DeepInfra", zap.Error(err))
		span.RecordError(err)
		audio, err = t.deepinfra.GenerateSpeech(ctx, text)
	}
	if err != nil || len(audio) == 0 {
		if err != nil {
			span.RecordError(err)
		}
		t.logger.Logger(ctx).Warn("Speech synthesis unavailable, skipping voice note", zap.Error(err))
		return
	}

	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: "prospect.mp3", Bytes: audio})
	if _, err := t.bot.Send(voice); err != nil {
		t.logger.Logger(ctx).Warn("Failed to send voice note", zap.Error(err))
	}
}

// handleVoiceMessage downloads the rep's voice note, transcribes it, and
// feeds the transcript through the normal turn flow. Transcription failures
// become the sentinel text instead of an error.
func (t *Telegram) handleVoiceMessage(ctx context.Context, message *tgbotapi.Message) {
	tracer := otel.Tracer("telegram/handleVoiceMessage")
	ctx, span := tracer.Start(ctx, "handleVoiceMessage")
	defer span.End()

	chatID := message.Chat.ID

	fileID := ""
	if message.Voice != nil {
		fileID = message.Voice.FileID
	} else if message.Audio != nil {
		fileID = message.Audio.FileID
	}

	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		t.logger.Logger(ctx).Warn("Could not resolve voice file URL", zap.Error(err))
		span.RecordError(err)
		t.send(ctx, chatID, "Could not fetch that audio, please try again.")
		return
	}

	audio, err := httpmiddleware.HttpRequest(httpmiddleware.HttpRequestStruct{Method: "GET", Url: url})
	if err != nil {
		t.logger.Logger(ctx).Warn("Could not download voice file", zap.Error(err))
		span.RecordError(err)
		t.send(ctx, chatID, "Could not fetch that audio, please try again.")
		return
	}

	span.SetAttributes(attribute.Int("audio.size", len(audio)))

	transcript, err := t.deepgram.Transcribe(ctx, audio)
	if err != nil {
		span.RecordError(err)
		transcript = deepgramapi.TranscriptionUnavailable
	}

	if strings.TrimSpace(transcript) == "" {
		span.AddEvent("Empty transcript")
		t.send(ctx, chatID, "I couldn't hear anything in that recording; the call is unchanged.")
		return
	}

	t.send(ctx, chatID, "You said: "+transcript)
	t.handlePracticeTurn(ctx, chatID, transcript)
}

func (t *Telegram) saveSession(ctx context.Context, chatID int64, user *tgbotapi.User, st *chatState) {
	tracer := otel.Tracer("telegram/saveSession")
	ctx, span := tracer.Start(ctx, "saveSession")
	defer span.End()

	if st.session.Len() == 0 {
		t.send(ctx, chatID, "Nothing to save yet — have a conversation first.")
		return
	}

	name, err := t.store.Save(ctx, st.session)
	if err != nil {
		t.logger.Logger(ctx).Error("Could not save session", zap.Error(err))
		span.RecordError(err)
		t.send(ctx, chatID, "Saving failed, please try again.")
		return
	}

	if t.db != nil && user != nil {
		result := scoring.Score(st.session)
		err := t.db.IndexSession(ctx, postgres.IndexSessionProps{
			TelegramUserID: user.ID,
			Scenario:       st.session.Scenario,
			Persona:        st.session.Persona,
			TurnCount:      st.session.Len(),
			Confidence:     result.ConfidenceScore,
			Objection:      result.ObjectionScore,
			Outcome:        result.OutcomeRating,
			SnapshotFile:   name,
		})
		if err != nil {
			t.logger.Logger(ctx).Warn("Could not index saved session", zap.Error(err))
		}
	}

	t.send(ctx, chatID, "Saved as "+name+".")
}

func (t *Telegram) send(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Logger(ctx).Error("Failed to send message", zap.Error(err))
	}
}

func formatScore(r scoring.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outcome rating: %d/100\n", r.OutcomeRating)
	fmt.Fprintf(&b, "Confidence: %d/100\n", r.ConfidenceScore)
	fmt.Fprintf(&b, "Objection handling: %d/100\n", r.ObjectionScore)
	if len(r.Tips) > 0 {
		b.WriteString("\nCoaching tips:\n")
		for _, tip := range r.Tips {
			b.WriteString("- " + tip + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func welcomeText() string {
	return strings.Join([]string{
		"Welcome to the sales call trainer. You pitch, the prospect answers, and /score tells you how you did.",
		"",
		"Commands:",
		"/scenario <label> — pick the call type (" + strings.Join(conversation.Scenarios, ", ") + ")",
		"/persona <name> — pick the prospect (" + strings.Join(persona.Names(), ", ") + ")",
		"/voice on|off — voice notes for the prospect's replies",
		"/score — scores and coaching tips for the current call",
		"/save — keep a transcript of the current call",
		"/reset — start the call over",
		"",
		"Type your opening line, or send a voice note.",
	}, "\n")
}
