package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/newthinker/signalbot/internal/notifier"
)

// Telegram implements the Notifier interface for the Telegram Bot API
type Telegram struct {
	botToken string
	chatID   int64
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// New creates a new Telegram notifier
func New(botToken string, chatID int64) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		endpoint: tgbotapi.APIEndpoint,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := notifier.StringParam(cfg.Params, "chat_id"); ok && chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("telegram: invalid chat_id %q: %w", chatID, err)
		}
		t.chatID = id
	}
	if endpoint, ok := cfg.Params["endpoint"].(string); ok && endpoint != "" {
		t.endpoint = endpoint
	}
	if t.endpoint == "" {
		t.endpoint = tgbotapi.APIEndpoint
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}
	if timeout, ok := cfg.Params["timeout"].(time.Duration); ok && timeout > 0 {
		t.client.Timeout = timeout
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == 0 {
		return fmt.Errorf("telegram: chat_id is required")
	}

	return nil
}

// botAPI connects on first use; NewBotAPIWithClient performs a getMe call.
func (t *Telegram) botAPI() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.botToken, t.endpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to connect: %w", err)
	}
	t.bot = bot
	return bot, nil
}

// Send delivers message to the configured chat. The Bot API client takes
// no context, so the request runs in the background and Send returns as
// soon as ctx is done; the client timeout bounds the abandoned request.
func (t *Telegram) Send(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		bot, err := t.botAPI()
		if err != nil {
			done <- err
			return
		}
		if _, err := bot.Send(tgbotapi.NewMessage(t.chatID, message)); err != nil {
			done <- fmt.Errorf("telegram: failed to send message: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("telegram: %w", ctx.Err())
	}
}
