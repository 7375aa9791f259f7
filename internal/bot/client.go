package bot

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetMe() (tgbotapi.User, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Identity describes the bot account as reported by the Telegram API.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
	IsBot     bool
}

// Client is the thin transport to the Telegram API. The dispatcher
// depends on it only through its SendMessage method; API failures come
// back as errors, never panics.
type Client struct {
	api telegramAPI
	log *slog.Logger
}

// NewClient authenticates against the Telegram API with the given token.
func NewClient(token string, log *slog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Client{api: api, log: log}, nil
}

// SendMessage sends a Markdown-formatted text message to the given chat.
func (c *Client) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SetWebhook registers a webhook URL for update delivery.
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// Identity returns the authenticated bot account.
func (c *Client) Identity() (*Identity, error) {
	me, err := c.api.GetMe()
	if err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}
	return &Identity{
		ID:        me.ID,
		Username:  me.UserName,
		FirstName: me.FirstName,
		IsBot:     me.IsBot,
	}, nil
}
