package notify

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts the chart as a photo with the HTML caption, or the caption
// alone as a message when there is no chart.
type Telegram struct {
	bot    botSender
	chatID int64
}

// NewTelegram sets up the Bot API client without calling getMe, so a bad
// token or an unreachable API shows up as a failed Notify on each run.
func NewTelegram(token string, chatID int64, client *http.Client) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	if client == nil {
		client = http.DefaultClient
	}
	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: client,
		Buffer: 100,
	}
	bot.SetAPIEndpoint(tgbotapi.APIEndpoint)
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	var c tgbotapi.Chattable
	if len(msg.Image) > 0 {
		photo := tgbotapi.NewPhoto(t.chatID, tgbotapi.FileBytes{Name: msg.ImageName, Bytes: msg.Image})
		photo.Caption = msg.HTML
		photo.ParseMode = tgbotapi.ModeHTML
		c = photo
	} else {
		text := tgbotapi.NewMessage(t.chatID, msg.HTML)
		text.ParseMode = tgbotapi.ModeHTML
		c = text
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(c); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
