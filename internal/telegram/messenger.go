package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"killergame/internal/config"
	"killergame/internal/game"
)

var errOutboxFull = errors.New("outbound queue full, message dropped")

// sender drains the outbox through a rate limiter. The Bot API throttles
// aggressively, so every outbound call funnels through here.
func (b *Bot) sender(ctx context.Context, cfg config.BotSettings) {
	limiter := rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst)
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-b.outbox:
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			if _, err := b.api.Request(c); err != nil {
				b.log.Warn("telegram request failed", zap.Error(err))
			}
		}
	}
}

func (b *Bot) enqueue(c tgbotapi.Chattable) error {
	select {
	case b.outbox <- c:
		return nil
	default:
		b.log.Warn("outbound queue full, dropping message")
		return errOutboxFull
	}
}

// SendRoom posts a public message, with an inline keyboard when given.
func (b *Bot) SendRoom(_ context.Context, roomID int64, text string, kb game.Keyboard) error {
	msg := tgbotapi.NewMessage(roomID, text)
	if markup, ok := toMarkup(kb); ok {
		msg.ReplyMarkup = markup
	}
	return b.enqueue(msg)
}

// SendPrivate messages a user directly. Fails silently downstream if the
// user never opened a private chat with the bot.
func (b *Bot) SendPrivate(_ context.Context, userID int64, text string, kb game.Keyboard) error {
	msg := tgbotapi.NewMessage(userID, text)
	if markup, ok := toMarkup(kb); ok {
		msg.ReplyMarkup = markup
	}
	return b.enqueue(msg)
}

// DeleteMessage removes a message from the room.
func (b *Bot) DeleteMessage(_ context.Context, roomID int64, messageID int) error {
	return b.enqueue(tgbotapi.NewDeleteMessage(roomID, messageID))
}

// IsElevated reports whether the user is a creator or administrator of the
// room. This one call is synchronous: the engine needs the answer to decide.
func (b *Bot) IsElevated(_ context.Context, roomID, userID int64) (bool, error) {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: roomID,
			UserID: userID,
		},
	})
	if err != nil {
		return false, err
	}
	return member.Status == "creator" || member.Status == "administrator", nil
}

func toMarkup(kb game.Keyboard) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(kb) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
