package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"killergame/internal/config"
	"killergame/internal/game"
)

// Bot is the Telegram side of the engine: it turns updates into engine
// events and implements game.Messenger for everything going the other way.
type Bot struct {
	api    *tgbotapi.BotAPI
	outbox chan tgbotapi.Chattable
	log    *zap.Logger
}

// NewBot authenticates against the Bot API and prepares the send queue.
func NewBot(cfg config.BotSettings, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	b := &Bot{
		api:    api,
		outbox: make(chan tgbotapi.Chattable, 256),
		log:    log,
	}
	return b, nil
}

// Run consumes updates until ctx is cancelled, routing each into the engine.
// The send queue drains in a separate goroutine so engine transitions never
// wait on Telegram.
func (b *Bot) Run(ctx context.Context, engine *game.Engine, cfg config.BotSettings) error {
	go b.sender(ctx, cfg)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("bot online", zap.String("username", b.api.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			// Each update is an independent task; per-room ordering is
			// enforced inside the engine, not here.
			go b.handleUpdate(ctx, engine, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, engine *game.Engine, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, engine, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, engine, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, engine *game.Engine, msg *tgbotapi.Message) {
	if msg.From == nil || !(msg.Chat.IsGroup() || msg.Chat.IsSuperGroup()) {
		return
	}
	roomID, userID := msg.Chat.ID, msg.From.ID

	if !msg.IsCommand() {
		if err := engine.RoomMessage(ctx, roomID, userID, msg.MessageID, msg.Text); err != nil {
			b.log.Warn("room message rejected", zap.Int64("room", roomID), zap.Error(err))
		}
		return
	}

	var err error
	switch msg.Command() {
	case "startgame":
		err = engine.OpenLobby(ctx, roomID, userID)
	case "join":
		err = engine.Join(ctx, roomID, userID, displayName(msg.From))
	case "begin":
		err = engine.StartGame(ctx, roomID, userID)
	case "vote":
		err = engine.CallVote(ctx, roomID, userID)
	default:
		return
	}
	if err != nil {
		b.replyTo(msg, err.Error())
	}
}

func (b *Bot) handleCallback(ctx context.Context, engine *game.Engine, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.Message == nil {
		return
	}
	chatID, userID := cq.Message.Chat.ID, cq.From.ID
	data := cq.Data

	var err error
	switch {
	case data == game.CallbackJoin:
		err = engine.Join(ctx, chatID, userID, displayName(cq.From))
	case data == game.CallbackStart:
		err = engine.StartGame(ctx, chatID, userID)
	case strings.HasPrefix(data, game.CallbackVotePrefix):
		var target int64
		if target, err = parseID(strings.TrimPrefix(data, game.CallbackVotePrefix)); err == nil {
			err = engine.SubmitVote(ctx, chatID, userID, target)
		}
	case strings.HasPrefix(data, game.CallbackCursePrefix):
		var room, target int64
		if room, target, err = parsePair(strings.TrimPrefix(data, game.CallbackCursePrefix)); err == nil {
			err = engine.Curse(ctx, room, userID, target)
		}
	case strings.HasPrefix(data, game.CallbackSelfCursePrefix):
		var room int64
		if room, err = parseID(strings.TrimPrefix(data, game.CallbackSelfCursePrefix)); err == nil {
			err = engine.SelfCurse(ctx, room, userID)
		}
	case strings.HasPrefix(data, game.CallbackLiftPrefix):
		var room, target int64
		if room, target, err = parsePair(strings.TrimPrefix(data, game.CallbackLiftPrefix)); err == nil {
			err = engine.LiftCurse(ctx, room, userID, target)
		}
	case strings.HasPrefix(data, game.CallbackFakeAlertPrefix):
		var room int64
		if room, err = parseID(strings.TrimPrefix(data, game.CallbackFakeAlertPrefix)); err == nil {
			err = engine.FakeAlert(ctx, room, userID)
		}
	default:
		return
	}

	if err != nil {
		b.answer(tgbotapi.NewCallbackWithAlert(cq.ID, err.Error()))
		return
	}
	b.answer(tgbotapi.NewCallback(cq.ID, ""))
}

func (b *Bot) answer(cb tgbotapi.CallbackConfig) {
	if _, err := b.api.Request(cb); err != nil {
		b.log.Warn("callback answer failed", zap.Error(err))
	}
}

func (b *Bot) replyTo(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyToMessageID = msg.MessageID
	b.enqueue(reply)
}

func displayName(u *tgbotapi.User) string {
	if u.FirstName != "" {
		if u.LastName != "" {
			return u.FirstName + " " + u.LastName
		}
		return u.FirstName
	}
	return u.UserName
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parsePair(s string) (int64, int64, error) {
	left, right, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, strconv.ErrSyntax
	}
	a, err := strconv.ParseInt(left, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	c, err := strconv.ParseInt(right, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return a, c, nil
}
