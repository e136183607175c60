// Package telegram runs the chat pipeline behind a Telegram bot using
// long polling.
package telegram

import (
	"context"
	"fmt"
	"html"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/oscillatelabsllc/recall/internal/pipeline"
	"github.com/rs/zerolog"
)

const greeting = "Hi %s! I can remember our conversations and search the web. Ask me anything!"

// TurnHandler runs one chat turn
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID int64, message string) pipeline.Result
}

// botAPI is the part of tgbotapi.BotAPI the bot uses
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot adapts Telegram updates to pipeline turns
type Bot struct {
	api    botAPI
	turns  TurnHandler
	logger zerolog.Logger
}

// New connects to Telegram with token
func New(token string, turns TurnHandler, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	logger = logger.With().Str("component", "telegram").Logger()
	logger.Info().Str("bot", api.Self.UserName).Msg("authorized on telegram")

	return newBot(api, turns, logger), nil
}

func newBot(api botAPI, turns TurnHandler, logger zerolog.Logger) *Bot {
	return &Bot{api: api, turns: turns, logger: logger}
}

// Run polls for updates until ctx is cancelled. Each message is handled in
// its own goroutine; Run waits for in-flight messages before returning.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	b.logger.Info().Msg("telegram bot is running")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info().Msg("telegram bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// handleUpdate dispatches one update: /start greets, other commands are
// ignored, and plain text becomes a turn.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.handleStart(msg)
		}
		return
	}

	if msg.Text == "" {
		return
	}

	b.handleText(ctx, msg)
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(greeting, html.EscapeString(msg.From.FirstName)))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send greeting")
	}
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	logger := b.logger.With().Int64("user_id", msg.From.ID).Int64("chat_id", msg.Chat.ID).Logger()

	if _, err := b.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		logger.Warn().Err(err).Msg("failed to send typing indicator")
	}

	res := b.turns.HandleTurn(ctx, msg.From.ID, msg.Text)
	if !res.OK() {
		logger.Warn().Str("step", res.FailedStep()).Msg("turn failed, replying with fallback")
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, res.Reply())
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.api.Send(reply); err != nil {
		logger.Error().Err(err).Msg("failed to send reply")
	}
}
