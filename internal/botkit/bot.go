package botkit

import (
	"context"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"runtime/debug"
	"time"
)

// Обработчик одного апдейта от телеграма
type ViewFunc func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error

type Bot struct {
	api      *tgbotapi.BotAPI
	cmdViews map[string]ViewFunc
	// Обработчик обычных сообщений без команды
	textView ViewFunc

	updateTimeout time.Duration
	logger        *zap.Logger
}

func New(api *tgbotapi.BotAPI, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Bot{
		api:           api,
		cmdViews:      make(map[string]ViewFunc),
		updateTimeout: 30 * time.Second,
		logger:        logger,
	}
}

func (b *Bot) RegisterCmdView(cmd string, view ViewFunc) {
	b.cmdViews[cmd] = view
}

func (b *Bot) RegisterTextView(view ViewFunc) {
	b.textView = view
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case update := <-updates:
			// Загрузка статьи может занять несколько секунд, поэтому таймаут с запасом
			updateCtx, updateCancel := context.WithTimeout(ctx, b.updateTimeout)
			b.handleUpdate(updateCtx, update)
			updateCancel()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("panic recovered",
				zap.Any("panic", p),
				zap.String("stack", string(debug.Stack())),
			)
		}
	}()

	if update.Message == nil {
		return
	}

	view := b.route(update.Message)
	if view == nil {
		return
	}

	if err := view(ctx, b.api, update); err != nil {
		b.logger.Error("failed to handle update",
			zap.Int("update_id", update.UpdateID),
			zap.String("command", update.Message.Command()),
			zap.Error(err),
		)

		if _, err := b.api.Send(
			tgbotapi.NewMessage(update.Message.Chat.ID, "Что-то пошло не так, попробуйте позже"),
		); err != nil {
			b.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func (b *Bot) route(msg *tgbotapi.Message) ViewFunc {
	if !msg.IsCommand() {
		return b.textView
	}

	return b.cmdViews[msg.Command()]
}
