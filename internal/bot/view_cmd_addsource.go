package bot

import (
	"context"
	"fmt"
	"github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit/markup"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"strings"
)

type SourceStorage interface {
	Add(ctx context.Context, source model.Source) (int64, error)
}

const addSourceUsage = `Формат: /addsource {"name": "Go blog", "url": "https://go.dev/blog/feed.atom"}`

// /addsource {"name": "...", "url": "..."}
func ViewCmdAddSource(storage SourceStorage) botkit.ViewFunc {
	type addSourceArgs struct {
		Name string `json:"name" validate:"required"`
		URL  string `json:"url" validate:"required,url"`
	}

	validate := validator.New()

	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args, err := botkit.ParseJSON[addSourceArgs](update.Message.CommandArguments())
		if err != nil {
			return reply(bot, update, markup.EscapeForMarkdown(addSourceUsage))
		}

		args.Name, args.URL = strings.TrimSpace(args.Name), strings.TrimSpace(args.URL)
		if err := validate.Struct(args); err != nil {
			return reply(bot, update, markup.EscapeForMarkdown("Нужны название и корректный URL ленты. "+addSourceUsage))
		}

		sourceID, err := storage.Add(ctx, model.Source{
			Name:    args.Name,
			FeedURL: args.URL,
		})
		if err != nil {
			return err
		}

		return reply(bot, update, fmt.Sprintf(
			"Источник %s добавлен с ID: `%d`\\. Используйте этот ID для управления источником\\.",
			markup.Bold(args.Name),
			sourceID,
		))
	}
}

type SourceDeleter interface {
	Delete(ctx context.Context, id int64) (bool, error)
}

// /deletesource <id>
func ViewCmdDeleteSource(storage SourceDeleter) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		id, err := botkit.ParseID(update.Message.CommandArguments())
		if err != nil {
			return reply(bot, update, "Укажите ID источника: /deletesource 3")
		}

		ok, err := storage.Delete(ctx, id)
		if err != nil {
			return err
		}

		if !ok {
			return reply(bot, update, fmt.Sprintf("Источник с ID `%d` не найден", id))
		}

		return reply(bot, update, fmt.Sprintf("Источник `%d` удален", id))
	}
}
