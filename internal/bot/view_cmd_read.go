package bot

import (
	"context"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit/markup"
	"github.com/kovalyov-valentin/read-later-bot/internal/metrics"
	"strings"
)

type ArticleEditor interface {
	MarkReadChanged(ctx context.Context, id int64) (found, changed bool, err error)
	UpdateCategory(ctx context.Context, id int64, category string) (bool, error)
	DeleteArticle(ctx context.Context, id int64) (bool, error)
}

func notFound(id int64) string {
	return fmt.Sprintf("Статья с ID %s не найдена", markup.Code(fmt.Sprint(id)))
}

// /read <id>
func ViewCmdRead(editor ArticleEditor, collector *metrics.Collector) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		id, err := botkit.ParseID(update.Message.CommandArguments())
		if err != nil {
			return reply(bot, update, "Укажите ID статьи: /read 42")
		}

		found, changed, err := editor.MarkReadChanged(ctx, id)
		if err != nil {
			return err
		}

		if !found {
			return reply(bot, update, notFound(id))
		}

		if changed {
			collector.ArticleRead()
		}

		return reply(bot, update, fmt.Sprintf("✅ Статья %s прочитана", markup.Code(fmt.Sprint(id))))
	}
}

// /category <id> <категория>
func ViewCmdCategory(editor ArticleEditor) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := update.Message.CommandArguments()

		id, err := botkit.ParseID(args)
		if err != nil {
			return reply(bot, update, "Укажите ID и категорию: /category 42 Science")
		}

		_, category, _ := strings.Cut(strings.TrimSpace(args), " ")
		category = strings.TrimSpace(category)
		if category == "" {
			return reply(bot, update, "Укажите ID и категорию: /category 42 Science")
		}

		ok, err := editor.UpdateCategory(ctx, id, category)
		if err != nil {
			return err
		}

		if !ok {
			return reply(bot, update, notFound(id))
		}

		return reply(bot, update, fmt.Sprintf("🏷 Статья %s теперь в категории %s", markup.Code(fmt.Sprint(id)), markup.Bold(category)))
	}
}

// /delete <id>
func ViewCmdDelete(editor ArticleEditor) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		id, err := botkit.ParseID(update.Message.CommandArguments())
		if err != nil {
			return reply(bot, update, "Укажите ID статьи: /delete 42")
		}

		ok, err := editor.DeleteArticle(ctx, id)
		if err != nil {
			return err
		}

		if !ok {
			return reply(bot, update, notFound(id))
		}

		return reply(bot, update, fmt.Sprintf("🗑 Статья %s удалена", markup.Code(fmt.Sprint(id))))
	}
}
