package bot

import (
	"context"
	"errors"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit/markup"
	"github.com/kovalyov-valentin/read-later-bot/internal/ingest"
	"strconv"
	"strings"
)

type ArticleIngester interface {
	Ingest(ctx context.Context, url string) (ingest.Result, error)
}

// /save <ссылка...>
func ViewCmdSave(ingester ArticleIngester) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		args := update.Message.CommandArguments()

		urls := ingest.ExtractURLs(args)
		if len(urls) == 0 {
			// Пусть ингестер сам объяснит, что не так со ссылкой
			urls = strings.Fields(args)
		}
		if len(urls) == 0 {
			return reply(bot, update, "Укажите ссылку: /save https://example\\.com/article")
		}

		return saveURLs(ctx, bot, update, ingester, urls)
	}
}

// Обычное сообщение: сохраняем все ссылки, которые в нем нашлись
func ViewTextSave(ingester ArticleIngester) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		urls := ingest.ExtractURLs(update.Message.Text)
		if len(urls) == 0 {
			return reply(bot, update, "Пришлите ссылку на статью, и я сохраню ее на потом\\. Список команд: /help")
		}

		return saveURLs(ctx, bot, update, ingester, urls)
	}
}

func saveURLs(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update, ingester ArticleIngester, urls []string) error {
	lines := make([]string, 0, len(urls))

	for _, url := range urls {
		result, err := ingester.Ingest(ctx, url)
		if err != nil {
			text, known := ingestErrorText(err)
			if !known {
				return fmt.Errorf("ingest %s: %w", url, err)
			}

			lines = append(lines, fmt.Sprintf("❌ %s: %s", markup.EscapeForMarkdown(url), markup.EscapeForMarkdown(text)))
			continue
		}

		prefix := "✅ Сохранено"
		if !result.Created {
			prefix = "📌 Уже в списке"
		}

		a := result.Article
		lines = append(lines, fmt.Sprintf(
			"%s: %s\n    ⏱ %s · %s · ID %s",
			prefix,
			markup.Link(a.Title, a.URL),
			markup.EscapeForMarkdown(formatMinutes(a.ReadingTime)),
			markup.EscapeForMarkdown(a.Category),
			markup.Code(strconv.FormatInt(a.ID, 10)),
		))
	}

	return reply(bot, update, strings.Join(lines, "\n\n"))
}

func ingestErrorText(err error) (string, bool) {
	switch {
	case errors.Is(err, ingest.ErrInvalidURL):
		return "некорректная ссылка", true
	case errors.Is(err, ingest.ErrFetch):
		return "не удалось загрузить страницу", true
	case errors.Is(err, ingest.ErrNotHTML):
		return "по ссылке не HTML страница", true
	case errors.Is(err, ingest.ErrInsufficientContent):
		return "на странице слишком мало текста", true
	default:
		return "", false
	}
}
