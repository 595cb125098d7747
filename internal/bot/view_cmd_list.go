package bot

import (
	"context"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit/markup"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/samber/lo"
	"strings"
)

const listLimit = 10

type QueuePrioritizer interface {
	PrioritizeQueue(ctx context.Context, limit int) ([]model.ScoredArticle, error)
}

type CategoryBrowser interface {
	ArticlesByCategory(ctx context.Context, category string, limit int) ([]model.Article, error)
	CategoryCounts(ctx context.Context) ([]model.CategoryCount, error)
}

// /list [категория]
func ViewCmdList(planner QueuePrioritizer, browser CategoryBrowser) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		if category := strings.TrimSpace(update.Message.CommandArguments()); category != "" {
			articles, err := browser.ArticlesByCategory(ctx, category, listLimit)
			if err != nil {
				return err
			}

			if len(articles) == 0 {
				return reply(bot, update, "В категории "+markup.Bold(category)+" ничего нет")
			}

			return reply(bot, update, fmt.Sprintf("📂 %s\n\n%s", markup.Bold(category), formatArticles(articles)))
		}

		queue, err := planner.PrioritizeQueue(ctx, listLimit)
		if err != nil {
			return err
		}

		if len(queue) == 0 {
			return reply(bot, update, "📭 Очередь пуста\\. Пришлите ссылку, чтобы сохранить статью")
		}

		return reply(bot, update, "📖 *Что почитать в первую очередь*\n\n"+formatScored(queue))
	}
}

func ViewCmdCategories(browser CategoryBrowser) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		counts, err := browser.CategoryCounts(ctx)
		if err != nil {
			return err
		}

		if len(counts) == 0 {
			return reply(bot, update, "Непрочитанных статей нет")
		}

		lines := lo.Map(counts, func(c model.CategoryCount, _ int) string {
			return fmt.Sprintf("• %s: %d", markup.EscapeForMarkdown(c.Category), c.Count)
		})

		return reply(bot, update, "🗂 *Категории в очереди*\n\n"+strings.Join(lines, "\n"))
	}
}

type ArticleSearcher interface {
	Search(ctx context.Context, text string, limit int) ([]model.Article, error)
}

// /search <текст>
func ViewCmdSearch(searcher ArticleSearcher) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		query := strings.TrimSpace(update.Message.CommandArguments())
		if query == "" {
			return reply(bot, update, "Укажите, что искать: /search горутины")
		}

		found, err := searcher.Search(ctx, query, listLimit)
		if err != nil {
			return err
		}

		if len(found) == 0 {
			return reply(bot, update, "По запросу "+markup.Bold(query)+" ничего не нашлось")
		}

		return reply(bot, update, fmt.Sprintf("🔎 Найдено: %d\n\n%s", len(found), formatArticles(found)))
	}
}
