package bot

import (
	"context"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit/markup"
	"github.com/kovalyov-valentin/read-later-bot/internal/metrics"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"time"
)

const (
	defaultSessionMinutes = 30
	defaultScheduleDays   = 3
	maxScheduleDays       = 14
	maxDigestItems        = 20
)

type DigestPlanner interface {
	CreateDigest(ctx context.Context, maxItems int) (model.Digest, error)
	OptimalBatchSize(ctx context.Context) (int, error)
}

// /digest [n], без аргумента размер подбирается по привычкам
func ViewCmdDigest(planner DigestPlanner, collector *metrics.Collector) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		n, err := botkit.ParseIntOr(update.Message.CommandArguments(), 0)
		if err != nil || n < 0 || n > maxDigestItems {
			return reply(bot, update, fmt.Sprintf("Укажите число статей от 1 до %d: /digest 5", maxDigestItems))
		}

		if n == 0 {
			if n, err = planner.OptimalBatchSize(ctx); err != nil {
				return err
			}
		}

		digest, err := planner.CreateDigest(ctx, n)
		if err != nil {
			return err
		}
		collector.DigestBuilt()

		return reply(bot, update, FormatDigest(digest))
	}
}

type SessionPlanner interface {
	SuggestReadingSession(ctx context.Context, minutes int) ([]model.ScoredArticle, error)
	RecommendedReadingTime(article model.Article) string
}

// /session [минуты]
func ViewCmdSession(planner SessionPlanner) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		minutes, err := botkit.ParseIntOr(update.Message.CommandArguments(), defaultSessionMinutes)
		if err != nil || minutes <= 0 {
			return reply(bot, update, "Укажите количество минут: /session 20")
		}

		session, err := planner.SuggestReadingSession(ctx, minutes)
		if err != nil {
			return err
		}

		if len(session) == 0 {
			return reply(bot, update, markup.EscapeForMarkdown(fmt.Sprintf("За %d мин. ничего из очереди не успеть", minutes)))
		}

		var total int
		for _, s := range session {
			total += s.ReadingTime
		}

		header := markup.EscapeForMarkdown(fmt.Sprintf(
			"☕ На %d мин.: %d статей, всего %s (%s)",
			minutes,
			len(session),
			formatMinutes(total),
			planner.RecommendedReadingTime(session[0].Article),
		))

		return reply(bot, update, header+"\n\n"+formatScored(session))
	}
}

type SchedulePlanner interface {
	DeliverySchedule(ctx context.Context, now time.Time, days int) ([]model.ScheduleEntry, error)
	NextDeliveryTime(ctx context.Context, now time.Time) (time.Time, error)
}

// /schedule [дни]
func ViewCmdSchedule(planner SchedulePlanner) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		days, err := botkit.ParseIntOr(update.Message.CommandArguments(), defaultScheduleDays)
		if err != nil || days <= 0 || days > maxScheduleDays {
			return reply(bot, update, fmt.Sprintf("Укажите число дней от 1 до %d: /schedule 3", maxScheduleDays))
		}

		now := time.Now()

		next, err := planner.NextDeliveryTime(ctx, now)
		if err != nil {
			return err
		}

		entries, err := planner.DeliverySchedule(ctx, now, days)
		if err != nil {
			return err
		}

		text := fmt.Sprintf(
			"⏰ Следующий дайджест: %s\n\n%s",
			markup.EscapeForMarkdown(weekdayNames[next.Weekday()]+" "+next.Format("02.01 15:04")),
			formatSchedule(entries),
		)

		return reply(bot, update, text)
	}
}

type PatternAnalyzer interface {
	AnalyzeReadingPatterns(ctx context.Context) (model.ReadingPattern, error)
}

func ViewCmdPatterns(analyzer PatternAnalyzer) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		pattern, err := analyzer.AnalyzeReadingPatterns(ctx)
		if err != nil {
			return err
		}

		return reply(bot, update, formatPattern(pattern))
	}
}

type StatisticsProvider interface {
	Statistics(ctx context.Context) (model.Statistics, error)
}

func ViewCmdStats(provider StatisticsProvider) botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		stats, err := provider.Statistics(ctx)
		if err != nil {
			return err
		}

		if stats.TotalArticles == 0 {
			return reply(bot, update, "Вы еще ничего не сохранили")
		}

		return reply(bot, update, formatStats(stats))
	}
}
