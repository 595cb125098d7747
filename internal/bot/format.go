package bot

import (
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit/markup"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"strconv"
	"strings"
	"time"
)

var (
	// С понедельника, как в ReadingPattern
	dayNames = [7]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

	weekdayNames = map[time.Weekday]string{
		time.Monday:    "Пн",
		time.Tuesday:   "Вт",
		time.Wednesday: "Ср",
		time.Thursday:  "Чт",
		time.Friday:    "Пт",
		time.Saturday:  "Сб",
		time.Sunday:    "Вс",
	}

	timeOfDayNames = map[model.TimeOfDay]string{
		model.Morning:   "утро",
		model.Afternoon: "день",
		model.Evening:   "вечер",
		model.Night:     "ночь",
	}
)

func sendMarkdown(bot *tgbotapi.BotAPI, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Ответ на сообщение из апдейта
func reply(bot *tgbotapi.BotAPI, update tgbotapi.Update, text string) error {
	return sendMarkdown(bot, update.Message.Chat.ID, text)
}

func formatArticle(n int, article model.Article) string {
	return fmt.Sprintf(
		"%d\\. %s\n    ⏱ %s · %s · ID %s",
		n,
		markup.Link(article.Title, article.URL),
		markup.EscapeForMarkdown(formatMinutes(article.ReadingTime)),
		markup.EscapeForMarkdown(article.Category),
		markup.Code(strconv.FormatInt(article.ID, 10)),
	)
}

func formatArticles(articles []model.Article) string {
	lines := make([]string, 0, len(articles))
	for i, a := range articles {
		lines = append(lines, formatArticle(i+1, a))
	}
	return strings.Join(lines, "\n\n")
}

func formatScored(scored []model.ScoredArticle) string {
	articles := make([]model.Article, 0, len(scored))
	for _, s := range scored {
		articles = append(articles, s.Article)
	}
	return formatArticles(articles)
}

func formatMinutes(minutes int) string {
	return fmt.Sprintf("%d мин.", minutes)
}

// Дайджест, сгруппированный по категориям
func FormatDigest(digest model.Digest) string {
	if len(digest.Items) == 0 {
		return "📭 Очередь пуста, читать пока нечего"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 *Дайджест на сегодня*\n%s\n",
		markup.EscapeForMarkdown(fmt.Sprintf("%d статей, примерно %s", len(digest.Items), formatMinutes(digest.TotalReadingTime))),
	)

	n := 0
	for _, group := range digest.Groups {
		fmt.Fprintf(&b, "\n%s\n", markup.Bold(group.Category))
		for _, item := range group.Articles {
			n++
			fmt.Fprintf(&b, "%s\n", formatArticle(n, item.Article))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatStats(stats model.Statistics) string {
	lines := []string{
		"📊 *Статистика*",
		"",
		markup.EscapeForMarkdown(fmt.Sprintf("Всего статей: %d", stats.TotalArticles)),
		markup.EscapeForMarkdown(fmt.Sprintf("Прочитано: %d (%.1f%%)", stats.ReadCount, stats.ReadPercentage)),
		markup.EscapeForMarkdown(fmt.Sprintf("В очереди: %d", stats.UnreadCount)),
		markup.EscapeForMarkdown(fmt.Sprintf("Среднее время чтения: %.1f мин.", stats.AverageReadingTime)),
	}

	if stats.TopCategory != "" {
		lines = append(lines, "Чаще всего читаете: "+markup.Bold(stats.TopCategory))
	}

	return strings.Join(lines, "\n")
}

func formatPattern(pattern model.ReadingPattern) string {
	var b strings.Builder

	b.WriteString("🕰 *Привычки чтения*\n\n")

	if !pattern.HasData {
		b.WriteString(markup.EscapeForMarkdown("Пока мало данных, поэтому используются часы по умолчанию.") + "\n")
	} else {
		b.WriteString(markup.EscapeForMarkdown(fmt.Sprintf("Прочитано статей: %d", pattern.TotalReads)) + "\n")
	}

	hours := make([]string, 0, len(pattern.PreferredHours))
	for _, h := range pattern.PreferredHours {
		hours = append(hours, fmt.Sprintf("%02d:00", h))
	}
	b.WriteString("Любимые часы: " + markup.EscapeForMarkdown(strings.Join(hours, ", ")) + "\n")

	if len(pattern.PreferredDays) > 0 {
		days := make([]string, 0, len(pattern.PreferredDays))
		for _, d := range pattern.PreferredDays {
			if d >= 0 && d < len(dayNames) {
				days = append(days, dayNames[d])
			}
		}
		b.WriteString("Любимые дни: " + markup.EscapeForMarkdown(strings.Join(days, ", ")) + "\n")
	}

	if len(pattern.ReadingTimes) > 0 {
		times := make([]string, 0, len(pattern.ReadingTimes))
		for _, t := range pattern.ReadingTimes {
			times = append(times, timeOfDayNames[t])
		}
		b.WriteString("Время суток: " + markup.EscapeForMarkdown(strings.Join(times, ", ")) + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatSchedule(entries []model.ScheduleEntry) string {
	if len(entries) == 0 {
		return "Расписание пока пустое"
	}

	lines := []string{"🗓 *Расписание доставки*", ""}
	for _, e := range entries {
		lines = append(lines, markup.EscapeForMarkdown(fmt.Sprintf(
			"• %s %s, до %d статей",
			weekdayNames[e.DeliveryTime.Weekday()],
			e.DeliveryTime.Format("02.01 15:04"),
			e.RecommendedItems,
		)))
	}

	return strings.Join(lines, "\n")
}

func formatSource(source model.Source) string {
	return fmt.Sprintf(
		"🌐 %s\nID: %s\nURL фида: %s",
		markup.Bold(source.Name),
		markup.Code(strconv.FormatInt(source.ID, 10)),
		markup.EscapeForMarkdown(source.FeedURL),
	)
}
