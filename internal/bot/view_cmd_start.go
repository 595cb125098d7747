package bot

import (
	"context"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit/markup"
	"strings"
)

var helpLines = []string{
	"/save <ссылка> сохранить статью, можно просто прислать ссылку",
	"/list [категория] очередь по приоритету",
	"/search <текст> поиск по сохраненному",
	"/categories категории в очереди",
	"/read <id> отметить прочитанной",
	"/category <id> <категория> сменить категорию",
	"/delete <id> удалить статью",
	"/digest [n] дайджест из n статей",
	"/session [минуты] что успеть прочитать за время",
	"/schedule [дни] расписание доставки",
	"/patterns привычки чтения",
	"/stats статистика",
	"/listsources подписки на RSS",
	"/addsource {\"name\": \"...\", \"url\": \"...\"} добавить подписку",
	"/deletesource <id> удалить подписку",
}

func helpText() string {
	return "*Команды*\n\n" + markup.EscapeForMarkdown(strings.Join(helpLines, "\n"))
}

func ViewCmdStart() botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		greeting := "👋 Привет\\! Присылайте ссылки на статьи, а я соберу из них очередь и подскажу, что и когда читать\\.\n\n"
		return reply(bot, update, greeting+helpText())
	}
}

func ViewCmdHelp() botkit.ViewFunc {
	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		return reply(bot, update, helpText())
	}
}
