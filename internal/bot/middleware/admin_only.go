package middleware

import (
	"context"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit"
	"github.com/tomakado/containers/set"
)

// Пропускает к next только администраторов: пользователей из adminIDs
// и администраторов канала, если channelID задан
func AdminOnly(channelID int64, adminIDs []int64, next botkit.ViewFunc) botkit.ViewFunc {
	admins := set.New(adminIDs...)

	return func(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) error {
		if update.Message == nil || update.Message.From == nil {
			return nil
		}

		userID := update.Message.From.ID

		allowed := admins.Contains(userID)
		if !allowed && channelID != 0 {
			isChannelAdmin, err := channelAdmin(bot, channelID, userID)
			if err != nil {
				return err
			}
			allowed = isChannelAdmin
		}

		if allowed {
			return next(ctx, bot, update)
		}

		if _, err := bot.Send(tgbotapi.NewMessage(update.Message.Chat.ID, "У вас нет прав для выполнения этой команды")); err != nil {
			return err
		}
		return nil
	}
}

func channelAdmin(bot *tgbotapi.BotAPI, channelID, userID int64) (bool, error) {
	members, err := bot.GetChatAdministrators(
		tgbotapi.ChatAdministratorsConfig{
			ChatConfig: tgbotapi.ChatConfig{
				ChatID: channelID,
			},
		},
	)
	if err != nil {
		return false, fmt.Errorf("get chat administrators: %w", err)
	}

	for _, member := range members {
		if member.User != nil && member.User.ID == userID {
			return true, nil
		}
	}

	return false, nil
}
