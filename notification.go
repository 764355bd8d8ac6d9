package cryptoalert

import (
	"context"
	"errors"

	"github.com/raykavin/cryptoalert/pkg/notification"
)

// initializeNotifications sets up the Telegram transport unless a notifier was provided
func initializeNotifications(ctx context.Context, bot *Bot) error {
	if bot.notifier != nil {
		return nil
	}

	if bot.settings.Telegram.Token == "" {
		return errors.New("telegram token is required")
	}

	telegram, err := notification.NewTelegram(bot.settings.Telegram, bot.handler, bot.log,
		notification.WithContext(ctx))
	if err != nil {
		return err
	}

	// Register telegram as notifier
	WithNotifier(telegram)(bot)
	return nil
}
