package services

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier: оповещения администраторов (новые заявки KYC, покупки).
// Текст уходит с parse mode HTML, пользовательские значения экранируются вызывающим.
type Notifier interface {
	Notify(text string) error
}

type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// NewTelegramNotifier при пустом токене или chatID возвращает выключенный notifier.
func NewTelegramNotifier(token string, chatID int64, log *zap.Logger) (*TelegramNotifier, error) {
	if log == nil {
		log = zap.L()
	}
	t := &TelegramNotifier{chatID: chatID, log: log}
	if token == "" || chatID == 0 {
		log.Info("[tg][skip] token or chatID empty, admin notifications disabled")
		return t, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return t, fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	log.Info("[tg] authorized", zap.String("bot", bot.Self.UserName))
	return t, nil
}

func (t *TelegramNotifier) Notify(text string) error {
	if t == nil || t.bot == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}

// notify работает best-effort, ошибка только логируется.
func notify(n Notifier, log *zap.Logger, text string) {
	if n == nil {
		return
	}
	if err := n.Notify(text); err != nil {
		log.Warn("[tg][send][err]", zap.Error(err))
	}
}
