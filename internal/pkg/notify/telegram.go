package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jamiebrown201/sport-sage-sub001/internal/pkg/models"
)

// Min interval between any two Telegram messages to the same chat to avoid
// 429 Too Many Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

// TelegramNotifier pushes operational alerts to a Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	mu       sync.Mutex
	lastSend time.Time
}

// NewTelegramNotifier creates the notifier and verifies the bot token.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false
	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("verify telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Notify sends one alert, pacing sends to stay under the Telegram rate limit.
func (n *TelegramNotifier) Notify(ctx context.Context, alert models.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if wait := telegramSendInterval - time.Since(n.lastSend); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	msg := tgbotapi.NewMessage(n.chatID, formatAlert(alert))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	n.lastSend = time.Now()
	slog.Debug("telegram alert sent", "type", alert.Type)
	return nil
}

func formatAlert(alert models.Alert) string {
	icon := "⚠️"
	if alert.Severity == models.SeverityCritical {
		icon = "🚨"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n", icon, alert.Type)
	fmt.Fprintf(&b, "%s\n", alert.Message)
	for k, v := range alert.Metadata {
		fmt.Fprintf(&b, "<code>%s: %s</code>\n", k, v)
	}
	if !alert.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "\n%s", alert.CreatedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}
