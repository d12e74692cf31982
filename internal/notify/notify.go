// Package notify delivers reminder notices.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/jio-scheduler/internal/reminder"
)

// Message renders the reminder text sent to users.
func Message(notice reminder.Notice) string {
	return fmt.Sprintf("It's been a while since %s last met (%s). Time to jio again? Open the group to poll availability.",
		notice.Group.Name, notice.LastConfirmed)
}

// Log writes reminders to a structured logger.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a notifier that only logs.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) NotifyReminder(ctx context.Context, notice reminder.Notice) error {
	l.logger.InfoContext(ctx, "reminder due",
		"group_id", notice.Group.ID,
		"group_name", notice.Group.Name,
		"last_confirmed", notice.LastConfirmed,
		"due_date", notice.DueDate,
		"participants", len(notice.Group.Participants),
	)
	return nil
}

// Sender is the subset of the Telegram bot API used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts reminders to a single chat.
type Telegram struct {
	sender Sender
	chatID int64
}

// NewTelegram connects to the Bot API with token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify: telegram: %w", err)
	}
	return NewTelegramWithSender(bot, chatID), nil
}

// NewTelegramWithSender wraps an existing sender.
func NewTelegramWithSender(sender Sender, chatID int64) *Telegram {
	return &Telegram{sender: sender, chatID: chatID}
}

func (t *Telegram) NotifyReminder(ctx context.Context, notice reminder.Notice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.sender.Send(tgbotapi.NewMessage(t.chatID, Message(notice))); err != nil {
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	return nil
}

// Multi sends to every notifier and joins their errors.
type Multi []reminder.Notifier

func (m Multi) NotifyReminder(ctx context.Context, notice reminder.Notice) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyReminder(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
