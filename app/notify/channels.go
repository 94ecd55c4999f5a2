package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Message is a channel-agnostic notification payload. Channels decide
// how to render it (telegram ignores the subject, email uses it).
type Message struct {
	Subject string
	Text    string
}

// Channel is one delivery transport for notifications.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// NotifyError signals a channel transport failure. It is retried and,
// on exhaustion, degraded to a logged failure; it never fails the run.
type NotifyError struct {
	Channel string
	Err     error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Channel, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

// TelegramChannel delivers alerts to a single chat through the
// Telegram Bot API.
type TelegramChannel struct {
	bot    *tele.Bot
	chatID int64
}

func NewTelegramChannel(token string, chatID int64) (*TelegramChannel, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	bot, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramChannel{bot: bot, chatID: chatID}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, msg Message) error {
	_, err := c.bot.Send(&tele.Chat{ID: c.chatID}, msg.Text, &tele.SendOptions{
		DisableWebPagePreview: true,
	})
	if err != nil {
		return &NotifyError{Channel: c.Name(), Err: err}
	}
	return nil
}

// EmailChannel delivers alerts over SMTP.
type EmailChannel struct {
	host     string
	port     string
	user     string
	password string
	from     string
	to       string
}

func NewEmailChannel(host, port, user, password, from, to string) (*EmailChannel, error) {
	if host == "" || from == "" || to == "" {
		return nil, fmt.Errorf("smtp host, from and to are required")
	}
	return &EmailChannel{host: host, port: port, user: user, password: password, from: from, to: to}, nil
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, msg Message) error {
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\n\r\n%s\r\n",
		c.from, c.to, msg.Subject, time.Now().UTC().Format(time.RFC1123Z), msg.Text)

	var auth smtp.Auth
	if c.user != "" {
		auth = smtp.PlainAuth("", c.user, c.password, c.host)
	}

	if err := smtp.SendMail(c.host+":"+c.port, auth, c.from, []string{c.to}, []byte(body)); err != nil {
		return &NotifyError{Channel: c.Name(), Err: err}
	}
	return nil
}
