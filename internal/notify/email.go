package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/medtracker/internal/model"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier mails each notification to a fixed recipient list.
type EmailNotifier struct {
	sender mailSender
	from   string
	to     []string
}

func NewEmailNotifier(cfg EmailConfig) (*EmailNotifier, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("email notifier needs host, from and at least one recipient")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &EmailNotifier{sender: d, from: cfg.From, to: cfg.To}, nil
}

func (e *EmailNotifier) Notify(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to...)
	m.SetHeader("Subject", n.Title)
	m.SetBody("text/plain", fmt.Sprintf("%s\n\nScheduled for %s.", n.Body, n.FireAt.Format("Monday, January 2 at 15:04")))

	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}
	return nil
}
