package email

import (
	"context"
	"fmt"
	"time"

	mail "gopkg.in/mail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPRelay struct {
	dialer *mail.Dialer
	from   string
}

func NewSMTPRelay(cfg SMTPConfig) *SMTPRelay {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.Timeout = 10 * time.Second
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	return &SMTPRelay{dialer: d, from: cfg.From}
}

func (r *SMTPRelay) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetAddressHeader("From", r.from, "Connect A Doctor")
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := r.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}
