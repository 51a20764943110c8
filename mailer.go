package identity

import (
	"context"
	"net/smtp"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// LoggerMailer writes outgoing mail to the logger instead of delivering it.
// Default for development and tests.
type LoggerMailer struct {
	Logger Logger
}

func (m LoggerMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "mail delivery cancelled")
	}

	logger := m.Logger
	if logger == nil {
		logger = defLogger{}
	}

	logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	logger.Info("to: %s", to)
	logger.Info("subject: %s", subject)
	logger.Info("body: %s", body)

	return nil
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	Addr string // host:port
	From string
	Auth smtp.Auth
}

func (m SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "mail delivery cancelled")
	}

	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg))
	}()

	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "mail delivery timed out").
			WithMetadata(map[string]any{"to": to})
	case err := <-done:
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "smtp delivery failed").
				WithMetadata(map[string]any{"to": to})
		}
		return nil
	}
}
