package email

import (
	"context"
	"log/slog"
)

// DevSender implements EmailSender for local development: it logs the email
// instead of delivering it.
type DevSender struct {
	log *slog.Logger
}

// NewDevSender creates a development email sender.
func NewDevSender(log *slog.Logger) EmailSender {
	if log == nil {
		log = slog.Default()
	}
	return &DevSender{log: log}
}

func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "dev email sender: email suppressed",
		slog.String("send_to", params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
	)
	return nil
}
