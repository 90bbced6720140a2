package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envio de correos de cuenta.
type Sender interface {
	SendPasswordReset(ctx context.Context, toEmail string, resetURL string) error
	SendEmailConfirmation(ctx context.Context, toEmail string, confirmURL string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendPasswordReset(_ context.Context, _ string, _ string) error {
	return s.err()
}

func (s *disabledSender) SendEmailConfirmation(_ context.Context, _ string, _ string) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
