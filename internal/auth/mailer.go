// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"log/slog"
)

// Mailer is the outbound message-delivery collaborator capability.
type Mailer interface {
	// Send delivers a message to the recipient.
	Send(ctx context.Context, recipient Address, subject, body string) error
}

// LogMailer is a Mailer that writes messages to the log instead of
// delivering them. Used in development deployments and tests.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(ctx context.Context, recipient Address, subject, body string) error {
	m.logger.InfoContext(ctx, "sending mail",
		"recipient", recipient.String(),
		"subject", subject,
		"body", body,
	)
	return nil
}

// Compile-time interface check.
var _ Mailer = (*LogMailer)(nil)
