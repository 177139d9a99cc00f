// Copyright (c) 2026 Altair. All rights reserved.
// Author: quang.nv.dn@gmail.com

/*
Package mailer delivers one-time verification codes to users by email.

The verification flows depend only on the [CodeSender] capability; the SES
implementation lives in this package, and tests substitute an in-memory fake.
A delivery failure is surfaced to the caller because the user otherwise has
no way to learn their code was never sent.
*/
package mailer

import (
	"context"
	"fmt"
	"log/slog"
)

// CodeKind identifies which flow a one-time code belongs to. The kind selects
// the subject line and body template of the outbound message.
type CodeKind string

const (
	// KindRegistration activates a freshly registered account.
	KindRegistration CodeKind = "registration"
	// KindPasswordReset authorizes a pending password reset.
	KindPasswordReset CodeKind = "password_reset"
)

// CodeSender is the outbound notification boundary for one-time codes.
type CodeSender interface {
	SendCode(ctx context.Context, email string, code string, kind CodeKind) error
}

// # Development Sender

// LogSender writes codes to the structured log instead of sending mail.
// It is the sender of choice for local development.
type LogSender struct {
	Logger *slog.Logger
}

// SendCode logs the code at INFO level.
func (s *LogSender) SendCode(ctx context.Context, email string, code string, kind CodeKind) error {
	s.Logger.InfoContext(ctx, "verification_code_issued",
		slog.String("email", email),
		slog.String("code", code),
		slog.String("kind", string(kind)),
	)
	return nil
}

// subjectFor returns the subject line for the given code kind.
func subjectFor(kind CodeKind) string {
	switch kind {
	case KindPasswordReset:
		return "Your Altair password reset code"
	default:
		return "Your Altair verification code"
	}
}

// bodyFor renders the plain-text body for the given code kind.
func bodyFor(kind CodeKind, code string) string {
	switch kind {
	case KindPasswordReset:
		return fmt.Sprintf("Your password reset code is %s. It expires shortly. If you did not request a reset, ignore this message.", code)
	default:
		return fmt.Sprintf("Your verification code is %s. It expires shortly. Enter it to activate your account.", code)
	}
}
