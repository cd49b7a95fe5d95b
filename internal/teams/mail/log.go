package mail

import (
	"context"
	"log/slog"
)

// LogMailer writes mail to the log instead of delivering it. Used when no
// SMTP relay is configured, so local development does not need one.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendInvitation(_ context.Context, inv Invitation) error {
	m.Logger.Info("mail not delivered (no SMTP relay configured)",
		"kind", "invitation", "to", inv.To, "team", inv.TeamName, "token", inv.Token)
	return nil
}

func (m *LogMailer) SendJoinRequestNotice(_ context.Context, n JoinRequestNotice) error {
	m.Logger.Info("mail not delivered (no SMTP relay configured)",
		"kind", "join_request_notice", "to", n.To, "team", n.TeamName)
	return nil
}

func (m *LogMailer) SendJoinRequestOutcome(_ context.Context, o JoinRequestOutcome) error {
	m.Logger.Info("mail not delivered (no SMTP relay configured)",
		"kind", "join_request_outcome", "to", o.To, "team", o.TeamName, "approved", o.Approved)
	return nil
}

var _ Mailer = (*LogMailer)(nil)
