package mail

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"
)

// SMTPConfig configures the outgoing mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the sender address on all outgoing mail.
	From string
	// FromName is the display name next to From.
	FromName string
	// BaseURL is the public URL of this application, used to build
	// invitation accept links.
	BaseURL string
}

// SMTPMailer delivers mail through an SMTP relay using gomail.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

var invitationTmpl = template.Must(template.New("invitation").Parse(
	`Hello,

{{.InviterName}} has invited you to join the team "{{.TeamName}}" as {{.Role}}.
{{if .Message}}
Personal message:

{{.Message}}
{{end}}
Follow this link to accept or decline the invitation:

{{.AcceptURL}}

If you did not expect this invitation you can ignore this mail.
`))

var joinRequestNoticeTmpl = template.Must(template.New("join_request_notice").Parse(
	`Hello,

{{.RequesterName}} has asked to join the team "{{.TeamName}}".
{{if .Message}}
Personal message:

{{.Message}}
{{end}}
Sign in to approve or deny the request.
`))

var joinRequestOutcomeTmpl = template.Must(template.New("join_request_outcome").Parse(
	`Hello {{.Name}},

Your request to join the team "{{.TeamName}}" has been {{if .Approved}}approved. You are now a member of the team.{{else}}denied.{{end}}
`))

func (m *SMTPMailer) SendInvitation(ctx context.Context, inv Invitation) error {
	var body bytes.Buffer
	err := invitationTmpl.Execute(&body, struct {
		Invitation
		AcceptURL string
	}{
		Invitation: inv,
		AcceptURL:  fmt.Sprintf("%s/invitations/%s", m.cfg.BaseURL, inv.Token),
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Invitation for team %s", inv.TeamName)
	return m.send(ctx, []string{inv.To}, subject, body.String())
}

func (m *SMTPMailer) SendJoinRequestNotice(ctx context.Context, n JoinRequestNotice) error {
	if len(n.To) == 0 {
		return nil
	}
	var body bytes.Buffer
	if err := joinRequestNoticeTmpl.Execute(&body, n); err != nil {
		return err
	}
	subject := fmt.Sprintf("Membership request for team %s", n.TeamName)
	return m.send(ctx, n.To, subject, body.String())
}

func (m *SMTPMailer) SendJoinRequestOutcome(ctx context.Context, out JoinRequestOutcome) error {
	var body bytes.Buffer
	if err := joinRequestOutcomeTmpl.Execute(&body, out); err != nil {
		return err
	}
	subject := fmt.Sprintf("Your membership request for team %s", out.TeamName)
	return m.send(ctx, []string{out.To}, subject, body.String())
}

func (m *SMTPMailer) send(ctx context.Context, to []string, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.cfg.From, m.cfg.FromName))
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}

var _ Mailer = (*SMTPMailer)(nil)
