package alert

import (
	"context"
	"fmt"
	"log"

	"backup-warden/internal/config"
	"backup-warden/internal/execx"
	"backup-warden/internal/metrics"
)

const subject = "backup-warden: image-backup run failed"

// Mailer delivers plain-text failure reports to the operator mailbox through
// a local mail relay invoked as a subprocess. Delivery is best-effort: a
// failed send is logged, never escalated, so a broken relay cannot turn one
// failure into a loop of them.
type Mailer struct {
	runner    execx.Runner
	logger    *log.Logger
	recipient string
	command   string
}

// NewMailer creates a Mailer from config
func NewMailer(cfg *config.Config, runner execx.Runner, logger *log.Logger) *Mailer {
	if logger == nil {
		logger = log.Default()
	}
	return &Mailer{
		runner:    runner,
		logger:    logger,
		recipient: cfg.Mail.Recipient,
		command:   cfg.Mail.Command,
	}
}

// SendFailure mails a failure report containing the error message and the
// verbatim captured output of the failed attempt.
func (m *Mailer) SendFailure(ctx context.Context, message, stdout, stderr string) {
	if m.recipient == "" {
		m.logger.Printf("no alert recipient configured, skipping notification: %s", message)
		return
	}

	body := fmt.Sprintf("%s\n\nSTDOUT:\n%s\n\nSTDERR:\n%s", message, stdout, stderr)
	content := fmt.Sprintf("Subject: %s\n\n%s", subject, body)
	script := fmt.Sprintf("echo %s | %s %s", execx.ShellQuote(content), m.command, m.recipient)

	if _, err := m.runner.RunShell(ctx, script); err != nil {
		m.logger.Printf("failed to send alert mail to %s: %v", m.recipient, err)
		return
	}

	metrics.AlertsSentTotal.Inc()
	m.logger.Printf("alert mail sent to %s", m.recipient)
}
