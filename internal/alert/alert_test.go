package alert

import (
	"context"
	"errors"
	"strings"
	"testing"

	"backup-warden/internal/config"
	"backup-warden/internal/execx"
	"backup-warden/internal/metrics"
)

func init() {
	metrics.Init()
}

func TestSendFailureComposesMailPipeline(t *testing.T) {
	runner := &execx.FakeRunner{}
	mailer := NewMailer(config.Default(), runner, nil)

	mailer.SendFailure(context.Background(), "backup failed on both attempts", "tool output", "tool errors")

	shell := runner.ShellCalls()
	if len(shell) != 1 {
		t.Fatalf("expected 1 mail invocation, got %d", len(shell))
	}

	script := shell[0].Script
	if !strings.Contains(script, "msmtp hst@gamebox.at") {
		t.Errorf("mail pipeline missing relay command: %s", script)
	}
	for _, want := range []string{"Subject:", "backup failed on both attempts", "STDOUT:", "tool output", "STDERR:", "tool errors"} {
		if !strings.Contains(script, want) {
			t.Errorf("mail content missing %q: %s", want, script)
		}
	}
}

func TestSendFailureErrorIsOnlyLogged(t *testing.T) {
	runner := &execx.FakeRunner{Outcomes: []execx.Outcome{
		{Err: errors.New("msmtp: connection refused")},
	}}
	mailer := NewMailer(config.Default(), runner, nil)

	// Must not panic or escalate
	mailer.SendFailure(context.Background(), "message", "", "")

	if len(runner.ShellCalls()) != 1 {
		t.Errorf("expected exactly one send attempt")
	}
}

func TestSendFailureSkipsWithoutRecipient(t *testing.T) {
	cfg := config.Default()
	cfg.Mail.Recipient = ""
	runner := &execx.FakeRunner{}
	mailer := NewMailer(cfg, runner, nil)

	mailer.SendFailure(context.Background(), "message", "", "")

	if len(runner.Calls) != 0 {
		t.Errorf("expected no invocations without a recipient, got %d", len(runner.Calls))
	}
}
