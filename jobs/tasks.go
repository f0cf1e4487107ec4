package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/parley-chat/parley/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"

	// MailKindVerification asks the recipient to confirm their address.
	MailKindVerification = "verification"
	// MailKindPasswordReset carries a one-time reset token.
	MailKindPasswordReset = "password_reset"
)

// SendEmailPayload describes a transactional email to deliver.
type SendEmailPayload struct {
	To    string `json:"to"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Token string `json:"token"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SMTPConfig points the mail handler at a relay.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// MailHandler delivers queued mail over SMTP.
type MailHandler struct {
	logger  *slog.Logger
	cfg     SMTPConfig
	metrics *jobmetrics.Metrics
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailHandler constructs a MailHandler.
func NewMailHandler(logger *slog.Logger, cfg SMTPConfig, metrics *jobmetrics.Metrics) *MailHandler {
	return &MailHandler{logger: logger, cfg: cfg, metrics: metrics, send: smtp.SendMail}
}

// Handle processes TaskTypeSendEmail tasks.
func (h *MailHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskTypeSendEmail)
	return tracker.End(h.handle(ctx, t))
}

func (h *MailHandler) handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	subject, body, err := renderMail(payload)
	if err != nil {
		h.logger.Warn("drop unrenderable mail task", slog.String("kind", payload.Kind))
		return asynq.SkipRetry
	}
	msg := buildMessage(h.cfg.From, payload.To, subject, body)
	addr := h.cfg.Host + ":" + strconv.Itoa(h.cfg.Port)
	var auth smtp.Auth
	if h.cfg.Username != "" {
		auth = smtp.PlainAuth("", h.cfg.Username, h.cfg.Password, h.cfg.Host)
	}
	if err := h.send(addr, auth, h.cfg.From, []string{payload.To}, msg); err != nil {
		h.logger.Error("send mail", slog.Any("error", err), slog.String("kind", payload.Kind))
		return err
	}
	return nil
}

func renderMail(p SendEmailPayload) (subject, body string, err error) {
	name := p.Name
	if name == "" {
		name = p.To
	}
	switch p.Kind {
	case MailKindVerification:
		subject = "Verify your Parley account"
		body = fmt.Sprintf("Hi %s,\r\n\r\nUse this token to verify your account:\r\n\r\n%s\r\n", name, p.Token)
	case MailKindPasswordReset:
		subject = "Reset your Parley password"
		body = fmt.Sprintf("Hi %s,\r\n\r\nUse this one-time token to reset your password. It expires in an hour:\r\n\r\n%s\r\n", name, p.Token)
	default:
		return "", "", fmt.Errorf("jobs: unknown mail kind %q", p.Kind)
	}
	return subject, body, nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
