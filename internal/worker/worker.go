package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/pkg/queue"
)

// EmailSender sends one rendered email. Satisfied by the SendGrid client;
// tests substitute a recorder.
type EmailSender interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error
}

// SendGridSender sends mail through the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGridSender creates a SendGrid-backed sender.
func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Send delivers one email.
func (s *SendGridSender) Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	msg := mail.NewSingleEmail(from, subject, to, "", htmlBody)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// EmailProcessor renders and sends queued notification emails.
type EmailProcessor struct {
	sender EmailSender
	queue  *queue.Queue
	logger *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(sender EmailSender, q *queue.Queue, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{sender: sender, queue: q, logger: logger}
}

// RenderBody builds the HTML body for one email payload. Values are escaped,
// the payloads carry user-entered text.
func RenderBody(p queue.EmailPayload) string {
	esc := func(k string) string { return html.EscapeString(p.Data[k]) }
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Halo %s,</p>", html.EscapeString(p.RecipientName))
	switch p.EmailType {
	case queue.EmailMessageReceived:
		fmt.Fprintf(&b, "<p>Pesan baru dari %s (%s):</p>", esc("sender_name"), esc("sender_email"))
		fmt.Fprintf(&b, "<p><strong>%s</strong></p><p>%s</p>", esc("title"), esc("message"))
	case queue.EmailRPPReviewed:
		fmt.Fprintf(&b, "<p>RPP <strong>%s</strong> Anda telah direview dengan hasil: <strong>%s</strong>.</p>",
			esc("rpp_type"), esc("status"))
		if p.Data["notes"] != "" {
			fmt.Fprintf(&b, "<p>Catatan: %s</p>", esc("notes"))
		}
	case queue.EmailUserCreated:
		fmt.Fprintf(&b, "<p>Akun Anda telah dibuat dengan username <strong>%s</strong>. Silakan login dan ganti password Anda.</p>",
			esc("username"))
	default:
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(p.Subject))
	}
	b.WriteString("<p>Salam,<br>Administrasi Sekolah</p>")
	return b.String()
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.RecipientEmail == "" {
		p.logger.Warn("email job with no recipient, dropping", zap.String("job_id", job.ID))
		return nil
	}

	body := RenderBody(payload)
	if err := p.sender.Send(ctx, payload.RecipientEmail, payload.RecipientName, payload.Subject, body); err != nil {
		return fmt.Errorf("send %s: %w", payload.EmailType, err)
	}
	p.logger.Info("email sent",
		zap.String("job_id", job.ID),
		zap.String("email_type", payload.EmailType),
		zap.String("recipient", payload.RecipientEmail))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
