package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/pkg/queue"
)

type recordedMail struct {
	toEmail, toName, subject, body string
}

type recorderSender struct {
	sent []recordedMail
}

func (r *recorderSender) Send(_ context.Context, toEmail, toName, subject, htmlBody string) error {
	r.sent = append(r.sent, recordedMail{toEmail, toName, subject, htmlBody})
	return nil
}

func emailJob(t *testing.T, p queue.EmailPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return &queue.Job{ID: "job-1", Type: queue.JobTypeEmail, Payload: raw}
}

func TestProcessSendsRenderedEmail(t *testing.T) {
	sender := &recorderSender{}
	p := NewEmailProcessor(sender, nil, zap.NewNop())

	job := emailJob(t, queue.EmailPayload{
		EmailType:      queue.EmailRPPReviewed,
		RecipientEmail: "guru@sekolah.id",
		RecipientName:  "Budi",
		Subject:        "Hasil review RPP Anda",
		Data:           map[string]string{"rpp_type": "silabus", "status": "approved"},
	})
	require.NoError(t, p.Process(context.Background(), job))

	require.Len(t, sender.sent, 1)
	m := sender.sent[0]
	assert.Equal(t, "guru@sekolah.id", m.toEmail)
	assert.Contains(t, m.body, "Halo Budi")
	assert.Contains(t, m.body, "silabus")
	assert.Contains(t, m.body, "approved")
}

func TestProcessDropsJobWithoutRecipient(t *testing.T) {
	sender := &recorderSender{}
	p := NewEmailProcessor(sender, nil, zap.NewNop())

	job := emailJob(t, queue.EmailPayload{EmailType: queue.EmailUserCreated})
	require.NoError(t, p.Process(context.Background(), job))
	assert.Empty(t, sender.sent)
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := NewEmailProcessor(&recorderSender{}, nil, zap.NewNop())
	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: "ftp_upload"})
	assert.Error(t, err)
}

func TestRenderBodyEscapesUserText(t *testing.T) {
	body := RenderBody(queue.EmailPayload{
		EmailType:     queue.EmailMessageReceived,
		RecipientName: "Admin",
		Data: map[string]string{
			"sender_name":  "<script>alert(1)</script>",
			"sender_email": "x@y.z",
			"title":        "Halo",
			"message":      "a & b",
		},
	})
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "a &amp; b")
}
