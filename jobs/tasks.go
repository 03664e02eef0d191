package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/aria-id/aria-id/internal/jobs"
	"github.com/aria-id/aria-id/internal/mailer"
	"github.com/aria-id/aria-id/internal/vercode"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeCodePurge is the task type for purging dead verification codes.
	TaskTypeCodePurge = "vercode:purge"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody"`
	TextBody string `json:"textBody"`
}

// NewSendEmailTask constructs an Asynq task carrying a rendered message.
func NewSendEmailTask(msg mailer.Message) (*asynq.Task, error) {
	data, err := json.Marshal(SendEmailPayload{
		To:       msg.To,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
		TextBody: msg.TextBody,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewCodePurgeTask constructs the periodic purge task. It carries no payload;
// the retention cutoff is computed at execution time.
func NewCodePurgeTask() *asynq.Task {
	return asynq.NewTask(TaskTypeCodePurge, nil)
}

// TaskHandlers bundles the worker-side dependencies for task execution.
type TaskHandlers struct {
	Sender  mailer.Sender
	Codes   vercode.Repository
	Metrics *jobmetrics.Metrics
	Logger  *slog.Logger
}

// HandleSendEmail processes TaskTypeSendEmail tasks.
func (h *TaskHandlers) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	tracker := h.Metrics.Track("send_email")
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	err := h.Sender.Send(ctx, mailer.Message{
		To:       payload.To,
		Subject:  payload.Subject,
		HTMLBody: payload.HTMLBody,
		TextBody: payload.TextBody,
	})
	if err != nil {
		h.Logger.Error("send queued email", slog.String("subject", payload.Subject), slog.Any("error", err))
	}
	return tracker.End(err)
}

// HandleCodePurge deletes verification codes that expired more than a day ago
// along with already-consumed ones.
func (h *TaskHandlers) HandleCodePurge(ctx context.Context, t *asynq.Task) error {
	tracker := h.Metrics.Track("code_purge")
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	purged, err := h.Codes.PurgeExpired(ctx, cutoff)
	if err != nil {
		h.Logger.Error("purge verification codes", slog.Any("error", err))
		return tracker.End(err)
	}
	if purged > 0 {
		h.Logger.Info("purged verification codes", slog.Int64("count", purged))
	}
	return tracker.End(nil)
}
