package notify

import (
	"context"

	"PricePulse/pkg/logger"
	"PricePulse/pkg/queue"
)

// SlackJob delivers queued alerts through the Slack webhook.
type SlackJob struct {
	sender *SlackSender
}

func NewSlackJob(sender *SlackSender) *SlackJob { return &SlackJob{sender: sender} }

func (j *SlackJob) Name() string { return "slack-notification" }
func (j *SlackJob) Type() string { return ChannelSlack }

func (j *SlackJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[Payload](payload)
	if err != nil {
		return err
	}
	return j.sender.SendAlert(ctx, *p)
}

// EmailJob delivers queued alerts over SMTP.
type EmailJob struct {
	sender *EmailSender
}

func NewEmailJob(sender *EmailSender) *EmailJob { return &EmailJob{sender: sender} }

func (j *EmailJob) Name() string { return "email-notification" }
func (j *EmailJob) Type() string { return ChannelEmail }

func (j *EmailJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[Payload](payload)
	if err != nil {
		return err
	}
	return j.sender.SendAlert(ctx, *p)
}

// DesktopJob logs queued alerts. A headless deployment has no toast
// target; the log line keeps the channel observable.
type DesktopJob struct {
	log *logger.Logger
}

func NewDesktopJob(log *logger.Logger) *DesktopJob { return &DesktopJob{log: log} }

func (j *DesktopJob) Name() string { return "desktop-notification" }
func (j *DesktopJob) Type() string { return ChannelDesktop }

func (j *DesktopJob) Handle(_ context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[Payload](payload)
	if err != nil {
		return err
	}
	j.log.Info("desktop notification",
		logger.String("product_id", p.ProductID),
		logger.String("type", string(p.AlertType)),
		logger.String("message", p.Message))
	return nil
}
