package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"PricePulse/internal/domain/models"
	"PricePulse/pkg/logger"
)

// SlackConfig configures the incoming-webhook sender.
type SlackConfig struct {
	WebhookURL string
	Channel    string
	Username   string
	IconEmoji  string
	Timeout    time.Duration
}

// SlackSender posts alert messages to a Slack incoming webhook.
type SlackSender struct {
	cfg  SlackConfig
	http *resty.Client
	log  *logger.Logger
}

func NewSlackSender(cfg SlackConfig, log *logger.Logger) *SlackSender {
	if cfg.Username == "" {
		cfg.Username = "PricePulse"
	}
	if cfg.IconEmoji == "" {
		cfg.IconEmoji = ":shopping_bags:"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SlackSender{
		cfg:  cfg,
		http: resty.New().SetTimeout(cfg.Timeout),
		log:  log,
	}
}

// SendAlert posts one alert as a rich block message with a plain-text
// fallback for toast notifications.
func (s *SlackSender) SendAlert(ctx context.Context, p Payload) error {
	body := map[string]interface{}{
		"channel":    s.cfg.Channel,
		"username":   s.cfg.Username,
		"icon_emoji": s.cfg.IconEmoji,
		"text":       fmt.Sprintf("Price Alert: %s - $%s", p.ProductTitle, p.Price.StringFixed(2)),
		"blocks":     alertBlocks(p),
	}
	return s.post(ctx, body)
}

// SendMessage posts a plain text message.
func (s *SlackSender) SendMessage(ctx context.Context, text string) error {
	return s.post(ctx, map[string]interface{}{
		"channel":    s.cfg.Channel,
		"username":   s.cfg.Username,
		"icon_emoji": s.cfg.IconEmoji,
		"text":       text,
	})
}

func (s *SlackSender) post(ctx context.Context, body map[string]interface{}) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(s.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("slack webhook status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func alertBlocks(p Payload) []map[string]interface{} {
	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type": "plain_text",
				"text": fmt.Sprintf("%s Price Alert: %s", alertEmoji(p.AlertType), truncate(p.ProductTitle, 50)),
			},
		},
		{
			"type": "section",
			"fields": []map[string]interface{}{
				mrkdwn(fmt.Sprintf("*Current Price:*\n$%s", p.Price.StringFixed(2))),
				mrkdwn(fmt.Sprintf("*Alert Type:*\n%s", typeLabel(p.AlertType))),
			},
		},
	}
	if p.TargetPrice.IsPositive() {
		blocks = append(blocks, map[string]interface{}{
			"type":   "section",
			"fields": []map[string]interface{}{mrkdwn(fmt.Sprintf("*Target Price:*\n$%s", p.TargetPrice.StringFixed(2)))},
		})
	}
	blocks = append(blocks, map[string]interface{}{
		"type": "section",
		"text": mrkdwn(fmt.Sprintf("*Alert:* %s", p.Message)),
	})
	if p.ProductURL != "" {
		blocks = append(blocks, map[string]interface{}{
			"type": "actions",
			"elements": []map[string]interface{}{
				{
					"type":  "button",
					"text":  map[string]interface{}{"type": "plain_text", "text": "View Listing"},
					"url":   p.ProductURL,
					"style": "primary",
				},
			},
		})
	}
	return blocks
}

func mrkdwn(text string) map[string]interface{} {
	return map[string]interface{}{"type": "mrkdwn", "text": text}
}

func alertEmoji(t models.AlertType) string {
	switch t {
	case models.AlertTargetReached:
		return "🎯"
	case models.AlertDealFound:
		return "🔥"
	case models.AlertPriceDrop:
		return "📉"
	default:
		return "💰"
	}
}

// typeLabel renders "target_reached" as "Target Reached".
func typeLabel(t models.AlertType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
