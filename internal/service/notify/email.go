package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"PricePulse/pkg/logger"
)

// EmailConfig configures the SMTP sender.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailSender delivers alerts as plain-text mail over SMTP.
type EmailSender struct {
	cfg EmailConfig
	log *logger.Logger
}

func NewEmailSender(cfg EmailConfig, log *logger.Logger) *EmailSender {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &EmailSender{cfg: cfg, log: log}
}

// SendAlert mails one alert to the configured recipients.
func (s *EmailSender) SendAlert(_ context.Context, p Payload) error {
	if len(s.cfg.To) == 0 {
		return errors.New("no recipients configured")
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.From, s.cfg.To, s.message(p)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	s.log.Info("alert mailed",
		logger.String("product_id", p.ProductID),
		logger.Int("recipients", len(s.cfg.To)))
	return nil
}

// message assembles a single-part plain-text RFC 5322 message.
func (s *EmailSender) message(p Payload) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: Price Alert: %s\r\n", p.ProductTitle)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "%s\r\n\r\n", p.Message)
	fmt.Fprintf(&b, "Product: %s\r\n", p.ProductTitle)
	fmt.Fprintf(&b, "Current price: $%s\r\n", p.Price.StringFixed(2))
	if p.TargetPrice.IsPositive() {
		fmt.Fprintf(&b, "Target price: $%s\r\n", p.TargetPrice.StringFixed(2))
	}
	if p.ProductURL != "" {
		fmt.Fprintf(&b, "Listing: %s\r\n", p.ProductURL)
	}
	fmt.Fprintf(&b, "Triggered at: %s\r\n", p.TriggeredAt.Format(time.RFC1123))
	return []byte(b.String())
}
