package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"coachfit/internal/auth"
	"coachfit/internal/config"
	"coachfit/internal/i18n"
)

var ErrNotConfigured = errors.New("sms gateway is not configured")

type message struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

// Sender posts one-time codes to an HTTP SMS gateway.
type Sender struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewSender(cfg config.SMSConfig, client *http.Client) *Sender {
	if client == nil {
		client = http.DefaultClient
	}
	return &Sender{cfg: cfg, client: client}
}

func (s *Sender) SendCode(ctx context.Context, msg auth.CodeMessage) error {
	if !s.cfg.Enabled() {
		return ErrNotConfigured
	}
	if msg.Recipient.Channel != auth.ChannelPhone {
		return fmt.Errorf("sms sender cannot deliver to %s", msg.Recipient.Channel)
	}

	payload, err := json.Marshal(message{
		To:   msg.Recipient.Value,
		From: s.cfg.Sender,
		Body: i18n.CodeSMS(msg.Locale, string(msg.Purpose), msg.Code, int(msg.TTL.Minutes())),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
