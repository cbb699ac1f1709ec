package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

// SlackConfig holds the incoming-webhook settings.
type SlackConfig struct {
	Webhook string `yaml:"webhook"`
}

type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(cfg SlackConfig) (*Slack, error) {
	if cfg.Webhook == "" {
		return nil, errors.New("slack: webhook is required")
	}
	return &Slack{
		Webhook: cfg.Webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *Slack) Send(ctx context.Context, msg domain.Message) error {
	if err := CheckTransmissible(msg); err != nil {
		return err
	}
	body, err := json.Marshal(slackPayload{Text: "*" + msg.Subject() + "*\n" + msg.String()})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("slack: non-2xx status %d", resp.StatusCode)
	}
	return nil
}
