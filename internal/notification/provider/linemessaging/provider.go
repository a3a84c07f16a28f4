package linemessaging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/railzwaylabs/dormitory/internal/notification/domain"
)

const DefaultEndpoint = "https://api.line.me/v2/bot/message/push"

type Provider struct {
	endpoint string
	client   *http.Client
}

func NewProvider(endpoint string, timeout time.Duration) *Provider {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

func (p *Provider) Send(ctx context.Context, ch domain.Channel, msg domain.Message) error {
	if strings.TrimSpace(ch.Credential) == "" {
		return domain.ErrMissingCredential
	}
	if strings.TrimSpace(ch.Destination) == "" {
		return domain.ErrMissingDestination
	}

	body, err := json.Marshal(pushRequest{
		To:       ch.Destination,
		Messages: []textMessage{{Type: "text", Text: msg.Text}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+ch.Credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &domain.DeliveryError{Channel: domain.ChannelLineMessaging, StatusCode: resp.StatusCode}
	}
	return nil
}
