package linenotify

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/railzwaylabs/dormitory/internal/notification/domain"
)

const DefaultEndpoint = "https://notify-api.line.me/api/notify"

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

func (p *Provider) Send(ctx context.Context, ch domain.Channel, msg domain.Message) error {
	if strings.TrimSpace(ch.Credential) == "" {
		return domain.ErrMissingCredential
	}

	form := url.Values{}
	form.Set("message", msg.Text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+ch.Credential)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &domain.DeliveryError{Channel: domain.ChannelLineNotify, StatusCode: resp.StatusCode}
	}
	return nil
}
