package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/railzwaylabs/dormitory/internal/notification/domain"
)

const SignatureHeader = "X-Webhook-Signature"

type Provider struct {
	client *http.Client
	now    func() time.Time
}

func NewProvider(timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Envelope is the JSON body posted to webhook destinations.
type Envelope struct {
	Event       string    `json:"event"`
	DormitoryID string    `json:"dormitory_id"`
	BillID      string    `json:"bill_id,omitempty"`
	Message     string    `json:"message"`
	SentAt      time.Time `json:"sent_at"`
}

func (p *Provider) Send(ctx context.Context, ch domain.Channel, msg domain.Message) error {
	target := strings.TrimSpace(ch.Destination)
	if target == "" {
		return domain.ErrMissingDestination
	}

	env := Envelope{
		Event:       string(msg.Event),
		DormitoryID: msg.DormitoryID.String(),
		Message:     msg.Text,
		SentAt:      p.now().UTC(),
	}
	if msg.BillID != 0 {
		env.BillID = msg.BillID.String()
	}

	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if ch.Credential != "" {
		req.Header.Set(SignatureHeader, Sign(ch.Credential, body))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &domain.DeliveryError{Channel: domain.ChannelWebhook, StatusCode: resp.StatusCode}
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
