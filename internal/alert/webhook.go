package alert

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
)

// signatureHeader carries the hex HMAC-SHA256 of the request body.
const signatureHeader = "X-NetSentry-Signature"

// WebhookNotifier POSTs alerts as JSON to a configured endpoint. When a
// secret is set, requests are signed so receivers can verify origin.
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
}

// webhookPayload is the wire format of one webhook delivery.
type webhookPayload struct {
	Alert   *models.Alert   `json:"alert"`
	Anomaly *models.Anomaly `json:"anomaly"`
}

// NewWebhookNotifier creates a webhook channel.
func NewWebhookNotifier(cfg WebhookConfig, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    cfg.URL,
		secret: cfg.Secret,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

func (n *WebhookNotifier) Notify(ctx context.Context, alert *models.Alert, anomaly *models.Anomaly) error {
	body, err := json.Marshal(webhookPayload{Alert: alert, Anomaly: anomaly})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(signatureHeader, n.sign(body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (n *WebhookNotifier) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(n.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
