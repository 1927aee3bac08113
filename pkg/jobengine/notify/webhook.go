package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookSink posts the job_failure envelope as JSON to a configured
// URL, retrying on 5xx responses with a bounded backoff.
type WebhookSink struct {
	client *resty.Client
	url    string
	logger *slog.Logger
}

func NewWebhookSink(url string, logger *slog.Logger) *WebhookSink {
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &WebhookSink{client: client, url: url, logger: logger.With("component", "notify.webhook")}
}

func (w *WebhookSink) Emit(ctx context.Context, n JobFailure) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(n).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("notify: webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify: webhook responded %d", resp.StatusCode())
	}
	return nil
}
