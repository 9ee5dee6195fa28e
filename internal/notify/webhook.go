package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/relgate/relgate/internal/pipeline"
)

const defaultTimeout = 10 * time.Second

// Webhook posts the verdict as JSON to a configured endpoint (a chat
// webhook or any compatible receiver).
type Webhook struct {
	url        string
	runURLBase string
	retries    int
	client     *http.Client
	logger     *slog.Logger
}

// NewWebhook creates a webhook notifier.
func NewWebhook(cfg Config, logger *slog.Logger) *Webhook {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		url:        cfg.URL,
		runURLBase: cfg.RunURLBase,
		retries:    2,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// payload is the wire shape delivered to the sink.
type payload struct {
	RunID        string `json:"run_id"`
	RunURL       string `json:"run_url,omitempty"`
	EventType    string `json:"event_type"`
	TargetBranch string `json:"target_branch"`
	TargetOrg    string `json:"target_org"`
	Message      string `json:"message"`
	Success      bool   `json:"success"`
}

// Notify delivers the run's verdict. The request is retried a couple of
// times; the final error is returned for the caller to log.
func (w *Webhook) Notify(ctx context.Context, run *pipeline.Run) error {
	p := payload{
		RunID:        run.ID,
		EventType:    string(run.Params.EventType),
		TargetBranch: run.Params.TargetBranch,
		TargetOrg:    run.Params.TargetOrgAlias,
		Message:      run.Verdict.Message,
		Success:      run.Verdict.Success,
	}
	if w.runURLBase != "" {
		p.RunURL = w.runURLBase + "/" + run.ID
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if err := w.post(ctx, body); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return nil
	}
	return lastErr
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sink returned status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

var _ pipeline.Notifier = (*Webhook)(nil)
