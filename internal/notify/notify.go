// Package notify delivers the final pipeline verdict to an external
// sink. Delivery is strictly fire-and-forget from the pipeline's point of
// view: a sink failure is logged and never alters the computed verdict.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/relgate/relgate/internal/pipeline"
)

// Config selects and configures the notification transport.
type Config struct {
	// Type is "webhook" or "none". Notifications are off by default.
	Type    string        `koanf:"type"`
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	// RunURLBase, when set, is prepended to the run ID to build the
	// run link included in the notification payload.
	RunURLBase string `koanf:"run_url_base"`
}

// FromConfig builds a notifier from configuration. A nil return with nil
// error means notifications are disabled.
func FromConfig(cfg Config, logger *slog.Logger) (pipeline.Notifier, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "webhook":
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook notifier requires a url")
		}
		return NewWebhook(cfg, logger), nil
	}
	return nil, fmt.Errorf("unsupported notifier type %q", cfg.Type)
}
