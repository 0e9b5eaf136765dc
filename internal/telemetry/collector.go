// internal/telemetry/collector.go
package telemetry

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/benmann/supabase/internal/logger"
)

// Collector reports UI events to an external telemetry endpoint.
// Fire-and-forget: Send never blocks the caller and failures are logged,
// never propagated.
type Collector struct {
	endpoint string
	client   *http.Client
	log      *logger.Logger
}

// NewCollector creates a collector. An empty endpoint disables reporting.
func NewCollector(endpoint string, log *logger.Logger) *Collector {
	return &Collector{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		log:      log,
	}
}

type event struct {
	EventID  string    `json:"event_id"`
	Category string    `json:"category"`
	Action   string    `json:"action"`
	Label    string    `json:"label"`
	SentAt   time.Time `json:"sent_at"`
}

// Send dispatches one event in the background.
func (c *Collector) Send(category, action, label string) {
	if c.endpoint == "" {
		return
	}

	payload := event{
		EventID:  uuid.NewString(),
		Category: category,
		Action:   action,
		Label:    label,
		SentAt:   time.Now().UTC(),
	}

	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			c.log.Warnf("Telemetry: failed to encode event %s/%s: %v", category, action, err)
			return
		}
		resp, err := c.client.Post(c.endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			c.log.Warnf("Telemetry: failed to send event %s/%s: %v", category, action, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			c.log.Warnf("Telemetry: collector returned status %d for event %s/%s", resp.StatusCode, category, action)
		}
	}()
}
