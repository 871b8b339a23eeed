package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"mabletask/tracker/models"
)

const (
	headerProjectKey = "X-Project-Key"
	headerSessionID  = "X-Session-Id"

	retryBaseDelay = 1 * time.Second
	retryMaxDelay  = 10 * time.Second
)

// Flattened is the merged view of an envelope response: the top-level
// envelope fields and the nested data fields folded into one map. Existing
// consumers read both layers as a single object, so the flattening is a
// compatibility requirement, not a convenience.
type Flattened map[string]any

// Client performs the network exchange for session init, batch submit and
// session finalize, each wrapped in the same retry policy.
type Client struct {
	http       *resty.Client
	projectKey string
	attempts   int
	debug      bool

	// overridable in tests so retry paths run without real backoff waits
	retryBase time.Duration
	retryMax  time.Duration
}

// NewClient builds a delivery client from the tracker configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		http:       resty.New().SetBaseURL(cfg.Endpoint).SetHeader("Content-Type", "application/json"),
		projectKey: cfg.ProjectKey,
		attempts:   cfg.RetryAttempts,
		debug:      cfg.Debug,
		retryBase:  retryBaseDelay,
		retryMax:   retryMaxDelay,
	}
}

// InitSession submits the external user id and environment metadata and
// returns the session id assigned by the ingestion endpoint.
func (c *Client) InitSession(ctx context.Context, externalUserID string, md models.SessionMetadata) (string, error) {
	res, err := c.post(ctx, "/track/init", models.InitSessionRequest{
		ExternalUserID: externalUserID,
		Metadata:       md,
	}, "")
	if err != nil {
		return "", err
	}
	sessionID, _ := res["sessionId"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("init response missing sessionId")
	}
	return sessionID, nil
}

// SendEvents submits one ordered batch for an existing session and returns
// the acknowledged event count. A zero-event batch short-circuits to a
// successful no-op without touching the network.
func (c *Client) SendEvents(ctx context.Context, sessionID string, events []models.NormalizedEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	res, err := c.post(ctx, "/track/events", models.EventBatch{Events: events}, sessionID)
	if err != nil {
		return 0, err
	}
	received, _ := res["eventsReceived"].(float64)
	return int(received), nil
}

// FinalizeSession marks a session complete.
func (c *Client) FinalizeSession(ctx context.Context, sessionID string) error {
	_, err := c.post(ctx, "/track/submit", struct{}{}, sessionID)
	return err
}

// post runs one envelope exchange under the retry policy: up to c.attempts
// tries, exponential backoff doubling from a 1-second base and capped at 10
// seconds, the original error surfaced when the final attempt fails.
func (c *Client) post(ctx context.Context, path string, body any, sessionID string) (Flattened, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryBase
	policy.Multiplier = 2
	policy.MaxInterval = c.retryMax
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	var out Flattened
	attempt := 0
	operation := func() error {
		attempt++
		req := c.http.R().
			SetContext(ctx).
			SetHeader(headerProjectKey, c.projectKey).
			SetBody(body)
		if sessionID != "" {
			req.SetHeader(headerSessionID, sessionID)
		}
		resp, err := req.Post(path)
		if err != nil {
			if c.debug {
				log.Printf("tracker: POST %s attempt %d/%d: %v", path, attempt, c.attempts, err)
			}
			return fmt.Errorf("POST %s: %w", path, err)
		}
		if !resp.IsSuccess() {
			if c.debug {
				log.Printf("tracker: POST %s attempt %d/%d: status %d", path, attempt, c.attempts, resp.StatusCode())
			}
			return fmt.Errorf("POST %s: status %d", path, resp.StatusCode())
		}
		flat, err := flattenEnvelope(resp.Body())
		if err != nil {
			return fmt.Errorf("POST %s: %w", path, err)
		}
		out = flat
		return nil
	}

	retries := uint64(0)
	if c.attempts > 1 {
		retries = uint64(c.attempts - 1)
	}
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// flattenEnvelope merges the envelope's top-level fields with the nested data
// object and rejects responses the endpoint itself marked unsuccessful.
func flattenEnvelope(body []byte) (Flattened, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	out := make(Flattened, len(raw))
	for k, v := range raw {
		if k == "data" {
			continue
		}
		out[k] = v
	}
	if data, ok := raw["data"].(map[string]any); ok {
		for k, v := range data {
			out[k] = v
		}
	}

	if success, ok := out["success"].(bool); ok && !success {
		msg, _ := out["message"].(string)
		if msg == "" {
			msg = "request rejected"
		}
		return nil, fmt.Errorf("endpoint error: %s", msg)
	}
	return out, nil
}
