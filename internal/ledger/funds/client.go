package funds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// HostClient implements Gateway and Directory against the host process that
// owns actor inventories. The host exposes a small JSON bridge:
//
//	GET  /actors/{id}                 -> {"label": "..."}
//	GET  /actors/{id}/funds?item=...  -> {"amount": N}
//	POST /actors/{id}/funds/take      <- {"item": "...", "skin": N, "amount": N}
//	POST /actors/{id}/funds/give      <- {"item": "...", "skin": N, "amount": N}
type HostClient struct {
	baseURL  string
	currency string
	skinID   uint64
	client   *http.Client
	logger   *zap.Logger
}

// ClientConfig carries the bridge endpoint and the configured currency item.
type ClientConfig struct {
	BaseURL        string
	Currency       string
	CurrencySkinID uint64
	Timeout        time.Duration
}

func NewHostClient(cfg ClientConfig, logger *zap.Logger) *HostClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HostClient{
		baseURL:  cfg.BaseURL,
		currency: cfg.Currency,
		skinID:   cfg.CurrencySkinID,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.Named("funds_bridge"),
	}
}

func (c *HostClient) Held(actorID string) (int64, error) {
	endpoint := fmt.Sprintf("%s/actors/%s/funds?item=%s&skin=%d",
		c.baseURL, url.PathEscape(actorID), url.QueryEscape(c.currency), c.skinID)
	resp, err := c.client.Get(endpoint)
	if err != nil {
		return 0, fmt.Errorf("funds bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("funds bridge: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("funds bridge: decode held amount: %w", err)
	}
	return body.Amount, nil
}

func (c *HostClient) Take(actorID string, units int64) error {
	return c.transfer(actorID, "take", units)
}

func (c *HostClient) Give(actorID string, units int64) error {
	return c.transfer(actorID, "give", units)
}

func (c *HostClient) transfer(actorID, op string, units int64) error {
	payload, err := json.Marshal(map[string]any{
		"item":   c.currency,
		"skin":   c.skinID,
		"amount": units,
	})
	if err != nil {
		return fmt.Errorf("funds bridge: encode %s: %w", op, err)
	}
	endpoint := fmt.Sprintf("%s/actors/%s/funds/%s", c.baseURL, url.PathEscape(actorID), op)
	resp, err := c.client.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("funds bridge: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("transfer rejected by host",
			zap.String("op", op),
			zap.String("actor_id", actorID),
			zap.Int64("units", units),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("funds bridge: %s rejected with status %d", op, resp.StatusCode)
	}
	return nil
}

// Resolve looks up the actor's display label. A 404 means the actor is not
// currently resolvable; any transport failure is treated the same way so a
// flaky bridge never fails the surrounding operation.
func (c *HostClient) Resolve(actorID string) (string, bool) {
	endpoint := fmt.Sprintf("%s/actors/%s", c.baseURL, url.PathEscape(actorID))
	resp, err := c.client.Get(endpoint)
	if err != nil {
		c.logger.Debug("actor lookup failed", zap.String("actor_id", actorID), zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	var body struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Debug("actor lookup decode failed", zap.String("actor_id", actorID), zap.Error(err))
		return "", false
	}
	return body.Label, true
}
