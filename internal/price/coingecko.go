package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

var ErrAssetMissing = errors.New("asset missing from price response")

// Client fetches the current USD price of one asset from CoinGecko.
type Client struct {
	client  *http.Client
	baseURL string
	assetID string
}

func NewClient(baseURL, assetID string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		assetID: assetID,
	}
}

func (c *Client) Fetch(ctx context.Context) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(c.assetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("coingecko API error %d: %s", resp.StatusCode, string(body))
	}

	// Response shape: {"nexo": {"usd": 1.22}}
	var raw map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("parse price: %w", err)
	}

	p, ok := raw[c.assetID]["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrAssetMissing, c.assetID)
	}
	if p.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price for %s: %s", c.assetID, p)
	}
	return p, nil
}
