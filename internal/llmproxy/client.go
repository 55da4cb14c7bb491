package llmproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Config wires the chat upstream.
type Config struct {
	APIKey            string
	BaseURL           string
	ModelsDefault     []string
	ModelsToolCalling []string
	Timeout           time.Duration
	AppURL            string
	AppName           string
}

// Client talks to the aggregator. It exposes the raw upstream response so
// the HTTP layer can stream it straight through.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Models picks the fallback list for a request.
func (c *Client) Models(req *ChatRequest) []string {
	if req.NeedsToolCalling() && len(c.cfg.ModelsToolCalling) > 0 {
		return c.cfg.ModelsToolCalling
	}
	return c.cfg.ModelsDefault
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AppURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.AppURL)
	}
	if c.cfg.AppName != "" {
		req.Header.Set("X-Title", c.cfg.AppName)
	}
}

// ChatCompletion forwards a parsed request upstream and returns the raw
// response. The caller owns the body.
func (c *Client) ChatCompletion(ctx context.Context, req *ChatRequest) (*http.Response, error) {
	body, err := req.UpstreamBody(c.Models(req))
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)
	return c.http.Do(httpReq)
}

type generationResponse struct {
	Data struct {
		ID        string          `json:"id"`
		TotalCost decimal.Decimal `json:"total_cost"`
	} `json:"data"`
}

// FetchCost asks the aggregator what a finished generation cost. Callers
// treat failures as non-fatal; cost is enrichment, not accounting truth.
func (c *Client) FetchCost(ctx context.Context, generationID string) (decimal.Decimal, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/generation?id="+url.QueryEscape(generationID), nil)
	if err != nil {
		return decimal.Zero, err
	}
	c.setHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return decimal.Zero, fmt.Errorf("generation lookup %d: %s", resp.StatusCode, body)
	}

	var decoded generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return decimal.Zero, err
	}
	return decoded.Data.TotalCost, nil
}
