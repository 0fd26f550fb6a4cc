// Package alpineiq is a minimal Alpine IQ REST client covering loyalty
// lookups and wallet passes.
package alpineiq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fekuna/omnipos-marketplace-service/internal/loyalty"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ loyalty.Client = (*Client)(nil)

func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type memberData struct {
	ContactID     string  `json:"contactID"`
	Mobile        string  `json:"mobilePhone"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	LoyaltyPoints float64 `json:"loyaltyPoints"`
	Tier          string  `json:"tier"`
}

func (c *Client) LookupMember(ctx context.Context, userID, phone string) (*loyalty.Member, error) {
	path := fmt.Sprintf("/v1.1/loyalty/lookup/%s/%s", url.PathEscape(userID), url.PathEscape(phone))
	data, err := c.do(ctx, "lookup", http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var m memberData
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &loyalty.UpstreamError{Op: "lookup", Err: fmt.Errorf("decode member: %w", err)}
	}
	if m.ContactID == "" {
		return nil, loyalty.ErrMemberNotFound
	}
	return &loyalty.Member{
		ContactID: m.ContactID,
		Phone:     phone,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Points:    m.LoyaltyPoints,
		Tier:      m.Tier,
	}, nil
}

func (c *Client) TriggerWalletPass(ctx context.Context, userID, contactID string) error {
	path := fmt.Sprintf("/v1.1/wallet/pass/%s/%s", url.PathEscape(userID), url.PathEscape(contactID))
	_, err := c.do(ctx, "wallet pass", http.MethodPost, path)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, &loyalty.UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("X-APIKEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &loyalty.UpstreamError{Op: op, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, &loyalty.UpstreamError{Op: op, StatusCode: res.StatusCode, Err: err}
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, loyalty.ErrMemberNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &loyalty.UpstreamError{Op: op, StatusCode: res.StatusCode, Err: fmt.Errorf("unexpected response: %.256s", raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &loyalty.UpstreamError{Op: op, StatusCode: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !env.Success {
		return nil, &loyalty.UpstreamError{Op: op, StatusCode: res.StatusCode, Err: fmt.Errorf("rejected: %s", env.Message)}
	}
	return env.Data, nil
}
