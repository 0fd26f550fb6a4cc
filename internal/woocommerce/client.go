// Package woocommerce pushes local stock levels to a vendor's legacy
// WooCommerce shop through the wc/v3 REST API.
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
)

const (
	apiPrefix = "/wp-json/wc/v3"
	perPage   = 100
)

type Product struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	SKU           string `json:"sku"`
	Status        string `json:"status"`
	ManageStock   bool   `json:"manage_stock"`
	StockQuantity *int   `json:"stock_quantity"`
}

type Page struct {
	Products   []Product `json:"products"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}

// Client is one vendor's WooCommerce shop.
type Client interface {
	ListProducts(ctx context.Context, page int) (*Page, error)
	UpdateStock(ctx context.Context, productID int64, quantity int) error
}

// ClientFactory builds a client from the vendor's stored credentials.
type ClientFactory func(v *model.Vendor) (Client, error)

// APIError is a non-2xx answer from the shop.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("woocommerce %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

type RESTClient struct {
	baseURL string
	key     string
	secret  string
	http    *http.Client
}

var _ Client = (*RESTClient)(nil)

func NewRESTClient(baseURL, key, secret string, httpClient *http.Client) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/") + apiPrefix,
		key:     key,
		secret:  secret,
		http:    httpClient,
	}
}

// Factory returns a ClientFactory sharing one http.Client.
func Factory(timeout time.Duration) ClientFactory {
	httpClient := &http.Client{Timeout: timeout}
	return func(v *model.Vendor) (Client, error) {
		if !v.HasWooCommerce() {
			return nil, ErrNotConfigured
		}
		return NewRESTClient(*v.WooCommerceURL, *v.WooCommerceKey, *v.WooCommerceSecret, httpClient), nil
	}
}

func (c *RESTClient) ListProducts(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("/products?page=%d&per_page=%d", page, perPage)
	res, body, err := c.do(ctx, "list products", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	out := &Page{Page: page, Products: []Product{}}
	if err := json.Unmarshal(body, &out.Products); err != nil {
		return nil, fmt.Errorf("woocommerce list products: decode: %w", err)
	}
	out.TotalPages, _ = strconv.Atoi(res.Header.Get("X-WP-TotalPages"))
	return out, nil
}

func (c *RESTClient) UpdateStock(ctx context.Context, productID int64, quantity int) error {
	payload := map[string]any{"manage_stock": true, "stock_quantity": quantity}
	_, _, err := c.do(ctx, "update stock", http.MethodPut, fmt.Sprintf("/products/%d", productID), payload)
	return err
}

func (c *RESTClient) do(ctx context.Context, op, method, path string, payload any) (*http.Response, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, nil, err
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("woocommerce %s: %w", op, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("woocommerce %s: read body: %w", op, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := string(raw)
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return nil, nil, &APIError{Op: op, StatusCode: res.StatusCode, Body: msg}
	}
	return res, raw, nil
}
