// Package dejavoo is the Dejavoo SPIn REST client used for card-present
// payments on the POS.
package dejavoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-marketplace-service/internal/model"
	"github.com/fekuna/omnipos-marketplace-service/internal/payment"
)

const name = "dejavoo"

// resultApproved is the GeneralResponse.ResultCode for an approved request.
const resultApproved = "0"

type Config struct {
	ProductionURL string
	SandboxURL    string
	ProxyTimeout  int
	HTTPTimeout   time.Duration
}

type Client struct {
	baseURL      string
	tpn          string
	authKey      string
	registerID   string
	proxyTimeout int
	http         *http.Client
}

var _ payment.Processor = (*Client)(nil)

// Factory returns a payment.Factory producing clients that share httpClient.
func Factory(cfg Config, httpClient *http.Client) payment.Factory {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return func(rec *model.PaymentProcessor) (payment.Processor, error) {
		return New(cfg, rec, httpClient)
	}
}

func New(cfg Config, rec *model.PaymentProcessor, httpClient *http.Client) (*Client, error) {
	if rec.DejavooTPN == nil || *rec.DejavooTPN == "" || rec.DejavooAuthKey == nil || *rec.DejavooAuthKey == "" {
		return nil, fmt.Errorf("%w: dejavoo processor %s is missing tpn or auth key", payment.ErrProcessorNotConfigured, rec.ID)
	}

	base := cfg.ProductionURL
	if rec.Environment == model.ProcessorEnvSandbox {
		base = cfg.SandboxURL
	}

	c := &Client{
		baseURL:      strings.TrimRight(base, "/"),
		tpn:          *rec.DejavooTPN,
		authKey:      *rec.DejavooAuthKey,
		proxyTimeout: cfg.ProxyTimeout,
		http:         httpClient,
	}
	if rec.DejavooRegisterID != nil {
		c.registerID = *rec.DejavooRegisterID
	}
	return c, nil
}

func (c *Client) Name() string { return name }

type spinRequest struct {
	Amount           json.Number `json:"Amount,omitempty"`
	PaymentType      string      `json:"PaymentType,omitempty"`
	ReferenceID      string      `json:"ReferenceId"`
	InvoiceNumber    string      `json:"InvoiceNumber,omitempty"`
	PrintReceipt     string      `json:"PrintReceipt"`
	GetReceipt       string      `json:"GetReceipt"`
	CaptureSignature bool        `json:"CaptureSignature"`
	GetExtendedData  bool        `json:"GetExtendedData"`
	Tpn              string      `json:"Tpn"`
	RegisterID       string      `json:"RegisterId,omitempty"`
	Authkey          string      `json:"Authkey"`
	SPInProxyTimeout int         `json:"SPInProxyTimeout,omitempty"`
}

type generalResponse struct {
	HostResponseCode    string `json:"HostResponseCode"`
	HostResponseMessage string `json:"HostResponseMessage"`
	ResultCode          string `json:"ResultCode"`
	StatusCode          string `json:"StatusCode"`
	Message             string `json:"Message"`
	DetailedMessage     string `json:"DetailedMessage"`
}

type spinResponse struct {
	GeneralResponse generalResponse `json:"GeneralResponse"`
	AuthCode        string          `json:"AuthCode"`
	ReferenceID     string          `json:"ReferenceId"`
	PaymentType     string          `json:"PaymentType"`
}

func (r *spinResponse) approved() bool {
	return r.GeneralResponse.ResultCode == resultApproved
}

func (r *spinResponse) text() string {
	g := r.GeneralResponse
	parts := make([]string, 0, 3)
	for _, s := range []string{g.Message, g.DetailedMessage, g.HostResponseMessage} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ": ")
}

func (c *Client) Sale(ctx context.Context, req payment.SaleRequest) (*payment.Result, error) {
	pt, err := paymentType(req.PaymentType)
	if err != nil {
		return nil, err
	}
	resp, raw, err := c.do(ctx, "Sale", c.request(req.ReferenceID, req.Amount, pt, req.InvoiceID))
	if err != nil {
		return nil, err
	}
	return toResult(req.ReferenceID, resp, raw), nil
}

func (c *Client) Return(ctx context.Context, req payment.ReturnRequest) (*payment.Result, error) {
	pt, err := paymentType(req.PaymentType)
	if err != nil {
		return nil, err
	}
	resp, raw, err := c.do(ctx, "Return", c.request(req.ReferenceID, req.Amount, pt, req.OriginalReferenceID))
	if err != nil {
		return nil, err
	}
	if !resp.approved() && req.Amount.LessThan(req.OriginalAmount) && mentions(resp.text(), "partial") {
		return nil, fmt.Errorf("%w: %s", payment.ErrPartialRefundUnsupported, resp.text())
	}
	return toResult(req.ReferenceID, resp, raw), nil
}

// Void cancels the original transaction; ReferenceID is the sale's.
func (c *Client) Void(ctx context.Context, req payment.VoidRequest) (*payment.Result, error) {
	resp, raw, err := c.do(ctx, "Void", c.request(req.ReferenceID, req.Amount, "", ""))
	if err != nil {
		return nil, err
	}
	if !resp.approved() && mentions(resp.text(), "settled", "batch closed", "already closed") {
		return nil, fmt.Errorf("%w: %s", payment.ErrAlreadySettled, resp.text())
	}
	return toResult(req.ReferenceID, resp, raw), nil
}

func (c *Client) request(ref string, amount decimal.Decimal, pt, invoice string) spinRequest {
	r := spinRequest{
		PaymentType:      pt,
		ReferenceID:      ref,
		InvoiceNumber:    invoice,
		PrintReceipt:     "No",
		GetReceipt:       "No",
		GetExtendedData:  true,
		Tpn:              c.tpn,
		RegisterID:       c.registerID,
		Authkey:          c.authKey,
		SPInProxyTimeout: c.proxyTimeout,
	}
	if !amount.IsZero() {
		r.Amount = json.Number(amount.StringFixed(2))
	}
	return r
}

func (c *Client) do(ctx context.Context, op string, body spinRequest) (*spinResponse, model.JSON, error) {
	perr := func(status int, err error) error {
		return &payment.ProcessorError{Processor: name, Op: op, StatusCode: status, Err: err}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, perr(0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Payment/"+op, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, perr(0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, nil, perr(0, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, nil, perr(res.StatusCode, err)
	}

	var out spinResponse
	decodeErr := json.Unmarshal(raw, &out)

	// SPIn reports declines with a 4xx and a GeneralResponse body; anything
	// else outside 2xx is a processor failure.
	if res.StatusCode >= 500 || (res.StatusCode >= 300 && (decodeErr != nil || out.GeneralResponse.ResultCode == "")) {
		return nil, nil, perr(res.StatusCode, fmt.Errorf("unexpected response: %s", truncate(raw, 256)))
	}
	if decodeErr != nil {
		return nil, nil, perr(res.StatusCode, fmt.Errorf("decode response: %w", decodeErr))
	}
	if out.GeneralResponse.ResultCode == "" {
		return nil, nil, perr(res.StatusCode, errors.New("response missing GeneralResponse.ResultCode"))
	}
	return &out, model.JSON(raw), nil
}

// toResult reports the reference we sent, since that is the id stored with the
// transaction; whatever SPIn echoes back stays in Raw.
func toResult(ref string, resp *spinResponse, raw model.JSON) *payment.Result {
	return &payment.Result{
		Success:       resp.approved(),
		TransactionID: ref,
		AuthCode:      resp.AuthCode,
		Message:       resp.text(),
		Raw:           raw,
	}
}

var paymentTypes = map[string]string{
	"":         "Card",
	"card":     "Card",
	"credit":   "Credit",
	"debit":    "Debit",
	"ebt_food": "EBT_Food",
	"ebt_cash": "EBT_Cash",
	"gift":     "Gift",
}

// paymentType maps the POS card reference onto a SPIn PaymentType. The card
// itself is read by the terminal, so only the tender type travels.
func paymentType(ref string) (string, error) {
	pt, ok := paymentTypes[strings.ToLower(strings.TrimSpace(ref))]
	if !ok {
		return "", fmt.Errorf("%w: unknown dejavoo payment type %q", payment.ErrInvalidRequest, ref)
	}
	return pt, nil
}

func mentions(text string, needles ...string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
