package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openmarket/marketplace-backend/pkg/config"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
)

// The processor speaks a form-encoded protocol: a handshake probe followed by
// an action post. A body of "-1" means the action was declined.
const (
	actionHandshake = "handshake"
	actionPay       = "pay"
	actionCancelPay = "cancel_pay"

	declinedBody = "-1"
)

var errURLRequired = errors.New("payment gateway url is required")

// Client talks to the external payment processor.
type Client struct {
	httpClient *http.Client
	baseURL    string
	currency   string
}

// ChargeRequest carries the card details for a single charge.
type ChargeRequest struct {
	AmountCents int64
	CardNumber  string
	Month       string
	Year        string
	Holder      string
	CCV         string
}

// NewClient validates the config and builds a gateway client.
func NewClient(cfg config.PaymentConfig) (*Client, error) {
	base := strings.TrimSpace(cfg.URL)
	if base == "" {
		return nil, errURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		currency:   cfg.Currency,
	}, nil
}

// Charge runs handshake + pay and returns the processor's payment reference.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	if req.AmountCents <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	if err := c.handshake(ctx); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("action_type", actionPay)
	form.Set("currency", c.currency)
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("card_number", req.CardNumber)
	form.Set("month", req.Month)
	form.Set("year", req.Year)
	form.Set("holder", req.Holder)
	form.Set("ccv", req.CCV)

	body, err := c.post(ctx, form)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment charge failed")
	}
	if body == declinedBody || body == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "payment declined by processor")
	}
	return body, nil
}

// Cancel voids a previously completed charge.
func (c *Client) Cancel(ctx context.Context, paymentRef string) (bool, error) {
	if strings.TrimSpace(paymentRef) == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	form := url.Values{}
	form.Set("action_type", actionCancelPay)
	form.Set("transaction_id", paymentRef)

	body, err := c.post(ctx, form)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment cancellation failed")
	}
	return body != declinedBody, nil
}

func (c *Client) handshake(ctx context.Context) error {
	form := url.Values{}
	form.Set("action_type", actionHandshake)

	body, err := c.post(ctx, form)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment handshake failed")
	}
	if !strings.EqualFold(strings.TrimSpace(body), "ok") {
		return pkgerrors.New(pkgerrors.CodeDependency, "payment processor handshake rejected")
	}
	return nil
}

func (c *Client) post(ctx context.Context, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("processor returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
