package shipping

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openmarket/marketplace-backend/pkg/config"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
)

// Same form-encoded protocol as the payment processor: handshake, then an
// action post. "-1" means the carrier refused the request.
const (
	actionHandshake    = "handshake"
	actionSupply       = "supply"
	actionCancelSupply = "cancel_supply"

	refusedBody = "-1"
)

var errURLRequired = errors.New("shipping gateway url is required")

// Client talks to the external shipping carrier.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ShipmentRequest is the destination for one settled sale.
type ShipmentRequest struct {
	Name    string
	Address string
	City    string
	Country string
	Zip     string
}

// NewClient validates the config and builds a carrier client.
func NewClient(cfg config.ShippingConfig) (*Client, error) {
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
	}, nil
}

// Ship books a delivery and returns the carrier's tracking reference.
func (c *Client) Ship(ctx context.Context, req ShipmentRequest) (string, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Address) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "recipient name and address are required")
	}
	if err := c.handshake(ctx); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("action_type", actionSupply)
	form.Set("name", req.Name)
	form.Set("address", req.Address)
	form.Set("city", req.City)
	form.Set("country", req.Country)
	form.Set("zip", req.Zip)

	body, err := c.post(ctx, form)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shipment booking failed")
	}
	if body == refusedBody || body == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shipment refused by carrier")
	}
	return body, nil
}

// Cancel voids a previously booked delivery.
func (c *Client) Cancel(ctx context.Context, trackingRef string) (bool, error) {
	if strings.TrimSpace(trackingRef) == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "tracking reference is required")
	}

	form := url.Values{}
	form.Set("action_type", actionCancelSupply)
	form.Set("transaction_id", trackingRef)

	body, err := c.post(ctx, form)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shipment cancellation failed")
	}
	return body != refusedBody, nil
}

func (c *Client) handshake(ctx context.Context) error {
	form := url.Values{}
	form.Set("action_type", actionHandshake)

	body, err := c.post(ctx, form)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shipping handshake failed")
	}
	if !strings.EqualFold(strings.TrimSpace(body), "ok") {
		return pkgerrors.New(pkgerrors.CodeDependency, "shipping carrier handshake rejected")
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
		return "", fmt.Errorf("carrier returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
