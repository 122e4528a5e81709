package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openmarket/marketplace-backend/pkg/config"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
)

func newCarrierServer(t *testing.T, supplyBody, cancelBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		switch r.PostFormValue("action_type") {
		case actionHandshake:
			w.Write([]byte("OK"))
		case actionSupply:
			w.Write([]byte(supplyBody))
		case actionCancelSupply:
			w.Write([]byte(cancelBody))
		default:
			t.Fatalf("unexpected action_type %q", r.PostFormValue("action_type"))
		}
	}))
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(config.ShippingConfig{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestShipReturnsTrackingRef(t *testing.T) {
	srv := newCarrierServer(t, "30021", "1")
	defer srv.Close()

	client, err := NewClient(config.ShippingConfig{URL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ref, err := client.Ship(context.Background(), ShipmentRequest{
		Name:    "Dana Levi",
		Address: "12 Herzl St",
		City:    "Tel Aviv",
		Country: "IL",
		Zip:     "6688210",
	})
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if ref != "30021" {
		t.Fatalf("tracking ref = %q, want 30021", ref)
	}
}

func TestShipRefused(t *testing.T) {
	srv := newCarrierServer(t, refusedBody, "1")
	defer srv.Close()

	client, err := NewClient(config.ShippingConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Ship(context.Background(), ShipmentRequest{Name: "Dana Levi", Address: "12 Herzl St"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestShipValidatesRecipient(t *testing.T) {
	client, err := NewClient(config.ShippingConfig{URL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Ship(context.Background(), ShipmentRequest{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	srv := newCarrierServer(t, "30021", "1")
	defer srv.Close()

	client, err := NewClient(config.ShippingConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ok, err := client.Cancel(context.Background(), "30021")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !ok {
		t.Fatal("expected cancel to be accepted")
	}
}

func TestCancelRefused(t *testing.T) {
	srv := newCarrierServer(t, "30021", refusedBody)
	defer srv.Close()

	client, err := NewClient(config.ShippingConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ok, err := client.Cancel(context.Background(), "30021")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if ok {
		t.Fatal("expected cancel to be refused")
	}
}
