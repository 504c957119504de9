package cardnetwork

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pll.link/configs/configsnetwork"
)

type recorded struct {
	path string
	body map[string]any
}

func newNetwork(t *testing.T, status int, response string) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		calls = append(calls, recorded{path: r.URL.Path, body: body})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return NewClient(configsnetwork.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}), &calls
}

func sampleRequest() ActivateRequest {
	return ActivateRequest{
		PaymentToken:         "tok-1",
		MerchantSlug:         "iceland-bonus-card",
		AssociationID:        7,
		PaymentCardAccountID: 3,
		SchemeAccountID:      9,
	}
}

func TestClient_ActivateCreated(t *testing.T) {
	client, calls := newNetwork(t, http.StatusCreated, `{"activation_id":"act-123"}`)

	resp, err := client.Activate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if resp.ActivationID != "act-123" {
		t.Errorf("activation id = %q", resp.ActivationID)
	}
	if len(*calls) != 1 || (*calls)[0].path != "/activate" {
		t.Fatalf("calls = %+v", *calls)
	}
	body := (*calls)[0].body
	if body["payment_token"] != "tok-1" || body["merchant_slug"] != "iceland-bonus-card" || body["association_id"] != float64(7) {
		t.Errorf("request body = %v", body)
	}
}

func TestClient_ActivateNon201IsError(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusInternalServerError} {
		client, _ := newNetwork(t, status, `{"activation_id":"act-123"}`)
		_, err := client.Activate(context.Background(), sampleRequest())
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.Code != status || statusErr.Op != "activate" {
			t.Errorf("status %d: err = %v, want StatusError", status, err)
		}
	}
}

func TestClient_ActivateWithoutID(t *testing.T) {
	client, _ := newNetwork(t, http.StatusCreated, `{}`)
	if _, err := client.Activate(context.Background(), sampleRequest()); !errors.Is(err, ErrMissingActivationID) {
		t.Errorf("err = %v, want ErrMissingActivationID", err)
	}
}

func TestClient_Deactivate(t *testing.T) {
	client, calls := newNetwork(t, http.StatusCreated, ``)
	req := DeactivateRequest{ActivateRequest: sampleRequest(), ActivationID: "act-123"}
	if err := client.Deactivate(context.Background(), req); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	got := (*calls)[0]
	if got.path != "/deactivate" || got.body["activation_id"] != "act-123" || got.body["payment_token"] != "tok-1" {
		t.Errorf("call = %+v", got)
	}

	failing, _ := newNetwork(t, http.StatusServiceUnavailable, `busy`)
	var statusErr *StatusError
	if err := failing.Deactivate(context.Background(), req); !errors.As(err, &statusErr) || statusErr.Body != "busy" {
		t.Errorf("err = %v, want StatusError with body", err)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	client, calls := newNetwork(t, http.StatusCreated, `{"activation_id":"x"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Activate(ctx, sampleRequest()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(*calls) != 0 {
		t.Errorf("request sent despite cancelled context")
	}
}
