package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUserRef(t *testing.T) {
	a := UserRef("salt", "user-1")
	if a != UserRef("salt", "user-1") {
		t.Fatal("UserRef must be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64 hex chars", len(a))
	}
	if a == UserRef("other", "user-1") || a == UserRef("salt", "user-2") {
		t.Error("salt and id must both affect the reference")
	}
}

func TestRemovedEventTypes(t *testing.T) {
	in := LoyaltyCardRemovedInput{UserRef: "r", SchemeAccountID: 4, SchemeSlug: "wasabi-club", Channel: "TRUSTED", ChannelSlug: "com.wasabi"}
	if e := LoyaltyCardRemoved(in); e.Type != TypeLoyaltyCardRemoved || e.Payload["origin"] != "TRUSTED" {
		t.Errorf("event = %+v", e)
	}
	if e := LoyaltyCardRemovedAcrossChannels(true, in); e.Type != TypeLoyaltyCardRemovedTrusted {
		t.Errorf("trusted type = %s", e.Type)
	}
	if e := LoyaltyCardRemovedAcrossChannels(false, in); e.Type != TypeLoyaltyCardRemovedGeneral {
		t.Errorf("general type = %s", e.Type)
	}
}

func TestHTTPPublisher(t *testing.T) {
	var received Event
	status := http.StatusAccepted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &received)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	pub := NewHTTPPublisher(srv.URL, 5*time.Second)
	ev := StatusChange(StatusChangeInput{UserRef: "r", PaymentAccountID: 1, SchemeAccountID: 2, FromState: "PENDING", ToState: "ACTIVE"})
	if err := pub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if received.ID != ev.ID || received.Type != TypePLLStatusChange || received.Payload["to_state"] != "ACTIVE" {
		t.Errorf("received = %+v", received)
	}

	status = http.StatusBadGateway
	if err := pub.Publish(context.Background(), ev); err == nil {
		t.Error("non-2xx response must be an error")
	}
}

type capture struct{ got []Event }

func (c *capture) Publish(_ context.Context, e Event) error {
	c.got = append(c.got, e)
	return nil
}

func TestTaskHandler(t *testing.T) {
	c := &capture{}
	h := TaskHandler(c)

	if err := h(context.Background(), []byte("not json")); err != nil {
		t.Errorf("malformed payload must be dropped, got %v", err)
	}
	raw, _ := json.Marshal(New(TypeLoyaltyCardRemoved, map[string]any{"scheme_account_id": 3}))
	if err := h(context.Background(), raw); err != nil {
		t.Fatal(err)
	}
	if len(c.got) != 1 || c.got[0].Type != TypeLoyaltyCardRemoved {
		t.Errorf("published = %+v", c.got)
	}

	failing := TaskHandler(publisherFunc(func(context.Context, Event) error { return errors.New("down") }))
	if err := failing(context.Background(), raw); err == nil {
		t.Error("publisher error must propagate so the task is retried")
	}
}

type publisherFunc func(context.Context, Event) error

func (f publisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

func TestLogPublisherWithNilLogger(t *testing.T) {
	if err := NewLogPublisher(nil).Publish(context.Background(), New(TypePLLStatusChange, nil)); err != nil {
		t.Errorf("Publish: %v", err)
	}
}
