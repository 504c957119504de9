package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pll.link/models"
	"pll.link/services"

	"github.com/gofiber/fiber/v2"
)

// stubWallet yalnızca çağrıyı kaydeder; err doluysa onu döndürür.
type stubWallet struct {
	services.IWalletService
	lastAttr   models.Attribution
	lastInput  services.LoyaltyCardInput
	lastStatus models.PaymentCardStatus
	lastIDs    []uint
	err        error
}

func (s *stubWallet) AddPaymentCard(_ context.Context, attr models.Attribution, userID, cardID uint) ([]uint, error) {
	s.lastAttr, s.lastIDs = attr, []uint{userID, cardID}
	return []uint{11}, s.err
}

func (s *stubWallet) AddLoyaltyCard(_ context.Context, attr models.Attribution, userID uint, in services.LoyaltyCardInput) ([]uint, error) {
	s.lastAttr, s.lastInput = attr, in
	return nil, s.err
}

func (s *stubWallet) LinkPair(_ context.Context, attr models.Attribution, userID, cardID, accountID uint) ([]uint, error) {
	s.lastIDs = []uint{userID, cardID, accountID}
	return []uint{5}, s.err
}

func (s *stubWallet) SetPaymentCardStatus(_ context.Context, attr models.Attribution, cardID uint, status models.PaymentCardStatus) ([]uint, error) {
	s.lastStatus = status
	return []uint{cardID}, s.err
}

func (s *stubWallet) DeleteUser(_ context.Context, attr models.Attribution, userID uint) ([]uint, error) {
	s.lastIDs = []uint{userID}
	return []uint{1, 2}, s.err
}

type stubHooks struct {
	fields []string
	attr   models.Attribution
	err    error
}

func (s *stubHooks) PaymentCardChanged(_ context.Context, attr models.Attribution, cardID uint, fields []string) ([]uint, error) {
	s.attr, s.fields = attr, fields
	return []uint{cardID}, s.err
}

func (s *stubHooks) LoyaltyEntryChanged(_ context.Context, attr models.Attribution, userID, accountID uint, fields []string) ([]uint, error) {
	s.attr, s.fields = attr, fields
	return []uint{accountID}, s.err
}

func newTestApp(wallet services.IWalletService, hooks services.IStatusHookService) *fiber.App {
	app := fiber.New()
	w := NewWalletHandler(wallet)
	h := NewHookHandler(hooks)
	app.Post("/internal/hooks/payment-cards/:id", h.PaymentCardChanged)
	app.Post("/internal/hooks/loyalty-entries/:user_id/:loyalty_account_id", h.LoyaltyEntryChanged)
	app.Post("/internal/wallets/:user_id/payment-cards", w.AddPaymentCard)
	app.Post("/internal/wallets/:user_id/loyalty-cards", w.AddLoyaltyCard)
	app.Post("/internal/wallets/:user_id/links", w.LinkPair)
	app.Delete("/internal/wallets/:user_id", w.DeleteUser)
	app.Put("/internal/payment-cards/:id/status", w.SetPaymentCardStatus)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestWalletHandler_AddPaymentCard(t *testing.T) {
	wallet := &stubWallet{}
	app := newTestApp(wallet, &stubHooks{})

	code, body := do(t, app, http.MethodPost, "/internal/wallets/3/payment-cards", `{"payment_card_account_id": 8}`,
		map[string]string{"X-Channel": "com.bink.wallet", "X-Channel-Kind": "trusted"})
	if code != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	if ids, _ := body["affected_base_link_ids"].([]any); len(ids) != 1 || ids[0] != float64(11) {
		t.Errorf("body = %v", body)
	}
	if wallet.lastIDs[0] != 3 || wallet.lastIDs[1] != 8 {
		t.Errorf("ids = %v", wallet.lastIDs)
	}
	want := models.Attribution{UserID: 3, Channel: models.ChannelTrusted, ChannelSlug: "com.bink.wallet"}
	if wallet.lastAttr != want {
		t.Errorf("attr = %+v, want %+v", wallet.lastAttr, want)
	}
}

func TestWalletHandler_AddLoyaltyCardDefaultsAndValidation(t *testing.T) {
	wallet := &stubWallet{}
	app := newTestApp(wallet, &stubHooks{})

	code, body := do(t, app, http.MethodPost, "/internal/wallets/3/loyalty-cards", `{"loyalty_account_id": 4}`, nil)
	if code != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	if ids, ok := body["affected_base_link_ids"].([]any); !ok || len(ids) != 0 {
		t.Errorf("empty affected list must encode as [], got %v", body)
	}
	if wallet.lastInput.Channel != models.ChannelGeneral || wallet.lastInput.LoyaltyAccountID != 4 {
		t.Errorf("input = %+v", wallet.lastInput)
	}

	if code, _ := do(t, app, http.MethodPost, "/internal/wallets/3/loyalty-cards", `{"loyalty_account_id": 4, "link_status": "bogus"}`, nil); code != http.StatusBadRequest {
		t.Errorf("bogus link_status: status = %d", code)
	}
	if code, _ := do(t, app, http.MethodPost, "/internal/wallets/3/loyalty-cards", `{}`, nil); code != http.StatusBadRequest {
		t.Errorf("missing account: status = %d", code)
	}
	if code, _ := do(t, app, http.MethodPost, "/internal/wallets/3/loyalty-cards", `{"loyalty_account_id": 4}`,
		map[string]string{"X-Channel-Kind": "sideways"}); code != http.StatusBadRequest {
		t.Errorf("unknown channel kind: status = %d", code)
	}
}

func TestWalletHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrInvalidInput, http.StatusBadRequest},
		{services.ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: ödeme kartı 8", services.ErrNotInWallet), http.StatusNotFound},
		{services.ErrSchemeAlreadyLinked, http.StatusConflict},
		{fmt.Errorf("%w: sadakat hesabı 4", services.ErrAccountDeleted), http.StatusConflict},
		{errors.New("database is on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		app := newTestApp(&stubWallet{err: tt.err}, &stubHooks{})
		code, body := do(t, app, http.MethodPost, "/internal/wallets/3/links", `{"payment_card_account_id": 8, "loyalty_account_id": 4}`, nil)
		if code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, code, tt.want)
		}
		if body["error"] == nil {
			t.Errorf("%v: missing error body", tt.err)
		}
	}
}

func TestWalletHandler_PathValidation(t *testing.T) {
	app := newTestApp(&stubWallet{}, &stubHooks{})
	if code, _ := do(t, app, http.MethodDelete, "/internal/wallets/abc", "", nil); code != http.StatusBadRequest {
		t.Errorf("non-numeric user id: status = %d", code)
	}
	if code, _ := do(t, app, http.MethodDelete, "/internal/wallets/0", "", nil); code != http.StatusBadRequest {
		t.Errorf("zero user id: status = %d", code)
	}
	if code, _ := do(t, app, http.MethodDelete, "/internal/wallets/9", "", nil); code != http.StatusOK {
		t.Errorf("delete user: status = %d", code)
	}
}

func TestWalletHandler_SetPaymentCardStatus(t *testing.T) {
	wallet := &stubWallet{}
	app := newTestApp(wallet, &stubHooks{})

	if code, _ := do(t, app, http.MethodPut, "/internal/payment-cards/8/status", `{"status": "active"}`, nil); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if wallet.lastStatus != models.PaymentCardStatusActive {
		t.Errorf("status = %s", wallet.lastStatus)
	}
	if code, _ := do(t, app, http.MethodPut, "/internal/payment-cards/8/status", `{"status": "SUSPENDED"}`, nil); code != http.StatusBadRequest {
		t.Errorf("unknown status accepted: %d", code)
	}
}

func TestHookHandler(t *testing.T) {
	hooks := &stubHooks{}
	app := newTestApp(&stubWallet{}, hooks)

	code, body := do(t, app, http.MethodPost, "/internal/hooks/payment-cards/8", `{"fields": ["status"]}`, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	if len(hooks.fields) != 1 || hooks.fields[0] != "status" {
		t.Errorf("fields = %v", hooks.fields)
	}
	if hooks.attr.ChannelSlug != "hook" || hooks.attr.Channel != models.ChannelGeneral {
		t.Errorf("attr = %+v, want system attribution", hooks.attr)
	}

	// Gövdesiz bildirim tam kayıt değişikliği sayılır.
	if code, _ := do(t, app, http.MethodPost, "/internal/hooks/loyalty-entries/3/4", "", nil); code != http.StatusOK {
		t.Fatalf("empty body: status = %d", code)
	}
	if hooks.fields != nil || hooks.attr.UserID != 3 {
		t.Errorf("fields = %v attr = %+v", hooks.fields, hooks.attr)
	}

	hooks.err = errors.New("boom")
	if code, _ := do(t, app, http.MethodPost, "/internal/hooks/payment-cards/8", `{}`, nil); code != http.StatusInternalServerError {
		t.Errorf("service error: status = %d", code)
	}
	if code, _ := do(t, app, http.MethodPost, "/internal/hooks/payment-cards/8", `{"fields": "status"}`, nil); code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d", code)
	}
}
