// Package cardnetwork kart ağının (Visa VOP) merchant aktivasyon API'si için istemcidir.
package cardnetwork

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pll.link/configs/configsnetwork"

	"github.com/gofiber/fiber/v2"
)

// ActivateRequest POST /activate gövdesi.
type ActivateRequest struct {
	PaymentToken         string `json:"payment_token"`
	MerchantSlug         string `json:"merchant_slug"`
	AssociationID        uint   `json:"association_id"`
	PaymentCardAccountID uint   `json:"payment_card_account_id"`
	SchemeAccountID      uint   `json:"scheme_account_id"`
}

// DeactivateRequest POST /deactivate gövdesi.
type DeactivateRequest struct {
	ActivateRequest
	ActivationID string `json:"activation_id"`
}

// ActivateResponse başarılı aktivasyon yanıtı.
type ActivateResponse struct {
	ActivationID string `json:"activation_id"`
}

// StatusError ağ 201 dışında bir kod döndürdüğünde oluşur.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kart ağı %s çağrısı başarısız: HTTP %d: %s", e.Op, e.Code, e.Body)
}

// ErrMissingActivationID 201 yanıtında activation_id yoksa döner.
var ErrMissingActivationID = errors.New("kart ağı yanıtında activation_id yok")

// IClient kart ağı istemci arayüzü.
type IClient interface {
	Activate(ctx context.Context, req ActivateRequest) (*ActivateResponse, error)
	Deactivate(ctx context.Context, req DeactivateRequest) error
}

// Client fiber Agent tabanlı HTTP istemcisi.
type Client struct {
	baseURL string
	timeout time.Duration
}

// NewClient yapılandırmadan istemci oluşturur.
func NewClient(cfg configsnetwork.Config) *Client {
	return &Client{baseURL: cfg.BaseURL, timeout: cfg.Timeout}
}

func (c *Client) post(ctx context.Context, path string, body any) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	agent := fiber.Post(c.baseURL + path)
	agent.Timeout(c.timeout)
	agent.JSON(body)
	code, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, nil, errors.Join(errs...)
	}
	return code, respBody, nil
}

// Activate kart/merchant çiftini ağda etkinleştirir. Yalnızca HTTP 201 başarıdır.
func (c *Client) Activate(ctx context.Context, req ActivateRequest) (*ActivateResponse, error) {
	code, body, err := c.post(ctx, "/activate", req)
	if err != nil {
		return nil, fmt.Errorf("kart ağı activate isteği gönderilemedi: %w", err)
	}
	if code != fiber.StatusCreated {
		return nil, &StatusError{Op: "activate", Code: code, Body: string(body)}
	}
	var resp ActivateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kart ağı activate yanıtı çözümlenemedi: %w", err)
	}
	if resp.ActivationID == "" {
		return nil, ErrMissingActivationID
	}
	return &resp, nil
}

// Deactivate aktivasyonu ağda kaldırır. Yalnızca HTTP 201 başarıdır.
func (c *Client) Deactivate(ctx context.Context, req DeactivateRequest) error {
	code, body, err := c.post(ctx, "/deactivate", req)
	if err != nil {
		return fmt.Errorf("kart ağı deactivate isteği gönderilemedi: %w", err)
	}
	if code != fiber.StatusCreated {
		return &StatusError{Op: "deactivate", Code: code, Body: string(body)}
	}
	return nil
}

var _ IClient = (*Client)(nil)
