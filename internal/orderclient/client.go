// Package orderclient posts finished kiosk orders to the order insert endpoint.
package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 4 << 10

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	Cnumber  string      `json:"Cnumber"`
	Total    json.Number `json:"total"`
	Articles string      `json:"articles"`
	Place    string      `json:"place"`
	Table    *int        `json:"table"`
}

// Order is the row returned by the endpoint.
type Order struct {
	ID        int64       `json:"id"`
	Cnumber   json.Number `json:"cnumber"`
	Total     json.Number `json:"total"`
	Articles  string      `json:"articles"`
	Table     *int        `json:"table"`
	Place     string      `json:"place"`
	Traite    bool        `json:"traite"`
	CreatedAt time.Time   `json:"created_at"`
}

type createResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   Order  `json:"order"`
}

// APIError is a non-2xx answer from the endpoint.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Details != "" {
		return fmt.Sprintf("order api: %d %s: %s", e.Status, msg, e.Details)
	}
	return fmt.Sprintf("order api: %d %s", e.Status, msg)
}

// Client talks to the order insert endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New creates a Client for the server at baseURL.
func New(baseURL string, hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, log: log}
}

// CreateOrder submits one order. No retry is attempted. Any 2xx answer is a
// success; if its body cannot be decoded the returned Order is empty.
func (c *Client) CreateOrder(ctx context.Context, in OrderRequest) (*Order, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post order: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("order posted",
		zap.String("cnumber", in.Cnumber),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}

	// The row is stored once the server answers 2xx; an unreadable body must
	// not make the caller keep the cart and submit the same order again.
	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Warn("order accepted but response unreadable",
			zap.String("cnumber", in.Cnumber),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return &Order{}, nil
	}
	return &out.Order, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error
		apiErr.Details = body.Details
	}
	return apiErr
}
