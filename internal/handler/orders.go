package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wacdo-pos/kiosk/internal/database"
	"github.com/wacdo-pos/kiosk/internal/enum"
	"github.com/wacdo-pos/kiosk/internal/metrics"
	"github.com/wacdo-pos/kiosk/internal/service"
)

// MaxBodyBytes caps order request bodies.
const MaxBodyBytes = 10 << 10

const orderCreatedMessage = "Commande enregistrée avec succès"

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	ListOrders(ctx context.Context, req service.ListOrdersRequest) ([]database.Order, error)
	MarkProcessed(ctx context.Context, id int64) (database.Order, error)
}

// Publisher fans order events out to staff screens.
// Satisfied by *ws.Hub.
type Publisher interface {
	Publish(place, eventType string, payload any) error
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc     OrderServicer
	events  Publisher
	metrics *metrics.ServerMetrics
	log     *zap.Logger
}

// NewOrderHandler creates a new OrderHandler. events and m may be nil.
func NewOrderHandler(svc OrderServicer, events Publisher, m *metrics.ServerMetrics, log *zap.Logger) *OrderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderHandler{svc: svc, events: events, metrics: m, log: log}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Options("/", Preflight)
		r.Get("/", h.List)
		r.Post("/{id}/processed", h.MarkProcessed)
	})
	r.Post("/api/commandes", h.Create)
	r.Options("/api/commandes", Preflight)
}

// --- Request / Response types ---

// createOrderRequest keeps raw values so that loosely typed kiosk clients
// (Cnumber as string or number, table as number or string) are accepted.
type createOrderRequest struct {
	Cnumber  json.RawMessage `json:"Cnumber"`
	Total    json.RawMessage `json:"total"`
	Articles json.RawMessage `json:"articles"`
	Place    json.RawMessage `json:"place"`
	Table    json.RawMessage `json:"table"`
}

type orderResponse struct {
	ID        int64       `json:"id"`
	Cnumber   int64       `json:"cnumber"`
	Total     json.Number `json:"total"`
	Articles  string      `json:"articles"`
	Table     *int32      `json:"table"`
	Place     string      `json:"place"`
	Traite    bool        `json:"traite"`
	CreatedAt *time.Time  `json:"created_at"`
}

type createOrderResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Order   orderResponse `json:"order"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
}

// --- Handlers ---

// Create handles POST /orders and POST /api/commandes.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var raw createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.metrics.ObserveOrder(metrics.OutcomeRejected)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large", fmt.Sprintf("limit is %d bytes", MaxBodyBytes)))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body", "body must be a JSON object"))
		return
	}

	if missing := raw.missing(); len(missing) > 0 {
		h.metrics.ObserveOrder(metrics.OutcomeRejected)
		writeJSON(w, http.StatusBadRequest, errorBody("missing fields", strings.Join(missing, ", ")+" required"))
		return
	}

	req, err := raw.decode()
	if err != nil {
		h.metrics.ObserveOrder(metrics.OutcomeRejected)
		writeJSON(w, http.StatusBadRequest, errorBody("invalid fields", err.Error()))
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		if service.IsValidationError(err) {
			h.metrics.ObserveOrder(metrics.OutcomeRejected)
			writeJSON(w, http.StatusBadRequest, errorBody("invalid fields", err.Error()))
			return
		}
		h.metrics.ObserveOrder(metrics.OutcomeFailed)
		h.log.Error("create order", zap.String("cnumber", req.Cnumber), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error", "failed to save order"))
		return
	}

	h.metrics.ObserveOrder(metrics.OutcomeCreated)
	resp := toOrderResponse(order)
	h.publish(enum.EventOrderCreated, resp)
	h.log.Info("order created",
		zap.Int64("id", order.ID),
		zap.Int64("cnumber", order.Cnumber),
		zap.String("place", order.Place),
	)
	writeJSON(w, http.StatusCreated, createOrderResponse{
		Success: true,
		Message: orderCreatedMessage,
		Order:   resp,
	})
}

// List handles GET /orders?processed=false&limit=N.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var req service.ListOrdersRequest

	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid fields", "limit must be a positive integer"))
			return
		}
		req.Limit = v
	}
	if s := r.URL.Query().Get("processed"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid fields", "processed must be true or false"))
			return
		}
		req.Processed = &v
	}

	orders, err := h.svc.ListOrders(r.Context(), req)
	if err != nil {
		h.log.Error("list orders", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error", "failed to list orders"))
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = service.DefaultListLimit
	}
	if limit > service.MaxListLimit {
		limit = service.MaxListLimit
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit})
}

// MarkProcessed handles POST /orders/{id}/processed.
func (h *OrderHandler) MarkProcessed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.MarkProcessed(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		h.log.Error("mark order processed", zap.Int64("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error", "failed to update order"))
		return
	}

	resp := toOrderResponse(order)
	h.publish(enum.EventOrderProcessed, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) publish(eventType string, o orderResponse) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(o.Place, eventType, o); err != nil {
		h.log.Warn("publish order event", zap.String("type", eventType), zap.Int64("id", o.ID), zap.Error(err))
	}
}

// --- Decoding ---

func isAbsent(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte(`""`))
}

func (c createOrderRequest) missing() []string {
	var out []string
	if isAbsent(c.Cnumber) {
		out = append(out, "Cnumber")
	}
	if isAbsent(c.Total) {
		out = append(out, "total")
	}
	if isAbsent(c.Articles) {
		out = append(out, "articles")
	}
	if isAbsent(c.Place) {
		out = append(out, "place")
	}
	return out
}

func (c createOrderRequest) decode() (service.CreateOrderRequest, error) {
	var req service.CreateOrderRequest

	cnumber, err := decodeIntegerish(c.Cnumber)
	if err != nil {
		return req, fmt.Errorf("Cnumber: %w", err)
	}
	req.Cnumber = cnumber

	var total json.Number
	if err := json.Unmarshal(c.Total, &total); err != nil || bytes.HasPrefix(bytes.TrimSpace(c.Total), []byte(`"`)) {
		return req, errors.New("total must be a number")
	}
	d, err := decimal.NewFromString(total.String())
	if err != nil {
		return req, errors.New("total must be a number")
	}
	req.Total = d

	if err := json.Unmarshal(c.Articles, &req.Articles); err != nil {
		return req, errors.New("articles must be a string")
	}
	if err := json.Unmarshal(c.Place, &req.Place); err != nil {
		return req, errors.New("place must be a string")
	}

	if !isAbsent(c.Table) {
		s, err := decodeIntegerish(c.Table)
		if err != nil {
			return req, fmt.Errorf("table: %w", err)
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, errors.New("table: must be an integer")
		}
		req.Table = &n
	}
	return req, nil
}

// decodeIntegerish accepts a JSON integer or a string of digits.
func decodeIntegerish(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		s = strings.TrimSpace(s)
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return "", errors.New("must be an integer")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", errors.New("must be an integer")
	}
	if _, err := n.Int64(); err != nil {
		return "", errors.New("must be an integer")
	}
	return n.String(), nil
}

// --- Response helpers ---

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:       o.ID,
		Cnumber:  o.Cnumber,
		Total:    json.Number(service.NumericToDecimal(o.Total).StringFixed(2)),
		Articles: o.Articles,
		Place:    o.Place,
		Traite:   o.Traite,
	}
	if o.Table.Valid {
		t := o.Table.Int32
		resp.Table = &t
	}
	if o.CreatedAt.Valid {
		t := o.CreatedAt.Time
		resp.CreatedAt = &t
	}
	return resp
}
