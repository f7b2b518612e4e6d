// Package checkout turns the cart into a submitted order.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wacdo-pos/kiosk/internal/cart"
	"github.com/wacdo-pos/kiosk/internal/enum"
	"github.com/wacdo-pos/kiosk/internal/orderclient"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrWrongMode        = errors.New("submission does not match the consumption mode")
	ErrSubmitInProgress = errors.New("a submission is already in progress")
)

// OrderCreator is satisfied by *orderclient.Client.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in orderclient.OrderRequest) (*orderclient.Order, error)
}

// Submitter sends the cart to the order endpoint, at most one submission at
// a time.
type Submitter struct {
	cart     *cart.Store
	orders   OrderCreator
	log      *zap.Logger
	now      func() time.Time
	inFlight atomic.Bool
}

// NewSubmitter creates a Submitter for store.
func NewSubmitter(store *cart.Store, orders OrderCreator, log *zap.Logger) *Submitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Submitter{cart: store, orders: orders, log: log, now: time.Now}
}

// InFlight reports whether a submission is running.
func (s *Submitter) InFlight() bool { return s.inFlight.Load() }

// SubmitTakeout submits a takeout order.
func (s *Submitter) SubmitTakeout(ctx context.Context) (cart.FinalizedOrder, error) {
	if s.cart.Mode() != cart.ModeTakeout {
		return cart.FinalizedOrder{}, ErrWrongMode
	}
	return s.submit(ctx, cart.ModeTakeout, "")
}

// SubmitDineIn records tableToken and submits a dine-in order. The token is
// checked before anything is sent.
func (s *Submitter) SubmitDineIn(ctx context.Context, tableToken string) (cart.FinalizedOrder, error) {
	if s.cart.Mode() != cart.ModeDineIn {
		return cart.FinalizedOrder{}, ErrWrongMode
	}
	if err := s.cart.SetTableToken(tableToken); err != nil {
		return cart.FinalizedOrder{}, err
	}
	return s.submit(ctx, cart.ModeDineIn, tableToken)
}

func (s *Submitter) submit(ctx context.Context, mode cart.Mode, tableToken string) (cart.FinalizedOrder, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return cart.FinalizedOrder{}, ErrSubmitInProgress
	}
	defer s.inFlight.Store(false)

	items := s.cart.Items()
	if len(items) == 0 {
		return cart.FinalizedOrder{}, ErrEmptyCart
	}

	now := s.now()
	token := strconv.FormatInt(now.UnixMilli(), 10)
	totals := cart.ComputeTotals(items)

	req := orderclient.OrderRequest{
		Cnumber:  token,
		Total:    json.Number(totals.Total.StringFixed(2)),
		Articles: Summary(items),
		Place:    place(mode),
	}
	if mode == cart.ModeDineIn {
		table, err := strconv.Atoi(tableToken)
		if err != nil {
			return cart.FinalizedOrder{}, cart.ErrInvalidTableToken
		}
		req.Table = &table
	}

	if _, err := s.orders.CreateOrder(ctx, req); err != nil {
		s.log.Warn("order submission failed",
			zap.String("order_token", token),
			zap.Int("lines", len(items)),
			zap.Error(err),
		)
		return cart.FinalizedOrder{}, fmt.Errorf("submit order: %w", err)
	}

	rec := s.cart.CompleteOrder(cart.FinalizedOrder{
		OrderToken:    token,
		DisplayNumber: s.cart.DisplayNumber(),
		Mode:          mode,
		TableToken:    tableToken,
		Items:         items,
		Total:         totals.Total,
		Count:         totals.Count,
		CreatedAt:     now,
	})
	s.log.Info("order submitted",
		zap.String("order_token", token),
		zap.Int("display_number", rec.DisplayNumber),
		zap.String("total", totals.Total.StringFixed(2)),
	)
	return rec, nil
}

func place(m cart.Mode) string {
	if m == cart.ModeDineIn {
		return enum.PlaceDineIn
	}
	return enum.PlaceTakeout
}

// Summary renders the lines as one human-readable string, e.g.
// "Big Mac (menu best of - frites - Coca-Cola) x1, Coca-Cola - 50cl x2".
// It cannot be parsed back into lines.
func Summary(items []cart.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		var b strings.Builder
		b.WriteString(it.Name)
		if it.MenuSelection != "" {
			b.WriteString(" (" + it.MenuSelection + ")")
		}
		if it.DrinkSize != cart.DrinkSizeNone {
			b.WriteString(" - " + string(it.DrinkSize))
		}
		b.WriteString(" x" + strconv.Itoa(it.Quantity))
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ", ")
}
