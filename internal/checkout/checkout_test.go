package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wacdo-pos/kiosk/internal/cart"
	"github.com/wacdo-pos/kiosk/internal/orderclient"
)

type mockOrders struct {
	createOrderFn func(ctx context.Context, in orderclient.OrderRequest) (*orderclient.Order, error)
	calls         []orderclient.OrderRequest
}

func (m *mockOrders) CreateOrder(ctx context.Context, in orderclient.OrderRequest) (*orderclient.Order, error) {
	m.calls = append(m.calls, in)
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, in)
	}
	return &orderclient.Order{ID: 1}, nil
}

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newSubmitter(t *testing.T, mode cart.Mode, orders OrderCreator) (*Submitter, *cart.Store) {
	t.Helper()
	store := cart.New()
	require.NoError(t, store.SetMode(mode))
	s := NewSubmitter(store, orders, nil)
	s.now = func() time.Time { return fixedNow }
	return s, store
}

func bigMacMenu() cart.Descriptor {
	return cart.Descriptor{
		ID:            "7",
		Name:          "Big Mac",
		UnitPrice:     decimal.RequireFromString("8.50"),
		MenuSelection: "menu best of - frites - Coca-Cola",
	}
}

func largeCoke() cart.Descriptor {
	return cart.Descriptor{
		ID:        "20",
		Name:      "Coca-Cola",
		UnitPrice: decimal.RequireFromString("2.40"),
		DrinkSize: cart.DrinkSize50cl,
	}
}

func TestSubmitTakeout_ClearsCartAndRecordsHistory(t *testing.T) {
	orders := &mockOrders{}
	s, store := newSubmitter(t, cart.ModeTakeout, orders)
	store.AddItem(bigMacMenu())
	store.AddItem(largeCoke())
	store.AddItem(largeCoke())
	before := store.DisplayNumber()

	rec, err := s.SubmitTakeout(context.Background())
	require.NoError(t, err)

	require.Len(t, orders.calls, 1)
	req := orders.calls[0]
	assert.Equal(t, "1792065600000", req.Cnumber)
	assert.Equal(t, "13.30", req.Total.String())
	assert.Equal(t, "Big Mac (menu best of - frites - Coca-Cola) x1, Coca-Cola - 50cl x2", req.Articles)
	assert.Equal(t, "à emporter", req.Place)
	assert.Nil(t, req.Table)

	assert.Zero(t, store.Len())
	assert.NotEqual(t, before, store.DisplayNumber())
	assert.Equal(t, before, rec.DisplayNumber)
	assert.Equal(t, 3, rec.Count)
	require.Len(t, store.History(), 1)
	assert.Equal(t, "1792065600000", store.History()[0].OrderToken)
}

func TestSubmitDineIn_SendsTableNumber(t *testing.T) {
	orders := &mockOrders{}
	s, store := newSubmitter(t, cart.ModeDineIn, orders)
	store.AddItem(bigMacMenu())

	rec, err := s.SubmitDineIn(context.Background(), "007")
	require.NoError(t, err)

	require.Len(t, orders.calls, 1)
	assert.Equal(t, "sur place", orders.calls[0].Place)
	require.NotNil(t, orders.calls[0].Table)
	assert.Equal(t, 7, *orders.calls[0].Table)
	assert.Equal(t, "007", rec.TableToken)
	assert.Empty(t, store.TableToken(), "table token resets after success")
}

func TestSubmitDineIn_RejectsBadTokenWithoutNetwork(t *testing.T) {
	for _, token := range []string{"", "12", "1234", "1a2"} {
		orders := &mockOrders{}
		s, store := newSubmitter(t, cart.ModeDineIn, orders)
		store.AddItem(bigMacMenu())

		_, err := s.SubmitDineIn(context.Background(), token)
		assert.ErrorIs(t, err, cart.ErrInvalidTableToken, "token %q", token)
		assert.Empty(t, orders.calls, "token %q", token)
		assert.Equal(t, 1, store.Len())
	}
}

func TestSubmit_WrongMode(t *testing.T) {
	orders := &mockOrders{}
	s, store := newSubmitter(t, cart.ModeDineIn, orders)
	store.AddItem(bigMacMenu())

	_, err := s.SubmitTakeout(context.Background())
	assert.ErrorIs(t, err, ErrWrongMode)

	unset := NewSubmitter(cart.New(), orders, nil)
	_, err = unset.SubmitDineIn(context.Background(), "101")
	assert.ErrorIs(t, err, ErrWrongMode)
	assert.Empty(t, orders.calls)
}

func TestSubmit_EmptyCart(t *testing.T) {
	orders := &mockOrders{}
	s, _ := newSubmitter(t, cart.ModeTakeout, orders)

	_, err := s.SubmitTakeout(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, orders.calls)
}

func TestSubmit_FailurePreservesCart(t *testing.T) {
	boom := errors.New("connection refused")
	orders := &mockOrders{createOrderFn: func(context.Context, orderclient.OrderRequest) (*orderclient.Order, error) {
		return nil, boom
	}}
	s, store := newSubmitter(t, cart.ModeTakeout, orders)
	store.AddItem(bigMacMenu())
	store.AddItem(largeCoke())
	before := store.DisplayNumber()
	items := store.Items()

	_, err := s.SubmitTakeout(context.Background())
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, items, store.Items())
	assert.Equal(t, before, store.DisplayNumber())
	assert.Empty(t, store.History())
	assert.False(t, s.InFlight())
}

func TestSubmit_RejectsConcurrentSubmission(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	orders := &mockOrders{createOrderFn: func(context.Context, orderclient.OrderRequest) (*orderclient.Order, error) {
		close(entered)
		<-release
		return &orderclient.Order{ID: 1}, nil
	}}
	s, store := newSubmitter(t, cart.ModeTakeout, orders)
	store.AddItem(bigMacMenu())

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = s.SubmitTakeout(context.Background())
	}()
	<-entered

	assert.True(t, s.InFlight())
	_, err := s.SubmitTakeout(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Len(t, orders.calls, 1)
	assert.Len(t, store.History(), 1)
}

func TestSummary(t *testing.T) {
	items := []cart.LineItem{
		{Descriptor: cart.Descriptor{Name: "Cheeseburger", MenuSelection: "menu best of - frites - coca-cola"}, Quantity: 2},
		{Descriptor: cart.Descriptor{Name: "Sprite", DrinkSize: cart.DrinkSize30cl}, Quantity: 1},
		{Descriptor: cart.Descriptor{Name: "Sundae"}, Quantity: 3},
	}

	got := Summary(items)
	assert.Contains(t, got, "Cheeseburger (menu best of - frites - coca-cola) x2")
	assert.Equal(t, "Cheeseburger (menu best of - frites - coca-cola) x2, Sprite - 30cl x1, Sundae x3", got)
	assert.Empty(t, Summary(nil))
}
