package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/wacdo-pos/kiosk/internal/database"
)

// --- Mock implementations ---

// mockConn implements Conn. Queries go through the mock store, so the DBTX
// methods panic to catch accidental calls.
type mockConn struct {
	released int
}

func (m *mockConn) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockConn) Release() { m.released++ }

// mockAcquirer implements Acquirer.
type mockAcquirer struct {
	conn     *mockConn
	err      error
	acquired int
}

func (m *mockAcquirer) Acquire(ctx context.Context) (Conn, error) {
	m.acquired++
	if m.err != nil {
		return nil, m.err
	}
	return m.conn, nil
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	insertOrderFn        func(ctx context.Context, arg database.InsertOrderParams) (database.Order, error)
	listOrdersFn         func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	markOrderProcessedFn func(ctx context.Context, id int64) (database.Order, error)
}

func (m *mockOrderStore) InsertOrder(ctx context.Context, arg database.InsertOrderParams) (database.Order, error) {
	return m.insertOrderFn(ctx, arg)
}
func (m *mockOrderStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrdersFn(ctx, arg)
}
func (m *mockOrderStore) MarkOrderProcessed(ctx context.Context, id int64) (database.Order, error) {
	return m.markOrderProcessedFn(ctx, id)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := NumericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func newTestService(store *mockOrderStore) (*OrderService, *mockAcquirer) {
	pool := &mockAcquirer{conn: &mockConn{}}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore), pool
}

func echoStore() *mockOrderStore {
	return &mockOrderStore{
		insertOrderFn: func(ctx context.Context, arg database.InsertOrderParams) (database.Order, error) {
			return database.Order{
				ID:       1,
				Cnumber:  arg.Cnumber,
				Total:    arg.Total,
				Articles: arg.Articles,
				Table:    arg.Table,
				Place:    arg.Place,
				Traite:   false,
			}, nil
		},
	}
}

func validRequest() CreateOrderRequest {
	table := 101
	return CreateOrderRequest{
		Cnumber:  "1792065600000",
		Total:    decimal.RequireFromString("13.5"),
		Articles: "Big Mac (menu best of - frites - Coca-Cola) x1",
		Place:    "sur place",
		Table:    &table,
	}
}

// --- CreateOrder ---

func TestCreateOrder_Success(t *testing.T) {
	var got database.InsertOrderParams
	store := echoStore()
	inner := store.insertOrderFn
	store.insertOrderFn = func(ctx context.Context, arg database.InsertOrderParams) (database.Order, error) {
		got = arg
		return inner(ctx, arg)
	}
	svc, pool := newTestService(store)

	order, err := svc.CreateOrder(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Cnumber != 1792065600000 {
		t.Errorf("cnumber: got %d", got.Cnumber)
	}
	if !numericEquals(got.Total, "13.50") {
		t.Errorf("total: got %v", NumericToDecimal(got.Total))
	}
	if !got.Table.Valid || got.Table.Int32 != 101 {
		t.Errorf("table: got %+v", got.Table)
	}
	if order.Traite {
		t.Error("new order must not be processed")
	}
	if pool.acquired != 1 || pool.conn.released != 1 {
		t.Errorf("acquire/release: got %d/%d, want 1/1", pool.acquired, pool.conn.released)
	}
}

func TestCreateOrder_TakeoutWithoutTable(t *testing.T) {
	var got database.InsertOrderParams
	store := &mockOrderStore{insertOrderFn: func(ctx context.Context, arg database.InsertOrderParams) (database.Order, error) {
		got = arg
		return database.Order{ID: 2}, nil
	}}
	svc, _ := newTestService(store)

	req := validRequest()
	req.Place = "à emporter"
	req.Table = nil
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Table.Valid {
		t.Error("table should be NULL for takeout")
	}
}

func TestCreateOrder_TotalRoundedToCents(t *testing.T) {
	var got database.InsertOrderParams
	store := &mockOrderStore{insertOrderFn: func(ctx context.Context, arg database.InsertOrderParams) (database.Order, error) {
		got = arg
		return database.Order{}, nil
	}}
	svc, _ := newTestService(store)

	req := validRequest()
	req.Total = decimal.RequireFromString("10.005")
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(got.Total, "10.01") {
		t.Errorf("total: got %v, want 10.01", NumericToDecimal(got.Total))
	}
}

func TestCreateOrder_LargestTotalAccepted(t *testing.T) {
	var got database.InsertOrderParams
	store := &mockOrderStore{insertOrderFn: func(ctx context.Context, arg database.InsertOrderParams) (database.Order, error) {
		got = arg
		return database.Order{}, nil
	}}
	svc, _ := newTestService(store)

	req := validRequest()
	req.Total = decimal.RequireFromString("99999999.99")
	if _, err := svc.CreateOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(got.Total, "99999999.99") {
		t.Errorf("total: got %v, want 99999999.99", NumericToDecimal(got.Total))
	}
}

func TestCreateOrder_ValidationErrorsNeverAcquire(t *testing.T) {
	negTable := -1
	tests := []struct {
		name   string
		mutate func(*CreateOrderRequest)
		want   error
	}{
		{"non numeric cnumber", func(r *CreateOrderRequest) { r.Cnumber = "abc" }, ErrInvalidCnumber},
		{"zero cnumber", func(r *CreateOrderRequest) { r.Cnumber = "0" }, ErrInvalidCnumber},
		{"negative total", func(r *CreateOrderRequest) { r.Total = decimal.RequireFromString("-1") }, ErrInvalidTotal},
		{"total at column limit", func(r *CreateOrderRequest) { r.Total = decimal.RequireFromString("100000000") }, ErrInvalidTotal},
		{"total rounding up to column limit", func(r *CreateOrderRequest) { r.Total = decimal.RequireFromString("99999999.995") }, ErrInvalidTotal},
		{"blank articles", func(r *CreateOrderRequest) { r.Articles = "   " }, ErrEmptyArticles},
		{"unknown place", func(r *CreateOrderRequest) { r.Place = "drive" }, ErrInvalidPlace},
		{"negative table", func(r *CreateOrderRequest) { r.Table = &negTable }, ErrInvalidTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pool := newTestService(echoStore())
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateOrder(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if !IsValidationError(err) {
				t.Error("expected a validation error")
			}
			if pool.acquired != 0 {
				t.Errorf("acquired %d connections on invalid input", pool.acquired)
			}
		})
	}
}

func TestCreateOrder_InsertErrorReleasesConnection(t *testing.T) {
	store := &mockOrderStore{insertOrderFn: func(ctx context.Context, arg database.InsertOrderParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{Code: "23514", Message: `new row violates check constraint "orders_total_check"`}
	}}
	svc, pool := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if IsValidationError(err) {
		t.Error("database failures are not validation errors")
	}
	if !strings.Contains(err.Error(), "insert order") {
		t.Errorf("error should be wrapped, got %q", err.Error())
	}
	if pool.conn.released != 1 {
		t.Errorf("released: got %d, want 1", pool.conn.released)
	}
}

func TestCreateOrder_InsertPanicReleasesConnection(t *testing.T) {
	store := &mockOrderStore{insertOrderFn: func(ctx context.Context, arg database.InsertOrderParams) (database.Order, error) {
		panic("driver bug")
	}}
	svc, pool := newTestService(store)

	func() {
		defer func() { _ = recover() }()
		_, _ = svc.CreateOrder(context.Background(), validRequest())
	}()
	if pool.conn.released != 1 {
		t.Errorf("released: got %d, want 1", pool.conn.released)
	}
}

func TestCreateOrder_AcquireError(t *testing.T) {
	called := false
	store := &mockOrderStore{insertOrderFn: func(ctx context.Context, arg database.InsertOrderParams) (database.Order, error) {
		called = true
		return database.Order{}, nil
	}}
	svc, pool := newTestService(store)
	pool.err = errors.New("connect timeout")

	_, err := svc.CreateOrder(context.Background(), validRequest())
	if err == nil || !strings.Contains(err.Error(), "acquire connection") {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("insert must not run without a connection")
	}
	if pool.conn.released != 0 {
		t.Errorf("released: got %d, want 0", pool.conn.released)
	}
}

// --- ListOrders ---

func TestListOrders_LimitsAndFilter(t *testing.T) {
	processed := false
	tests := []struct {
		name      string
		req       ListOrdersRequest
		wantLimit int32
		wantValid bool
	}{
		{"defaults", ListOrdersRequest{}, DefaultListLimit, false},
		{"capped", ListOrdersRequest{Limit: 1000}, MaxListLimit, false},
		{"pending only", ListOrdersRequest{Limit: 5, Processed: &processed}, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got database.ListOrdersParams
			store := &mockOrderStore{listOrdersFn: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
				got = arg
				return nil, nil
			}}
			svc, pool := newTestService(store)

			orders, err := svc.ListOrders(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if orders == nil {
				t.Error("expected empty slice, got nil")
			}
			if got.Limit != tt.wantLimit {
				t.Errorf("limit: got %d, want %d", got.Limit, tt.wantLimit)
			}
			if got.Traite.Valid != tt.wantValid {
				t.Errorf("traite filter valid: got %v, want %v", got.Traite.Valid, tt.wantValid)
			}
			if pool.conn.released != 1 {
				t.Errorf("released: got %d, want 1", pool.conn.released)
			}
		})
	}
}

// --- MarkProcessed ---

func TestMarkProcessed(t *testing.T) {
	store := &mockOrderStore{markOrderProcessedFn: func(ctx context.Context, id int64) (database.Order, error) {
		return database.Order{ID: id, Total: makeNumeric("4.20"), Traite: true}, nil
	}}
	svc, pool := newTestService(store)

	order, err := svc.MarkProcessed(context.Background(), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != 9 || !order.Traite {
		t.Errorf("unexpected order: %+v", order)
	}
	if pool.conn.released != 1 {
		t.Errorf("released: got %d, want 1", pool.conn.released)
	}
}

func TestMarkProcessed_NotFound(t *testing.T) {
	store := &mockOrderStore{markOrderProcessedFn: func(ctx context.Context, id int64) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}}
	svc, pool := newTestService(store)

	_, err := svc.MarkProcessed(context.Background(), 404)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("got %v, want ErrOrderNotFound", err)
	}
	if pool.conn.released != 1 {
		t.Errorf("released: got %d, want 1", pool.conn.released)
	}
}

// --- Numeric helpers ---

func TestNumericConversions(t *testing.T) {
	if !NumericToDecimal(pgtype.Numeric{}).IsZero() {
		t.Error("invalid numeric should convert to zero")
	}
	n := DecimalToNumeric(decimal.RequireFromString("2.4"))
	if !numericEquals(n, "2.40") {
		t.Errorf("round trip: got %v", NumericToDecimal(n))
	}
}
