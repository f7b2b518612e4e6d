package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wacdo-pos/kiosk/internal/database"
	"github.com/wacdo-pos/kiosk/internal/enum"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// MaxTotal is the exclusive upper bound of orders.total (NUMERIC(10,2)).
var MaxTotal = decimal.NewFromInt(100_000_000)

// Errors returned by the order service.
var (
	ErrInvalidCnumber = errors.New("Cnumber must be a positive integer")
	ErrInvalidTotal   = errors.New("total must be a number >= 0 and < 100000000")
	ErrEmptyArticles  = errors.New("articles must not be empty")
	ErrInvalidPlace   = errors.New(`place must be "sur place" or "à emporter"`)
	ErrInvalidTable   = errors.New("table must be a non-negative integer")
	ErrOrderNotFound  = errors.New("order not found")
)

// Conn is one pooled connection. Release must be called exactly once.
type Conn interface {
	database.DBTX
	Release()
}

// Acquirer hands out pooled connections.
type Acquirer interface {
	Acquire(ctx context.Context) (Conn, error)
}

// PoolAcquirer adapts *pgxpool.Pool to Acquirer.
type PoolAcquirer struct {
	Pool *pgxpool.Pool
}

func (p PoolAcquirer) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries.
type OrderStore interface {
	InsertOrder(ctx context.Context, arg database.InsertOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	MarkOrderProcessed(ctx context.Context, id int64) (database.Order, error)
}

// NewOrderStore creates an OrderStore bound to one connection.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the decoded input for creating an order.
type CreateOrderRequest struct {
	Cnumber  string
	Total    decimal.Decimal
	Articles string
	Place    string
	Table    *int
}

// ListOrdersRequest filters the staff listing. A nil Processed lists all.
type ListOrdersRequest struct {
	Processed *bool
	Limit     int
}

// OrderService persists kiosk orders.
type OrderService struct {
	pool     Acquirer
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool Acquirer, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// NewQueriesStore is the production NewOrderStore.
func NewQueriesStore(db database.DBTX) OrderStore {
	return database.New(db)
}

// CreateOrder validates req and inserts it with traite=false in a single
// statement on one pooled connection. The connection is released on every
// path once acquired.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	params, err := validateCreate(req)
	if err != nil {
		return database.Order{}, err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	order, err := s.newStore(conn).InsertOrder(ctx, params)
	if err != nil {
		return database.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

// ListOrders returns the most recent orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, req ListOrdersRequest) ([]database.Order, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	params := database.ListOrdersParams{Limit: int32(limit)}
	if req.Processed != nil {
		params.Traite = pgtype.Bool{Bool: *req.Processed, Valid: true}
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	orders, err := s.newStore(conn).ListOrders(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []database.Order{}
	}
	return orders, nil
}

// MarkProcessed flags an order as handled by the kitchen.
func (s *OrderService) MarkProcessed(ctx context.Context, id int64) (database.Order, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	order, err := s.newStore(conn).MarkOrderProcessed(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("mark order processed: %w", err)
	}
	return order, nil
}

func validateCreate(req CreateOrderRequest) (database.InsertOrderParams, error) {
	cnumber, err := strconv.ParseInt(strings.TrimSpace(req.Cnumber), 10, 64)
	if err != nil || cnumber <= 0 {
		return database.InsertOrderParams{}, ErrInvalidCnumber
	}
	if req.Total.IsNegative() || req.Total.Round(2).GreaterThanOrEqual(MaxTotal) {
		return database.InsertOrderParams{}, ErrInvalidTotal
	}
	if strings.TrimSpace(req.Articles) == "" {
		return database.InsertOrderParams{}, ErrEmptyArticles
	}
	if !enum.IsValidPlace(req.Place) {
		return database.InsertOrderParams{}, ErrInvalidPlace
	}

	params := database.InsertOrderParams{
		Cnumber:  cnumber,
		Total:    DecimalToNumeric(req.Total),
		Articles: req.Articles,
		Place:    req.Place,
	}
	if req.Table != nil {
		if *req.Table < 0 || *req.Table > 1<<31-1 {
			return database.InsertOrderParams{}, ErrInvalidTable
		}
		params.Table = pgtype.Int4{Int32: int32(*req.Table), Valid: true}
	}
	return params, nil
}

// IsValidationError reports whether err is a client input error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidCnumber) ||
		errors.Is(err, ErrInvalidTotal) ||
		errors.Is(err, ErrEmptyArticles) ||
		errors.Is(err, ErrInvalidPlace) ||
		errors.Is(err, ErrInvalidTable)
}

// NumericToDecimal converts a pgtype.Numeric; invalid values become zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalToNumeric rounds d to cents.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
