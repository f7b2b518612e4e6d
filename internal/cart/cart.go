// Package cart holds the kiosk's order-in-progress: consumption mode, display
// number, table token, line items and the session's finalized orders.
//
// All mutation goes through Store methods so that the dedup key and quantity
// invariants hold: every line has quantity >= 1 and a unique Key.
package cart

import (
	"errors"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by the cart store.
var (
	ErrInvalidMode       = errors.New("invalid consumption mode")
	ErrModeAlreadySet    = errors.New("consumption mode already set")
	ErrNotDineIn         = errors.New("table token is only used for dine-in orders")
	ErrInvalidTableToken = errors.New("table token must be exactly 3 digits")
)

// Mode is the consumption mode chosen at session start.
type Mode int

const (
	ModeUnset Mode = iota
	ModeDineIn
	ModeTakeout
)

func (m Mode) String() string {
	switch m {
	case ModeDineIn:
		return "dine_in"
	case ModeTakeout:
		return "takeout"
	default:
		return "unset"
	}
}

// DrinkSize is the optional size of a drink line. The zero value means the
// item is not a sized drink.
type DrinkSize string

const (
	DrinkSizeNone DrinkSize = ""
	DrinkSize30cl DrinkSize = "30cl"
	DrinkSize50cl DrinkSize = "50cl"
)

// LargeDrinkSurcharge is added to the base price of a 50cl drink.
var LargeDrinkSurcharge = decimal.RequireFromString("0.50")

// ParseDrinkSize accepts "30cl" or "50cl".
func ParseDrinkSize(s string) (DrinkSize, bool) {
	switch DrinkSize(s) {
	case DrinkSize30cl, DrinkSize50cl:
		return DrinkSize(s), true
	}
	return DrinkSizeNone, false
}

// Key identifies a line item. Two additions with equal keys merge.
type Key struct {
	ID            string
	MenuSelection string
	DrinkSize     DrinkSize
}

// Descriptor is a fully resolved item ready to be added. UnitPrice is a
// snapshot: the cart never re-reads prices from the catalog.
type Descriptor struct {
	ID            string
	Name          string
	UnitPrice     decimal.Decimal
	MenuSelection string
	DrinkSize     DrinkSize
}

// Key returns the dedup key of the descriptor.
func (d Descriptor) Key() Key {
	return Key{ID: d.ID, MenuSelection: d.MenuSelection, DrinkSize: d.DrinkSize}
}

// LineItem is one row of the cart.
type LineItem struct {
	Descriptor
	Quantity int
}

// LineTotal is UnitPrice x Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Totals is the derived summary of the cart.
type Totals struct {
	Total decimal.Decimal
	Count int
}

// FinalizedOrder is a successfully submitted order kept in the session history.
type FinalizedOrder struct {
	ID            uuid.UUID
	OrderToken    string
	DisplayNumber int
	Mode          Mode
	TableToken    string
	Items         []LineItem
	Total         decimal.Decimal
	Count         int
	CreatedAt     time.Time
}

// Store is the process-wide cart state for one kiosk session.
type Store struct {
	mu            sync.Mutex
	mode          Mode
	displayNumber int
	tableToken    string
	items         []LineItem
	history       []FinalizedOrder

	// draw returns a candidate display number in [1000, 9999].
	draw func() int
}

// New creates an empty store with mode unset and a fresh display number.
func New() *Store {
	s := &Store{draw: randomDisplayNumber}
	s.displayNumber = s.nextDisplayNumber()
	return s
}

func randomDisplayNumber() int {
	return 1000 + rand.Intn(9000)
}

// SetMode sets the consumption mode. The mode transitions once per customer
// (CompleteOrder resets it); setting the same mode again is a no-op. Items
// are never touched.
func (s *Store) SetMode(m Mode) error {
	if m != ModeDineIn && m != ModeTakeout {
		return ErrInvalidMode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeUnset && s.mode != m {
		return ErrModeAlreadySet
	}
	s.mode = m
	return nil
}

// Mode returns the current consumption mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// ValidTableToken reports whether token is exactly three ASCII digits.
func ValidTableToken(token string) bool {
	if len(token) != 3 {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}
	return true
}

// SetTableToken records the table token for a dine-in order.
func (s *Store) SetTableToken(token string) error {
	if !ValidTableToken(token) {
		return ErrInvalidTableToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeDineIn {
		return ErrNotDineIn
	}
	s.tableToken = token
	return nil
}

// TableToken returns the recorded table token, or "" if none.
func (s *Store) TableToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableToken
}

// AddItem merges d into the line with the same key, or appends a new line
// with quantity 1. Unknown ids are accepted as-is.
func (s *Store) AddItem(d Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(d.Key()); i >= 0 {
		s.items[i].Quantity++
		return
	}
	s.items = append(s.items, LineItem{Descriptor: d, Quantity: 1})
}

// DecrementOrRemove lowers the matching line's quantity by one, removing the
// line when it would reach zero. No-op when nothing matches.
func (s *Store) DecrementOrRemove(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(k)
	if i < 0 {
		return
	}
	if s.items[i].Quantity > 1 {
		s.items[i].Quantity--
		return
	}
	s.items = slices.Delete(s.items, i, i+1)
}

// RemoveLine removes the matching line regardless of its quantity.
func (s *Store) RemoveLine(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(k); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
	}
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Totals returns the cart total rounded to cents and the item count.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.items)
}

// ComputeTotals sums unit price x quantity over items.
func ComputeTotals(items []LineItem) Totals {
	total := decimal.Zero
	count := 0
	for _, it := range items {
		total = total.Add(it.LineTotal())
		count += it.Quantity
	}
	return Totals{Total: total.Round(2), Count: count}
}

// DisplayNumber returns the cosmetic 4-digit order number.
func (s *Store) DisplayNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayNumber
}

// GenerateDisplayNumber replaces the display number with a new 4-digit value
// different from the current one. It is never used as a storage key.
func (s *Store) GenerateDisplayNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayNumber = s.nextDisplayNumber()
	return s.displayNumber
}

func (s *Store) nextDisplayNumber() int {
	for {
		n := s.draw()
		if n != s.displayNumber {
			return n
		}
	}
}

// CompleteOrder finalizes a submitted order and readies the store for the
// next customer: the record is appended to the history, the items are
// cleared, the mode and table token are reset and a new display number is
// drawn, all under one lock. History is kept.
func (s *Store) CompleteOrder(rec FinalizedOrder) FinalizedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.history = append(s.history, rec)
	s.items = nil
	s.mode = ModeUnset
	s.tableToken = ""
	s.displayNumber = s.nextDisplayNumber()
	return rec
}

// History returns the orders finalized during this session, oldest first.
func (s *Store) History() []FinalizedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

func (s *Store) indexOf(k Key) int {
	return slices.IndexFunc(s.items, func(it LineItem) bool {
		return it.Key() == k
	})
}
