// Package kiosk is the line-oriented ordering front-end: it reads one command
// per line and drives the cart, the catalog browser, the selection wizards and
// checkout.
package kiosk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wacdo-pos/kiosk/internal/cart"
	"github.com/wacdo-pos/kiosk/internal/catalog"
	"github.com/wacdo-pos/kiosk/internal/checkout"
	"github.com/wacdo-pos/kiosk/internal/enum"
	"github.com/wacdo-pos/kiosk/internal/orderclient"
	"github.com/wacdo-pos/kiosk/internal/wizard"
)

var (
	errNoMode       = errors.New("choose first: mode dine-in | mode takeout")
	errWizardOpen   = errors.New("finish the current selection first (confirm or cancel)")
	errNoCategory   = errors.New("browse a category first")
	errUnknown      = errors.New("unknown command, type help")
	errBadArgument  = errors.New("invalid argument")
	errNeedsTable   = errors.New("dine-in orders need a table number: table <3 digits>")
	errNotAvailable = errors.New("product unavailable")
)

// Catalog is the subset of *catalog.Client used by a session.
type Catalog interface {
	FetchCategories(ctx context.Context) ([]catalog.Category, error)
	FetchCategory(ctx context.Context, name string) ([]catalog.Product, error)
}

// Submitter is satisfied by *checkout.Submitter.
type Submitter interface {
	SubmitTakeout(ctx context.Context) (cart.FinalizedOrder, error)
	SubmitDineIn(ctx context.Context, tableToken string) (cart.FinalizedOrder, error)
}

// Session is one customer's interaction with the kiosk.
type Session struct {
	cart      *cart.Store
	catalog   Catalog
	browser   *catalog.Browser
	submitter Submitter
	log       *zap.Logger

	menu  *wizard.MenuWizard
	drink *wizard.DrinkSizeWizard

	out io.Writer
}

// New creates a session over store.
func New(store *cart.Store, cat Catalog, sub Submitter, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		cart:      store,
		catalog:   cat,
		browser:   catalog.NewBrowser(cat, log.Named("browser")),
		submitter: sub,
		log:       log,
		out:       io.Discard,
	}
}

// NewDefault wires a session to the real catalog and order clients.
func NewDefault(cat *catalog.Client, orders *orderclient.Client, log *zap.Logger) *Session {
	store := cart.New()
	return New(store, cat, checkout.NewSubmitter(store, orders, log.Named("checkout")), log)
}

// Run reads commands from in until EOF, "quit" or ctx is done. Command
// errors are printed and never end the session.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out
	s.printf("Bienvenue chez Wacdo! Order #%d. Type help for commands.\n", s.cart.DisplayNumber())

	sc := bufio.NewScanner(in)
	for {
		s.prompt()
		if !sc.Scan() {
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		quit, err := s.Exec(ctx, sc.Text())
		if err != nil {
			s.printf("! %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Exec runs one command line.
func (s *Session) Exec(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		s.help()
		return false, nil
	}

	if s.menu != nil || s.drink != nil {
		return false, s.wizardCommand(ctx, cmd, args)
	}

	switch cmd {
	case "mode":
		return false, s.setMode(args)
	case "categories":
		return false, s.categories(ctx)
	case "browse":
		return false, s.browse(ctx, strings.Join(args, " "))
	case "add":
		return false, s.add(args)
	case "cart":
		s.showCart()
		return false, nil
	case "dec":
		return false, s.editLine(args, s.cart.DecrementOrRemove)
	case "del":
		return false, s.editLine(args, s.cart.RemoveLine)
	case "abandon":
		s.cart.Clear()
		s.printf("cart emptied\n")
		return false, nil
	case "submit":
		return false, s.submit(ctx)
	case "table":
		return false, s.submitDineIn(ctx, args)
	case "history":
		s.history()
		return false, nil
	}
	return false, errUnknown
}

func (s *Session) setMode(args []string) error {
	if len(args) != 1 {
		return errBadArgument
	}
	var m cart.Mode
	switch strings.ToLower(args[0]) {
	case "dine-in", "surplace", "sur-place":
		m = cart.ModeDineIn
	case "takeout", "emporter", "a-emporter":
		m = cart.ModeTakeout
	default:
		return fmt.Errorf("%w: mode must be dine-in or takeout", errBadArgument)
	}
	if err := s.cart.SetMode(m); err != nil {
		return err
	}
	s.printf("mode: %s\n", m)
	return nil
}

func (s *Session) categories(ctx context.Context) error {
	cats, err := s.catalog.FetchCategories(ctx)
	if err != nil {
		s.log.Warn("fetch categories", zap.Error(err))
		return fmt.Errorf("catalog unavailable: %w", err)
	}
	if len(cats) == 0 {
		s.printf("no categories\n")
		return nil
	}
	for _, c := range cats {
		s.printf("  %s\n", c.Title)
	}
	return nil
}

func (s *Session) browse(ctx context.Context, category string) error {
	if category == "" {
		return errBadArgument
	}
	applied, err := s.browser.Select(ctx, category)
	if !applied {
		return nil
	}
	if err != nil {
		s.log.Warn("fetch category", zap.String("category", category), zap.Error(err))
		return fmt.Errorf("catalog unavailable: %w", err)
	}
	products := s.browser.Products()
	if len(products) == 0 {
		s.printf("no products in %s\n", category)
		return nil
	}
	s.printf("%s:\n", category)
	for i, p := range products {
		s.printf("  %d. %s  %s\n", i+1, p.Name, money(p.Price))
	}
	return nil
}

func (s *Session) add(args []string) error {
	if s.cart.Mode() == cart.ModeUnset {
		return errNoMode
	}
	products := s.browser.Products()
	if s.browser.Selected() == "" {
		return errNoCategory
	}
	i, err := index(args, len(products))
	if err != nil {
		return err
	}
	p := products[i]
	if !p.Available {
		return errNotAvailable
	}

	switch s.browser.Selected() {
	case enum.CategoryMenus:
		s.menu = wizard.NewMenuWizard(p, s.catalog)
		s.showMenuStep()
	case enum.CategoryDrinks:
		s.drink = wizard.NewDrinkSizeWizard(p)
		s.showDrink()
	default:
		s.cart.AddItem(cart.Descriptor{ID: p.Key(), Name: p.Name, UnitPrice: p.Price})
		s.printf("added %s\n", p.Name)
	}
	return nil
}

func (s *Session) editLine(args []string, op func(cart.Key)) error {
	items := s.cart.Items()
	i, err := index(args, len(items))
	if err != nil {
		return err
	}
	op(items[i].Key())
	s.showCart()
	return nil
}

func (s *Session) submit(ctx context.Context) error {
	switch s.cart.Mode() {
	case cart.ModeUnset:
		return errNoMode
	case cart.ModeDineIn:
		if s.cart.Len() == 0 {
			return checkout.ErrEmptyCart
		}
		return errNeedsTable
	}
	rec, err := s.submitter.SubmitTakeout(ctx)
	return s.afterSubmit(rec, err)
}

func (s *Session) submitDineIn(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errBadArgument
	}
	rec, err := s.submitter.SubmitDineIn(ctx, args[0])
	return s.afterSubmit(rec, err)
}

func (s *Session) afterSubmit(rec cart.FinalizedOrder, err error) error {
	if err != nil {
		var apiErr *orderclient.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("order not sent (%d): your cart is kept, try again", apiErr.Status)
		}
		if errors.Is(err, checkout.ErrEmptyCart) || errors.Is(err, checkout.ErrSubmitInProgress) ||
			errors.Is(err, checkout.ErrWrongMode) || errors.Is(err, cart.ErrInvalidTableToken) {
			return err
		}
		return fmt.Errorf("order not sent: your cart is kept, try again: %w", err)
	}
	s.printf("Merci! Your order number is %d. Total %s.\n", rec.DisplayNumber, money(rec.Total))
	if rec.Mode == cart.ModeDineIn {
		s.printf("Your order will be brought to table %s.\n", rec.TableToken)
	}
	s.printf("Next order #%d. Choose: mode dine-in | mode takeout\n", s.cart.DisplayNumber())
	return nil
}

func (s *Session) history() {
	h := s.cart.History()
	if len(h) == 0 {
		s.printf("no orders yet\n")
		return
	}
	for _, o := range h {
		s.printf("  #%d  %s  %s  %d item(s)  %s\n",
			o.DisplayNumber, o.Mode, money(o.Total), o.Count, o.CreatedAt.Format("15:04:05"))
	}
}

func (s *Session) showCart() {
	items := s.cart.Items()
	if len(items) == 0 {
		s.printf("cart is empty\n")
		return
	}
	for i, it := range items {
		label := it.Name
		if it.MenuSelection != "" {
			label += " (" + it.MenuSelection + ")"
		}
		if it.DrinkSize != cart.DrinkSizeNone {
			label += " - " + string(it.DrinkSize)
		}
		s.printf("  %d. %s x%d  %s\n", i+1, label, it.Quantity, money(it.LineTotal()))
	}
	t := s.cart.Totals()
	s.printf("  total %s for %d item(s)\n", money(t.Total), t.Count)
}

func (s *Session) help() {
	s.printf(`commands:
  mode dine-in|takeout        choose where you eat
  categories                  list categories
  browse <category>           list products
  add <n>                     add product n of the listing
  pick <n> | next | prev      choose in a menu
  size 30cl|50cl | more | less  set a drink
  confirm | cancel            finish or drop the current selection
  cart | dec <n> | del <n> | abandon
  submit | table <3 digits>   send the order
  history | quit
`)
}

func (s *Session) prompt() {
	switch {
	case s.menu != nil:
		s.printf("menu> ")
	case s.drink != nil:
		s.printf("drink> ")
	default:
		s.printf("> ")
	}
}

func (s *Session) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

// index parses a 1-based position argument into a 0-based index below n.
func index(args []string, n int) (int, error) {
	if len(args) != 1 {
		return 0, errBadArgument
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("%w: expected a number from 1 to %d", errBadArgument, n)
	}
	return i - 1, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " €"
}
