// Package wizard implements the two short-lived selection dialogs that turn a
// catalog product into a cart.Descriptor: menu composition and drink size.
// Neither touches the cart until it is confirmed.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/wacdo-pos/kiosk/internal/cart"
	"github.com/wacdo-pos/kiosk/internal/catalog"
	"github.com/wacdo-pos/kiosk/internal/enum"
)

// Errors returned by the wizards.
var (
	ErrWrongStep       = errors.New("action not allowed at this step")
	ErrUnknownMenuType = errors.New("unknown menu type")
	ErrUnknownSide     = errors.New("unknown side")
	ErrNoDrinks        = errors.New("no drinks available")
	ErrSizeRequired    = errors.New("choose a drink size first")
)

// MenuTypes and Sides are the choices offered at the first two steps.
var (
	MenuTypes = []string{enum.MenuMaxiBestOf, enum.MenuBestOf}
	Sides     = []string{enum.SideFries, enum.SidePotatoes}
)

// DrinkLister loads the products of a catalog category.
type DrinkLister interface {
	FetchCategory(ctx context.Context, name string) ([]catalog.Product, error)
}

// MenuStep is one state of the menu wizard. Each variant carries exactly the
// choices made so far.
type MenuStep interface {
	menuStep()
}

// ChooseMenuType is the first step.
type ChooseMenuType struct{}

// ChooseSide follows a menu type choice.
type ChooseSide struct {
	MenuType string
}

// ChooseDrink follows a side choice. Drinks are loaded on entry.
type ChooseDrink struct {
	MenuType string
	Side     string
	Drinks   []catalog.Product
	Index    int
}

// Current returns the drink shown in the slider, if any.
func (s ChooseDrink) Current() (catalog.Product, bool) {
	if len(s.Drinks) == 0 {
		return catalog.Product{}, false
	}
	return s.Drinks[s.Index], true
}

// MenuDone is terminal: the composed menu is ready.
type MenuDone struct {
	Selection string
}

// MenuCancelled is terminal: every choice was discarded.
type MenuCancelled struct{}

func (ChooseMenuType) menuStep() {}
func (ChooseSide) menuStep()     {}
func (ChooseDrink) menuStep()    {}
func (MenuDone) menuStep()       {}
func (MenuCancelled) menuStep()  {}

// MenuWizard composes "{menuType} - {side} - {drink}" for a menu product.
type MenuWizard struct {
	product catalog.Product
	drinks  DrinkLister
	step    MenuStep
}

// NewMenuWizard starts a wizard for product at ChooseMenuType.
func NewMenuWizard(product catalog.Product, drinks DrinkLister) *MenuWizard {
	return &MenuWizard{product: product, drinks: drinks, step: ChooseMenuType{}}
}

// Product returns the menu product being composed.
func (w *MenuWizard) Product() catalog.Product { return w.product }

// Step returns the current step.
func (w *MenuWizard) Step() MenuStep { return w.step }

// ChooseMenuType records the menu type and moves to ChooseSide.
func (w *MenuWizard) ChooseMenuType(menuType string) error {
	if _, ok := w.step.(ChooseMenuType); !ok {
		return ErrWrongStep
	}
	if !contains(MenuTypes, menuType) {
		return fmt.Errorf("%w: %q", ErrUnknownMenuType, menuType)
	}
	w.step = ChooseSide{MenuType: menuType}
	return nil
}

// ChooseSide records the side, moves to ChooseDrink and loads the drinks.
// A failed load leaves the drink list empty and is returned to the caller;
// the wizard stays usable for Cancel.
func (w *MenuWizard) ChooseSide(ctx context.Context, side string) error {
	cur, ok := w.step.(ChooseSide)
	if !ok {
		return ErrWrongStep
	}
	if !contains(Sides, side) {
		return fmt.Errorf("%w: %q", ErrUnknownSide, side)
	}
	next := ChooseDrink{MenuType: cur.MenuType, Side: side}
	products, err := w.drinks.FetchCategory(ctx, enum.CategoryDrinks)
	if err == nil {
		next.Drinks = catalog.Available(products)
	}
	w.step = next
	if err != nil {
		return fmt.Errorf("load drinks: %w", err)
	}
	return nil
}

// NextDrink advances the slider, wrapping to the first drink.
func (w *MenuWizard) NextDrink() error {
	return w.moveDrink(1)
}

// PrevDrink moves the slider back, wrapping to the last drink.
func (w *MenuWizard) PrevDrink() error {
	return w.moveDrink(-1)
}

func (w *MenuWizard) moveDrink(delta int) error {
	cur, ok := w.step.(ChooseDrink)
	if !ok {
		return ErrWrongStep
	}
	n := len(cur.Drinks)
	if n == 0 {
		return ErrNoDrinks
	}
	cur.Index = ((cur.Index+delta)%n + n) % n
	w.step = cur
	return nil
}

// PickDrink jumps the slider to index i.
func (w *MenuWizard) PickDrink(i int) error {
	cur, ok := w.step.(ChooseDrink)
	if !ok {
		return ErrWrongStep
	}
	if i < 0 || i >= len(cur.Drinks) {
		return fmt.Errorf("drink %d out of range", i+1)
	}
	cur.Index = i
	w.step = cur
	return nil
}

// Confirm finishes the wizard with the drink currently shown and returns
// the descriptor to add to the cart.
func (w *MenuWizard) Confirm() (cart.Descriptor, error) {
	cur, ok := w.step.(ChooseDrink)
	if !ok {
		return cart.Descriptor{}, ErrWrongStep
	}
	drink, ok := cur.Current()
	if !ok {
		return cart.Descriptor{}, ErrNoDrinks
	}
	selection := fmt.Sprintf("%s - %s - %s", cur.MenuType, cur.Side, drink.Name)
	w.step = MenuDone{Selection: selection}
	return cart.Descriptor{
		ID:            w.product.Key(),
		Name:          w.product.Name,
		UnitPrice:     w.product.Price,
		MenuSelection: selection,
	}, nil
}

// Cancel discards every choice. It is allowed at any non-terminal step.
func (w *MenuWizard) Cancel() {
	if _, done := w.step.(MenuDone); done {
		return
	}
	w.step = MenuCancelled{}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
