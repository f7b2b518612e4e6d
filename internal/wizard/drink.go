package wizard

import (
	"github.com/wacdo-pos/kiosk/internal/cart"
	"github.com/wacdo-pos/kiosk/internal/catalog"
)

// ItemAdder is the cart operation used on confirm.
type ItemAdder interface {
	AddItem(d cart.Descriptor)
}

// DrinkSizeWizard picks a size and a quantity for a drink product.
type DrinkSizeWizard struct {
	product  catalog.Product
	size     cart.DrinkSize
	quantity int
	closed   bool
}

// NewDrinkSizeWizard starts with no size and quantity 1.
func NewDrinkSizeWizard(product catalog.Product) *DrinkSizeWizard {
	return &DrinkSizeWizard{product: product, quantity: 1}
}

// Product returns the drink being sized.
func (w *DrinkSizeWizard) Product() catalog.Product { return w.product }

// Size returns the chosen size, DrinkSizeNone until one is selected.
func (w *DrinkSizeWizard) Size() cart.DrinkSize { return w.size }

// Quantity returns how many drinks will be added on confirm.
func (w *DrinkSizeWizard) Quantity() int { return w.quantity }

// SelectSize chooses the drink size.
func (w *DrinkSizeWizard) SelectSize(size cart.DrinkSize) error {
	if w.closed {
		return ErrWrongStep
	}
	if _, ok := cart.ParseDrinkSize(string(size)); !ok {
		return ErrSizeRequired
	}
	w.size = size
	return nil
}

// Increment raises the quantity by one.
func (w *DrinkSizeWizard) Increment() {
	if !w.closed {
		w.quantity++
	}
}

// Decrement lowers the quantity by one; it never goes below 1.
func (w *DrinkSizeWizard) Decrement() {
	if !w.closed && w.quantity > 1 {
		w.quantity--
	}
}

// CanConfirm reports whether a size has been chosen.
func (w *DrinkSizeWizard) CanConfirm() bool {
	return !w.closed && w.size != cart.DrinkSizeNone
}

// Descriptor resolves the line to add. The unit price is the base price plus
// the large-size surcharge for 50cl.
func (w *DrinkSizeWizard) Descriptor() cart.Descriptor {
	price := w.product.Price
	if w.size == cart.DrinkSize50cl {
		price = price.Add(cart.LargeDrinkSurcharge)
	}
	return cart.Descriptor{
		ID:        w.product.Key(),
		Name:      w.product.Name,
		UnitPrice: price,
		DrinkSize: w.size,
	}
}

// Confirm adds the drink quantity times; the cart merges the identical keys
// into a single line.
func (w *DrinkSizeWizard) Confirm(adder ItemAdder) error {
	if w.closed {
		return ErrWrongStep
	}
	if w.size == cart.DrinkSizeNone {
		return ErrSizeRequired
	}
	d := w.Descriptor()
	for i := 0; i < w.quantity; i++ {
		adder.AddItem(d)
	}
	w.closed = true
	return nil
}

// Cancel closes the wizard without touching the cart.
func (w *DrinkSizeWizard) Cancel() {
	w.closed = true
}
