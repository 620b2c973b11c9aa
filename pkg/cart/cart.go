// Package cart implements the mutable order aggregate shared by the tools.
//
// The store has one writer at a time (the active tool dispatch) and any
// number of readers, so state lives behind an atomic pointer that is
// replaced wholesale on every mutation.
package cart

import (
	"fmt"
	"sync/atomic"

	"github.com/anthann/coffeechat/pkg/menu"
)

// ErrorCode identifies which add-to-cart constraint failed.
type ErrorCode string

const (
	CodeUnknownItem            ErrorCode = "unknown_item"
	CodeInvalidTemperature     ErrorCode = "invalid_temperature"
	CodeInvalidSweetness       ErrorCode = "invalid_sweetness"
	CodeUnsupportedTemperature ErrorCode = "unsupported_temperature"
	CodeUnsupportedSweetness   ErrorCode = "unsupported_sweetness"
	CodeInvalidQuantity        ErrorCode = "invalid_quantity"
)

// Error is a validation failure from AddLine. It stays inside the tool
// layer, where it is rendered as result text for the model to correct.
type Error struct {
	Code   ErrorCode
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cart: %s: %s", e.Code, e.Detail)
}

// Line is one cart entry, keyed by item + chosen variants.
type Line struct {
	Item        menu.Item
	Temperature menu.Temperature
	Sweetness   menu.Sweetness
	Quantity    int
}

// Subtotal is the line total (unit price × quantity).
func (l Line) Subtotal() float64 {
	return l.Item.Price * float64(l.Quantity)
}

// Cart is an insertion-ordered snapshot of lines.
type Cart struct {
	Lines []Line
}

// Total is the grand total across all lines.
func (c Cart) Total() float64 {
	var sum float64
	for _, l := range c.Lines {
		sum += l.Subtotal()
	}
	return sum
}

// Units is the total unit count across all lines.
func (c Cart) Units() int {
	var n int
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Store owns the cart for the lifetime of the process.
type Store struct {
	catalog *menu.Catalog
	state   atomic.Pointer[Cart]
}

// NewStore creates an empty store validating against catalog.
func NewStore(catalog *menu.Catalog) *Store {
	s := &Store{catalog: catalog}
	s.state.Store(&Cart{})
	return s
}

// AddLine validates the request and merges it into the cart. Validation
// order is fixed: item, temperature code, sweetness code, item support
// for each variant, then quantity. On success the returned line reflects
// the post-merge quantity. The cart is untouched on any failure.
func (s *Store) AddLine(itemID, temperatureCode, sweetnessCode string, quantity int) (Line, error) {
	item, err := s.catalog.Find(itemID)
	if err != nil {
		return Line{}, &Error{Code: CodeUnknownItem, Detail: fmt.Sprintf("no menu item with id %q", itemID)}
	}
	temperature, ok := menu.ParseTemperature(temperatureCode)
	if !ok {
		return Line{}, &Error{Code: CodeInvalidTemperature, Detail: fmt.Sprintf("%q is not a temperature option", temperatureCode)}
	}
	sweetness, ok := menu.ParseSweetness(sweetnessCode)
	if !ok {
		return Line{}, &Error{Code: CodeInvalidSweetness, Detail: fmt.Sprintf("%q is not a sweetness option", sweetnessCode)}
	}
	if !item.SupportsTemperature(temperature) {
		return Line{}, &Error{Code: CodeUnsupportedTemperature, Detail: fmt.Sprintf("%s cannot be served %s", item.Name, temperature.Label())}
	}
	if !item.SupportsSweetness(sweetness) {
		return Line{}, &Error{Code: CodeUnsupportedSweetness, Detail: fmt.Sprintf("%s is not available with %s", item.Name, sweetness.Label())}
	}
	if quantity < 1 {
		return Line{}, &Error{Code: CodeInvalidQuantity, Detail: fmt.Sprintf("quantity must be at least 1, got %d", quantity)}
	}

	current := s.state.Load()
	next := cloneCart(current)
	for i := range next.Lines {
		l := &next.Lines[i]
		if l.Item.ID == item.ID && l.Temperature == temperature && l.Sweetness == sweetness {
			l.Quantity += quantity
			s.state.Store(next)
			return *l, nil
		}
	}
	line := Line{Item: item, Temperature: temperature, Sweetness: sweetness, Quantity: quantity}
	next.Lines = append(next.Lines, line)
	s.state.Store(next)
	return line, nil
}

// Snapshot returns a consistent read-only copy of the cart.
func (s *Store) Snapshot() Cart {
	return *cloneCart(s.state.Load())
}

// Clear empties the cart. Only the explicit conversation reset calls
// this; no tool does.
func (s *Store) Clear() {
	s.state.Store(&Cart{})
}

func cloneCart(c *Cart) *Cart {
	next := &Cart{}
	if len(c.Lines) > 0 {
		next.Lines = make([]Line, len(c.Lines))
		copy(next.Lines, c.Lines)
	}
	return next
}
