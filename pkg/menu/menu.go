// Package menu holds the immutable drink catalog the tools read from.
package menu

import (
	"errors"
	"fmt"
)

// ErrUnknownItem reports lookups for identifiers absent from the catalog.
var ErrUnknownItem = errors.New("menu: unknown item")

// Temperature is a closed enumeration of serving temperatures.
type Temperature string

const (
	TemperatureHot  Temperature = "hot"
	TemperatureIced Temperature = "iced"
)

// Sweetness is a closed enumeration of sweetness levels.
type Sweetness string

const (
	SweetnessNone    Sweetness = "none"
	SweetnessLight   Sweetness = "light"
	SweetnessRegular Sweetness = "regular"
	SweetnessExtra   Sweetness = "extra"
)

// Label returns the display name for the temperature variant.
func (t Temperature) Label() string {
	switch t {
	case TemperatureHot:
		return "Hot"
	case TemperatureIced:
		return "Iced"
	default:
		return string(t)
	}
}

// Label returns the display name for the sweetness variant.
func (s Sweetness) Label() string {
	switch s {
	case SweetnessNone:
		return "No sugar"
	case SweetnessLight:
		return "Light sugar"
	case SweetnessRegular:
		return "Regular sugar"
	case SweetnessExtra:
		return "Extra sugar"
	default:
		return string(s)
	}
}

// ParseTemperature resolves a wire code to a known variant.
func ParseTemperature(code string) (Temperature, bool) {
	switch Temperature(code) {
	case TemperatureHot, TemperatureIced:
		return Temperature(code), true
	default:
		return "", false
	}
}

// ParseSweetness resolves a wire code to a known variant.
func ParseSweetness(code string) (Sweetness, bool) {
	switch Sweetness(code) {
	case SweetnessNone, SweetnessLight, SweetnessRegular, SweetnessExtra:
		return Sweetness(code), true
	default:
		return "", false
	}
}

// Item is one catalog entry. Items are created at startup and never mutated.
type Item struct {
	ID           string
	Name         string
	Price        float64
	Description  string
	Temperatures []Temperature
	Sweetness    []Sweetness
}

// SupportsTemperature reports whether the item can be served at t.
func (i Item) SupportsTemperature(t Temperature) bool {
	for _, v := range i.Temperatures {
		if v == t {
			return true
		}
	}
	return false
}

// SupportsSweetness reports whether the item can be served at s.
func (i Item) SupportsSweetness(s Sweetness) bool {
	for _, v := range i.Sweetness {
		if v == s {
			return true
		}
	}
	return false
}

// FormatPrice renders a price the way the menu and cart display it.
func FormatPrice(price float64) string {
	return fmt.Sprintf("¥%.2f", price)
}

// Catalog is a read-only, ordered collection of items.
type Catalog struct {
	items []Item
	byID  map[string]int
}

// NewCatalog builds a catalog preserving the declaration order of items.
// Duplicate identifiers keep the first occurrence.
func NewCatalog(items []Item) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(items))}
	for _, item := range items {
		if _, exists := c.byID[item.ID]; exists {
			continue
		}
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c
}

// List returns all items in declaration order. The slice is a copy.
func (c *Catalog) List() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Find returns the item for id or ErrUnknownItem.
func (c *Catalog) Find(id string) (Item, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return c.items[idx], nil
}

// Len reports the number of items.
func (c *Catalog) Len() int { return len(c.items) }

var allSweetness = []Sweetness{SweetnessNone, SweetnessLight, SweetnessRegular, SweetnessExtra}

// DefaultCatalog returns the demo coffee menu.
func DefaultCatalog() *Catalog {
	hotIced := []Temperature{TemperatureHot, TemperatureIced}
	return NewCatalog([]Item{
		{
			ID:           "latte",
			Name:         "Latte",
			Price:        35.0,
			Description:  "Espresso with steamed milk and a thin layer of foam.",
			Temperatures: hotIced,
			Sweetness:    allSweetness,
		},
		{
			ID:           "americano",
			Name:         "Americano",
			Price:        28.0,
			Description:  "Espresso lengthened with hot water.",
			Temperatures: hotIced,
			Sweetness:    allSweetness,
		},
		{
			ID:           "cappuccino",
			Name:         "Cappuccino",
			Price:        32.0,
			Description:  "Equal parts espresso, steamed milk, and milk foam.",
			Temperatures: []Temperature{TemperatureHot},
			Sweetness:    allSweetness,
		},
		{
			ID:           "mocha",
			Name:         "Mocha",
			Price:        38.0,
			Description:  "Espresso with chocolate and steamed milk.",
			Temperatures: hotIced,
			Sweetness:    []Sweetness{SweetnessLight, SweetnessRegular, SweetnessExtra},
		},
		{
			ID:           "espresso",
			Name:         "Espresso",
			Price:        22.0,
			Description:  "A single concentrated shot.",
			Temperatures: []Temperature{TemperatureHot},
			Sweetness:    []Sweetness{SweetnessNone},
		},
		{
			ID:           "cold-brew",
			Name:         "Cold Brew",
			Price:        30.0,
			Description:  "Slow-steeped coffee served over ice.",
			Temperatures: []Temperature{TemperatureIced},
			Sweetness:    allSweetness,
		},
	})
}
