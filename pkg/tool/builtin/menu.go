// Package builtin provides the coffee-shop tools registered with every
// chat session: menu lookup, add-to-cart, and view-cart.
package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthann/coffeechat/pkg/menu"
	"github.com/anthann/coffeechat/pkg/tool"
)

// MenuTool renders the full catalog for the model to summarize.
type MenuTool struct {
	catalog *menu.Catalog
}

// NewMenuTool creates the show_menu tool over catalog.
func NewMenuTool(catalog *menu.Catalog) *MenuTool {
	return &MenuTool{catalog: catalog}
}

func (t *MenuTool) Name() string { return "show_menu" }

func (t *MenuTool) Description() string {
	return "List every drink on the menu with its id, price, description, and the temperature and sweetness options it supports. Call this before recommending drinks or when the customer asks what is available."
}

func (t *MenuTool) Schema() *tool.JSONSchema {
	return &tool.JSONSchema{Type: "object"}
}

func (t *MenuTool) Execute(_ context.Context, _ map[string]any) (*tool.Result, error) {
	var b strings.Builder
	b.WriteString("Menu:\n")
	for _, item := range t.catalog.List() {
		fmt.Fprintf(&b, "- %s (id: %s) %s\n", item.Name, item.ID, menu.FormatPrice(item.Price))
		fmt.Fprintf(&b, "  %s\n", item.Description)
		fmt.Fprintf(&b, "  Temperatures: %s\n", joinTemperatures(item.Temperatures))
		fmt.Fprintf(&b, "  Sweetness: %s\n", joinSweetness(item.Sweetness))
	}
	return &tool.Result{Text: b.String()}, nil
}

func joinTemperatures(values []menu.Temperature) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("%s (%s)", v.Label(), string(v)))
	}
	return strings.Join(parts, ", ")
}

func joinSweetness(values []menu.Sweetness) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("%s (%s)", v.Label(), string(v)))
	}
	return strings.Join(parts, ", ")
}
