package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthann/coffeechat/pkg/cart"
	"github.com/anthann/coffeechat/pkg/menu"
	"github.com/anthann/coffeechat/pkg/tool"
)

// AddToCartTool adds a configured drink to the shared cart.
type AddToCartTool struct {
	store *cart.Store
}

// NewAddToCartTool creates the add_to_cart tool over store.
func NewAddToCartTool(store *cart.Store) *AddToCartTool {
	return &AddToCartTool{store: store}
}

func (t *AddToCartTool) Name() string { return "add_to_cart" }

func (t *AddToCartTool) Description() string {
	return "Add a drink to the customer's cart. Requires the menu item id, a temperature code, a sweetness code, and a quantity of at least 1. Adding the same configuration again increases the existing quantity."
}

func (t *AddToCartTool) Schema() *tool.JSONSchema {
	minQuantity := 1.0
	return &tool.JSONSchema{
		Type: "object",
		Properties: map[string]*tool.JSONSchema{
			"item_id": {
				Type:        "string",
				Description: "Menu item identifier, e.g. \"latte\".",
			},
			"temperature": {
				Type:        "string",
				Description: "Temperature code.",
				Enum:        []any{string(menu.TemperatureHot), string(menu.TemperatureIced)},
			},
			"sweetness": {
				Type:        "string",
				Description: "Sweetness code.",
				Enum: []any{
					string(menu.SweetnessNone), string(menu.SweetnessLight),
					string(menu.SweetnessRegular), string(menu.SweetnessExtra),
				},
			},
			"quantity": {
				Type:        "integer",
				Description: "Number of drinks to add.",
				Minimum:     &minQuantity,
			},
		},
		Required: []string{"item_id", "temperature", "sweetness", "quantity"},
	}
}

type addToCartArgs struct {
	ItemID      string `json:"item_id"`
	Temperature string `json:"temperature"`
	Sweetness   string `json:"sweetness"`
	Quantity    int    `json:"quantity"`
}

func (t *AddToCartTool) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	var args addToCartArgs
	if err := decodeArgs(params, &args); err != nil {
		return &tool.Result{Text: malformedArgsText(err)}, nil
	}
	line, err := t.store.AddLine(args.ItemID, args.Temperature, args.Sweetness, args.Quantity)
	if err != nil {
		var cartErr *cart.Error
		if errors.As(err, &cartErr) {
			return &tool.Result{Text: addFailureText(cartErr)}, nil
		}
		return nil, err
	}
	total := t.store.Snapshot().Total()
	text := fmt.Sprintf("Added %d x %s (%s, %s). The line now has %d in total for %s. Cart total is %s.",
		args.Quantity, line.Item.Name, line.Temperature.Label(), line.Sweetness.Label(),
		line.Quantity, menu.FormatPrice(line.Subtotal()), menu.FormatPrice(total))
	return &tool.Result{Text: text}, nil
}

func addFailureText(err *cart.Error) string {
	switch err.Code {
	case cart.CodeUnknownItem:
		return fmt.Sprintf("Could not add to cart: %s. Use the show_menu tool to find valid item ids.", err.Detail)
	case cart.CodeInvalidTemperature:
		return fmt.Sprintf("Could not add to cart: %s. Valid temperature codes are \"hot\" and \"iced\".", err.Detail)
	case cart.CodeInvalidSweetness:
		return fmt.Sprintf("Could not add to cart: %s. Valid sweetness codes are \"none\", \"light\", \"regular\", and \"extra\".", err.Detail)
	case cart.CodeUnsupportedTemperature, cart.CodeUnsupportedSweetness:
		return fmt.Sprintf("Could not add to cart: %s. Check the item's supported options with the show_menu tool.", err.Detail)
	case cart.CodeInvalidQuantity:
		return fmt.Sprintf("Could not add to cart: %s.", err.Detail)
	default:
		return fmt.Sprintf("Could not add to cart: %s.", err.Detail)
	}
}

// ViewCartTool renders the current cart contents.
type ViewCartTool struct {
	store *cart.Store
}

// NewViewCartTool creates the view_cart tool over store.
func NewViewCartTool(store *cart.Store) *ViewCartTool {
	return &ViewCartTool{store: store}
}

func (t *ViewCartTool) Name() string { return "view_cart" }

func (t *ViewCartTool) Description() string {
	return "Show everything currently in the customer's cart with quantities, prices, and the grand total."
}

func (t *ViewCartTool) Schema() *tool.JSONSchema {
	return &tool.JSONSchema{Type: "object"}
}

func (t *ViewCartTool) Execute(_ context.Context, _ map[string]any) (*tool.Result, error) {
	snapshot := t.store.Snapshot()
	if len(snapshot.Lines) == 0 {
		return &tool.Result{Text: "The cart is empty. Use the show_menu tool to see what's available."}, nil
	}
	var b strings.Builder
	b.WriteString("Cart:\n")
	for i, line := range snapshot.Lines {
		fmt.Fprintf(&b, "%d. %s (%s, %s) x%d @ %s = %s\n",
			i+1, line.Item.Name, line.Temperature.Label(), line.Sweetness.Label(),
			line.Quantity, menu.FormatPrice(line.Item.Price), menu.FormatPrice(line.Subtotal()))
	}
	fmt.Fprintf(&b, "Total: %s (%d lines, %d drinks)", menu.FormatPrice(snapshot.Total()), len(snapshot.Lines), snapshot.Units())
	return &tool.Result{Text: b.String()}, nil
}

// decodeArgs parses a loosely-typed argument bag into a typed struct via
// a JSON round trip, so type mismatches surface as one parse error.
func decodeArgs(params map[string]any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func malformedArgsText(err error) string {
	return fmt.Sprintf("The tool arguments could not be understood (%v). Send item_id, temperature, sweetness as strings and quantity as a whole number.", err)
}
