package builtin

import (
	"context"
	"strings"
	"testing"

	"github.com/anthann/coffeechat/pkg/cart"
	"github.com/anthann/coffeechat/pkg/menu"
)

func newCartFixture(t *testing.T) (*cart.Store, *AddToCartTool, *ViewCartTool) {
	t.Helper()
	store := cart.NewStore(menu.DefaultCatalog())
	return store, NewAddToCartTool(store), NewViewCartTool(store)
}

func addArgs(itemID, temperature, sweetness string, quantity any) map[string]any {
	return map[string]any{
		"item_id":     itemID,
		"temperature": temperature,
		"sweetness":   sweetness,
		"quantity":    quantity,
	}
}

func TestAddToCartSuccess(t *testing.T) {
	store, add, _ := newCartFixture(t)
	res, err := add.Execute(context.Background(), addArgs("latte", "hot", "regular", float64(2)))
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	want := "Added 2 x Latte (Hot, Regular sugar). The line now has 2 in total for ¥70.00. Cart total is ¥70.00."
	if res.Text != want {
		t.Fatalf("text = %q, want %q", res.Text, want)
	}
	if got := store.Snapshot().Units(); got != 2 {
		t.Fatalf("units = %d, want 2", got)
	}
}

func TestAddToCartMergeReportsNewLineQuantity(t *testing.T) {
	_, add, _ := newCartFixture(t)
	ctx := context.Background()
	if _, err := add.Execute(ctx, addArgs("latte", "hot", "regular", float64(2))); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	res, err := add.Execute(ctx, addArgs("latte", "hot", "regular", float64(1)))
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	want := "Added 1 x Latte (Hot, Regular sugar). The line now has 3 in total for ¥105.00. Cart total is ¥105.00."
	if res.Text != want {
		t.Fatalf("text = %q, want %q", res.Text, want)
	}
}

func TestAddToCartValidationBecomesText(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{
			name:   "unknown item suggests the menu",
			params: addArgs("bubble-tea", "hot", "regular", float64(1)),
			want:   "show_menu tool to find valid item ids",
		},
		{
			name:   "invalid temperature lists codes",
			params: addArgs("latte", "warm", "regular", float64(1)),
			want:   `Valid temperature codes are "hot" and "iced"`,
		},
		{
			name:   "invalid sweetness lists codes",
			params: addArgs("latte", "hot", "sugar-free", float64(1)),
			want:   `Valid sweetness codes are "none", "light", "regular", and "extra"`,
		},
		{
			name:   "unsupported temperature points at the menu",
			params: addArgs("cappuccino", "iced", "regular", float64(1)),
			want:   "Check the item's supported options",
		},
		{
			name:   "unsupported sweetness points at the menu",
			params: addArgs("mocha", "hot", "none", float64(1)),
			want:   "Check the item's supported options",
		},
		{
			name:   "zero quantity",
			params: addArgs("latte", "hot", "regular", float64(0)),
			want:   "quantity must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, add, _ := newCartFixture(t)
			res, err := add.Execute(context.Background(), tt.params)
			if err != nil {
				t.Fatalf("validation failures must return text, got error: %v", err)
			}
			if !strings.Contains(res.Text, "Could not add to cart") {
				t.Fatalf("missing failure prefix: %q", res.Text)
			}
			if !strings.Contains(res.Text, tt.want) {
				t.Fatalf("text = %q, want substring %q", res.Text, tt.want)
			}
			if got := store.Snapshot().Units(); got != 0 {
				t.Fatalf("failed add changed the cart: units = %d", got)
			}
		})
	}
}

func TestAddToCartMalformedArgumentsBecomeText(t *testing.T) {
	store, add, _ := newCartFixture(t)
	res, err := add.Execute(context.Background(), addArgs("latte", "hot", "regular", "two"))
	if err != nil {
		t.Fatalf("malformed args must return text, got error: %v", err)
	}
	if !strings.Contains(res.Text, "could not be understood") {
		t.Fatalf("text = %q", res.Text)
	}
	if got := store.Snapshot().Units(); got != 0 {
		t.Fatalf("malformed add changed the cart: units = %d", got)
	}
}

func TestViewCartEmpty(t *testing.T) {
	_, _, view := newCartFixture(t)
	res, err := view.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	want := "The cart is empty. Use the show_menu tool to see what's available."
	if res.Text != want {
		t.Fatalf("text = %q, want %q", res.Text, want)
	}
}

func TestViewCartListsLinesAndTotal(t *testing.T) {
	store, _, view := newCartFixture(t)
	if _, err := store.AddLine("latte", "hot", "regular", 2); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	if _, err := store.AddLine("cold-brew", "iced", "none", 1); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}
	res, err := view.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	for _, want := range []string{
		"1. Latte (Hot, Regular sugar) x2 @ ¥35.00 = ¥70.00",
		"2. Cold Brew (Iced, No sugar) x1 @ ¥30.00 = ¥30.00",
		"Total: ¥100.00 (2 lines, 3 drinks)",
	} {
		if !strings.Contains(res.Text, want) {
			t.Fatalf("cart text missing %q:\n%s", want, res.Text)
		}
	}
}
