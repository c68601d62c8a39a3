package service

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rinkworks/venuepos/internal/core/domain"
)

// Cart is the in-memory selection for one checkout session. It keeps one
// line per catalog item, in insertion order, and caps quantities at the
// most recently observed availability for the item. Not safe for
// concurrent use; each operator session owns exactly one cart.
type Cart struct {
	token string
	lines []domain.CartLine
	index map[string]int
}

func NewCart() *Cart {
	return &Cart{
		token: uuid.NewString(),
		index: make(map[string]int),
	}
}

// Token identifies one cart lifetime. It rotates on Clear, which is what
// makes a re-submitted commit of an already committed cart detectable.
func (c *Cart) Token() string {
	return c.token
}

// AddOrIncrement adds a line with quantity 1, or raises an existing line
// by 1. The cap is the availability on the item passed in, not the figure
// captured when the line was added: a catalog refresh between calls moves
// it. When the increment would exceed it the cart is left unchanged; the
// UI is expected to disable the control, not show an error.
func (c *Cart) AddOrIncrement(item domain.CatalogItem) {
	if i, ok := c.index[item.ID]; ok {
		line := &c.lines[i]
		line.Available = item.Available
		if line.Quantity >= line.Available {
			// Availability dropped below (or to) the current quantity;
			// clamp rather than grow. Zero removes the line.
			c.SetQuantity(item.ID, line.Available)
			return
		}
		line.Quantity++
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		return
	}

	if item.Available < 1 {
		return
	}
	c.index[item.ID] = len(c.lines)
	c.lines = append(c.lines, domain.CartLine{
		ItemID:    item.ID,
		Kind:      item.Kind,
		RefID:     item.RefID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		Quantity:  1,
		Available: item.Available,
		Subtotal:  item.UnitPrice,
	})
}

// SetQuantity sets a line's quantity, clamped to the availability last
// observed for the line. Zero (or less) removes the line. Unknown items
// are ignored.
func (c *Cart) SetQuantity(itemID string, qty int) {
	i, ok := c.index[itemID]
	if !ok {
		return
	}
	if qty <= 0 {
		c.Remove(itemID)
		return
	}
	line := &c.lines[i]
	if qty > line.Available {
		qty = line.Available
	}
	line.Quantity = qty
	line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

func (c *Cart) Remove(itemID string) {
	i, ok := c.index[itemID]
	if !ok {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, itemID)
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].ItemID] = j
	}
}

// Clear empties the cart and rotates its token.
func (c *Cart) Clear() {
	c.token = uuid.NewString()
	c.lines = nil
	c.index = make(map[string]int)
}

func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.Subtotal)
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}
