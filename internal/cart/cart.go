// Package cart is the client-held accumulator of selected items. It
// lives entirely on the buyer's side until checkout: the server never
// sees the cart, only the checkout payload built from it.
package cart

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/google/uuid"
)

var ErrInvalidItem = errors.New("invalid cart item")

// ShippingFeePerPair is charged per started pair of items.
const ShippingFeePerPair = 500

type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	ShippingFee float64 `json:"shippingFee"`
	Total       float64 `json:"total"`
	ItemCount   int     `json:"itemCount"`
}

// CheckoutPayload is what the client posts to /api/orders. The request
// id lets the server deduplicate a retried submission.
type CheckoutPayload struct {
	Items           []Item  `json:"items"`
	Subtotal        float64 `json:"subtotal"`
	ShippingFee     float64 `json:"shippingFee"`
	TotalAmount     float64 `json:"totalAmount"`
	ClientRequestID string  `json:"clientRequestId"`
}

type Cart struct {
	items []Item
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

// Add appends the item, or bumps the quantity when the id is already
// in the cart. Quantities below one count as one.
func (c *Cart) Add(item Item, qty int) error {
	if item.ID == "" || item.Name == "" || item.Image == "" || item.Price < 0 ||
		math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
		return ErrInvalidItem
	}
	if qty < 1 {
		qty = 1
	}

	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i].Quantity += qty
			return nil
		}
	}

	item.Quantity = qty
	c.items = append(c.items, item)
	return nil
}

// Remove drops the line item; absent ids are a no-op.
func (c *Cart) Remove(id string) {
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// SetQuantity overwrites the quantity; qty <= 0 removes the item.
func (c *Cart) SetQuantity(id string, qty int) {
	if qty <= 0 {
		c.Remove(id)
		return
	}
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = qty
			return
		}
	}
}

// ComputeTotals is a pure function of the current cart state. The
// shipping fee is charged per started pair of items.
func (c *Cart) ComputeTotals() Totals {
	var t Totals
	for i := range c.items {
		t.Subtotal += c.items[i].Price * float64(c.items[i].Quantity)
		t.ItemCount += c.items[i].Quantity
	}
	t.ShippingFee = float64((t.ItemCount+1)/2) * ShippingFeePerPair
	if t.ItemCount == 0 {
		t.ShippingFee = 0
	}
	t.Total = t.Subtotal + t.ShippingFee
	return t
}

// Checkout builds the order submission payload with a fresh request
// id. The caller clears the cart only after the server confirms.
func (c *Cart) Checkout() (*CheckoutPayload, error) {
	if c.Empty() {
		return nil, errors.New("cart is empty")
	}
	t := c.ComputeTotals()
	return &CheckoutPayload{
		Items:           c.Items(),
		Subtotal:        t.Subtotal,
		ShippingFee:     t.ShippingFee,
		TotalAmount:     t.Total,
		ClientRequestID: uuid.NewString(),
	}, nil
}

func (c *Cart) Clear() {
	c.items = nil
}

// Store is the local key-value snapshot the cart survives reloads
// through, localStorage-style.
type Store interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// Load replaces the cart contents with the stored snapshot. An empty
// snapshot yields an empty cart.
func (c *Cart) Load(s Store) error {
	data, err := s.Load()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		c.items = nil
		return nil
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	c.items = items
	return nil
}

// Save snapshots the cart into the store.
func (c *Cart) Save(s Store) error {
	data, err := json.Marshal(c.items)
	if err != nil {
		return err
	}
	return s.Save(data)
}
