package models

import "github.com/shopspring/decimal"

// Product is a cart line item. Amount is the quantity held in the cart; the
// product endpoint leaves it out.
type Product struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Image  string  `json:"image"`
	Amount int     `json:"amount,omitempty"`
}

// Stock is the remote ceiling on purchasable quantity for a product.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Subtotal returns price * amount rounded to cents.
func (p Product) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Amount))).Round(2)
}

// Cart holds at most one entry per product id, in insertion order.
type Cart []Product

// IndexOf returns the position of the entry for id, or -1.
func (c Cart) IndexOf(id int64) int {
	for i, p := range c {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (c Cart) Find(id int64) (Product, bool) {
	if i := c.IndexOf(id); i >= 0 {
		return c[i], true
	}
	return Product{}, false
}

// Clone returns a copy that shares nothing with c. A nil cart clones to an
// empty one so it serializes as [].
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Without returns a copy of c minus the entry for id.
func (c Cart) Without(id int64) Cart {
	out := make(Cart, 0, len(c))
	for _, p := range c {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// Count is the number of distinct entries.
func (c Cart) Count() int { return len(c) }

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range c {
		total = total.Add(p.Subtotal())
	}
	return total
}

// SummaryLine is one entry together with its subtotal.
type SummaryLine struct {
	Product
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Summary struct {
	Items    []SummaryLine   `json:"items"`
	Distinct int             `json:"distinct"`
	Total    decimal.Decimal `json:"total"`
}

// Summarize builds the view a cart page renders.
func (c Cart) Summarize() Summary {
	s := Summary{
		Items:    make([]SummaryLine, 0, len(c)),
		Distinct: c.Count(),
		Total:    c.Total(),
	}
	for _, p := range c {
		s.Items = append(s.Items, SummaryLine{Product: p, Subtotal: p.Subtotal()})
	}
	return s
}
