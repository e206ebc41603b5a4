package domain

// Money is an amount in minor currency units.
type Money int64

const (
	// FreeShippingThreshold is the subtotal that must be exceeded for free shipping.
	FreeShippingThreshold Money = 50000
	// FlatShipping is charged when the subtotal does not exceed FreeShippingThreshold.
	FlatShipping Money = 3000
)

type CartItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    Money  `json:"price"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

// Cart is the server-owned list of items for one session.
type Cart []CartItem

// ItemCount sums quantities across the cart.
func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c {
		count += item.Quantity
	}
	return count
}

// Find returns the index of the item with the given id, or -1.
func (c Cart) Find(id int64) int {
	for i, item := range c {
		if item.ID == id {
			return i
		}
	}
	return -1
}

type Totals struct {
	Subtotal Money `json:"subtotal"`
	Shipping Money `json:"shipping"`
	Total    Money `json:"total"`
}

// ComputeTotals derives totals from a cart snapshot. It has no side effects.
func ComputeTotals(c Cart) Totals {
	var subtotal Money
	for _, item := range c {
		subtotal += item.Price * Money(item.Quantity)
	}

	shipping := FlatShipping
	if subtotal > FreeShippingThreshold {
		shipping = 0
	}

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}
}

// Product is the catalog view of a perfume used when adding to the cart.
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    Money  `json:"price"`
	ImageURL string `json:"cloudinary_url"`
}
