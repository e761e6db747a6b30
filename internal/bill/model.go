package bill

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidBill is returned when extraction output or a manual edit does not
// form a usable bill.
var ErrInvalidBill = errors.New("invalid bill")

// Distribution selects how tax or tip is divided between participants.
type Distribution string

const (
	// DistributionEqual divides the amount evenly across all participants,
	// regardless of what they claimed.
	DistributionEqual Distribution = "equal"
	// DistributionProportional divides the amount in proportion to each
	// participant's claimed subtotal.
	DistributionProportional Distribution = "proportional"
)

// Valid reports whether the distribution is one of the supported modes.
func (d Distribution) Valid() bool {
	return d == DistributionEqual || d == DistributionProportional
}

// Item is a single line on a receipt. Price is the unit price in the bill's
// currency, rounded to two decimal places.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// LineTotal returns price multiplied by quantity.
func (it Item) LineTotal() float64 {
	return it.Price * float64(it.Quantity)
}

// Bill is the structured result of analysing one receipt. It is read-mostly:
// items may be edited during review, but once a session wraps the bill it is
// immutable.
type Bill struct {
	Items           []Item       `json:"items"`
	Subtotal        float64      `json:"subtotal"`
	Tax             float64      `json:"tax"`
	Tip             float64      `json:"tip"`
	Total           float64      `json:"total"`
	TaxDistribution Distribution `json:"taxDistribution"`
	TipDistribution Distribution `json:"tipDistribution"`
	RestaurantName  string       `json:"restaurantName,omitempty"`
	IsReceipt       bool         `json:"isReceipt"`
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeItem coerces an item into a valid shape: price rounded to 2dp,
// quantity at least 1, a fresh id when none is set. Returns ErrInvalidBill
// when the item cannot be salvaged.
func NormalizeItem(it Item) (Item, error) {
	name := strings.TrimSpace(it.Name)
	if name == "" {
		return Item{}, fmt.Errorf("item name is required: %w", ErrInvalidBill)
	}
	if math.IsNaN(it.Price) || math.IsInf(it.Price, 0) || it.Price < 0 {
		return Item{}, fmt.Errorf("item %q has invalid price: %w", name, ErrInvalidBill)
	}
	out := it
	out.Name = name
	out.Price = Round2(it.Price)
	if out.Quantity < 1 {
		out.Quantity = 1
	}
	if strings.TrimSpace(out.ID) == "" {
		out.ID = uuid.NewString()
	}
	return out, nil
}

// Normalize validates and canonicalises a bill before a session is created
// from it. Monetary fields are rounded to 2dp, every item is normalised, the
// subtotal is recomputed from items rather than trusted, and the total is
// rederived as subtotal + tax + tip. Missing distribution modes default to
// equal.
func Normalize(b Bill) (Bill, error) {
	if b.Items == nil {
		return Bill{}, fmt.Errorf("items are required: %w", ErrInvalidBill)
	}
	for _, v := range []float64{b.Tax, b.Tip} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Bill{}, fmt.Errorf("tax and tip must be non-negative: %w", ErrInvalidBill)
		}
	}

	out := b
	out.Items = make([]Item, 0, len(b.Items))
	var subtotal float64
	for _, it := range b.Items {
		normalized, err := NormalizeItem(it)
		if err != nil {
			return Bill{}, err
		}
		out.Items = append(out.Items, normalized)
		subtotal += normalized.LineTotal()
	}

	out.Subtotal = Round2(subtotal)
	out.Tax = Round2(b.Tax)
	out.Tip = Round2(b.Tip)
	out.Total = Round2(out.Subtotal + out.Tax + out.Tip)
	if !out.TaxDistribution.Valid() {
		out.TaxDistribution = DistributionEqual
	}
	if !out.TipDistribution.Valid() {
		out.TipDistribution = DistributionEqual
	}
	out.RestaurantName = strings.TrimSpace(b.RestaurantName)
	return out, nil
}

// ItemByID returns the item with the given id.
func (b Bill) ItemByID(id string) (Item, bool) {
	for _, it := range b.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// HasItem reports whether the bill contains an item with the given id.
func (b Bill) HasItem(id string) bool {
	_, ok := b.ItemByID(id)
	return ok
}
