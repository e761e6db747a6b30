// Package split implements the bill allocation engine: pure functions that
// turn a session snapshot (bill + item claims) into per-participant payment
// breakdowns. Nothing here is cached or stored; every call recomputes from
// the snapshot it is given, so concurrent claim changes can never leave a
// stale derived value behind. Cost is O(items x participants), fine for
// restaurant-sized bills.
package split

import (
	"sort"

	"github.com/noah-isme/patungan/internal/bill"
)

// ItemShare is one claimed item together with the claimant's share of its
// line total.
type ItemShare struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Share    float64 `json:"total"`
}

// Breakdown is the derived payment view for one participant. It is computed
// on every read and never persisted.
type Breakdown struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	SelectedItems []string    `json:"selectedItems"`
	Items         []ItemShare `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Tax           float64     `json:"tax"`
	Tip           float64     `json:"tip"`
	Total         float64     `json:"total"`
}

// Occupancy counts, per item id, how many participants currently claim it.
// Items claimed by nobody are absent from the result.
func Occupancy(selections map[string][]string) map[string]int {
	counts := make(map[string]int, len(selections))
	for _, items := range selections {
		seen := make(map[string]struct{}, len(items))
		for _, id := range items {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			counts[id]++
		}
	}
	return counts
}

// ItemShareAmount returns the per-claimant share of an item split between
// claimants. Zero claimants means the item is owed by nobody.
func ItemShareAmount(it bill.Item, claimants int) float64 {
	if claimants <= 0 {
		return 0
	}
	return it.LineTotal() / float64(claimants)
}

// TaxOwed computes one participant's tax share given their claimed subtotal.
// Equal mode divides by the participant count (minimum 1, so an empty
// session yields the full amount rather than a division by zero).
// Proportional mode scales by claimed subtotal over bill subtotal and is 0
// when the bill subtotal is 0.
func TaxOwed(b bill.Bill, subtotalOwed float64, participants int) float64 {
	return distribute(b.TaxDistribution, b.Tax, b.Subtotal, subtotalOwed, participants)
}

// TipOwed computes one participant's tip share under the same rules as TaxOwed.
func TipOwed(b bill.Bill, subtotalOwed float64, participants int) float64 {
	return distribute(b.TipDistribution, b.Tip, b.Subtotal, subtotalOwed, participants)
}

func distribute(mode bill.Distribution, amount, billSubtotal, subtotalOwed float64, participants int) float64 {
	if mode == bill.DistributionProportional {
		if billSubtotal == 0 {
			return 0
		}
		return (subtotalOwed / billSubtotal) * amount
	}
	if participants < 1 {
		participants = 1
	}
	return amount / float64(participants)
}

// ParticipantBreakdown derives the payment breakdown for a single
// participant against the full set of selections. Occupancy is counted
// across the whole session, so shared items split evenly between everyone
// claiming them.
func ParticipantBreakdown(b bill.Bill, id, name string, selections map[string][]string) Breakdown {
	counts := Occupancy(selections)
	return breakdownWith(b, id, name, selections[id], counts, len(selections))
}

// Participants derives breakdowns for every participant in the selections
// map, ordered by participant id for deterministic output.
func Participants(b bill.Bill, selections map[string][]string, names map[string]string) []Breakdown {
	counts := Occupancy(selections)
	ids := make([]string, 0, len(selections))
	for id := range selections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Breakdown, 0, len(ids))
	for _, id := range ids {
		out = append(out, breakdownWith(b, id, names[id], selections[id], counts, len(selections)))
	}
	return out
}

func breakdownWith(b bill.Bill, id, name string, selected []string, counts map[string]int, participants int) Breakdown {
	claimed := make(map[string]struct{}, len(selected))
	for _, itemID := range selected {
		claimed[itemID] = struct{}{}
	}

	bd := Breakdown{
		ID:            id,
		Name:          displayName(id, name),
		SelectedItems: append([]string(nil), selected...),
		Items:         []ItemShare{},
	}
	for _, it := range b.Items {
		if _, ok := claimed[it.ID]; !ok {
			continue
		}
		share := ItemShareAmount(it, counts[it.ID])
		bd.Items = append(bd.Items, ItemShare{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Share:    share,
		})
		bd.Subtotal += share
	}
	bd.Tax = TaxOwed(b, bd.Subtotal, participants)
	bd.Tip = TipOwed(b, bd.Subtotal, participants)
	bd.Total = bd.Subtotal + bd.Tax + bd.Tip
	return bd
}

// UnclaimedTotal sums the line totals of items no participant has claimed.
// These amounts are owed by nobody; under proportional distribution they
// shift tax and tip burden toward participants who did claim items.
func UnclaimedTotal(b bill.Bill, selections map[string][]string) float64 {
	counts := Occupancy(selections)
	var total float64
	for _, it := range b.Items {
		if counts[it.ID] == 0 {
			total += it.LineTotal()
		}
	}
	return total
}

func displayName(id, name string) string {
	if name != "" {
		return name
	}
	short := id
	if len(short) > 4 {
		short = short[:4]
	}
	return "Participant " + short
}
