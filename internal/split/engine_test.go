package split

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/patungan/internal/bill"
)

func twoItemBill(taxMode bill.Distribution) bill.Bill {
	b, err := bill.Normalize(bill.Bill{
		Items: []bill.Item{
			{ID: "A", Name: "Burger", Price: 10.00, Quantity: 1},
			{ID: "B", Name: "Steak", Price: 20.00, Quantity: 1},
		},
		Tax:             3.00,
		Tip:             0,
		TaxDistribution: taxMode,
	})
	if err != nil {
		panic(err)
	}
	return b
}

func TestSharedItemSplitEqualTax(t *testing.T) {
	b := twoItemBill(bill.DistributionEqual)
	selections := map[string][]string{
		"p1": {"A"},
		"p2": {"A", "B"},
	}
	parts := Participants(b, selections, map[string]string{"p1": "Ana", "p2": "Budi"})
	require.Len(t, parts, 2)

	p1, p2 := parts[0], parts[1]
	require.Equal(t, "p1", p1.ID)
	require.InDelta(t, 5.00, p1.Subtotal, 1e-9)
	require.InDelta(t, 25.00, p2.Subtotal, 1e-9)
	require.InDelta(t, 1.50, p1.Tax, 1e-9)
	require.InDelta(t, 1.50, p2.Tax, 1e-9)
	require.InDelta(t, 6.50, p1.Total, 1e-9)
	require.InDelta(t, 26.50, p2.Total, 1e-9)
}

func TestSharedItemSplitProportionalTax(t *testing.T) {
	b := twoItemBill(bill.DistributionProportional)
	selections := map[string][]string{
		"p1": {"A"},
		"p2": {"A", "B"},
	}
	parts := Participants(b, selections, nil)
	require.InDelta(t, 0.50, parts[0].Tax, 1e-9)
	require.InDelta(t, 2.50, parts[1].Tax, 1e-9)
	require.InDelta(t, 3.00, parts[0].Tax+parts[1].Tax, 1e-9)
}

func TestItemShareConservation(t *testing.T) {
	b := twoItemBill(bill.DistributionEqual)
	selections := map[string][]string{
		"p1": {"A", "B"},
		"p2": {"A"},
		"p3": {"A", "B"},
	}
	parts := Participants(b, selections, nil)

	attributed := map[string]float64{}
	for _, p := range parts {
		for _, share := range p.Items {
			attributed[share.ID] += share.Share
		}
	}
	counts := Occupancy(selections)
	for _, it := range b.Items {
		if counts[it.ID] == 0 {
			continue
		}
		require.InDelta(t, it.LineTotal(), attributed[it.ID], 1e-9,
			"item %s must split exactly across claimants", it.ID)
	}
}

func TestEqualTaxSumsToBillTax(t *testing.T) {
	b := twoItemBill(bill.DistributionEqual)
	selections := map[string][]string{"p1": {"A"}, "p2": {}, "p3": {"B"}}
	parts := Participants(b, selections, nil)
	var sum float64
	for _, p := range parts {
		sum += p.Tax
	}
	require.InDelta(t, b.Tax, sum, 1e-9)
}

func TestProportionalTaxSumsToBillTaxWhenFullyClaimed(t *testing.T) {
	b := twoItemBill(bill.DistributionProportional)
	selections := map[string][]string{"p1": {"A"}, "p2": {"B"}}
	parts := Participants(b, selections, nil)
	var sum float64
	for _, p := range parts {
		sum += p.Tax
	}
	require.InDelta(t, b.Tax, sum, 1e-9)
}

// A participant present in the session with zero claimed items still owes an
// equal share of tax and tip. Deliberate policy, do not "fix".
func TestEqualSplitChargesZeroClaimParticipants(t *testing.T) {
	b := twoItemBill(bill.DistributionEqual)
	selections := map[string][]string{"p1": {"A", "B"}, "p2": {}}
	parts := Participants(b, selections, nil)
	require.InDelta(t, 1.50, parts[1].Tax, 1e-9)
	require.InDelta(t, 0.0, parts[1].Subtotal, 1e-9)
	require.InDelta(t, 1.50, parts[1].Total, 1e-9)
}

func TestEmptySessionDoesNotDivideByZero(t *testing.T) {
	b := twoItemBill(bill.DistributionEqual)
	require.InDelta(t, 3.00, TaxOwed(b, 0, 0), 1e-9)
	require.Empty(t, Participants(b, map[string][]string{}, nil))
}

func TestProportionalZeroSubtotalBill(t *testing.T) {
	b, err := bill.Normalize(bill.Bill{
		Items:           []bill.Item{{ID: "X", Name: "Freebie", Price: 0, Quantity: 1}},
		Tax:             2.00,
		TaxDistribution: bill.DistributionProportional,
	})
	require.NoError(t, err)
	require.InDelta(t, 0, TaxOwed(b, 0, 1), 1e-9)
}

func TestUnclaimedItemExcludedFromEveryone(t *testing.T) {
	b := twoItemBill(bill.DistributionEqual)
	selections := map[string][]string{"p1": {"A"}}
	parts := Participants(b, selections, nil)
	require.InDelta(t, 10.00, parts[0].Subtotal, 1e-9)
	require.InDelta(t, 20.00, UnclaimedTotal(b, selections), 1e-9)
	// bill subtotal still counts the unclaimed item
	require.InDelta(t, 30.00, b.Subtotal, 1e-9)
}

func TestOccupancyIgnoresDuplicateClaims(t *testing.T) {
	counts := Occupancy(map[string][]string{"p1": {"A", "A"}, "p2": {"A"}})
	require.Equal(t, 2, counts["A"])
}

func TestIdempotentRecomputation(t *testing.T) {
	b := twoItemBill(bill.DistributionProportional)
	selections := map[string][]string{"p1": {"A"}, "p2": {"A", "B"}}
	first := Participants(b, selections, nil)
	second := Participants(b, selections, nil)
	require.Equal(t, first, second)
}

func TestDisplayNameFallback(t *testing.T) {
	b := twoItemBill(bill.DistributionEqual)
	parts := Participants(b, map[string][]string{"abcd1234": {"A"}}, nil)
	require.Equal(t, "Participant abcd", parts[0].Name)
}

func TestExportCSV(t *testing.T) {
	b := twoItemBill(bill.DistributionEqual)
	selections := map[string][]string{"p1": {"A"}, "p2": {"A", "B"}}
	names := map[string]string{"p1": "Ana", "p2": "Budi"}

	out, err := ExportCSV(b, selections, names)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Participant,Subtotal,Tax,Tip,Total", lines[0])
	require.Equal(t, "Ana,5.00,1.50,0.00,6.50", lines[1])
	require.Equal(t, "Budi,25.00,1.50,0.00,26.50", lines[2])
}
