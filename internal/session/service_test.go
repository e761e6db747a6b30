package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/patungan/internal/bill"
	"github.com/noah-isme/patungan/internal/lock"
)

func testService(t *testing.T) *Service {
	t.Helper()
	store, _ := testStore(t)
	return &Service{
		Store: store,
		Lock:  lock.Mutex{R: store.R, TTL: time.Second, RetryBackoff: time.Millisecond},
	}
}

func TestServiceCreateNormalizesBill(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, bill.Bill{
		Items:     []bill.Item{{Name: "Sate", Price: 25, Quantity: 2}},
		Tax:       5,
		IsReceipt: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	view, err := svc.View(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 50.0, view.Bill.Subtotal)
	require.Equal(t, 55.0, view.Bill.Total)
	require.NotEmpty(t, view.Bill.Items[0].ID)
	require.Equal(t, bill.DistributionEqual, view.Bill.TaxDistribution)
}

func TestServiceCreateRejectsInvalidBill(t *testing.T) {
	svc := testService(t)
	_, err := svc.Create(context.Background(), bill.Bill{})
	require.ErrorIs(t, err, bill.ErrInvalidBill)
}

func TestServiceJoinAndClaim(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, testBill(t))
	require.NoError(t, err)

	p1, err := svc.AddParticipant(ctx, id, "Alice")
	require.NoError(t, err)
	p2, err := svc.AddParticipant(ctx, id, "Budi")
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)

	require.NoError(t, svc.SetClaims(ctx, id, p1, []string{"item-a"}))
	require.NoError(t, svc.SetClaims(ctx, id, p2, []string{"item-a", "item-b"}))

	view, err := svc.View(ctx, id)
	require.NoError(t, err)
	require.Len(t, view.Participants, 2)
	require.Equal(t, 0.0, view.UnclaimedTotal)

	totals := map[string]float64{}
	for _, p := range view.Participants {
		totals[p.Name] = p.Total
	}
	// item-a is shared, item-b is Budi's alone, tax split equally.
	require.InDelta(t, 6.5, totals["Alice"], 1e-9)
	require.InDelta(t, 26.5, totals["Budi"], 1e-9)
}

func TestServiceSetClaimsUnknownItem(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, testBill(t))
	require.NoError(t, err)
	p1, err := svc.AddParticipant(ctx, id, "Alice")
	require.NoError(t, err)

	err = svc.SetClaims(ctx, id, p1, []string{"item-a", "bogus"})
	require.ErrorIs(t, err, ErrUnknownItem)

	// The failed update must not leave partial state behind.
	view, err := svc.View(ctx, id)
	require.NoError(t, err)
	require.Empty(t, view.Selections[p1])
}

func TestServiceSetClaimsReplacesAndDedups(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, testBill(t))
	require.NoError(t, err)
	p1, err := svc.AddParticipant(ctx, id, "Alice")
	require.NoError(t, err)

	require.NoError(t, svc.SetClaims(ctx, id, p1, []string{"item-a", "item-b", "item-a"}))
	view, err := svc.View(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []string{"item-a", "item-b"}, view.Selections[p1])

	// A full replace with the same set is a state no-op.
	require.NoError(t, svc.SetClaims(ctx, id, p1, []string{"item-a", "item-b"}))
	again, err := svc.View(ctx, id)
	require.NoError(t, err)
	require.Equal(t, view.Selections, again.Selections)

	// An empty replace releases every claim.
	require.NoError(t, svc.SetClaims(ctx, id, p1, nil))
	released, err := svc.View(ctx, id)
	require.NoError(t, err)
	require.Empty(t, released.Selections[p1])
	require.Equal(t, 30.0, released.UnclaimedTotal)
}

func TestServiceOperationsOnMissingSession(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	_, err := svc.View(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddParticipant(ctx, "missing", "Alice")
	require.ErrorIs(t, err, ErrNotFound)

	err = svc.SetClaims(ctx, "missing", "p1", []string{"item-a"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ExportCSV(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceExportCSV(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, testBill(t))
	require.NoError(t, err)
	p1, err := svc.AddParticipant(ctx, id, "Alice")
	require.NoError(t, err)
	require.NoError(t, svc.SetClaims(ctx, id, p1, []string{"item-a"}))

	out, err := svc.ExportCSV(ctx, id)
	require.NoError(t, err)
	require.Contains(t, string(out), "Participant,Subtotal,Tax,Tip,Total")
	require.Contains(t, string(out), "Alice")
}
