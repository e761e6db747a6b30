package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/patungan/internal/bill"
)

func testStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Store{R: client, TTL: time.Hour}, mr
}

func testBill(t *testing.T) bill.Bill {
	t.Helper()
	b, err := bill.Normalize(bill.Bill{
		Items: []bill.Item{
			{ID: "item-a", Name: "Nasi Goreng", Price: 10, Quantity: 1},
			{ID: "item-b", Name: "Es Teh", Price: 20, Quantity: 1},
		},
		Tax:       3,
		IsReceipt: true,
	})
	require.NoError(t, err)
	return b
}

func TestStoreCreateAndGet(t *testing.T) {
	store, mr := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "s1", testBill(t)))

	rec, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rec.Bill.Items, 2)
	require.Equal(t, 33.0, rec.Bill.Total)
	require.Empty(t, rec.Selections)
	require.Empty(t, rec.Names)

	ttl := mr.TTL("session:s1")
	require.Equal(t, time.Hour, ttl)
}

func TestStoreGetMissing(t *testing.T) {
	store, _ := testStore(t)
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreExpiredSessionIsNotFound(t *testing.T) {
	store, mr := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "s1", testBill(t)))
	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "s1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSaveRefreshesTTL(t *testing.T) {
	store, mr := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "s1", testBill(t)))
	mr.FastForward(30 * time.Minute)

	require.NoError(t, store.SaveSelections(ctx, "s1", map[string][]string{"p1": {"item-a"}}))
	require.Equal(t, time.Hour, mr.TTL("session:s1"))

	rec, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, []string{"item-a"}, rec.Selections["p1"])
}

func TestStoreSaveParticipantsWritesBothFields(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "s1", testBill(t)))
	require.NoError(t, store.SaveParticipants(ctx, "s1",
		map[string][]string{"p1": {}},
		map[string]string{"p1": "Alice"},
	))

	rec, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "Alice", rec.Names["p1"])
	require.Empty(t, rec.Selections["p1"])
}
