package marketplace

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"electroCare/domain"
	"electroCare/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seller     = domain.Actor{ID: 10, Role: domain.RoleUser}
	buyer      = domain.Actor{ID: 11, Role: domain.RoleUser}
	otherBuyer = domain.Actor{ID: 12, Role: domain.RoleUser}
	technician = domain.Actor{ID: 20, Role: domain.RoleTechnician}
	shopOwner  = domain.Actor{ID: 30, Role: domain.RoleShop}
	admin      = domain.Actor{ID: 40, Role: domain.RoleAdmin}
)

type fixture struct {
	svc   *marketplaceService
	store *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	svc := NewMarketplaceService(store.DeviceSales(), store.Shops(), store.Wallets(), store.Sequences(), store.Transactor())
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local) }

	return &fixture{svc: svc, store: store}
}

func usedPhone(price int64) ListingInput {
	return ListingInput{DeviceName: "Pixel 6", Price: decimal.NewFromInt(price), Condition: domain.ConditionUsed, Category: "phones"}
}

func (f *fixture) post(t *testing.T, actor domain.Actor, in ListingInput) domain.DeviceSale {
	t.Helper()

	sale, err := f.svc.PostListing(context.Background(), actor, in)
	require.NoError(t, err)

	return sale
}

func (f *fixture) approved(t *testing.T) domain.DeviceSale {
	t.Helper()

	sale := f.post(t, seller, usedPhone(100))
	sale, err := f.svc.ApproveSale(context.Background(), sale.ID, admin, 0)
	require.NoError(t, err)

	return sale
}

func TestListingApprovalEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sale := f.post(t, seller, usedPhone(100))
	assert.Equal(t, domain.SaleStatusPending, sale.Status)
	assert.True(t, strings.HasPrefix(sale.SerialNumber, "U-"))

	feed, err := f.svc.ListListings(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, feed)

	got, err := f.svc.ApproveSale(ctx, sale.ID, technician, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusApproved, got.Status)
	assert.Equal(t, int64(10), got.PointsAwarded)

	wallet, err := f.store.Wallets().FindByUserID(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), wallet.Points)

	txs, err := f.store.Wallets().ListTransactions(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionPoints, txs[0].Type)
	assert.Equal(t, int64(10), txs[0].Points)
	assert.True(t, txs[0].Amount.IsZero(), "points do not move the balance")

	feed, err = f.svc.ListListings(ctx, "phones")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, sale.ID, feed[0].ID)

	_, err = f.svc.ApproveSale(ctx, sale.ID, technician, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPostListing(t *testing.T) {
	ctx := context.Background()

	t.Run("premium conditions need a privileged seller", func(t *testing.T) {
		f := newFixture(t)

		for _, cond := range []string{domain.ConditionNew, domain.ConditionRefurbished} {
			in := usedPhone(100)
			in.Condition = cond
			_, err := f.svc.PostListing(ctx, seller, in)
			assert.ErrorIs(t, err, domain.ErrForbidden, cond)
		}

		in := usedPhone(100)
		in.Condition = domain.ConditionRefurbished
		sale := f.post(t, shopOwner, in)
		assert.Equal(t, domain.SaleStatusApproved, sale.Status)
		assert.True(t, strings.HasPrefix(sale.SerialNumber, "R-"))
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)

		in := usedPhone(0)
		_, err := f.svc.PostListing(ctx, seller, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		in = usedPhone(100)
		in.Images = []string{"a", "b", "c", "d", "e", "f"}
		_, err = f.svc.PostListing(ctx, seller, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		in = usedPhone(100)
		in.Condition = "Broken"
		_, err = f.svc.PostListing(ctx, seller, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		in = usedPhone(100)
		in.DeviceName = " "
		_, err = f.svc.PostListing(ctx, seller, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		in = usedPhone(100)
		in.Price = decimal.RequireFromString("99.999")
		_, err = f.svc.PostListing(ctx, seller, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("serial numbers", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Shops().Create(ctx, &domain.Shop{OwnerID: shopOwner.ID, Name: "Downtown", Code: "DT", Location: "Nairobi CBD"}))

		online := f.post(t, seller, usedPhone(100))
		assert.Equal(t, "U-140325-ONLINE-001", online.SerialNumber)

		in := usedPhone(100)
		in.Location = "nairobi cbd"
		located := f.post(t, seller, in)
		assert.Equal(t, "U-140325-DT-002", located.SerialNumber)

		in = usedPhone(100)
		in.Condition = domain.ConditionNew
		own := f.post(t, shopOwner, in)
		assert.Equal(t, "N-140325-DT-003", own.SerialNumber)

		in = usedPhone(5)
		in.Condition = domain.ConditionUnusable
		scrap := f.post(t, seller, in)
		assert.Equal(t, "U-140325-ONLINE-004", scrap.SerialNumber)
	})

	t.Run("unusable listings never reach the public feed", func(t *testing.T) {
		f := newFixture(t)

		in := usedPhone(5)
		in.Condition = domain.ConditionUnusable
		scrap := f.post(t, admin, in)
		assert.Equal(t, domain.SaleStatusApproved, scrap.Status)

		pending := f.post(t, seller, in)

		feed, err := f.svc.ListListings(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, feed)

		queue, err := f.svc.ReviewQueue(ctx, technician)
		require.NoError(t, err)
		require.Len(t, queue, 1)
		assert.Equal(t, pending.ID, queue[0].ID)

		_, err = f.svc.ReviewQueue(ctx, seller)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		mine, err := f.svc.ListMine(ctx, seller.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 1)
	})
}

func TestReviewSale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sale := f.post(t, seller, usedPhone(100))

	_, err := f.svc.ApproveSale(ctx, sale.ID, seller, 5)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.ApproveSale(ctx, sale.ID, admin, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	rejected, err := f.svc.RejectSale(ctx, sale.ID, shopOwner, "blurry photos")
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusRejected, rejected.Status)
	assert.Equal(t, "blurry photos", rejected.RejectionReason)

	_, err = f.svc.ApproveSale(ctx, sale.ID, admin, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.store.Wallets().FindByUserID(ctx, seller.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "no points for rejected listings")
}

func TestPurchases(t *testing.T) {
	ctx := context.Background()

	t.Run("competing purchases", func(t *testing.T) {
		f := newFixture(t)
		sale := f.approved(t)

		first, err := f.svc.PurchaseListing(ctx, sale.ID, buyer, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.PurchasePending, first.Status)
		assert.True(t, first.Price.Equal(decimal.NewFromInt(100)))

		offer := decimal.NewFromInt(90)
		second, err := f.svc.PurchaseListing(ctx, sale.ID, otherBuyer, &offer)
		require.NoError(t, err)
		assert.True(t, second.Price.Equal(offer))

		approved, err := f.svc.ApprovePurchase(ctx, first.ID, admin)
		require.NoError(t, err)
		assert.Equal(t, domain.PurchaseApproved, approved.Status)

		got, err := f.store.DeviceSales().FindByID(ctx, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SaleStatusSold, got.Status)

		_, err = f.svc.ApprovePurchase(ctx, second.ID, admin)
		assert.ErrorIs(t, err, domain.ErrConflict)

		pending, err := f.svc.ListPurchases(ctx, domain.PurchasePending)
		require.NoError(t, err)
		require.Len(t, pending, 1, "failed approval leaves the purchase pending")
		assert.Equal(t, second.ID, pending[0].ID)

		rejected, err := f.svc.RejectPurchase(ctx, second.ID, admin)
		require.NoError(t, err)
		assert.Equal(t, domain.PurchaseRejected, rejected.Status)

		_, err = f.svc.PurchaseListing(ctx, sale.ID, otherBuyer, nil)
		assert.ErrorIs(t, err, domain.ErrConflict, "sold listings cannot be bought")
	})

	t.Run("guards", func(t *testing.T) {
		f := newFixture(t)

		pending := f.post(t, seller, usedPhone(100))
		_, err := f.svc.PurchaseListing(ctx, pending.ID, buyer, nil)
		assert.ErrorIs(t, err, domain.ErrConflict)

		sale := f.approved(t)
		_, err = f.svc.PurchaseListing(ctx, sale.ID, seller, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		zero := decimal.Zero
		_, err = f.svc.PurchaseListing(ctx, sale.ID, buyer, &zero)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		fraction := decimal.RequireFromString("90.005")
		_, err = f.svc.PurchaseListing(ctx, sale.ID, buyer, &fraction)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = f.svc.PurchaseListing(ctx, 9999, buyer, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		p, err := f.svc.PurchaseListing(ctx, sale.ID, buyer, nil)
		require.NoError(t, err)

		_, err = f.svc.ApprovePurchase(ctx, p.ID, technician)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = f.svc.RejectPurchase(ctx, p.ID, shopOwner)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		mine, err := f.svc.ListMyPurchases(ctx, buyer.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 1)
	})
}

func TestSerialSequenceIsUnique(t *testing.T) {
	f := newFixture(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		sale := f.post(t, seller, usedPhone(int64(i+1)))
		assert.False(t, seen[sale.SerialNumber], sale.SerialNumber)
		seen[sale.SerialNumber] = true
		assert.True(t, strings.HasSuffix(sale.SerialNumber, fmt.Sprintf("-%03d", i+1)))
	}
}

func TestCompletePurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sale := f.approved(t)
	p, err := f.svc.PurchaseListing(ctx, sale.ID, buyer, nil)
	require.NoError(t, err)

	_, err = f.svc.CompletePurchase(ctx, p.ID, buyer)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "not approved yet")

	_, err = f.svc.ApprovePurchase(ctx, p.ID, admin)
	require.NoError(t, err)

	_, err = f.svc.CompletePurchase(ctx, p.ID, seller)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	done, err := f.svc.CompletePurchase(ctx, p.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseCompleted, done.Status)

	_, err = f.svc.CompletePurchase(ctx, p.ID, buyer)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.CompletePurchase(ctx, 9999, buyer)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
