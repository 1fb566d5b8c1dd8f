package repository

import (
	"carbid/internal/auctionerrors"
	model "carbid/internal/models"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Helper to create a new Auction
func newAuction(auctionID, carID, sellerID string, startPrice float64, endsIn time.Duration, status model.AuctionStatus) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:    auctionID,
		CarID:        carID,
		SellerID:     sellerID,
		StartPrice:   startPrice,
		CurrentPrice: startPrice,
		StartTime:    now.Add(endsIn - 24*time.Hour),
		EndTime:      now.Add(endsIn),
		Status:       status,
	}
}

// Helper to create a new Bid
func newBid(bidID, auctionID, bidderID string, amount float64, createdAt time.Time) model.Bid {
	return model.Bid{
		BidID:     bidID,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: createdAt,
	}
}

// Test CreateAuction and GetAuction
func TestMemoryRepo_CreateAndGetAuction(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	auction := newAuction("auction1", "car1", "seller1", 1000, time.Hour, model.AuctionActive)

	require.NoError(t, repo.CreateAuction(auction))

	got, err := repo.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, auction, got)

	// Duplicate id is rejected
	err = repo.CreateAuction(auction)
	require.Error(t, err)
	require.True(t, errors.Is(err, auctionerrors.ErrValidation))

	// Missing auction
	_, err = repo.GetAuction("nonexistent")
	require.True(t, errors.Is(err, auctionerrors.ErrAuctionNotFound))
}

// Test UpdateCurrentPrice
func TestMemoryRepo_UpdateCurrentPrice(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(newAuction("auction1", "car1", "seller1", 1000, time.Hour, model.AuctionActive)))

	require.NoError(t, repo.UpdateCurrentPrice("auction1", 1100))

	got, err := repo.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, 1100.0, got.CurrentPrice)
	require.Equal(t, 1000.0, got.StartPrice)

	err = repo.UpdateCurrentPrice("nonexistent", 500)
	require.True(t, errors.Is(err, auctionerrors.ErrAuctionNotFound))
}

// Test MarkEnded idempotency
func TestMemoryRepo_MarkEnded(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(newAuction("auction1", "car1", "seller1", 1000, time.Hour, model.AuctionActive)))

	require.NoError(t, repo.MarkEnded("auction1"))
	got, err := repo.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, model.AuctionEnded, got.Status)

	// Ending an already-ended auction is a no-op, not an error
	require.NoError(t, repo.MarkEnded("auction1"))
	got, err = repo.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, model.AuctionEnded, got.Status)

	err = repo.MarkEnded("nonexistent")
	require.True(t, errors.Is(err, auctionerrors.ErrAuctionNotFound))
}

// Test HasActiveAuctionForCar
func TestMemoryRepo_HasActiveAuctionForCar(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(newAuction("auction1", "car1", "seller1", 1000, time.Hour, model.AuctionActive)))
	require.NoError(t, repo.CreateAuction(newAuction("auction2", "car2", "seller1", 500, time.Hour, model.AuctionEnded)))

	tests := []struct {
		name  string
		carID string
		want  bool
	}{
		{name: "car_with_active_auction", carID: "car1", want: true},
		{name: "car_with_ended_auction_only", carID: "car2", want: false},
		{name: "car_without_auction", carID: "car3", want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := repo.HasActiveAuctionForCar(tc.carID)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// Test listing methods and their ordering
func TestMemoryRepo_Listings(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	// Created out of end-time order on purpose
	require.NoError(t, repo.CreateAuction(newAuction("later", "car1", "seller1", 100, 3*time.Hour, model.AuctionActive)))
	require.NoError(t, repo.CreateAuction(newAuction("sooner", "car2", "seller1", 100, 1*time.Hour, model.AuctionActive)))
	require.NoError(t, repo.CreateAuction(newAuction("expired", "car3", "seller2", 100, -10*time.Minute, model.AuctionActive)))
	require.NoError(t, repo.CreateAuction(newAuction("done", "car4", "seller2", 100, -1*time.Hour, model.AuctionEnded)))

	active, err := repo.ListActiveAuctions()
	require.NoError(t, err)
	require.Len(t, active, 3)
	require.Equal(t, "expired", active[0].AuctionID)
	require.Equal(t, "sooner", active[1].AuctionID)
	require.Equal(t, "later", active[2].AuctionID)

	ended, err := repo.ListEndedAuctions()
	require.NoError(t, err)
	require.Len(t, ended, 1)
	require.Equal(t, "done", ended[0].AuctionID)

	expired, err := repo.ListExpiredActive(time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "expired", expired[0].AuctionID)

	// A future cutoff catches auctions that have not expired yet
	expired, err = repo.ListExpiredActive(time.Now().UTC().Add(2 * time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 2)
}

// Test AppendBid
func TestMemoryRepo_AppendBid(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(newAuction("auction1", "car1", "seller1", 1000, time.Hour, model.AuctionActive)))

	tests := []struct {
		name      string
		bid       model.Bid
		wantError bool
	}{
		{name: "valid_bid", bid: newBid("bid1", "auction1", "user1", 1100, time.Now()), wantError: false},
		{name: "auction_not_found", bid: newBid("bid2", "auctionX", "user1", 1100, time.Now()), wantError: true},
		{name: "empty_auctionID", bid: newBid("bid3", "", "user1", 1100, time.Now()), wantError: true},
		{name: "second_bid_same_user", bid: newBid("bid4", "auction1", "user1", 1200, time.Now()), wantError: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := repo.AppendBid(tc.bid)
			if tc.wantError {
				require.Error(t, err)
				require.True(t, errors.Is(err, auctionerrors.ErrAuctionNotFound))
			} else {
				require.NoError(t, err)
				bids, err := repo.BidsByAuction(tc.bid.AuctionID)
				require.NoError(t, err)
				require.Contains(t, bids, tc.bid)
			}
		})
	}

	count, err := repo.CountByAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = repo.CountByAuction("no-bids")
	require.NoError(t, err)
	require.Equal(t, 0, count)

	userBids, err := repo.BidsByUser("user1")
	require.NoError(t, err)
	require.Len(t, userBids, 2)

	_, err = repo.BidsByUser("stranger")
	require.True(t, errors.Is(err, auctionerrors.ErrNoBids))
}

// Test WinningBid: highest amount wins, earliest timestamp breaks ties
func TestMemoryRepo_WinningBid(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(newAuction("auction1", "car1", "seller1", 1000, time.Hour, model.AuctionActive)))

	_, err := repo.WinningBid("auction1")
	require.True(t, errors.Is(err, auctionerrors.ErrNoBids))

	now := time.Now().UTC()
	require.NoError(t, repo.AppendBid(newBid("bid1", "auction1", "user1", 1100, now)))
	require.NoError(t, repo.AppendBid(newBid("bid2", "auction1", "user2", 1300, now.Add(time.Second))))
	require.NoError(t, repo.AppendBid(newBid("bid3", "auction1", "user3", 1300, now.Add(2*time.Second))))

	winning, err := repo.WinningBid("auction1")
	require.NoError(t, err)
	require.Equal(t, "bid2", winning.BidID, "earliest of the equal highest bids should win")
}

// Test the in-memory car catalog
func TestMemoryCarCatalog(t *testing.T) {
	t.Parallel()

	catalog := NewMemoryCarCatalog()
	car := model.Car{CarID: "car1", SellerID: "seller1", Make: "Toyota", Model: "Corolla", Year: 2019}
	catalog.AddCar(car)

	got, err := catalog.GetCar("car1")
	require.NoError(t, err)
	require.Equal(t, car, got)

	_, err = catalog.GetCar("nonexistent")
	require.True(t, errors.Is(err, auctionerrors.ErrCarNotFound))
}
