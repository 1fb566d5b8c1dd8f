package auction

import (
	"carbid/internal/auctionerrors"
	"carbid/internal/models"
	"carbid/internal/notifier"
	"carbid/internal/repository"
	"carbid/utils"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Duration bounds for a new auction, in hours.
const (
	minDurationHours = 1
	maxDurationHours = 168
)

// AuctionService owns the bidding state machine. Every mutation of a
// single auction (bid acceptance, expiry) runs under that auction's mutex,
// so the read-compare-write on the current price can never race.
type AuctionService struct {
	store  repository.AuctionStore
	ledger repository.BidLedger
	cars   repository.CarCatalog
	notif  notifier.Notifier
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex // key: auctionID (or "car:"+carID for creation)
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(store repository.AuctionStore, ledger repository.BidLedger, cars repository.CarCatalog, notif notifier.Notifier) *AuctionService {
	return &AuctionService{
		store:  store,
		ledger: ledger,
		cars:   cars,
		notif:  notif,
		now:    func() time.Time { return time.Now().UTC() },
		locks:  make(map[string]*sync.Mutex),
	}
}

// CreateAuction opens an active auction for a car after verifying
// ownership and the absence of a conflicting active auction. The current
// price starts equal to the start price; the first bid must exceed it.
func (s *AuctionService) CreateAuction(carID, sellerID string, startPrice float64, durationHours int) (models.Auction, error) {
	if carID == "" || sellerID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing carID or sellerID", auctionerrors.ErrValidation)
	}
	if startPrice <= 0 {
		return models.Auction{}, fmt.Errorf("service: %w - non-positive start price", auctionerrors.ErrValidation)
	}
	if durationHours < minDurationHours || durationHours > maxDurationHours {
		return models.Auction{}, fmt.Errorf("service: %w - duration must be between %d and %d hours", auctionerrors.ErrValidation, minDurationHours, maxDurationHours)
	}

	car, err := s.cars.GetCar(carID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to look up car %s: %w", carID, err)
	}
	if car.SellerID != sellerID {
		return models.Auction{}, fmt.Errorf("service: %w - car %s belongs to another seller", auctionerrors.ErrOwnership, carID)
	}

	// Serialize creation per car so two concurrent requests cannot both
	// pass the conflict check.
	lock := s.lockFor("car:" + carID)
	lock.Lock()
	defer lock.Unlock()

	active, err := s.store.HasActiveAuctionForCar(carID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to check active auction for car %s: %w", carID, err)
	}
	if active {
		return models.Auction{}, fmt.Errorf("service: %w - car %s", auctionerrors.ErrConflict, carID)
	}

	now := s.now()
	auction := models.Auction{
		AuctionID:    utils.GenerateID(),
		CarID:        carID,
		SellerID:     sellerID,
		StartPrice:   startPrice,
		CurrentPrice: startPrice,
		StartTime:    now,
		EndTime:      now.Add(time.Duration(durationHours) * time.Hour),
		Status:       models.AuctionActive,
	}

	if err := s.store.CreateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction for car %s: %w", carID, err)
	}

	return auction, nil
}

// PlaceBid validates and records a bid against an active auction. The
// validation re-reads the current price inside the auction's critical
// section, so of two concurrent bids only the one that still exceeds the
// committed price is admitted.
func (s *AuctionService) PlaceBid(auctionID, bidderID string, amount float64) (models.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrValidation)
	}
	if amount <= 0 {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrValidation)
	}

	lock := s.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	now := s.now()
	if auction.Status == models.AuctionEnded || now.After(auction.EndTime) {
		// Lazy expiry: the sweeper is authoritative, but an expired
		// auction seen at bid time is closed right away.
		if auction.Status == models.AuctionActive {
			if endErr := s.store.MarkEnded(auctionID); endErr != nil {
				utils.Warn("service: failed to lazily end expired auction", map[string]any{
					"auction_id": auctionID,
					"error":      endErr.Error(),
				})
			}
		}
		return models.Bid{}, fmt.Errorf("service: %w - auction %s", auctionerrors.ErrAuctionEnded, auctionID)
	}

	if !decimal.NewFromFloat(amount).GreaterThan(decimal.NewFromFloat(auction.CurrentPrice)) {
		return models.Bid{}, fmt.Errorf("service: %w - current price is %.2f", auctionerrors.ErrBidTooLow, auction.CurrentPrice)
	}

	bid := models.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}

	if err := s.ledger.AppendBid(bid); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to record bid for auction %s by user %s: %w", auctionID, bidderID, err)
	}
	if err := s.store.UpdateCurrentPrice(auctionID, amount); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to update price for auction %s: %w", auctionID, err)
	}

	// Broadcast only after both writes are durable. A lost event is
	// acceptable; a phantom one is not.
	s.notif.BroadcastBid(notifier.BidEvent{
		AuctionID: auctionID,
		NewBid:    amount,
		BidderID:  bidderID,
		CreatedAt: bid.CreatedAt,
	})

	return bid, nil
}

// CloseExpired ends every active auction whose end time is at or before
// now. Each auction is ended under the same mutex PlaceBid uses, so a bid
// losing the race against expiry is rejected rather than accepted late.
// Returns the number of auctions ended; individual failures are logged
// and left for the next sweep.
func (s *AuctionService) CloseExpired(now time.Time) (int, error) {
	expired, err := s.store.ListExpiredActive(now)
	if err != nil {
		return 0, fmt.Errorf("service: failed to list expired auctions: %w", err)
	}

	ended := 0
	for _, auction := range expired {
		lock := s.lockFor(auction.AuctionID)
		lock.Lock()
		err := s.store.MarkEnded(auction.AuctionID)
		lock.Unlock()

		if err != nil {
			if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
				continue
			}
			utils.Error("service: failed to end expired auction", map[string]any{
				"auction_id": auction.AuctionID,
				"error":      err.Error(),
			})
			continue
		}
		ended++
	}
	return ended, nil
}

// lockFor returns the mutex guarding one auction's mutations, creating it
// on first use. Locks are never removed: auctions are retained forever and
// a mutex is small.
func (s *AuctionService) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
