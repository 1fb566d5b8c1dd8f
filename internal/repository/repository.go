package repository

import (
	"carbid/internal/auctionerrors"
	model "carbid/internal/models"
	"fmt"
	"sort"
	"sync"
	"time"
)

// AuctionStore owns auction records and their mutable state. Auctions are
// never deleted; the only mutations are the current price (bid acceptance)
// and the status flip to ended.
type AuctionStore interface {
	CreateAuction(auction model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	UpdateCurrentPrice(auctionID string, newPrice float64) error
	MarkEnded(auctionID string) error
	HasActiveAuctionForCar(carID string) (bool, error)
	ListActiveAuctions() ([]model.Auction, error)
	ListEndedAuctions() ([]model.Auction, error)
	ListExpiredActive(now time.Time) ([]model.Auction, error)
}

// BidLedger is the append-only record of bids. No method rewrites or
// removes a bid.
type BidLedger interface {
	AppendBid(bid model.Bid) error
	BidsByAuction(auctionID string) ([]model.Bid, error)
	BidsByUser(userID string) ([]model.Bid, error)
	CountByAuction(auctionID string) (int, error)
	WinningBid(auctionID string) (model.Bid, error)
}

// CarCatalog is the external car-listing collaborator. The auction core
// only needs ownership lookups from it.
type CarCatalog interface {
	GetCar(carID string) (model.Car, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of
// AuctionStore and BidLedger.
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction // key: auctionID
	bids     map[string][]model.Bid   // key: auctionID -> bids in commit order
	userBids map[string][]model.Bid   // key: userID -> bids in commit order
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]model.Auction),
		bids:     make(map[string][]model.Bid),
		userBids: make(map[string][]model.Bid),
	}
}

// CreateAuction persists a new auction record.
func (r *MemoryRepo) CreateAuction(auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w - auction id already exists", auction.AuctionID, auctionerrors.ErrValidation)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns the auction with the given id.
func (r *MemoryRepo) GetAuction(auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// UpdateCurrentPrice writes a new current price. Validation happens in the
// service before this is called; the write itself is unconditional.
func (r *MemoryRepo) UpdateCurrentPrice(auctionID string, newPrice float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("update price for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	auction.CurrentPrice = newPrice
	r.auctions[auctionID] = auction
	return nil
}

// MarkEnded flips an auction to ended. Ending an already-ended auction is
// a no-op, not an error.
func (r *MemoryRepo) MarkEnded(auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("mark auction %s ended: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if auction.Status == model.AuctionEnded {
		return nil
	}
	auction.Status = model.AuctionEnded
	r.auctions[auctionID] = auction
	return nil
}

// HasActiveAuctionForCar reports whether the car is already under an
// active auction.
func (r *MemoryRepo) HasActiveAuctionForCar(carID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, auction := range r.auctions {
		if auction.CarID == carID && auction.Status == model.AuctionActive {
			return true, nil
		}
	}
	return false, nil
}

// ListActiveAuctions returns all auctions with status active, ordered by
// ascending end time.
func (r *MemoryRepo) ListActiveAuctions() ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []model.Auction
	for _, auction := range r.auctions {
		if auction.Status == model.AuctionActive {
			active = append(active, auction)
		}
	}
	sortByEndTime(active)
	return active, nil
}

// ListEndedAuctions returns all auctions with status ended, ordered by
// ascending end time.
func (r *MemoryRepo) ListEndedAuctions() ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ended []model.Auction
	for _, auction := range r.auctions {
		if auction.Status == model.AuctionEnded {
			ended = append(ended, auction)
		}
	}
	sortByEndTime(ended)
	return ended, nil
}

// ListExpiredActive returns active auctions whose end time is at or before
// now. These are the sweeper's candidates.
func (r *MemoryRepo) ListExpiredActive(now time.Time) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []model.Auction
	for _, auction := range r.auctions {
		if auction.Status == model.AuctionActive && !auction.EndTime.After(now) {
			expired = append(expired, auction)
		}
	}
	sortByEndTime(expired)
	return expired, nil
}

// AppendBid records a bid against an auction. The ledger is append-only.
func (r *MemoryRepo) AppendBid(bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("append bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	r.userBids[bid.BidderID] = append(r.userBids[bid.BidderID], bid)
	return nil
}

// BidsByAuction returns all bids for an auction in commit order.
func (r *MemoryRepo) BidsByAuction(auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return append([]model.Bid(nil), bids...), nil
}

// BidsByUser returns all bids placed by a user in commit order.
func (r *MemoryRepo) BidsByUser(userID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.userBids[userID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for user %s: %w", userID, auctionerrors.ErrNoBids)
	}
	return append([]model.Bid(nil), bids...), nil
}

// CountByAuction returns the number of bids recorded for an auction.
func (r *MemoryRepo) CountByAuction(auctionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bids[auctionID]), nil
}

// WinningBid returns the highest bid for an auction; on equal amounts the
// earliest bid wins.
func (r *MemoryRepo) WinningBid(auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids, ok := r.bids[auctionID]
	if !ok || len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}

	winning := bids[0]
	for _, b := range bids[1:] {
		if b.Amount > winning.Amount || (b.Amount == winning.Amount && b.CreatedAt.Before(winning.CreatedAt)) {
			winning = b
		}
	}
	return winning, nil
}

func sortByEndTime(auctions []model.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].EndTime.Before(auctions[j].EndTime)
	})
}

// MemoryCarCatalog is an in-memory stand-in for the external car-listing
// service.
type MemoryCarCatalog struct {
	mu   sync.RWMutex
	cars map[string]model.Car
}

// NewMemoryCarCatalog creates an empty in-memory car catalog.
func NewMemoryCarCatalog() *MemoryCarCatalog {
	return &MemoryCarCatalog{cars: make(map[string]model.Car)}
}

// GetCar returns the car with the given id.
func (c *MemoryCarCatalog) GetCar(carID string) (model.Car, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	car, ok := c.cars[carID]
	if !ok {
		return model.Car{}, fmt.Errorf("get car %s: %w", carID, auctionerrors.ErrCarNotFound)
	}
	return car, nil
}

// AddCar adds a car to the catalog. Used for startup seeding and tests.
func (c *MemoryCarCatalog) AddCar(car model.Car) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cars[car.CarID] = car
}
