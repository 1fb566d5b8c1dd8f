package query

import (
	"carbid/internal/auctionerrors"
	"carbid/internal/models"
	"carbid/internal/repository"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultEndingSoonWindow is used when a caller does not narrow the
// ending-soon horizon itself.
const DefaultEndingSoonWindow = 60 * time.Minute

// QueryService builds read-only projections over the auction store and
// the bid ledger. It never mutates anything.
type QueryService struct {
	store  repository.AuctionStore
	ledger repository.BidLedger
	now    func() time.Time
}

// NewQueryService creates a new QueryService instance
func NewQueryService(store repository.AuctionStore, ledger repository.BidLedger) *QueryService {
	return &QueryService{
		store:  store,
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetAuction returns a single auction annotated with derived fields.
func (s *QueryService) GetAuction(auctionID string) (models.AuctionView, error) {
	if auctionID == "" {
		return models.AuctionView{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrValidation)
	}

	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return models.AuctionView{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return s.annotate(auction, s.now())
}

// ListLive returns auctions that have started and not yet expired,
// soonest-ending first.
func (s *QueryService) ListLive() ([]models.AuctionView, error) {
	return s.listActiveWithin(0)
}

// ListEndingSoon returns live auctions whose end time falls within the
// given window from now.
func (s *QueryService) ListEndingSoon(window time.Duration) ([]models.AuctionView, error) {
	if window <= 0 {
		window = DefaultEndingSoonWindow
	}
	return s.listActiveWithin(window)
}

// listActiveWithin lists live auctions; a non-zero window narrows the
// result to auctions ending within it.
func (s *QueryService) listActiveWithin(window time.Duration) ([]models.AuctionView, error) {
	auctions, err := s.store.ListActiveAuctions()
	if err != nil {
		return nil, fmt.Errorf("service: failed to list active auctions: %w", err)
	}

	now := s.now()
	views := make([]models.AuctionView, 0, len(auctions))
	for _, auction := range auctions {
		if auction.StartTime.After(now) || !auction.EndTime.After(now) {
			continue
		}
		if window > 0 && auction.EndTime.After(now.Add(window)) {
			continue
		}
		view, err := s.annotate(auction, now)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// BidHistory returns all bids for an auction in commit order. A missing
// or bidless auction yields an empty history.
func (s *QueryService) BidHistory(auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrValidation)
	}

	bids, err := s.ledger.BidsByAuction(auctionID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrNoBids) {
			return []models.Bid{}, nil
		}
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// MyBids returns all of a user's bids joined to their auctions, each
// marked winning (amount equals the auction's current price) or outbid.
func (s *QueryService) MyBids(userID string) ([]models.UserBidView, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrValidation)
	}

	bids, err := s.ledger.BidsByUser(userID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrNoBids) {
			return []models.UserBidView{}, nil
		}
		return nil, fmt.Errorf("service: failed to get bids for user %s: %w", userID, err)
	}

	views := make([]models.UserBidView, 0, len(bids))
	for _, bid := range bids {
		auction, err := s.store.GetAuction(bid.AuctionID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to load auction %s for bid %s: %w", bid.AuctionID, bid.BidID, err)
		}
		status := "outbid"
		if decimal.NewFromFloat(bid.Amount).Equal(decimal.NewFromFloat(auction.CurrentPrice)) {
			status = "winning"
		}
		views = append(views, models.UserBidView{Bid: bid, Auction: auction, Status: status})
	}
	return views, nil
}

// WonAuctions returns the ended auctions whose winning bid belongs to the
// user.
func (s *QueryService) WonAuctions(userID string) ([]models.WonAuctionView, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrValidation)
	}

	ended, err := s.store.ListEndedAuctions()
	if err != nil {
		return nil, fmt.Errorf("service: failed to list ended auctions: %w", err)
	}

	won := make([]models.WonAuctionView, 0)
	for _, auction := range ended {
		winning, err := s.ledger.WinningBid(auction.AuctionID)
		if err != nil {
			if errors.Is(err, auctionerrors.ErrNoBids) {
				continue
			}
			return nil, fmt.Errorf("service: failed to get winning bid for auction %s: %w", auction.AuctionID, err)
		}
		if winning.BidderID == userID {
			won = append(won, models.WonAuctionView{Auction: auction, WinningBid: winning})
		}
	}
	return won, nil
}

// annotate attaches bid count and formatted time remaining to an auction.
func (s *QueryService) annotate(auction models.Auction, now time.Time) (models.AuctionView, error) {
	count, err := s.ledger.CountByAuction(auction.AuctionID)
	if err != nil {
		return models.AuctionView{}, fmt.Errorf("service: failed to count bids for auction %s: %w", auction.AuctionID, err)
	}
	return models.AuctionView{
		Auction:  auction,
		BidCount: count,
		TimeLeft: FormatTimeLeft(auction.EndTime.Sub(now)),
	}, nil
}

// FormatTimeLeft renders a remaining duration in its coarsest applicable
// unit: "<m>m left" under an hour, "<h>h <m>m left" under a day, "<d>d
// left" otherwise. Negative input clamps to zero.
func FormatTimeLeft(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	minutes := int(remaining.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%dm left", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh %dm left", hours, minutes%60)
	}
	return fmt.Sprintf("%dd left", hours/24)
}
