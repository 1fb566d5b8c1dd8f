package models

import "time"

// AuctionStatus is the lifecycle state of an auction. The transition is
// one-way: active -> ended.
type AuctionStatus string

const (
	AuctionActive AuctionStatus = "active"
	AuctionEnded  AuctionStatus = "ended"
)

// Car represents a vehicle listing owned by a seller. Listing CRUD lives
// outside this core; the auction engine only reads ownership.
type Car struct {
	CarID    string `json:"car_id"`
	SellerID string `json:"seller_id"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	Year     int    `json:"year"`
}

// Auction is a time-boxed sale for one car. CurrentPrice starts equal to
// StartPrice and is non-decreasing; Status only ever moves active -> ended.
type Auction struct {
	AuctionID    string        `json:"auction_id"`
	CarID        string        `json:"car_id"`
	SellerID     string        `json:"seller_id"`
	StartPrice   float64       `json:"start_price"`
	CurrentPrice float64       `json:"current_price"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Status       AuctionStatus `json:"status"`
}

// Bid represents a user's price offer against an active auction. Bids are
// append-only and immutable once recorded.
type Bid struct {
	BidID     string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// AuctionView is a read projection of an auction with derived fields.
type AuctionView struct {
	Auction
	BidCount int    `json:"bid_count"`
	TimeLeft string `json:"time_left"`
}

// UserBidView annotates one of a user's bids with its auction and whether
// the bid is currently winning or has been outbid.
type UserBidView struct {
	Bid
	Auction Auction `json:"auction"`
	Status  string  `json:"status"` // "winning" or "outbid"
}

// WonAuctionView pairs an ended auction with the bid that won it.
type WonAuctionView struct {
	Auction
	WinningBid Bid `json:"winning_bid"`
}
