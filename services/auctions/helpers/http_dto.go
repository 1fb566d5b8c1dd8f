package helpers

// Request/Response DTOs
type StartAuctionRequest struct {
	CarID         string  `json:"car_id" binding:"required"`
	StartPrice    float64 `json:"start_price" binding:"required,gt=0"`
	DurationHours int     `json:"duration_hours" binding:"required,gt=0,lte=168"`
}

type PlaceBidRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type AuctionResponse struct {
	AuctionID    string  `json:"auction_id"`
	CarID        string  `json:"car_id"`
	SellerID     string  `json:"seller_id"`
	StartPrice   float64 `json:"start_price"`
	CurrentPrice float64 `json:"current_price"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	Status       string  `json:"status"`
}

type BidResponse struct {
	BidID     string  `json:"bid_id"`
	AuctionID string  `json:"auction_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	CreatedAt string  `json:"created_at"`
}
