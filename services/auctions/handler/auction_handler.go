package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	model "carbid/internal/models"
	"carbid/internal/notifier"
	"carbid/services/auctions/helpers"
	"carbid/utils"

	"github.com/gin-gonic/gin"
)

type AuctionServiceInterface interface {
	CreateAuction(carID, sellerID string, startPrice float64, durationHours int) (model.Auction, error)
	PlaceBid(auctionID, bidderID string, amount float64) (model.Bid, error)
}

type QueryServiceInterface interface {
	GetAuction(auctionID string) (model.AuctionView, error)
	ListLive() ([]model.AuctionView, error)
	ListEndingSoon(window time.Duration) ([]model.AuctionView, error)
	BidHistory(auctionID string) ([]model.Bid, error)
	MyBids(userID string) ([]model.UserBidView, error)
	WonAuctions(userID string) ([]model.WonAuctionView, error)
}

type AuctionHandler struct {
	auctions AuctionServiceInterface
	queries  QueryServiceInterface
	hub      *notifier.Hub
}

func NewAuctionHandler(auctions AuctionServiceInterface, queries QueryServiceInterface, hub *notifier.Hub) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, queries: queries, hub: hub}
}

// StartAuctionHandler handles POST /auctions
func (h *AuctionHandler) StartAuctionHandler(c *gin.Context) {
	var req helpers.StartAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "StartAuctionHandler", err)
		return
	}

	sellerID := c.GetString("user_id")
	auction, err := h.auctions.CreateAuction(req.CarID, sellerID, req.StartPrice, req.DurationHours)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("StartAuctionHandler: failed to start auction", map[string]any{
			"handler":   "StartAuctionHandler",
			"car_id":    req.CarID,
			"seller_id": sellerID,
			"error":     err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewAuctionResponse(auction), "auction started successfully")
	helpers.LogSuccess("StartAuctionHandler", "auction started successfully", map[string]any{
		"auction_id":  auction.AuctionID,
		"car_id":      auction.CarID,
		"seller_id":   auction.SellerID,
		"start_price": auction.StartPrice,
		"end_time":    auction.EndTime,
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	bidderID := c.GetString("user_id")
	bid, err := h.auctions.PlaceBid(auctionID, bidderID, req.Amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("PlaceBidHandler: failed to place bid", map[string]any{
			"handler":    "PlaceBidHandler",
			"auction_id": auctionID,
			"bidder_id":  bidderID,
			"error":      err.Error(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount,
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	view, err := h.queries.GetAuction(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetAuctionHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, view, "auction retrieved successfully")
}

// ListLiveHandler handles GET /auctions/live
func (h *AuctionHandler) ListLiveHandler(c *gin.Context) {
	views, err := h.queries.ListLive()
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListLiveHandler: error listing live auctions", map[string]any{"error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, views, "live auctions retrieved successfully")
}

// ListEndingSoonHandler handles GET /auctions/ending-soon
func (h *AuctionHandler) ListEndingSoonHandler(c *gin.Context) {
	var query struct {
		WindowMinutes int `form:"window_minutes" binding:"omitempty,gt=0"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		helpers.HandleBindError(c, "ListEndingSoonHandler", err)
		return
	}

	window := time.Duration(query.WindowMinutes) * time.Minute
	views, err := h.queries.ListEndingSoon(window)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("ListEndingSoonHandler: error listing ending-soon auctions", map[string]any{"error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, views, "ending-soon auctions retrieved successfully")
}

// GetBidHistoryHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidHistoryHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.queries.BidHistory(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetBidHistoryHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	if bids == nil {
		bids = []model.Bid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidHistoryHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// GetMyBidsHandler handles GET /users/:user_id/bids
func (h *AuctionHandler) GetMyBidsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	views, err := h.queries.MyBids(userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetMyBidsHandler: error retrieving bids", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, views, "bids retrieved successfully")
	helpers.LogSuccess("GetMyBidsHandler", "bids retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(views),
	})
}

// GetWonAuctionsHandler handles GET /users/:user_id/won
func (h *AuctionHandler) GetWonAuctionsHandler(c *gin.Context) {
	userID := c.Param("user_id")
	views, err := h.queries.WonAuctions(userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("GetWonAuctionsHandler: error retrieving won auctions", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, views, "won auctions retrieved successfully")
	helpers.LogSuccess("GetWonAuctionsHandler", "won auctions retrieved successfully", map[string]any{
		"user_id": userID,
		"count":   len(views),
	})
}

// StreamAuctionHandler handles GET /auctions/:auction_id/stream. It holds
// the connection open and forwards the auction's bid events as SSE in
// commit order until the client disconnects.
func (h *AuctionHandler) StreamAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	if _, err := h.queries.GetAuction(auctionID); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		return
	}

	sub := h.hub.Subscribe(auctionID)
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	helpers.LogSuccess("StreamAuctionHandler", "subscriber attached", map[string]any{"auction_id": auctionID})

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("bid", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
