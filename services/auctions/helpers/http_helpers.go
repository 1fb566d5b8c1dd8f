package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"carbid/internal/auctionerrors"
	model "carbid/internal/models"
	"carbid/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrCarNotFound):
		return http.StatusNotFound, "car not found"
	case errors.Is(err, auctionerrors.ErrValidation):
		return http.StatusBadRequest, "invalid request details"
	case errors.Is(err, auctionerrors.ErrOwnership):
		return http.StatusForbidden, "car is not owned by caller"
	case errors.Is(err, auctionerrors.ErrConflict):
		return http.StatusConflict, "car already has an active auction"
	case errors.Is(err, auctionerrors.ErrAuctionEnded):
		return http.StatusGone, "auction has ended"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusOK, "no bids found"
	case errors.Is(err, auctionerrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// NewAuctionResponse converts an auction model into its response DTO.
func NewAuctionResponse(a model.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:    a.AuctionID,
		CarID:        a.CarID,
		SellerID:     a.SellerID,
		StartPrice:   a.StartPrice,
		CurrentPrice: a.CurrentPrice,
		StartTime:    a.StartTime.UTC().Format(time.RFC3339),
		EndTime:      a.EndTime.UTC().Format(time.RFC3339),
		Status:       string(a.Status),
	}
}

// NewBidResponse converts a bid model into its response DTO.
func NewBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
	}
}
