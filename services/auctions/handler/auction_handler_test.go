package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carbid/internal/auctionerrors"
	model "carbid/internal/models"
	"carbid/internal/notifier"
	"carbid/services/auctions/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// setUser injects a caller identity the way the identity middleware does.
func setUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

func performRequest(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return resp, w
}

// Test StartAuctionHandler
func TestStartAuctionHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuctions := NewMockAuctionServiceInterface(ctrl)
	mockQueries := NewMockQueryServiceInterface(ctrl)
	h := NewAuctionHandler(mockAuctions, mockQueries, notifier.NewHub())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auctions", setUser("seller1"), h.StartAuctionHandler)

	now := time.Now().UTC()

	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success_valid_auction",
			requestBody: helpers.StartAuctionRequest{
				CarID:         "car1",
				StartPrice:    1000,
				DurationHours: 24,
			},
			mockSetup: func() {
				mockAuctions.EXPECT().
					CreateAuction("car1", "seller1", 1000.0, 24).
					Return(model.Auction{
						AuctionID:    uuid.NewString(),
						CarID:        "car1",
						SellerID:     "seller1",
						StartPrice:   1000,
						CurrentPrice: 1000,
						StartTime:    now,
						EndTime:      now.Add(24 * time.Hour),
						Status:       model.AuctionActive,
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "auction started successfully",
		},
		{
			name:           "invalid_json",
			requestBody:    `{invalid json}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "missing_car_id",
			requestBody: helpers.StartAuctionRequest{
				StartPrice:    1000,
				DurationHours: 24,
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "duration_out_of_range",
			requestBody: helpers.StartAuctionRequest{
				CarID:         "car1",
				StartPrice:    1000,
				DurationHours: 200,
			},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "car_not_owned",
			requestBody: helpers.StartAuctionRequest{
				CarID:         "car1",
				StartPrice:    1000,
				DurationHours: 24,
			},
			mockSetup: func() {
				mockAuctions.EXPECT().
					CreateAuction("car1", "seller1", 1000.0, 24).
					Return(model.Auction{}, fmt.Errorf("service: %w", auctionerrors.ErrOwnership))
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "car is not owned by caller",
		},
		{
			name: "car_already_in_auction",
			requestBody: helpers.StartAuctionRequest{
				CarID:         "car1",
				StartPrice:    1000,
				DurationHours: 24,
			},
			mockSetup: func() {
				mockAuctions.EXPECT().
					CreateAuction("car1", "seller1", 1000.0, 24).
					Return(model.Auction{}, fmt.Errorf("service: %w", auctionerrors.ErrConflict))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "car already has an active auction",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			resp, w := performRequest(t, router, http.MethodPost, "/auctions", tc.requestBody)
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedMsg, resp["message"])

			if tc.expectedStatus == http.StatusCreated {
				data := resp["data"].(map[string]any)
				require.Equal(t, "car1", data["car_id"])
				require.Equal(t, "seller1", data["seller_id"])
				require.Equal(t, 1000.0, data["current_price"])
				require.Equal(t, "active", data["status"])
				_, err := time.Parse(time.RFC3339, data["end_time"].(string))
				require.NoError(t, err)
			}
		})
	}
}

// Test PlaceBidHandler
func TestPlaceBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuctions := NewMockAuctionServiceInterface(ctrl)
	mockQueries := NewMockQueryServiceInterface(ctrl)
	h := NewAuctionHandler(mockAuctions, mockQueries, notifier.NewHub())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auctions/:auction_id/bids", setUser("user1"), h.PlaceBidHandler)

	now := time.Now().UTC()

	tests := []struct {
		name           string
		url            string
		requestBody    any
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:        "success_valid_bid",
			url:         "/auctions/auction1/bids",
			requestBody: helpers.PlaceBidRequest{Amount: 1100},
			mockSetup: func() {
				mockAuctions.EXPECT().
					PlaceBid("auction1", "user1", 1100.0).
					Return(model.Bid{
						BidID:     uuid.NewString(),
						AuctionID: "auction1",
						BidderID:  "user1",
						Amount:    1100,
						CreatedAt: now,
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid placed successfully",
		},
		{
			name:           "invalid_json",
			url:            "/auctions/auction1/bids",
			requestBody:    `{amount: nope}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "zero_amount",
			url:            "/auctions/auction1/bids",
			requestBody:    helpers.PlaceBidRequest{Amount: 0},
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "auction_not_found",
			url:         "/auctions/auctionX/bids",
			requestBody: helpers.PlaceBidRequest{Amount: 1100},
			mockSetup: func() {
				mockAuctions.EXPECT().
					PlaceBid("auctionX", "user1", 1100.0).
					Return(model.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrAuctionNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "auction not found",
		},
		{
			name:        "auction_ended",
			url:         "/auctions/auction1/bids",
			requestBody: helpers.PlaceBidRequest{Amount: 1100},
			mockSetup: func() {
				mockAuctions.EXPECT().
					PlaceBid("auction1", "user1", 1100.0).
					Return(model.Bid{}, fmt.Errorf("service: %w", auctionerrors.ErrAuctionEnded))
			},
			expectedStatus: http.StatusGone,
			expectedMsg:    "auction has ended",
		},
		{
			name:        "bid_too_low",
			url:         "/auctions/auction1/bids",
			requestBody: helpers.PlaceBidRequest{Amount: 1100},
			mockSetup: func() {
				mockAuctions.EXPECT().
					PlaceBid("auction1", "user1", 1100.0).
					Return(model.Bid{}, fmt.Errorf("service: %w - current price is 1200.00", auctionerrors.ErrBidTooLow))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "bid amount too low",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			resp, w := performRequest(t, router, http.MethodPost, tc.url, tc.requestBody)
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedMsg, resp["message"])

			if tc.expectedStatus == http.StatusCreated {
				data := resp["data"].(map[string]any)
				require.Equal(t, "auction1", data["auction_id"])
				require.Equal(t, "user1", data["bidder_id"])
				require.Equal(t, 1100.0, data["amount"])
			}

			if tc.name == "bid_too_low" {
				require.Contains(t, resp["error"], "1200.00", "rejection must report the price to beat")
			}
		})
	}
}

// Test the read-side handlers
func TestQueryHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuctions := NewMockAuctionServiceInterface(ctrl)
	mockQueries := NewMockQueryServiceInterface(ctrl)
	h := NewAuctionHandler(mockAuctions, mockQueries, notifier.NewHub())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/auctions/live", h.ListLiveHandler)
	router.GET("/auctions/ending-soon", h.ListEndingSoonHandler)
	router.GET("/auctions/:auction_id", h.GetAuctionHandler)
	router.GET("/auctions/:auction_id/bids", h.GetBidHistoryHandler)
	router.GET("/users/:user_id/bids", h.GetMyBidsHandler)
	router.GET("/users/:user_id/won", h.GetWonAuctionsHandler)

	now := time.Now().UTC()
	liveView := model.AuctionView{
		Auction: model.Auction{
			AuctionID:    "auction1",
			CarID:        "car1",
			SellerID:     "seller1",
			StartPrice:   1000,
			CurrentPrice: 1100,
			StartTime:    now.Add(-time.Hour),
			EndTime:      now.Add(45 * time.Minute),
			Status:       model.AuctionActive,
		},
		BidCount: 1,
		TimeLeft: "45m left",
	}

	t.Run("list_live", func(t *testing.T) {
		mockQueries.EXPECT().ListLive().Return([]model.AuctionView{liveView}, nil)

		resp, w := performRequest(t, router, http.MethodGet, "/auctions/live", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := resp["data"].([]any)
		require.Len(t, data, 1)
		view := data[0].(map[string]any)
		require.Equal(t, "auction1", view["auction_id"])
		require.Equal(t, "45m left", view["time_left"])
		require.Equal(t, 1.0, view["bid_count"])
	})

	t.Run("ending_soon_passes_window", func(t *testing.T) {
		mockQueries.EXPECT().ListEndingSoon(30 * time.Minute).Return([]model.AuctionView{}, nil)

		resp, w := performRequest(t, router, http.MethodGet, "/auctions/ending-soon?window_minutes=30", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, resp["data"])
	})

	t.Run("ending_soon_default_window", func(t *testing.T) {
		mockQueries.EXPECT().ListEndingSoon(time.Duration(0)).Return([]model.AuctionView{}, nil)

		_, w := performRequest(t, router, http.MethodGet, "/auctions/ending-soon", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("get_auction_found", func(t *testing.T) {
		mockQueries.EXPECT().GetAuction("auction1").Return(liveView, nil)

		resp, w := performRequest(t, router, http.MethodGet, "/auctions/auction1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := resp["data"].(map[string]any)
		require.Equal(t, "auction1", data["auction_id"])
	})

	t.Run("get_auction_not_found", func(t *testing.T) {
		mockQueries.EXPECT().GetAuction("missing").
			Return(model.AuctionView{}, fmt.Errorf("service: %w", auctionerrors.ErrAuctionNotFound))

		resp, w := performRequest(t, router, http.MethodGet, "/auctions/missing", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, "auction not found", resp["message"])
	})

	t.Run("bid_history_empty", func(t *testing.T) {
		mockQueries.EXPECT().BidHistory("auction1").Return([]model.Bid{}, nil)

		resp, w := performRequest(t, router, http.MethodGet, "/auctions/auction1/bids", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, resp["data"])
	})

	t.Run("my_bids", func(t *testing.T) {
		mockQueries.EXPECT().MyBids("user1").Return([]model.UserBidView{
			{
				Bid:     model.Bid{BidID: "bid1", AuctionID: "auction1", BidderID: "user1", Amount: 1100, CreatedAt: now},
				Auction: liveView.Auction,
				Status:  "winning",
			},
		}, nil)

		resp, w := performRequest(t, router, http.MethodGet, "/users/user1/bids", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := resp["data"].([]any)
		require.Len(t, data, 1)
		require.Equal(t, "winning", data[0].(map[string]any)["status"])
	})

	t.Run("won_auctions", func(t *testing.T) {
		ended := liveView.Auction
		ended.Status = model.AuctionEnded
		mockQueries.EXPECT().WonAuctions("user1").Return([]model.WonAuctionView{
			{
				Auction:    ended,
				WinningBid: model.Bid{BidID: "bid1", AuctionID: "auction1", BidderID: "user1", Amount: 1100, CreatedAt: now},
			},
		}, nil)

		resp, w := performRequest(t, router, http.MethodGet, "/users/user1/won", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := resp["data"].([]any)
		require.Len(t, data, 1)
		won := data[0].(map[string]any)
		require.Equal(t, "ended", won["status"])
		require.Equal(t, "user1", won["winning_bid"].(map[string]any)["bidder_id"])
	})
}
