package server

import (
	"time"

	auction "carbid/internal/auctionService"
	"carbid/internal/notifier"
	query "carbid/internal/queryService"
	handler "carbid/services/auctions/handler"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Options carries the edge-layer knobs: identity verification and the
// optional response cache for the public list endpoints.
type Options struct {
	JWTSecret string
	Cache     *redis.Client
	CacheTTL  time.Duration
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(auctionService *auction.AuctionService, queryService *query.QueryService, hub *notifier.Hub, opts Options) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(auctionService, queryService, hub)
	identity := IdentityMiddleware(opts.JWTSecret)
	cached := CacheMiddleware(opts.Cache, opts.CacheTTL)

	auctions := router.Group("/auctions")
	{
		auctions.POST("", identity, auctionHandler.StartAuctionHandler)
		auctions.GET("/live", cached, auctionHandler.ListLiveHandler)
		auctions.GET("/ending-soon", cached, auctionHandler.ListEndingSoonHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.GetBidHistoryHandler)
		auctions.GET("/:auction_id/stream", auctionHandler.StreamAuctionHandler)
		auctions.POST("/:auction_id/bids", identity, auctionHandler.PlaceBidHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/bids", auctionHandler.GetMyBidsHandler)
		users.GET("/:user_id/won", auctionHandler.GetWonAuctionsHandler)
	}

	return router
}
