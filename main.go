package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	auction "carbid/internal/auctionService"
	"carbid/internal/config"
	model "carbid/internal/models"
	"carbid/internal/notifier"
	query "carbid/internal/queryService"
	"carbid/internal/repository"
	"carbid/internal/server"
	"carbid/internal/sweeper"
	"carbid/utils"
)

func main() {
	cfg := config.Load()

	repo := repository.NewMemoryRepo()
	catalog := repository.NewMemoryCarCatalog()
	prepopulateCars(catalog)

	hub := notifier.NewHub()
	var notif notifier.Notifier = hub
	if cfg.AMQPURL != "" {
		amqpPub := notifier.NewAMQPPublisher(cfg.AMQPURL)
		defer amqpPub.Close()
		notif = notifier.Fanout{hub, amqpPub}
	}

	auctionSvc := auction.NewAuctionService(repo, repo, catalog, notif)
	querySvc := query.NewQueryService(repo, repo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweeper.New(auctionSvc, cfg.SweepInterval).Run(ctx)

	router := server.SetupRouter(auctionSvc, querySvc, hub, server.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     config.NewRedisClient(),
		CacheTTL:  cfg.CacheTTL,
	})

	port := ":" + cfg.Port
	fmt.Printf("Starting auction server on %s...\n", port)
	if err := router.Run(port); err != nil {
		utils.Fatal("Failed to start server", map[string]any{"error": err.Error()})
	}
}

// prepopulateCars seeds the in-memory car catalog standing in for the
// marketplace's listing service.
func prepopulateCars(catalog *repository.MemoryCarCatalog) {
	cars := []model.Car{
		{CarID: "car1", SellerID: "seller1", Make: "Toyota", Model: "Corolla", Year: 2019},
		{CarID: "car2", SellerID: "seller1", Make: "Volkswagen", Model: "Golf", Year: 2021},
		{CarID: "car3", SellerID: "seller2", Make: "BMW", Model: "320i", Year: 2018},
	}

	for _, car := range cars {
		catalog.AddCar(car)
	}
}
