package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.cloudfoundry.org/clock"
	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"auction-platform/internal/api/handlers"
	"auction-platform/internal/api/middleware"
	"auction-platform/internal/config"
	"auction-platform/internal/infrastructure/leader"
	"auction-platform/internal/infrastructure/mysql"
	"auction-platform/internal/infrastructure/redis"
	"auction-platform/internal/infrastructure/websocket"
	"auction-platform/internal/services"
	"auction-platform/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info("Starting auction service")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to open MySQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Infrastructure
	store := mysql.NewStore(db)
	eventPublisher := redis.NewEventPublisher(rdb)
	eventSubscriber := redis.NewEventSubscriber(rdb, log)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)
	hub := websocket.NewHub(log)

	clk := clock.NewClock()

	// Services
	auctionManager := services.NewAuctionManager(store, clk, log)
	bidGate := services.NewBidGate(store, eventPublisher, clk, log)
	sweeper := services.NewStatusSweeper(auctionManager, leaderElection, cfg.Instance.ID, cfg.Sync.Schedule, log)
	eventListener := services.NewEventListener(hub, log)

	// Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
	}))

	auctionHandler := handlers.NewAuctionHandler(auctionManager, log)
	bidHandler := handlers.NewBidHandler(bidGate, log)
	wsHandler := handlers.NewWebSocketHandler(store, hub, log)

	authenticated := middleware.Authenticate(cfg.Auth.JWTSecret)

	api := e.Group("/api/v1")
	api.POST("/auctions", auctionHandler.CreateAuction, authenticated)
	api.GET("/auctions", auctionHandler.ListAuctions)
	api.GET("/auctions/ongoing", auctionHandler.ListOngoing)
	api.GET("/auctions/upcoming", auctionHandler.ListUpcoming)
	api.GET("/auctions/completed", auctionHandler.ListCompleted)
	api.GET("/auctions/:id", auctionHandler.GetAuction)
	api.PUT("/auctions/:id", auctionHandler.UpdateAuction, authenticated)
	api.DELETE("/auctions/:id", auctionHandler.DeleteAuction, authenticated)
	api.GET("/auctions/:id/bids", auctionHandler.ListBids)
	api.POST("/bids", bidHandler.PlaceBid, authenticated)

	e.GET("/ws/auctions/:id", wsHandler.HandleConnection)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-service",
			"timestamp": clk.Now().Format(time.RFC3339),
		})
	})

	// Background services
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	go func() {
		if err := eventListener.Start(bgCtx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	if err := sweeper.Start(bgCtx); err != nil {
		log.Error("Failed to start status sweeper", "error", err)
		os.Exit(1)
	}

	go func() {
		for {
			became, err := leaderElection.BecomeLeader(bgCtx, cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
			} else if became {
				log.Info("Became sweep leader", "instance_id", cfg.Instance.ID)
			}

			select {
			case <-bgCtx.Done():
				return
			case <-time.After(10 * time.Second):
			}
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()
	log.Info("Auction service listening", "address", serverAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction service")

	bgCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop status sweeper", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}

	hub.CloseAll()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction service stopped")
}
