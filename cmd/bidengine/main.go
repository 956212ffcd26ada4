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

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/viru4/CraftCurio-sub000/internal/api/handlers"
	"github.com/viru4/CraftCurio-sub000/internal/config"
	"github.com/viru4/CraftCurio-sub000/internal/infrastructure/leader"
	"github.com/viru4/CraftCurio-sub000/internal/infrastructure/mysql"
	redisInfra "github.com/viru4/CraftCurio-sub000/internal/infrastructure/redis"
	"github.com/viru4/CraftCurio-sub000/internal/infrastructure/websocket"
	"github.com/viru4/CraftCurio-sub000/internal/services"
	"github.com/viru4/CraftCurio-sub000/internal/settlement"
	"github.com/viru4/CraftCurio-sub000/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info("Starting bid engine")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Redis
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

	// MySQL
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

	// Stores
	auctionStore := mysql.NewAuctionStore(db)
	notificationStore := mysql.NewNotificationStore(db)
	orderStore := mysql.NewOrderStore(db)

	// Redis-backed components
	stateCache := redisInfra.NewStateCache(rdb)
	eventPublisher := redisInfra.NewEventPublisher(rdb)
	eventSubscriber := redisInfra.NewEventSubscriber(rdb, log)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	// Websocket registry and notifier
	connManager := websocket.NewConnectionManager(log)
	notifier := websocket.NewNotifier(connManager)

	// Settlement boundary
	settlementClient := settlement.NewHTTPClient(cfg.Settlement.URL)
	settlements := settlement.NewProcessor(settlementClient, orderStore, cfg.Settlement.Timeout, log)

	// Core services
	auctionManager := services.NewAuctionManager(
		auctionStore, notificationStore, stateCache, eventPublisher, notifier, settlements, log)
	bidService := services.NewBidService(auctionStore, eventPublisher, auctionManager, log)
	scheduler := services.NewLifecycleScheduler(
		auctionStore, auctionManager, eventPublisher, leaderElection,
		cfg.Instance.ID, cfg.Engine.EndingSoonThreshold, log)
	dispatcher := services.NewEventDispatcher(connManager, notifier, log)

	// REST API
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
	}))

	auctionHandler := handlers.NewAuctionHandler(bidService, auctionManager, notificationStore, log)
	auctionHandler.Register(e.Group("/api/v1"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "bidengine",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Websocket subscription endpoint
	wsHandler := websocket.NewHandler(bidService, auctionManager, connManager, log)
	wsRouter := mux.NewRouter()
	wsRouter.HandleFunc("/ws/auctions/{auctionID}", wsHandler.HandleConnection)
	wsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.WSPort),
		Handler: wsRouter,
	}

	// Background services
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	go func() {
		if err := dispatcher.Start(dispatcherCtx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event dispatcher stopped", "error", err)
		}
	}()

	if err := scheduler.Start(context.Background()); err != nil {
		log.Error("Failed to start lifecycle scheduler", "error", err)
		os.Exit(1)
	}

	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became sweep leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	go func() {
		log.Info("Starting websocket server", "address", wsServer.Addr)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Websocket server failed", "error", err)
			os.Exit(1)
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting API server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("API server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down bid engine...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop scheduler", "error", err)
	}
	stopDispatcher()
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Websocket server forced to shutdown", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("API server forced to shutdown", "error", err)
	}

	log.Info("Bid engine stopped")
}
