package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/yeremiapane/dinein-app/config"
	"github.com/yeremiapane/dinein-app/database"
	"github.com/yeremiapane/dinein-app/events"
	"github.com/yeremiapane/dinein-app/hub"
	"github.com/yeremiapane/dinein-app/router"
	"github.com/yeremiapane/dinein-app/services"
	"github.com/yeremiapane/dinein-app/utils"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func run() error {
	var configPath, port, dbDriver, dbDSN string
	flagSet := pflag.NewFlagSet("dinein", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file")
	flagSet.StringVar(&port, "port", "", "HTTP port (overrides PORT)")
	flagSet.StringVar(&dbDriver, "db-driver", "", "sqlite, mysql or postgres (overrides DB_DRIVER)")
	flagSet.StringVar(&dbDSN, "db-dsn", "", "database DSN (overrides DB_DSN)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbDSN != "" {
		cfg.Database.DSN = dbDSN
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	utils.InitLogger(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			utils.ErrorLogger.Errorf("Failed to close database: %v", err)
		}
	}()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	store := database.NewStore(db)

	ids, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return fmt.Errorf("failed to create id node: %w", err)
	}

	h := hub.New(hub.Config{
		PingInterval:   cfg.Hub.PingInterval,
		PongGrace:      cfg.Hub.PongGrace,
		WriteTimeout:   cfg.Hub.WriteTimeout,
		SendBuffer:     cfg.Hub.SendBuffer,
		BatchWindow:    cfg.Hub.BatchWindow,
		MaxBatch:       cfg.Hub.MaxBatch,
		InboundRate:    cfg.Hub.InboundRate,
		InboundBurst:   cfg.Hub.InboundBurst,
		MaxMessageSize: cfg.Hub.MaxMessageSize,
	})
	bus := events.NewBus(0)
	bus.Subscribe(h.Publish)
	bus.Start()
	defer bus.Stop()

	ledger := services.NewSessionLedger(store, bus, cfg.Ledger.CacheTTL)
	occupancy := services.NewOccupancySynchronizer(store, bus)
	sessions, err := services.NewSessionManager(store, ledger, occupancy, bus, ids)
	if err != nil {
		return err
	}
	bills := services.NewBillService(sessions)
	h.OnCallWaiter(func(ctx context.Context, restaurantID, tableID uint, customerName, requestType string) error {
		_, err := sessions.CallWaiter(ctx, restaurantID, tableID, customerName, requestType)
		return err
	})

	reaper := services.NewReaper(sessions)
	reaper.Schedule = cfg.Reaper.Schedule
	reaper.Timeout = cfg.Reaper.Timeout
	reaper.BatchSize = cfg.Reaper.BatchSize
	if err := reaper.Start(); err != nil {
		return fmt.Errorf("failed to start reaper: %w", err)
	}
	defer reaper.Stop()

	engine := router.SetupRouter(router.Dependencies{
		Sessions:   sessions,
		Bills:      bills,
		Occupancy:  occupancy,
		Reaper:     reaper,
		Hub:        h,
		CORSOrigin: cfg.Server.CORSOrigin,
		RateLimit:  cfg.Server.RateLimit,
		RateBurst:  cfg.Server.RateBurst,
	})
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Run(gctx)
		return nil
	})
	g.Go(func() error {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.InfoLogger.Info("Shutting down")
		h.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
