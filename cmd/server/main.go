package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockwatch/config"
	"stockwatch/internal/database"
	"stockwatch/internal/inventory"
	"stockwatch/internal/monitor"
	"stockwatch/internal/repository"
	"stockwatch/internal/router"
	"stockwatch/internal/service"
	"stockwatch/internal/ws"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	root := &cobra.Command{
		Use:   "stockwatch",
		Short: "Stock monitoring service with push alerts",
	}
	root.AddCommand(serveCmd(), checkCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// app bundles the collaborators both commands need.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	logger   *zap.Logger
	monitor  *monitor.Monitor
	inv      *inventory.Client
	fcm      *service.FCMService
	hub      *ws.Hub
	shutdown func()
}

func buildApp(withHub bool) (*app, error) {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg.Server.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	productRepo := repository.NewProductRepository(db)
	historyRepo := repository.NewNotificationHistoryRepository(db)
	inv := inventory.NewClient(&cfg.Inventory, logger)
	fcm := service.NewFCMService(cfg.Firebase.ServiceAccountPath, logger)
	if fcm == nil {
		logger.Warn("push messaging not configured, notifications disabled")
	}

	var policy monitor.Policy
	switch cfg.Monitor.Policy {
	case "cooldown":
		policy = monitor.NewCooldownPolicy(historyRepo, cfg.Monitor.CooldownHours)
	default:
		policy = monitor.NewDailyCapPolicy(historyRepo, cfg.Monitor.MaxPerDay)
	}

	var hub *ws.Hub
	var broadcaster monitor.Broadcaster
	if withHub {
		hub = ws.NewHub()
		broadcaster = hub
	}

	m := monitor.New(productRepo, historyRepo, inv, fcm, policy, monitor.Options{
		Hours: monitor.BusinessHours{
			Enabled:   cfg.Monitor.BusinessHoursEnabled,
			StartHour: cfg.Monitor.BusinessStartHour,
			EndHour:   cfg.Monitor.BusinessEndHour,
			Location:  cfg.Monitor.Location(),
		},
		Workers: cfg.Monitor.Workers,
		Hub:     broadcaster,
		Logger:  logger,
	})

	return &app{
		cfg:     cfg,
		db:      db,
		logger:  logger,
		monitor: m,
		inv:     inv,
		fcm:     fcm,
		hub:     hub,
		shutdown: func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
			logger.Sync()
		},
	}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the monitoring schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(true)
			if err != nil {
				return err
			}
			defer a.shutdown()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slots, err := monitor.ParseClockTimes(a.cfg.Monitor.ScheduledTimes)
			if err != nil {
				return fmt.Errorf("parse scheduled times: %w", err)
			}
			sched := monitor.NewScheduler(a.monitor, a.cfg.Monitor.Interval, slots, a.cfg.Monitor.Location(), a.logger)
			go sched.Start(ctx)

			engine := router.Setup(router.Deps{
				Config:    a.cfg,
				DB:        a.db,
				Inventory: a.inv,
				FCM:       a.fcm,
				Monitor:   a.monitor,
				Hub:       a.hub,
				Logger:    a.logger,
			})

			srv := &http.Server{
				Addr:         ":" + a.cfg.Server.Port,
				Handler:      engine,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server listening", zap.String("port", a.cfg.Server.Port))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func checkCmd() *cobra.Command {
	var scheduled bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single monitoring pass and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(false)
			if err != nil {
				return err
			}
			defer a.shutdown()

			summary, err := a.monitor.RunCheck(cmd.Context(), scheduled)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&scheduled, "scheduled", false, "run as a guaranteed pass, bypassing change dedup")
	return cmd
}
