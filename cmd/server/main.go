package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flightsched-service/internal/infrastructure/config"
	"flightsched-service/internal/infrastructure/persistence"
	mongoRepo "flightsched-service/internal/interface/repository"
	"flightsched-service/internal/pipeline"
	"flightsched-service/internal/usecase"
	"flightsched-service/pkg/logger"
	"flightsched-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Flightsched Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	gormDB, err := persistence.NewPostgresDB(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}

	m := metrics.NewMetrics("flightsched")

	// Set up reference-data repositories
	minimumsRepository := mongoRepo.NewGormMinimumsRepository(gormDB)
	airportRepository := mongoRepo.NewGormAirportRepository(gormDB)

	// Set up operational repositories
	flightRepository := mongoRepo.NewMongoFlightRepository(db)
	requestRepository := mongoRepo.NewMongoRescheduleRequestRepository(db)
	squawkRepository := mongoRepo.NewMongoSquawkRepository(db)
	checkRepository := mongoRepo.NewMongoWeatherCheckRepository(db)
	aircraftRepository := mongoRepo.NewMongoAircraftRepository(db)

	// Set up outbound collaborators
	weatherProvider := mongoRepo.NewHTTPWeatherProvider(cfg.WeatherEndpoint, cfg.WeatherToken, log)
	generator := mongoRepo.NewHTTPSuggestionGenerator(cfg.GeneratorEndpoint, cfg.GeneratorToken, log)
	notifier := mongoRepo.NewHTTPNotifier(cfg.NotifierEndpoint, cfg.NotifierToken, log)

	// Set up the core
	evaluator := usecase.NewSafetyEvaluator(cfg.MarginFraction)
	stateMachine := usecase.NewRescheduleStateMachine(flightRepository, requestRepository, notifier, log, m, cfg.RequestTTL)
	runner := usecase.NewWeatherCheckRunner(
		flightRepository, checkRepository, minimumsRepository,
		airportRepository, weatherProvider, generator, stateMachine,
		notifier, evaluator, log, m, cfg.GeneratorTimeout,
	)
	cascade := usecase.NewGroundingCascade(
		flightRepository, aircraftRepository, squawkRepository,
		generator, stateMachine, notifier, log, m,
		cfg.FanoutWorkers, cfg.PerFlightTimeout,
	)

	pipe := pipeline.New(pipeline.Options{
		Workers:     cfg.PipelineWorkers,
		MaxAttempts: cfg.MaxAttempts,
		BaseBackoff: cfg.BaseBackoff,
		JobTimeout:  cfg.JobTimeout,
		SyncWait:    cfg.SyncWaitCeiling,
	}, usecase.Handlers(runner, cascade), log, m)
	pipe.Start(ctx)

	engine := usecase.NewEngine(pipe, flightRepository, stateMachine, cascade, log)

	// Submit look-ahead safety checks in the background
	go func() {
		checkTicker := time.NewTicker(cfg.CheckInterval)
		defer checkTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Check scheduler stopped")
				return
			case <-checkTicker.C:
				now := time.Now()
				if _, err := engine.SubmitWeatherChecks(ctx, now, now.Add(cfg.LookAheadWindow)); err != nil {
					log.Error("Weather check submission failed", "error", err)
				}
			}
		}
	}()

	// Expire overdue reschedule requests in the background
	go func() {
		sweepTicker := time.NewTicker(cfg.SweepInterval)
		defer sweepTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Expiry sweeper stopped")
				return
			case <-sweepTicker.C:
				n, err := stateMachine.ExpireOverdue(ctx)
				if err != nil {
					log.Error("Expiry sweep failed", "error", err)
				} else if n > 0 {
					log.Info("Expired overdue requests", "count", n)
				}
			}
		}
	}()

	// Set up HTTP server for metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	// Let in-flight jobs and cascade fan-outs finish
	if err := pipe.Drain(shutdownCtx); err != nil {
		log.Error("Pipeline drain incomplete", "error", err)
	}
	pipe.Stop()
	cascade.Wait()

	cancel() // Cancel the context to stop all goroutines

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Flightsched Service stopped")
}
