package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/config"
	"github.com/DanielPaucar/control-coliseo/internal/infra"
	"github.com/DanielPaucar/control-coliseo/internal/model"
	"github.com/DanielPaucar/control-coliseo/internal/repository"
	"github.com/DanielPaucar/control-coliseo/internal/router"
	"github.com/DanielPaucar/control-coliseo/internal/service"
	"github.com/DanielPaucar/control-coliseo/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger. dev: pretty, prod: JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configSvc := service.NewConfiguracionService(repository.NewConfiguracionRepository(db), map[string]string{
		model.ClavePrecioEntrada:  cfg.DefaultPrice,
		model.ClaveLimiteEntradas: strconv.Itoa(cfg.DefaultLimit),
	})
	if err := configSvc.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to write configuration defaults")
	}

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	mailer := infra.NewMailer(cfg)
	renderer := infra.NewQRRenderer(0)
	dispatcher := worker.NewDispatcher(rdb)
	cajaRepo := repository.NewCajaRepository(db)

	emailWorker := worker.NewEmailWorker(mailer, renderer, cajaRepo, cfg.QRStoragePath)
	reporteWorker := worker.NewReporteWorker(mailer, cfg.ReportRecipients(), cfg.PDFStoragePath)
	worker.StartWorkerPool(ctx, rdb, map[string]worker.Handler{
		worker.JobQREmail:    emailWorker.Process,
		worker.JobCierreCaja: reporteWorker.Process,
	}, cfg.WorkerPoolSize)

	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		Ventas:     cajaRepo,
		Dispatcher: dispatcher,
		Breaker:    mailer.Breaker,
		RDB:        rdb,
	})

	r := router.New(cfg, router.Deps{
		DB:         db,
		Redis:      rdb,
		Mailer:     mailer,
		Renderer:   renderer,
		Dispatcher: dispatcher,
		Config:     configSvc,
	})

	// WriteTimeout stays off: /v1/importar streams for as long as the
	// import runs, cooldowns included.
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("control-coliseo backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	cancel()
	log.Info().Msg("server exited")
}
