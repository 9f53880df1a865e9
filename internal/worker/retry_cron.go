package worker

// retry_cron.go
// Background goroutine that re-enqueues QR emails of caja sales that were
// never flagged enviado_email (job lost, DLQ'd, relay down at sale time).
// Skips the tick while the SMTP circuit breaker is open.

import (
	"context"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/infra"
	"github.com/DanielPaucar/control-coliseo/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 2 * time.Minute
	retryMinAge       = 10 * time.Minute
	retryBatchSize    = 20
	retryClaimTTL     = 30 * time.Minute
	retryClaimPrefix  = "reenvio:venta:"
)

type VentasSinEnviar interface {
	ListVentasSinEnviar(ctx context.Context, antes time.Time, limit int) ([]model.VentaAdicional, error)
}

type QREnqueuer interface {
	EnqueueQREmail(ctx context.Context, job dto.QREmailJob) error
}

type RetryCronConfig struct {
	Ventas     VentasSinEnviar
	Dispatcher QREnqueuer
	// Breaker reports the SMTP breaker state; nil means always closed.
	Breaker func() infra.CBState
	// RDB holds a short claim per sale so one sale is not re-enqueued every
	// tick while its job is still queued. Optional.
	RDB *redis.Client
}

// StartRetryCron ticks every retryTickInterval until ctx is cancelled.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg, time.Now())
			}
		}
	}()
}

// processRetries returns the number of jobs enqueued.
func processRetries(ctx context.Context, cfg RetryCronConfig, now time.Time) int {
	if cfg.Breaker != nil && cfg.Breaker() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return 0
	}

	ventas, err := cfg.Ventas.ListVentasSinEnviar(ctx, now.Add(-retryMinAge), retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query unsent sales")
		return 0
	}

	enqueued := 0
	for _, v := range ventas {
		if v.EmailDestino == nil || v.CodigoQR == nil {
			continue
		}
		if cfg.RDB != nil {
			ok, err := cfg.RDB.SetNX(ctx, retryClaimPrefix+v.ID.String(), 1, retryClaimTTL).Result()
			if err != nil || !ok {
				continue
			}
		}
		job := dto.QREmailJob{Codigo: v.CodigoQR.Codigo, Email: *v.EmailDestino, VentaID: v.ID.String()}
		if err := cfg.Dispatcher.EnqueueQREmail(ctx, job); err != nil {
			log.Warn().Err(err).Str("venta_id", v.ID.String()).Msg("retry_cron: enqueue failed")
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		log.Info().Int("count", enqueued).Msg("retry_cron: re-enqueued unsent QR emails")
	}
	return enqueued
}
