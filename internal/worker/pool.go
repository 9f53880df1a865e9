package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail    = "jobs:email"
	QueueReportes = "jobs:reportes"
)

// Job types.
const (
	JobQREmail    = "qr_email"
	JobCierreCaja = "cierre_caja"
)

const maxAttempts = 3

// retryBase is the first backoff step; tests shrink it.
var retryBase = time.Second

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes one job payload. A returned error is retried with
// exponential backoff and, once attempts are exhausted, moved to the DLQ.
type Handler func(ctx context.Context, payload json.RawMessage) error

var errUnknownJob = errors.New("unknown job type")

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueQREmail pushes a QR delivery job.
func (d *Dispatcher) EnqueueQREmail(ctx context.Context, job dto.QREmailJob) error {
	return d.enqueue(ctx, QueueEmail, JobQREmail, job)
}

// EnqueueCierreCaja pushes a closure report job (PDF + email).
func (d *Dispatcher) EnqueueCierreCaja(ctx context.Context, summary dto.ClosureSummary) error {
	return d.enqueue(ctx, QueueReportes, JobCierreCaja, summary)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers map[string]Handler, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers map[string]Handler, id int) {
	queues := []string{QueueEmail, QueueReportes}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers map[string]Handler, queue, raw string) {
	job, err := runJob(ctx, handlers, raw)
	if err == nil {
		return
	}
	log.Error().Err(err).Str("queue", queue).Str("type", job.Type).Msg("worker: job failed")
	if ctx.Err() != nil {
		return
	}
	payload := job.Payload
	if payload == nil {
		payload = json.RawMessage(fmt.Sprintf("%q", raw))
	}
	SendToDLQ(ctx, rdb, queue, job.Type, payload, err.Error(), maxAttempts)
}

// runJob decodes the envelope and runs its handler with retries.
func runJob(ctx context.Context, handlers map[string]Handler, raw string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return job, fmt.Errorf("decode job: %w", err)
	}
	h, ok := handlers[job.Type]
	if !ok {
		return job, fmt.Errorf("%w: %q", errUnknownJob, job.Type)
	}
	err := withRetry(ctx, maxAttempts, func(attempt int) error {
		if err := h(ctx, job.Payload); err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("type", job.Type).Msg("worker: attempt failed")
			return err
		}
		return nil
	})
	return job, err
}

// withRetry calls fn up to maxAttempts times with exponential backoff
// (immediate, retryBase, 2*retryBase, ...). Returns the last error.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := retryBase << uint(i-1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
