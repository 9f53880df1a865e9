package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/infra"
	"github.com/DanielPaucar/control-coliseo/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// BreakerReporter exposes the state of the mail circuit breaker.
type BreakerReporter interface {
	Breaker() infra.CBState
}

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// An open mail breaker is reported but does not fail the check.
func Health(db *gorm.DB, rdb *redis.Client, mail BreakerReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if mail != nil {
			body["mail"] = mail.Breaker().String()
		}
		if redisStatus == "connected" {
			dlq, err := worker.DLQLengths(ctx, rdb)
			if err != nil {
				log.Warn().Err(err).Msg("health: DLQ lengths unavailable")
			} else {
				body["dlq"] = dlq
			}
		}
		c.JSON(status, body)
	}
}
