package worker

// email_worker.go
// Processes qr_email jobs: renders the code, keeps a copy under
// QR_STORAGE_PATH and mails it. Sales are flagged enviado_email once delivered.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type QRMailer interface {
	SendQR(to, nombre, codigo string, png []byte) error
}

type QRRenderer interface {
	Render(codigo, caption string) ([]byte, error)
}

// EntregaMarker flags a sale as delivered.
type EntregaMarker interface {
	MarcarEnviado(ctx context.Context, ventaID uuid.UUID) error
}

type EmailWorker struct {
	mailer    QRMailer
	renderer  QRRenderer
	ventas    EntregaMarker
	qrStorage string
}

func NewEmailWorker(mailer QRMailer, renderer QRRenderer, ventas EntregaMarker, qrStorage string) *EmailWorker {
	return &EmailWorker{mailer: mailer, renderer: renderer, ventas: ventas, qrStorage: qrStorage}
}

func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var job dto.QREmailJob
	if err := json.Unmarshal(raw, &job); err != nil {
		// malformed payloads never succeed; log and drop instead of retrying
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if job.Email == "" {
		log.Warn().Str("codigo", job.Codigo).Msg("email_worker: empty email, skipping")
		return nil
	}

	png, err := w.renderer.Render(job.Codigo, job.Codigo)
	if err != nil {
		return fmt.Errorf("render %s: %w", job.Codigo, err)
	}
	if w.qrStorage != "" {
		if _, err := infra.SaveQR(w.qrStorage, job.Codigo, png); err != nil {
			log.Warn().Err(err).Str("codigo", job.Codigo).Msg("email_worker: could not store QR copy")
		}
	}

	if err := w.mailer.SendQR(job.Email, job.Nombre, job.Codigo, png); err != nil {
		return fmt.Errorf("send QR to %s: %w", job.Email, err)
	}

	if job.VentaID != "" && w.ventas != nil {
		id, err := uuid.Parse(job.VentaID)
		if err == nil {
			err = w.ventas.MarcarEnviado(ctx, id)
		}
		if err != nil {
			log.Warn().Err(err).Str("venta_id", job.VentaID).Msg("email_worker: could not flag sale as sent")
		}
	}
	log.Info().Str("to", job.Email).Str("codigo", job.Codigo).Msg("email_worker: QR sent")
	return nil
}
