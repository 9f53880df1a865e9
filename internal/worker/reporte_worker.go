package worker

// reporte_worker.go
// Processes cierre_caja jobs: renders the closure PDF and mails it to REPORT_EMAILS.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/infra"

	"github.com/rs/zerolog/log"
)

type ReportMailer interface {
	SendReporte(to []string, subject, body, pdfPath string) error
}

type ReporteWorker struct {
	mailer     ReportMailer
	recipients []string
	pdfStorage string
}

func NewReporteWorker(mailer ReportMailer, recipients []string, pdfStorage string) *ReporteWorker {
	return &ReporteWorker{mailer: mailer, recipients: recipients, pdfStorage: pdfStorage}
}

func (w *ReporteWorker) Process(_ context.Context, raw json.RawMessage) error {
	var s dto.ClosureSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		log.Error().Err(err).Msg("reporte_worker: invalid payload")
		return nil
	}

	path, err := infra.GenerateCierrePDF(s, w.pdfStorage)
	if err != nil {
		return fmt.Errorf("closure PDF %s: %w", s.SesionCajaID, err)
	}
	if len(w.recipients) == 0 {
		log.Info().Str("sesion_id", s.SesionCajaID).Str("pdf", path).Msg("reporte_worker: no REPORT_EMAILS configured, PDF kept on disk")
		return nil
	}

	subject := fmt.Sprintf("Cierre de caja %s", s.CerradaEn.Format("02/01/2006 15:04"))
	body := fmt.Sprintf(
		"Sesión abierta por %s y cerrada por %s.\nEntradas vendidas: %d\nTotal recaudado: $%s\n",
		s.OperadorApertura, s.OperadorCierre, s.TotalTickets, s.TotalRecaudado.StringFixed(2),
	)
	if err := w.mailer.SendReporte(w.recipients, subject, body, path); err != nil {
		return fmt.Errorf("send closure report %s: %w", s.SesionCajaID, err)
	}
	log.Info().Str("sesion_id", s.SesionCajaID).Int("to", len(w.recipients)).Msg("reporte_worker: closure report sent")
	return nil
}
