package service

import (
	"context"
	"strings"

	"github.com/DanielPaucar/control-coliseo/internal/dto"

	"github.com/go-playground/validator/v10"
)

// Dispatcher enqueues background jobs. Implemented by worker.Dispatcher;
// services accept nil and skip the side effect.
type Dispatcher interface {
	EnqueueQREmail(ctx context.Context, job dto.QREmailJob) error
	EnqueueCierreCaja(ctx context.Context, summary dto.ClosureSummary) error
}

// QRRenderer turns a code into a PNG with a caption under the symbol.
type QRRenderer interface {
	Render(codigo, caption string) ([]byte, error)
}

// QRSender delivers a rendered QR synchronously (bulk import).
type QRSender interface {
	SendQR(to, nombre, codigo string, png []byte) error
}

var validate = validator.New()

// validEmail uses the same rule as the DTO tags.
func validEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
