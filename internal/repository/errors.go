package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrSinUsos is returned when a conditional increment matched no row:
	// the code already reached max_usos.
	ErrSinUsos = errors.New("codigo sin usos disponibles")

	// ErrUsosInvalidos is returned when max_usos would drop below usos.
	ErrUsosInvalidos = errors.New("max_usos menor que los usos registrados")

	ErrSesionCerrada  = errors.New("sesion de caja cerrada")
	ErrSesionAbierta  = errors.New("sesion de caja abierta")
	ErrLimiteExcedido = errors.New("limite global de entradas excedido")
)

// IsNotFound reports whether err is GORM's record-not-found.
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// IsUniqueViolation reports whether err is a unique constraint violation,
// either translated by GORM or raw from pgx (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
