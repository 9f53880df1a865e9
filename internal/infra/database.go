package infra

import (
	"fmt"

	"github.com/DanielPaucar/control-coliseo/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and migrates the
// schema. TranslateError makes unique violations surface as gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate for every model, then applies the idempotent SQL
// patches GORM cannot express. Works on any dialector (tests use sqlite).
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Persona{},
		&model.CodigoQR{},
		&model.Ingreso{},
		&model.SesionCaja{},
		&model.VentaAdicional{},
		&model.Configuracion{},
		&model.Importacion{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{
			"one open caja session per operator",
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_sesiones_caja_abierta_operador
			 ON sesiones_caja (operador_apertura) WHERE abierta`,
		},
		{
			"dashboard scan by code",
			`CREATE INDEX IF NOT EXISTS idx_ingresos_codigo_fecha ON ingresos (codigo_qr_id, fecha)`,
		},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("%s: %w", p.descr, err)
		}
	}
	return nil
}
