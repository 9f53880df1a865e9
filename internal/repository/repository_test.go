package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/infra"
	"github.com/DanielPaucar/control-coliseo/internal/model"
	"github.com/DanielPaucar/control-coliseo/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection: every pooled connection would get its own empty memory db
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, infra.Migrate(db))
	return db
}

func crearCodigo(t *testing.T, repo repository.CodigoRepository, codigo string, maxUsos int) *model.CodigoQR {
	t.Helper()
	c := &model.CodigoQR{Codigo: codigo, Categoria: model.CategoriaVisitante, MaxUsos: maxUsos}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func abrirSesion(t *testing.T, repo repository.CajaRepository, operador string) *model.SesionCaja {
	t.Helper()
	s := &model.SesionCaja{Abierta: true, OperadorApertura: operador, AbiertaEn: time.Now().UTC()}
	require.NoError(t, repo.CreateSesion(context.Background(), s))
	return s
}

// ── Codigos ──────────────────────────────────────────────────────────────────

func TestRegistrarIngresoRespetaMaxUsos(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	codigos := repository.NewCodigoRepository(db)
	ingresos := repository.NewIngresoRepository(db)

	c := crearCodigo(t, codigos, "VIS-anon-1", 2)

	got, err := codigos.RegistrarIngreso(ctx, c.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Usos)

	got, err = codigos.RegistrarIngreso(ctx, c.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Usos)
	assert.Equal(t, 0, got.Restantes())

	_, err = codigos.RegistrarIngreso(ctx, c.ID, time.Now().UTC())
	assert.ErrorIs(t, err, repository.ErrSinUsos)

	stored, err := codigos.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Usos)

	n, err := ingresos.Count(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "a rejected scan must not append an ingreso")
}

func TestUpdateMaxUsosNoBajaDeUsos(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	codigos := repository.NewCodigoRepository(db)

	c := crearCodigo(t, codigos, "VIS-anon-2", 3)
	for i := 0; i < 2; i++ {
		_, err := codigos.RegistrarIngreso(ctx, c.ID, time.Now().UTC())
		require.NoError(t, err)
	}

	assert.ErrorIs(t, codigos.UpdateMaxUsos(ctx, c.ID, 1), repository.ErrUsosInvalidos)
	require.NoError(t, codigos.UpdateMaxUsos(ctx, c.ID, 2))
	require.NoError(t, codigos.UpdateMaxUsos(ctx, c.ID, 5))

	stored, err := codigos.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.MaxUsos)
	assert.Equal(t, 2, stored.Usos)
}

func TestCodigoDuplicadoEsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	codigos := repository.NewCodigoRepository(db)

	crearCodigo(t, codigos, "EST-1712-abc", 1)
	err := codigos.Create(context.Background(), &model.CodigoQR{
		Codigo: "EST-1712-abc", Categoria: model.CategoriaEstudiante, MaxUsos: 1,
	})
	require.Error(t, err)
	assert.True(t, repository.IsUniqueViolation(err))
}

func TestFindByCodigoDesconocido(t *testing.T) {
	db := newTestDB(t)
	_, err := repository.NewCodigoRepository(db).FindByCodigo(context.Background(), "NOPE")
	assert.True(t, repository.IsNotFound(err))
}

// ── Caja ─────────────────────────────────────────────────────────────────────

func TestSesionAbiertaUnicaPorOperador(t *testing.T) {
	db := newTestDB(t)
	caja := repository.NewCajaRepository(db)

	abrirSesion(t, caja, "ana@coliseo.test")
	err := caja.CreateSesion(context.Background(), &model.SesionCaja{
		Abierta: true, OperadorApertura: "ana@coliseo.test", AbiertaEn: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.True(t, repository.IsUniqueViolation(err))

	// another operator may open their own
	abrirSesion(t, caja, "luis@coliseo.test")
}

func TestCerrarSesionSoloUnaVez(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	caja := repository.NewCajaRepository(db)

	s := abrirSesion(t, caja, "ana@coliseo.test")
	require.NoError(t, caja.CerrarSesion(ctx, s.ID, "ana@coliseo.test", time.Now().UTC()))
	assert.ErrorIs(t, caja.CerrarSesion(ctx, s.ID, "ana@coliseo.test", time.Now().UTC()), repository.ErrSesionCerrada)

	stored, err := caja.FindSesionByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, stored.Abierta)
	require.NotNil(t, stored.OperadorCierre)
	assert.Equal(t, "ana@coliseo.test", *stored.OperadorCierre)
	assert.NotNil(t, stored.CerradaEn)

	// the operator can open again once closed
	abrirSesion(t, caja, "ana@coliseo.test")
}

func TestCreateVentaRequiereSesionAbierta(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	caja := repository.NewCajaRepository(db)
	codigos := repository.NewCodigoRepository(db)

	s := abrirSesion(t, caja, "ana@coliseo.test")
	c := crearCodigo(t, codigos, "ADI-anon-1", 1)
	require.NoError(t, caja.CerrarSesion(ctx, s.ID, "ana@coliseo.test", time.Now().UTC()))

	err := caja.CreateVenta(ctx, &model.VentaAdicional{
		CodigoQRID: c.ID, SesionCajaID: s.ID, PrecioUnitario: decimal.NewFromInt(5), Cantidad: 1,
	})
	assert.ErrorIs(t, err, repository.ErrSesionCerrada)

	ventas, err := caja.ListVentas(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, ventas)
}

func TestCreateVentaConCodigoRespetaLimite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	caja := repository.NewCajaRepository(db)
	cfg := repository.NewConfiguracionRepository(db)
	require.NoError(t, cfg.Set(ctx, model.ClaveLimiteEntradas, "3"))

	s := abrirSesion(t, caja, "ana@coliseo.test")
	vender := func(codigo string, cantidad int) error {
		return caja.CreateVentaConCodigo(ctx,
			&model.CodigoQR{Codigo: codigo, Categoria: model.CategoriaAdicional, MaxUsos: cantidad},
			&model.VentaAdicional{SesionCajaID: s.ID, PrecioUnitario: decimal.NewFromInt(5), Cantidad: cantidad},
		)
	}

	require.NoError(t, vender("ADI-anon-a", 2))
	assert.ErrorIs(t, vender("ADI-anon-b", 2), repository.ErrLimiteExcedido)
	require.NoError(t, vender("ADI-anon-c", 1))

	vendidas, err := caja.TotalVendidas(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), vendidas)

	_, err = repository.NewCodigoRepository(db).FindByCodigo(ctx, "ADI-anon-b")
	assert.True(t, repository.IsNotFound(err), "rejected sale must not leave its code behind")
}

func TestCreateVentaConCodigoSinLimite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	caja := repository.NewCajaRepository(db)

	s := abrirSesion(t, caja, "ana@coliseo.test")
	c := &model.CodigoQR{Codigo: "ADI-anon-x", Categoria: model.CategoriaAdicional, MaxUsos: 400}
	v := &model.VentaAdicional{SesionCajaID: s.ID, PrecioUnitario: decimal.NewFromInt(5), Cantidad: 400}
	require.NoError(t, caja.CreateVentaConCodigo(ctx, c, v))
	assert.Equal(t, c.ID, v.CodigoQRID)
}

func TestSumVentasPorSesion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	caja := repository.NewCajaRepository(db)
	codigos := repository.NewCodigoRepository(db)

	a := abrirSesion(t, caja, "ana@coliseo.test")
	b := abrirSesion(t, caja, "luis@coliseo.test")
	for i, sid := range []uuid.UUID{a.ID, a.ID, b.ID} {
		c := crearCodigo(t, codigos, "ADI-sum-"+string(rune('a'+i)), 2)
		require.NoError(t, caja.CreateVenta(ctx, &model.VentaAdicional{
			CodigoQRID: c.ID, SesionCajaID: sid, PrecioUnitario: decimal.NewFromInt(5), Cantidad: 2,
		}))
	}

	totales, err := caja.SumVentasPorSesion(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(4), totales[a.ID].Tickets)
	assert.True(t, decimal.NewFromInt(20).Equal(totales[a.ID].Recaudado), "got %s", totales[a.ID].Recaudado)
	assert.Equal(t, int64(2), totales[b.ID].Tickets)
	assert.True(t, decimal.NewFromInt(10).Equal(totales[b.ID].Recaudado))
}

func TestDeleteSesionCerradaCascada(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	caja := repository.NewCajaRepository(db)
	codigos := repository.NewCodigoRepository(db)
	ingresos := repository.NewIngresoRepository(db)

	borrar := abrirSesion(t, caja, "ana@coliseo.test")
	conservar := abrirSesion(t, caja, "luis@coliseo.test")

	cb := crearCodigo(t, codigos, "ADI-del-1", 1)
	ck := crearCodigo(t, codigos, "ADI-keep-1", 1)
	require.NoError(t, caja.CreateVenta(ctx, &model.VentaAdicional{
		CodigoQRID: cb.ID, SesionCajaID: borrar.ID, PrecioUnitario: decimal.NewFromInt(5), Cantidad: 1,
	}))
	require.NoError(t, caja.CreateVenta(ctx, &model.VentaAdicional{
		CodigoQRID: ck.ID, SesionCajaID: conservar.ID, PrecioUnitario: decimal.NewFromInt(5), Cantidad: 1,
	}))
	_, err := codigos.RegistrarIngreso(ctx, cb.ID, time.Now().UTC())
	require.NoError(t, err)
	_, err = codigos.RegistrarIngreso(ctx, ck.ID, time.Now().UTC())
	require.NoError(t, err)

	assert.ErrorIs(t, caja.DeleteSesionCerrada(ctx, borrar.ID), repository.ErrSesionAbierta)

	require.NoError(t, caja.CerrarSesion(ctx, borrar.ID, "ana@coliseo.test", time.Now().UTC()))
	require.NoError(t, caja.DeleteSesionCerrada(ctx, borrar.ID))

	_, err = caja.FindSesionByID(ctx, borrar.ID)
	assert.True(t, repository.IsNotFound(err))
	_, err = codigos.FindByID(ctx, cb.ID)
	assert.True(t, repository.IsNotFound(err))

	kept, err := caja.FindSesionByID(ctx, conservar.ID)
	require.NoError(t, err)
	require.Len(t, kept.Ventas, 1)
	assert.Equal(t, "ADI-keep-1", kept.Ventas[0].CodigoQR.Codigo)

	n, err := ingresos.Count(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.True(t, repository.IsNotFound(caja.DeleteSesionCerrada(ctx, uuid.New())))
}

// ── Ingresos ─────────────────────────────────────────────────────────────────

func TestListConCodigoMarcaVentasYFiltraRango(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	caja := repository.NewCajaRepository(db)
	codigos := repository.NewCodigoRepository(db)
	ingresos := repository.NewIngresoRepository(db)

	s := abrirSesion(t, caja, "ana@coliseo.test")
	vendido := crearCodigo(t, codigos, "ADI-list-1", 2)
	require.NoError(t, caja.CreateVenta(ctx, &model.VentaAdicional{
		CodigoQRID: vendido.ID, SesionCajaID: s.ID, PrecioUnitario: decimal.NewFromInt(5), Cantidad: 2,
	}))
	visita := crearCodigo(t, codigos, "VIS-list-1", 1)

	ayer := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	hoy := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	_, err := codigos.RegistrarIngreso(ctx, vendido.ID, ayer)
	require.NoError(t, err)
	_, err = codigos.RegistrarIngreso(ctx, vendido.ID, hoy)
	require.NoError(t, err)
	_, err = codigos.RegistrarIngreso(ctx, visita.ID, hoy.Add(time.Minute))
	require.NoError(t, err)

	all, err := ingresos.ListConCodigo(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ADI-list-1", all[0].Codigo)
	assert.True(t, all[0].EsVenta)
	assert.Equal(t, "VIS-list-1", all[2].Codigo)
	assert.False(t, all[2].EsVenta)

	desde := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	hasta := desde.Add(24 * time.Hour)
	dia, err := ingresos.ListConCodigo(ctx, &desde, &hasta)
	require.NoError(t, err)
	assert.Len(t, dia, 2)

	n, err := ingresos.Count(ctx, &desde, &hasta)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

// ── Configuracion / Limpieza ─────────────────────────────────────────────────

func TestEnsureDefaultsNoSobrescribe(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cfg := repository.NewConfiguracionRepository(db)

	require.NoError(t, cfg.Set(ctx, model.ClavePrecioEntrada, "7.50"))
	require.NoError(t, cfg.EnsureDefaults(ctx, map[string]string{
		model.ClavePrecioEntrada:  "5.00",
		model.ClaveLimiteEntradas: "0",
	}))

	precio, err := cfg.Get(ctx, model.ClavePrecioEntrada)
	require.NoError(t, err)
	assert.Equal(t, "7.50", precio.Valor)

	limite, err := cfg.Get(ctx, model.ClaveLimiteEntradas)
	require.NoError(t, err)
	assert.Equal(t, "0", limite.Valor)

	require.NoError(t, cfg.Set(ctx, model.ClaveLimiteEntradas, "100"))
	limite, err = cfg.Get(ctx, model.ClaveLimiteEntradas)
	require.NoError(t, err)
	assert.Equal(t, "100", limite.Valor)
}

func TestPurgeAllConservaConfiguracion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	codigos := repository.NewCodigoRepository(db)
	limpieza := repository.NewLimpiezaRepository(db)
	cfg := repository.NewConfiguracionRepository(db)
	require.NoError(t, cfg.Set(ctx, model.ClavePrecioEntrada, "5.00"))

	c := crearCodigo(t, codigos, "VIS-purge-1", 1)
	_, err := codigos.RegistrarIngreso(ctx, c.ID, time.Now().UTC())
	require.NoError(t, err)

	antes, err := limpieza.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), antes["codigos_qr"])
	assert.Equal(t, int64(1), antes["ingresos"])

	borrados, err := limpieza.PurgeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), borrados["ingresos"])
	assert.Equal(t, int64(1), borrados["codigos_qr"])

	despues, err := limpieza.Counts(ctx)
	require.NoError(t, err)
	for tabla, n := range despues {
		assert.Zero(t, n, tabla)
	}

	_, err = cfg.Get(ctx, model.ClavePrecioEntrada)
	assert.NoError(t, err)
}
