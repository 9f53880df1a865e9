package service

import (
	"context"
	"testing"

	"github.com/DanielPaucar/control-coliseo/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguracionInitKeepsExisting(t *testing.T) {
	repo := newMemConfig()
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, model.ClavePrecioEntrada, "3.25"))

	svc := NewConfiguracionService(repo, map[string]string{
		model.ClavePrecioEntrada:  "5.00",
		model.ClaveLimiteEntradas: "0",
	})
	require.NoError(t, svc.Init(ctx))

	precio, err := svc.GetDecimal(ctx, model.ClavePrecioEntrada, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "3.25", precio.StringFixed(2))

	limite, err := svc.GetInt(ctx, model.ClaveLimiteEntradas, 99)
	require.NoError(t, err)
	assert.Equal(t, 0, limite)
}

func TestConfiguracionDefaults(t *testing.T) {
	repo := newMemConfig()
	svc := NewConfiguracionService(repo, nil)
	ctx := context.Background()

	precio, err := svc.GetDecimal(ctx, model.ClavePrecioEntrada, DefaultPrecio)
	require.NoError(t, err)
	assert.True(t, DefaultPrecio.Equal(precio))

	require.NoError(t, svc.Set(ctx, model.ClaveLimiteEntradas, "muchas"))
	limite, err := svc.GetInt(ctx, model.ClaveLimiteEntradas, 7)
	require.NoError(t, err, "an unparsable value falls back to the default")
	assert.Equal(t, 7, limite)

	require.NoError(t, svc.Set(ctx, model.ClavePrecioEntrada, "abc"))
	precio, err = svc.GetDecimal(ctx, model.ClavePrecioEntrada, DefaultPrecio)
	require.NoError(t, err)
	assert.True(t, DefaultPrecio.Equal(precio))
}
