package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importFixture struct {
	personas      *memPersonas
	codigos       *memCodigos
	importaciones *memImportaciones
	sender        *stubSender
	svc           ImportacionService
}

func newImportFixture(opts ImportOptions) *importFixture {
	personas := newMemPersonas()
	codigos := newMemCodigos(personas)
	f := &importFixture{
		personas:      personas,
		codigos:       codigos,
		importaciones: newMemImportaciones(),
		sender:        &stubSender{failTo: map[string]error{}},
	}
	issuer := NewCodigoService(codigos, personas, stubRenderer{}, nil)
	f.svc = NewImportacionService(personas, codigos, f.importaciones, issuer, stubRenderer{}, f.sender, opts)
	return f
}

func collect(ch <-chan dto.ImportEvent) []dto.ImportEvent {
	var out []dto.ImportEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func ofType(events []dto.ImportEvent, typ string) []dto.ImportEvent {
	var out []dto.ImportEvent
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestImportRun(t *testing.T) {
	f := newImportFixture(ImportOptions{})
	filas := []dto.FilaImportacion{
		{Fila: 2, Cedula: "0911111111", Nombre: "Ana", Apellido: "Mora", Email: "ana@uni.edu"},
		{Fila: 3, Cedula: "0922222222", Nombre: "Luis", Email: "luis-sin-arroba"},
		{Fila: 4, Cedula: "", Nombre: "Nadie", Email: "nadie@uni.edu"},
	}

	events := collect(f.svc.Run(context.Background(), ImportInput{
		Archivo:         "alumnos.xlsx",
		Operador:        "admin@coliseo",
		Filas:           filas,
		MaxUsosFamiliar: 2,
	}))

	require.NotEmpty(t, events)
	assert.Equal(t, dto.EventStart, events[0].Type)
	assert.Equal(t, 3, events[0].Total)
	assert.Len(t, ofType(events, dto.EventProgress), 3)

	fallos := ofType(events, dto.EventEmailFailed)
	require.Len(t, fallos, 2)
	assert.Equal(t, 3, fallos[0].Fallo.Fila)
	assert.Equal(t, "formato de email inválido", fallos[0].Fallo.Motivo)
	assert.Equal(t, "cédula y nombre son obligatorios", fallos[1].Fallo.Motivo)

	last := events[len(events)-1]
	require.Equal(t, dto.EventDone, last.Type)
	assert.Equal(t, 1, last.Resumen.Exitosos)
	assert.Equal(t, 2, last.Resumen.Fallidos)
	assert.Len(t, last.Resumen.Errores, 2)

	p, err := f.personas.FindByCedula(context.Background(), "0911111111")
	require.NoError(t, err)
	c, err := f.codigos.FindByPersonaCategoria(context.Background(), p.ID, model.CategoriaEstudiante)
	require.NoError(t, err)
	assert.Equal(t, 3, c.MaxUsos, "student plus two companions")
	assert.Equal(t, 1, f.sender.count())

	imp := f.importaciones.only()
	assert.Equal(t, model.ImportacionCompletada, imp.Estado)
	assert.Equal(t, last.Resumen.ImportacionID, imp.ID.String())
	assert.NotNil(t, imp.FinalizadaEn)
	var errores []dto.ImportError
	require.NoError(t, json.Unmarshal(imp.Errores, &errores))
	assert.Len(t, errores, 2)
}

func TestImportReusesExistingCode(t *testing.T) {
	f := newImportFixture(ImportOptions{})
	in := ImportInput{Filas: []dto.FilaImportacion{
		{Fila: 2, Cedula: "0911111111", Nombre: "Ana", Email: "ana@uni.edu"},
	}}
	collect(f.svc.Run(context.Background(), in))

	in.Filas[0].Email = "ana.nueva@uni.edu"
	events := collect(f.svc.Run(context.Background(), in))
	assert.Equal(t, dto.EventDone, events[len(events)-1].Type)

	assert.Equal(t, 1, f.codigos.count(), "second import resends the same code")
	assert.Equal(t, 2, f.sender.count())
	p, err := f.personas.FindByCedula(context.Background(), "0911111111")
	require.NoError(t, err)
	assert.Equal(t, "ana.nueva@uni.edu", *p.Email)
}

func TestImportSendFailure(t *testing.T) {
	f := newImportFixture(ImportOptions{})
	f.sender.failTo["ana@uni.edu"] = errors.New("550 mailbox unavailable")

	events := collect(f.svc.Run(context.Background(), ImportInput{Filas: []dto.FilaImportacion{
		{Fila: 2, Cedula: "1", Nombre: "Ana", Email: "ana@uni.edu"},
	}}))

	fallos := ofType(events, dto.EventEmailFailed)
	require.Len(t, fallos, 1)
	assert.True(t, strings.HasPrefix(fallos[0].Fallo.Motivo, "error al enviar correo"))
	assert.Equal(t, 1, events[len(events)-1].Resumen.Fallidos)
}

func TestImportCooldownBetweenBatches(t *testing.T) {
	f := newImportFixture(ImportOptions{Batch: 2, Cooldown: time.Millisecond})
	var filas []dto.FilaImportacion
	for i, c := range []string{"1", "2", "3", "4"} {
		filas = append(filas, dto.FilaImportacion{Fila: i + 2, Cedula: c, Nombre: "N" + c, Email: "n" + c + "@uni.edu"})
	}

	events := collect(f.svc.Run(context.Background(), ImportInput{Filas: filas}))

	// after the 2nd send only: no pause after the last row
	assert.Len(t, ofType(events, dto.EventCooldown), 1)
	assert.Equal(t, 4, events[len(events)-1].Resumen.Exitosos)
}

func TestImportCancelled(t *testing.T) {
	f := newImportFixture(ImportOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.sender.onSend = func(int) { cancel() }

	events := collect(f.svc.Run(ctx, ImportInput{Filas: []dto.FilaImportacion{
		{Fila: 2, Cedula: "1", Nombre: "A", Email: "a@uni.edu"},
		{Fila: 3, Cedula: "2", Nombre: "B", Email: "b@uni.edu"},
		{Fila: 4, Cedula: "3", Nombre: "C", Email: "c@uni.edu"},
	}}))

	assert.Empty(t, ofType(events, dto.EventDone))
	assert.Equal(t, 1, f.sender.count())
	imp := f.importaciones.only()
	assert.Equal(t, model.ImportacionInterrumpida, imp.Estado)
	assert.Equal(t, 1, imp.Exitosos)
}

func TestImportRejectsNegativeCompanions(t *testing.T) {
	f := newImportFixture(ImportOptions{})

	events := collect(f.svc.Run(context.Background(), ImportInput{MaxUsosFamiliar: -1}))
	require.Len(t, events, 1)
	assert.Equal(t, dto.EventError, events[0].Type)
}
