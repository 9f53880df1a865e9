package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/model"
	"github.com/DanielPaucar/control-coliseo/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const (
	motivoEmailInvalido  = "formato de email inválido"
	motivoDatosFaltantes = "cédula y nombre son obligatorios"
	motivoInterno        = "error interno al registrar la fila"
)

type ImportInput struct {
	Archivo         string
	Operador        string
	Filas           []dto.FilaImportacion
	MaxUsosFamiliar int
}

// ImportOptions paces the synchronous email sends: after every Batch
// successful emails the producer pauses for Cooldown.
type ImportOptions struct {
	Batch    int
	Cooldown time.Duration
}

type ImportacionService interface {
	// Run processes the rows in a goroutine and streams progress on the
	// returned channel, which is closed when the run ends. Cancelling ctx stops
	// the run; the import log is still finalized as interrumpida.
	Run(ctx context.Context, in ImportInput) <-chan dto.ImportEvent
}

type importacionService struct {
	personas      repository.PersonaRepository
	codigos       repository.CodigoRepository
	importaciones repository.ImportacionRepository
	issuer        CodigoService
	renderer      QRRenderer
	mailer        QRSender
	opts          ImportOptions
	now           func() time.Time
}

func NewImportacionService(
	personas repository.PersonaRepository,
	codigos repository.CodigoRepository,
	importaciones repository.ImportacionRepository,
	issuer CodigoService,
	renderer QRRenderer,
	mailer QRSender,
	opts ImportOptions,
) ImportacionService {
	if opts.Batch <= 0 {
		opts.Batch = 150
	}
	return &importacionService{
		personas:      personas,
		codigos:       codigos,
		importaciones: importaciones,
		issuer:        issuer,
		renderer:      renderer,
		mailer:        mailer,
		opts:          opts,
		now:           time.Now,
	}
}

func (s *importacionService) Run(ctx context.Context, in ImportInput) <-chan dto.ImportEvent {
	ch := make(chan dto.ImportEvent, 16)
	go s.run(ctx, in, ch)
	return ch
}

func (s *importacionService) run(ctx context.Context, in ImportInput, ch chan<- dto.ImportEvent) {
	defer close(ch)

	emit := func(ev dto.ImportEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if in.MaxUsosFamiliar < 0 {
		emit(dto.ImportEvent{Type: dto.EventError, Mensaje: "max_usos_familiar no puede ser negativo"})
		return
	}

	imp := &model.Importacion{
		Archivo:    in.Archivo,
		Operador:   in.Operador,
		Total:      len(in.Filas),
		Estado:     model.ImportacionEnProgreso,
		IniciadaEn: s.now(),
	}
	if err := s.importaciones.Create(ctx, imp); err != nil {
		log.Error().Err(err).Msg("importacion: could not create log row")
		emit(dto.ImportEvent{Type: dto.EventError, Mensaje: "No se pudo iniciar la importación"})
		return
	}

	log.Info().Str("importacion_id", imp.ID.String()).Int("filas", len(in.Filas)).Str("operador", in.Operador).Msg("importacion iniciada")
	interrumpida := !emit(dto.ImportEvent{Type: dto.EventStart, Total: len(in.Filas)})

	var errores []dto.ImportError
	enviados := 0
	for i, fila := range in.Filas {
		if interrumpida || ctx.Err() != nil {
			interrumpida = true
			break
		}

		if falla := s.procesarFila(ctx, fila, in.MaxUsosFamiliar); falla != nil {
			imp.Fallidos++
			errores = append(errores, *falla)
			if !emit(dto.ImportEvent{Type: dto.EventEmailFailed, Fallo: falla}) {
				interrumpida = true
				break
			}
		} else {
			imp.Exitosos++
			enviados++
		}

		if !emit(dto.ImportEvent{
			Type:       dto.EventProgress,
			Total:      len(in.Filas),
			Procesados: i + 1,
			Exitosos:   imp.Exitosos,
			Fallidos:   imp.Fallidos,
		}) {
			interrumpida = true
			break
		}

		if enviados > 0 && enviados%s.opts.Batch == 0 && i < len(in.Filas)-1 && s.opts.Cooldown > 0 {
			if !emit(dto.ImportEvent{Type: dto.EventCooldown, Segundos: int(s.opts.Cooldown / time.Second)}) {
				interrumpida = true
				break
			}
			select {
			case <-time.After(s.opts.Cooldown):
			case <-ctx.Done():
				interrumpida = true
			}
		}
	}

	s.finalizar(context.WithoutCancel(ctx), imp, errores, interrumpida)
	if interrumpida {
		log.Warn().Str("importacion_id", imp.ID.String()).Int("exitosos", imp.Exitosos).Int("fallidos", imp.Fallidos).Msg("importacion interrumpida")
		return
	}

	if errores == nil {
		errores = []dto.ImportError{}
	}
	emit(dto.ImportEvent{Type: dto.EventDone, Resumen: &dto.ImportResumen{
		ImportacionID: imp.ID.String(),
		Total:         imp.Total,
		Exitosos:      imp.Exitosos,
		Fallidos:      imp.Fallidos,
		Errores:       errores,
	}})
	log.Info().Str("importacion_id", imp.ID.String()).Int("exitosos", imp.Exitosos).Int("fallidos", imp.Fallidos).Msg("importacion completada")
}

func (s *importacionService) finalizar(ctx context.Context, imp *model.Importacion, errores []dto.ImportError, interrumpida bool) {
	imp.Estado = model.ImportacionCompletada
	if interrumpida {
		imp.Estado = model.ImportacionInterrumpida
	}
	fin := s.now()
	imp.FinalizadaEn = &fin
	if raw, err := json.Marshal(errores); err == nil {
		imp.Errores = datatypes.JSON(raw)
	}
	if err := s.importaciones.Update(ctx, imp); err != nil {
		log.Error().Err(err).Str("importacion_id", imp.ID.String()).Msg("importacion: could not finalize log row")
	}
}

// procesarFila registers one row and mails its code. Returns nil on success.
func (s *importacionService) procesarFila(ctx context.Context, fila dto.FilaImportacion, maxUsosFamiliar int) *dto.ImportError {
	fallo := func(motivo string) *dto.ImportError {
		return &dto.ImportError{Fila: fila.Fila, Email: fila.Email, Motivo: motivo}
	}
	cedula := strings.TrimSpace(fila.Cedula)
	nombre := strings.TrimSpace(fila.Nombre)
	email := strings.TrimSpace(fila.Email)
	if cedula == "" || nombre == "" {
		return fallo(motivoDatosFaltantes)
	}
	if !validEmail(email) {
		return fallo(motivoEmailInvalido)
	}

	persona, err := s.upsertPersona(ctx, cedula, nombre, strings.TrimSpace(fila.Apellido), email)
	if err != nil {
		log.Error().Err(err).Int("fila", fila.Fila).Msg("importacion: persona")
		return fallo(motivoInterno)
	}

	codigo, err := s.codigos.FindByPersonaCategoria(ctx, persona.ID, model.CategoriaEstudiante)
	if repository.IsNotFound(err) {
		codigo, err = s.issuer.Issue(ctx, IssueParams{
			Categoria: model.CategoriaEstudiante,
			MaxUsos:   1 + maxUsosFamiliar,
			PersonaID: &persona.ID,
			Owner:     cedula,
		})
	}
	if err != nil {
		log.Error().Err(err).Int("fila", fila.Fila).Msg("importacion: codigo")
		return fallo(motivoInterno)
	}

	png, err := s.renderer.Render(codigo.Codigo, codigo.Codigo)
	if err != nil {
		log.Error().Err(err).Int("fila", fila.Fila).Msg("importacion: render")
		return fallo(motivoInterno)
	}
	if err := s.mailer.SendQR(email, persona.NombreCompleto(), codigo.Codigo, png); err != nil {
		return fallo(fmt.Sprintf("error al enviar correo: %v", err))
	}
	return nil
}

func (s *importacionService) upsertPersona(ctx context.Context, cedula, nombre, apellido, email string) (*model.Persona, error) {
	p, err := s.personas.FindByCedula(ctx, cedula)
	if repository.IsNotFound(err) {
		p = &model.Persona{
			Nombre:    nombre,
			Apellido:  trimPtr(&apellido),
			Cedula:    &cedula,
			Email:     &email,
			Categoria: model.CategoriaEstudiante,
			Activo:    true,
		}
		err = s.personas.Create(ctx, p)
		if repository.IsUniqueViolation(err) {
			return s.personas.FindByCedula(ctx, cedula)
		}
		return p, err
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if p.Nombre != nombre {
		p.Nombre, changed = nombre, true
	}
	if a := trimPtr(&apellido); a != nil && (p.Apellido == nil || *p.Apellido != *a) {
		p.Apellido, changed = a, true
	}
	if p.Email == nil || *p.Email != email {
		p.Email, changed = &email, true
	}
	if changed {
		if err := s.personas.Update(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}
