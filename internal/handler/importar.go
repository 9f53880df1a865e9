package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/apierror"
	"github.com/DanielPaucar/control-coliseo/internal/infra"
	"github.com/DanielPaucar/control-coliseo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxImportSize = 10 << 20

type ImportarHandler struct {
	svc        service.ImportacionService
	uploadsDir string
}

// NewImportarHandler keeps a copy of each uploaded workbook under uploadsDir
// when it is set.
func NewImportarHandler(svc service.ImportacionService, uploadsDir string) *ImportarHandler {
	return &ImportarHandler{svc: svc, uploadsDir: uploadsDir}
}

// Importar godoc
// @Summary Importa estudiantes desde un xlsx y envía sus QR por correo
// @Description Responde con un stream NDJSON de eventos start, progress, cooldown, email-failed, done y error.
// @Tags importar
// @Accept multipart/form-data
// @Produce application/x-ndjson
// @Security BearerAuth
// @Param archivo formData file true "Hoja de cálculo (.xlsx)"
// @Param max_usos_familiar formData int false "Acompañantes por estudiante"
// @Success 200 {object} dto.ImportEvent
// @Failure 400 {object} apierror.APIError
// @Router /v1/importar [post]
func (h *ImportarHandler) Importar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)

	maxFamiliar, err := strconv.Atoi(c.DefaultPostForm("max_usos_familiar", "0"))
	if err != nil || maxFamiliar < 0 {
		c.JSON(http.StatusBadRequest, apierror.New("max_usos_familiar debe ser un entero mayor o igual a cero"))
		return
	}

	header, err := c.FormFile("archivo")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Falta el archivo (campo 'archivo')"))
		return
	}
	f, err := header.Open()
	if err != nil {
		respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	filas, err := infra.ReadFilasImportacion(f)
	switch {
	case errors.Is(err, infra.ErrHojaVacia), errors.Is(err, infra.ErrColumnaFaltante):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	case err != nil:
		log.Warn().Err(err).Str("archivo", header.Filename).Msg("importar: unreadable workbook")
		c.JSON(http.StatusBadRequest, apierror.New("No se pudo leer el archivo; se espera un .xlsx"))
		return
	}

	if h.uploadsDir != "" {
		dst := filepath.Join(h.uploadsDir, fmt.Sprintf("%d_%s", time.Now().Unix(), filepath.Base(header.Filename)))
		err := os.MkdirAll(h.uploadsDir, 0o755)
		if err == nil {
			err = c.SaveUploadedFile(header, dst)
		}
		if err != nil {
			log.Warn().Err(err).Str("dst", dst).Msg("importar: could not keep a copy of the upload")
		}
	}

	events := h.svc.Run(c.Request.Context(), service.ImportInput{
		Archivo:         header.Filename,
		Operador:        operador(c),
		Filas:           filas,
		MaxUsosFamiliar: maxFamiliar,
	})

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		return json.NewEncoder(w).Encode(ev) == nil
	})
}
