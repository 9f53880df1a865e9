package infra

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/DanielPaucar/control-coliseo/internal/dto"

	"github.com/xuri/excelize/v2"
)

var (
	ErrHojaVacia       = errors.New("el archivo no contiene filas")
	ErrColumnaFaltante = errors.New("falta una columna obligatoria")
)

var headerAliases = map[string]string{
	"cedula":    "cedula",
	"cédula":    "cedula",
	"ci":        "cedula",
	"nombre":    "nombre",
	"nombres":   "nombre",
	"apellido":  "apellido",
	"apellidos": "apellido",
	"email":     "email",
	"correo":    "email",
	"e-mail":    "email",
}

// ReadFilasImportacion reads the first sheet of an xlsx workbook. The first
// row is the header; cedula, nombre and email columns are required, apellido
// is optional. Blank rows are skipped. Fila is the 1-based sheet row.
func ReadFilasImportacion(r io.Reader) ([]dto.FilaImportacion, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrHojaVacia
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("xlsx: read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrHojaVacia
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		if key, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, seen := idx[key]; !seen {
				idx[key] = i
			}
		}
	}
	for _, col := range []string{"cedula", "nombre", "email"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnaFaltante, col)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	filas := make([]dto.FilaImportacion, 0, len(rows)-1)
	for n, row := range rows[1:] {
		fila := dto.FilaImportacion{
			Fila:     n + 2,
			Cedula:   cell(row, "cedula"),
			Nombre:   cell(row, "nombre"),
			Apellido: cell(row, "apellido"),
			Email:    cell(row, "email"),
		}
		if fila.Cedula == "" && fila.Nombre == "" && fila.Apellido == "" && fila.Email == "" {
			continue
		}
		filas = append(filas, fila)
	}
	return filas, nil
}
