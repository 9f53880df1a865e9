package infra

// pdf.go renders the caja closure report with go-pdf/fpdf: session header,
// one row per sale and the totals. The file is written to
// storagePath/cierre_{sesion}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/DanielPaucar/control-coliseo/internal/dto"

	"github.com/go-pdf/fpdf"
)

// GenerateCierrePDF writes the closure report for s and returns its path.
func GenerateCierrePDF(s dto.ClosureSummary, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("cierre_%s.pdf", s.SesionCajaID))

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr("Cierre de caja"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if s.Forzado {
		pdf.CellFormat(contentW, 5, tr("Cierre forzado por administración"), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	info := [][2]string{
		{"Sesión", s.SesionCajaID},
		{"Abierta por", s.OperadorApertura},
		{"Apertura", s.AbiertaEn.Format("02/01/2006 15:04")},
		{"Cerrada por", s.OperadorCierre},
		{"Cierre", s.CerradaEn.Format("02/01/2006 15:04")},
	}
	for _, row := range info {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(35, 6, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentW-35, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// ── Sales ────────────────────────────────────────────────────────────────
	colHora := contentW * 0.15
	colCodigo := contentW * 0.37
	colCant := contentW * 0.12
	colPrecio := contentW * 0.16
	colTotal := contentW * 0.20

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(colHora, 7, "Hora", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colCodigo, 7, tr("Código"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(colCant, 7, "Cant", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colPrecio, 7, "Precio", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colTotal, 7, "Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	if len(s.Ventas) == 0 {
		pdf.CellFormat(contentW, 7, "Sin ventas registradas", "1", 1, "C", false, 0, "")
	}
	for _, v := range s.Ventas {
		hora := v.CreatedAt
		if len(hora) >= 16 {
			hora = hora[11:16]
		}
		pdf.CellFormat(colHora, 6, hora, "1", 0, "C", false, 0, "")
		pdf.CellFormat(colCodigo, 6, v.Codigo, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colCant, 6, fmt.Sprintf("%d", v.Cantidad), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colPrecio, 6, "$"+v.PrecioUnitario.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, 6, "$"+v.Total.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW-colTotal, 7, "Entradas vendidas:", "", 0, "R", false, 0, "")
	pdf.CellFormat(colTotal, 7, fmt.Sprintf("%d", s.TotalTickets), "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW-colTotal, 7, "Total recaudado:", "", 0, "R", false, 0, "")
	pdf.CellFormat(colTotal, 7, "$"+s.TotalRecaudado.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
