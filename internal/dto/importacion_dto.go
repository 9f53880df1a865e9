package dto

// FilaImportacion is one spreadsheet row. Fila is the 1-based sheet row number.
type FilaImportacion struct {
	Fila     int    `json:"fila"`
	Cedula   string `json:"cedula"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Email    string `json:"email"`
}

// ImportError is one failed row of a bulk import.
type ImportError struct {
	Fila   int    `json:"fila"`
	Email  string `json:"email"`
	Motivo string `json:"motivo"`
}

// Import event types streamed as newline-delimited JSON.
const (
	EventStart       = "start"
	EventProgress    = "progress"
	EventCooldown    = "cooldown"
	EventEmailFailed = "email-failed"
	EventDone        = "done"
	EventError       = "error"
)

type ImportResumen struct {
	ImportacionID string        `json:"importacion_id"`
	Total         int           `json:"total"`
	Exitosos      int           `json:"exitosos"`
	Fallidos      int           `json:"fallidos"`
	Errores       []ImportError `json:"errores"`
}

// ImportEvent is one progress message. Only the fields relevant to Type are set.
type ImportEvent struct {
	Type       string         `json:"type"`
	Total      int            `json:"total,omitempty"`
	Procesados int            `json:"procesados,omitempty"`
	Exitosos   int            `json:"exitosos,omitempty"`
	Fallidos   int            `json:"fallidos,omitempty"`
	Segundos   int            `json:"segundos,omitempty"`
	Fallo      *ImportError   `json:"fallo,omitempty"`
	Resumen    *ImportResumen `json:"resumen,omitempty"`
	Mensaje    string         `json:"mensaje,omitempty"`
}
