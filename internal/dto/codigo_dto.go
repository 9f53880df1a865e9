package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// GenerarQRRequest is the body of POST /v1/generar-qr.
// EsEstudiante=true requires Cedula and issues an owned estudiante code;
// otherwise an unowned visitante code is returned as a PNG data URL.
type GenerarQRRequest struct {
	EsEstudiante bool    `json:"esEstudiante"`
	Cedula       string  `json:"cedula"   validate:"max=20"`
	MaxUsos      int     `json:"max_usos"`
	Nombre       string  `json:"nombre"   validate:"omitempty,max=120"`
	Apellido     string  `json:"apellido" validate:"omitempty,max=120"`
	Email        *string `json:"email"    validate:"omitempty,email"`
}

type ReenviarQRRequest struct {
	CodigoID string `json:"codigo_id" validate:"required,uuid"`
}

type ActualizarUsosRequest struct {
	CodigoID string `json:"codigo_id" validate:"required,uuid"`
	MaxUsos  int    `json:"max_usos"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type GenerarQRResponse struct {
	Success bool   `json:"success"`
	Mensaje string `json:"mensaje"`
	Codigo  string `json:"codigo"`
	Imagen  string `json:"imagen,omitempty"` // data:image/png;base64,...
}

type CodigoResponse struct {
	ID        string `json:"id"`
	Codigo    string `json:"codigo"`
	Categoria string `json:"categoria"`
	Usos      int    `json:"usos"`
	MaxUsos   int    `json:"max_usos"`
	Restantes int    `json:"restantes"`
	CreatedAt string `json:"created_at"`
}

type PersonaResponse struct {
	ID        string  `json:"id"`
	Nombre    string  `json:"nombre"`
	Apellido  *string `json:"apellido"`
	Cedula    *string `json:"cedula"`
	Email     *string `json:"email"`
	Categoria string  `json:"categoria"`
	Activo    bool    `json:"activo"`
}

// PersonaCodigosResponse is returned by GET /v1/gestion-qr?cedula=
type PersonaCodigosResponse struct {
	Persona PersonaResponse  `json:"persona"`
	Codigos []CodigoResponse `json:"codigos"`
}
