package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type IngresoRequest struct {
	Codigo string `json:"codigo" validate:"required,min=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// IngresoResponse is the result of one successful redemption.
type IngresoResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Codigo    string `json:"codigo"`
	Categoria string `json:"categoria"`
	Nombre    string `json:"nombre,omitempty"`
	Usos      int    `json:"usos"`
	MaxUsos   int    `json:"max_usos"`
	Restantes int    `json:"restantes"`
}
