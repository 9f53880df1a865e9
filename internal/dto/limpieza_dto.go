package dto

type PurgeRequest struct {
	Confirmacion string `json:"confirmacion" validate:"required"`
}

type DirectorioEstado struct {
	Ruta     string `json:"ruta"`
	Archivos int    `json:"archivos"`
	Bytes    int64  `json:"bytes"`
	Existe   bool   `json:"existe"`
}

// LimpiezaEstadoResponse is returned by GET /v1/limpieza.
type LimpiezaEstadoResponse struct {
	Registros   map[string]int64   `json:"registros"`
	Directorios []DirectorioEstado `json:"directorios"`
}

type PurgeResponse struct {
	Success  bool             `json:"success"`
	Borrados map[string]int64 `json:"borrados"`
}
