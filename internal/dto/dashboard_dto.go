package dto

// Dashboard buckets. "adicional" covers codes sold through a caja session.
const (
	BucketEstudiante = "estudiante"
	BucketFamiliar   = "familiar"
	BucketVisitante  = "visitante"
	BucketAdicional  = "adicional"
)

type DashboardCodigo struct {
	Codigo        string `json:"codigo"`
	Nombre        string `json:"nombre"`
	Categoria     string `json:"categoria"`
	Usos          int    `json:"usos"`
	UltimoIngreso string `json:"ultimo_ingreso"`
}

// DashboardResponse is returned by GET /v1/dashboard.
type DashboardResponse struct {
	Fecha        *string           `json:"fecha"` // nil = all time
	Total        int               `json:"total"`
	PorCategoria map[string]int    `json:"por_categoria"`
	Codigos      []DashboardCodigo `json:"codigos"`
	Hoy          int64             `json:"hoy"`
}
