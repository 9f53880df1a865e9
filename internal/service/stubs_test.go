package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/dto"
	"github.com/DanielPaucar/control-coliseo/internal/model"
	"github.com/DanielPaucar/control-coliseo/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory CodigoRepository ───────────────────────────────────────────────

type memCodigos struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*model.CodigoQR
	ingresos []model.Ingreso
	personas *memPersonas
	// dupNext makes the next N creates fail with a duplicated key
	dupNext int
}

func newMemCodigos(personas *memPersonas) *memCodigos {
	return &memCodigos{byID: map[uuid.UUID]*model.CodigoQR{}, personas: personas}
}

func (r *memCodigos) withPersona(c model.CodigoQR) *model.CodigoQR {
	if c.PersonaID != nil && r.personas != nil {
		if p, err := r.personas.FindByID(context.Background(), *c.PersonaID); err == nil {
			c.Persona = p
		}
	}
	return &c
}

func (r *memCodigos) Create(_ context.Context, c *model.CodigoQR) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dupNext > 0 {
		r.dupNext--
		return gorm.ErrDuplicatedKey
	}
	for _, existing := range r.byID {
		if existing.Codigo == c.Codigo {
			return gorm.ErrDuplicatedKey
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *memCodigos) FindByID(_ context.Context, id uuid.UUID) (*model.CodigoQR, error) {
	r.mu.Lock()
	c, ok := r.byID[id]
	r.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.withPersona(*c), nil
}

func (r *memCodigos) FindByCodigo(ctx context.Context, codigo string) (*model.CodigoQR, error) {
	r.mu.Lock()
	var found *model.CodigoQR
	for _, c := range r.byID {
		if c.Codigo == codigo {
			cp := *c
			found = &cp
		}
	}
	r.mu.Unlock()
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.withPersona(*found), nil
}

func (r *memCodigos) ListByPersona(_ context.Context, personaID uuid.UUID) ([]model.CodigoQR, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CodigoQR
	for _, c := range r.byID {
		if c.PersonaID != nil && *c.PersonaID == personaID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memCodigos) FindByPersonaCategoria(_ context.Context, personaID uuid.UUID, categoria string) (*model.CodigoQR, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.PersonaID != nil && *c.PersonaID == personaID && c.Categoria == categoria {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memCodigos) RegistrarIngreso(_ context.Context, id uuid.UUID, fecha time.Time) (*model.CodigoQR, error) {
	r.mu.Lock()
	c, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	if c.Usos >= c.MaxUsos {
		r.mu.Unlock()
		return nil, repository.ErrSinUsos
	}
	c.Usos++
	r.ingresos = append(r.ingresos, model.Ingreso{ID: uuid.New(), CodigoQRID: id, Fecha: fecha})
	cp := *c
	r.mu.Unlock()
	return r.withPersona(cp), nil
}

func (r *memCodigos) UpdateMaxUsos(_ context.Context, id uuid.UUID, maxUsos int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if c.Usos > maxUsos {
		return repository.ErrUsosInvalidos
	}
	c.MaxUsos = maxUsos
	return nil
}

func (r *memCodigos) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

var _ repository.CodigoRepository = (*memCodigos)(nil)

// ── In-memory PersonaRepository ──────────────────────────────────────────────

type memPersonas struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Persona
}

func newMemPersonas() *memPersonas {
	return &memPersonas{byID: map[uuid.UUID]*model.Persona{}}
}

func (r *memPersonas) Create(_ context.Context, p *model.Persona) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if p.Cedula != nil && existing.Cedula != nil && *existing.Cedula == *p.Cedula {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memPersonas) FindByID(_ context.Context, id uuid.UUID) (*model.Persona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPersonas) FindByCedula(_ context.Context, cedula string) (*model.Persona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Cedula != nil && *p.Cedula == cedula {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memPersonas) Update(_ context.Context, p *model.Persona) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

var _ repository.PersonaRepository = (*memPersonas)(nil)

// ── In-memory CajaRepository ─────────────────────────────────────────────────

type memCaja struct {
	mu       sync.Mutex
	sesiones map[uuid.UUID]*model.SesionCaja
	ventas   []model.VentaAdicional
	codigos  *memCodigos
	limite   int

	failListVentas bool
}

func newMemCaja(codigos *memCodigos) *memCaja {
	return &memCaja{sesiones: map[uuid.UUID]*model.SesionCaja{}, codigos: codigos}
}

func (r *memCaja) CreateSesion(_ context.Context, s *model.SesionCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sesiones {
		if existing.Abierta && existing.OperadorApertura == s.OperadorApertura {
			return gorm.ErrDuplicatedKey
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.sesiones[s.ID] = &cp
	return nil
}

func (r *memCaja) FindSesionAbiertaPorOperador(_ context.Context, operador string) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sesiones {
		if s.Abierta && s.OperadorApertura == operador {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memCaja) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	cp.Ventas = r.ventasDe(id)
	return &cp, nil
}

func (r *memCaja) ventasDe(id uuid.UUID) []model.VentaAdicional {
	var out []model.VentaAdicional
	for _, v := range r.ventas {
		if v.SesionCajaID == id {
			out = append(out, v)
		}
	}
	return out
}

func (r *memCaja) CerrarSesion(_ context.Context, id uuid.UUID, operador string, cerradaEn time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[id]
	if !ok || !s.Abierta {
		return repository.ErrSesionCerrada
	}
	s.Abierta = false
	s.OperadorCierre = &operador
	s.CerradaEn = &cerradaEn
	return nil
}

func (r *memCaja) list(abierta bool) []model.SesionCaja {
	var out []model.SesionCaja
	for _, s := range r.sesiones {
		if s.Abierta == abierta {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AbiertaEn.After(out[j].AbiertaEn) })
	return out
}

func (r *memCaja) ListSesionesAbiertas(_ context.Context) ([]model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(true), nil
}

func (r *memCaja) ListSesionesCerradas(_ context.Context, limit int) ([]model.SesionCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.list(false)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memCaja) DeleteSesionCerrada(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sesiones[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if s.Abierta {
		return repository.ErrSesionAbierta
	}
	kept := r.ventas[:0]
	for _, v := range r.ventas {
		if v.SesionCajaID != id {
			kept = append(kept, v)
		}
	}
	r.ventas = kept
	delete(r.sesiones, id)
	return nil
}

func (r *memCaja) checkAbierta(id uuid.UUID) error {
	s, ok := r.sesiones[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if !s.Abierta {
		return repository.ErrSesionCerrada
	}
	return nil
}

func (r *memCaja) CreateVenta(_ context.Context, v *model.VentaAdicional) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAbierta(v.SesionCajaID); err != nil {
		return err
	}
	r.addVenta(v)
	return nil
}

func (r *memCaja) addVenta(v *model.VentaAdicional) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = time.Now()
	r.ventas = append(r.ventas, *v)
}

func (r *memCaja) CreateVentaConCodigo(ctx context.Context, c *model.CodigoQR, v *model.VentaAdicional) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAbierta(v.SesionCajaID); err != nil {
		return err
	}
	if r.limite > 0 && r.vendidas()+int64(v.Cantidad) > int64(r.limite) {
		return repository.ErrLimiteExcedido
	}
	if err := r.codigos.Create(ctx, c); err != nil {
		return err
	}
	v.CodigoQRID = c.ID
	r.addVenta(v)
	return nil
}

func (r *memCaja) ListVentas(_ context.Context, id uuid.UUID) ([]model.VentaAdicional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failListVentas {
		return nil, errors.New("connection reset")
	}
	return r.ventasDe(id), nil
}

func (r *memCaja) ListVentasRecientes(_ context.Context, id uuid.UUID, limit int) ([]model.VentaAdicional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ventasDe(id)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *memCaja) SumVentasPorSesion(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]repository.TotalesSesion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uuid.UUID]repository.TotalesSesion{}
	for _, id := range ids {
		t := repository.TotalesSesion{SesionCajaID: id, Recaudado: decimal.Zero}
		for _, v := range r.ventasDe(id) {
			t.Tickets += int64(v.Cantidad)
			t.Recaudado = t.Recaudado.Add(v.Total())
		}
		out[id] = t
	}
	return out, nil
}

func (r *memCaja) vendidas() int64 {
	var n int64
	for _, v := range r.ventas {
		n += int64(v.Cantidad)
	}
	return n
}

func (r *memCaja) TotalVendidas(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vendidas(), nil
}

func (r *memCaja) MarcarEnviado(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ventas {
		if r.ventas[i].ID == id {
			r.ventas[i].EnviadoEmail = true
		}
	}
	return nil
}

func (r *memCaja) ListVentasSinEnviar(_ context.Context, antes time.Time, limit int) ([]model.VentaAdicional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.VentaAdicional
	for _, v := range r.ventas {
		if !v.EnviadoEmail && v.EmailDestino != nil && v.CreatedAt.Before(antes) && len(out) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

var _ repository.CajaRepository = (*memCaja)(nil)

// ── In-memory ConfiguracionRepository ────────────────────────────────────────

type memConfig struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemConfig() *memConfig { return &memConfig{values: map[string]string{}} }

func (r *memConfig) Get(_ context.Context, clave string) (*model.Configuracion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[clave]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.Configuracion{Clave: clave, Valor: v}, nil
}

func (r *memConfig) Set(_ context.Context, clave, valor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[clave] = valor
	return nil
}

func (r *memConfig) EnsureDefaults(_ context.Context, defaults map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range defaults {
		if _, ok := r.values[k]; !ok {
			r.values[k] = v
		}
	}
	return nil
}

var _ repository.ConfiguracionRepository = (*memConfig)(nil)

// ── In-memory ImportacionRepository ──────────────────────────────────────────

type memImportaciones struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.Importacion
}

func newMemImportaciones() *memImportaciones {
	return &memImportaciones{byID: map[uuid.UUID]model.Importacion{}}
}

func (r *memImportaciones) Create(_ context.Context, i *model.Importacion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	r.byID[i.ID] = *i
	return nil
}

func (r *memImportaciones) Update(_ context.Context, i *model.Importacion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[i.ID] = *i
	return nil
}

func (r *memImportaciones) FindByID(_ context.Context, id uuid.UUID) (*model.Importacion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &i, nil
}

func (r *memImportaciones) only() model.Importacion {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.byID {
		return i
	}
	return model.Importacion{}
}

var _ repository.ImportacionRepository = (*memImportaciones)(nil)

// ── Collaborators ────────────────────────────────────────────────────────────

type stubRenderer struct{ err error }

func (r stubRenderer) Render(codigo, _ string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png:" + codigo), nil
}

type stubDispatcher struct {
	mu         sync.Mutex
	emails     []dto.QREmailJob
	cierres    []dto.ClosureSummary
	errEmail   error
	errCierres error
}

func (d *stubDispatcher) EnqueueQREmail(_ context.Context, job dto.QREmailJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.errEmail != nil {
		return d.errEmail
	}
	d.emails = append(d.emails, job)
	return nil
}

func (d *stubDispatcher) EnqueueCierreCaja(_ context.Context, s dto.ClosureSummary) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.errCierres != nil {
		return d.errCierres
	}
	d.cierres = append(d.cierres, s)
	return nil
}

type stubSender struct {
	mu     sync.Mutex
	sent   []string
	failTo map[string]error
	onSend func(n int)
}

func (s *stubSender) SendQR(to, _, _ string, _ []byte) error {
	s.mu.Lock()
	if err := s.failTo[to]; err != nil {
		s.mu.Unlock()
		return err
	}
	s.sent = append(s.sent, to)
	n := len(s.sent)
	hook := s.onSend
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
