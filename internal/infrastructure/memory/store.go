// Package memory implementa los puertos de persistencia en memoria con semántica transaccional.
// Se usa en tests de servicios y en ejecuciones de prueba del CLI (--dry-run).
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/erp-documentos/internal/application/ports"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

var _ ports.TxRunner = (*Store)(nil)

// Store almacén en memoria. Run serializa las transacciones con un único mutex y
// restaura una copia del estado si la función devuelve error.
type Store struct {
	mu sync.Mutex
	st state
}

type state struct {
	documents map[string]entity.Document
	lines     map[string]entity.DocumentLine
	origins   []entity.DocumentOrigin
	counters  map[string]entity.NumberingCounter
	series    map[string]entity.Series
	products  map[string]entity.Product
	partners  map[string]entity.Tercero
	terms     map[string]entity.PaymentTerm
	movements []entity.StockMovement
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: state{
		documents: map[string]entity.Document{},
		lines:     map[string]entity.DocumentLine{},
		counters:  map[string]entity.NumberingCounter{},
		series:    map[string]entity.Series{},
		products:  map[string]entity.Product{},
		partners:  map[string]entity.Tercero{},
		terms:     map[string]entity.PaymentTerm{},
	}}
}

// Run ejecuta fn con repositorios sobre el estado actual; si fn falla se restaura el estado previo.
func (s *Store) Run(ctx context.Context, fn func(r ports.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	if err := fn(s.repos()); err != nil {
		s.st = snap
		return err
	}
	return nil
}

func (s *Store) repos() ports.Repos {
	return ports.Repos{
		Documents: &documentRepo{st: &s.st},
		Counters:  &counterRepo{st: &s.st},
		Series:    &seriesRepo{st: &s.st},
		Products:  &productRepo{st: &s.st},
		Partners:  &terceroRepo{st: &s.st},
		Terms:     &termRepo{st: &s.st},
		Movements: &movementRepo{st: &s.st},
	}
}

func (st state) clone() state {
	out := state{
		documents: make(map[string]entity.Document, len(st.documents)),
		lines:     make(map[string]entity.DocumentLine, len(st.lines)),
		origins:   append([]entity.DocumentOrigin(nil), st.origins...),
		counters:  make(map[string]entity.NumberingCounter, len(st.counters)),
		series:    make(map[string]entity.Series, len(st.series)),
		products:  make(map[string]entity.Product, len(st.products)),
		partners:  make(map[string]entity.Tercero, len(st.partners)),
		terms:     make(map[string]entity.PaymentTerm, len(st.terms)),
		movements: append([]entity.StockMovement(nil), st.movements...),
	}
	for k, v := range st.documents {
		out.documents[k] = v
	}
	for k, v := range st.lines {
		out.lines[k] = v
	}
	for k, v := range st.counters {
		out.counters[k] = v
	}
	for k, v := range st.series {
		out.series[k] = v
	}
	for k, v := range st.products {
		out.products[k] = v
	}
	for k, v := range st.partners {
		out.partners[k] = v
	}
	for k, v := range st.terms {
		v.Installments = append([]entity.Installment(nil), v.Installments...)
		out.terms[k] = v
	}
	return out
}

func counterKey(kind entity.Kind, series string, year int) string {
	return fmt.Sprintf("%s|%s|%d", kind, series, year)
}

// ──────────────────────────────────────────────────────────────────────────────
// Carga de datos y lectura directa (tests / dry-run)
// ──────────────────────────────────────────────────────────────────────────────

// PutProduct inserta o reemplaza un producto.
func (s *Store) PutProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// PutPartner inserta o reemplaza un tercero.
func (s *Store) PutPartner(t entity.Tercero) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.partners[t.ID] = t
}

// PutPaymentTerm inserta o reemplaza una forma de pago.
func (s *Store) PutPaymentTerm(t entity.PaymentTerm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Installments = append([]entity.Installment(nil), t.Installments...)
	s.st.terms[t.ID] = t
}

// PutSeries inserta o reemplaza una serie.
func (s *Store) PutSeries(sr entity.Series) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.series[sr.Code] = sr
}

// PutDocument inserta o reemplaza un documento junto con sus líneas.
func (s *Store) PutDocument(doc entity.Document, lines ...entity.DocumentLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.documents[doc.ID] = doc
	for _, l := range lines {
		l.DocumentID = doc.ID
		s.st.lines[l.ID] = l
	}
}

// Document devuelve una copia del documento, incluidos los borrados lógicamente.
func (s *Store) Document(id string) (entity.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.st.documents[id]
	return d, ok
}

// Documents lista los documentos vivos de un tipo.
func (s *Store) Documents(kind entity.Kind) []entity.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Document
	for _, d := range s.st.documents {
		if d.Kind == kind && d.DeletedAt == nil {
			out = append(out, d)
		}
	}
	sortDocuments(out)
	return out
}

// Product devuelve una copia del producto.
func (s *Store) Product(id string) (entity.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	return p, ok
}

// Counter devuelve una copia del contador.
func (s *Store) Counter(kind entity.Kind, series string, year int) (entity.NumberingCounter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.counters[counterKey(kind, series, year)]
	return c, ok
}

// Movements devuelve los movimientos de stock de un documento.
func (s *Store) Movements(documentID string) []entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.StockMovement
	for _, m := range s.st.movements {
		if m.DocumentID == documentID {
			out = append(out, m)
		}
	}
	return out
}

func touch(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}
