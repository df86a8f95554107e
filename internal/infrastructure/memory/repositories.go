package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/repository"
)

var (
	_ repository.DocumentRepository         = (*documentRepo)(nil)
	_ repository.NumberingCounterRepository = (*counterRepo)(nil)
	_ repository.SeriesRepository           = (*seriesRepo)(nil)
	_ repository.ProductRepository          = (*productRepo)(nil)
	_ repository.TerceroRepository          = (*terceroRepo)(nil)
	_ repository.PaymentTermRepository      = (*termRepo)(nil)
	_ repository.StockMovementRepository    = (*movementRepo)(nil)
)

func sortDocuments(docs []entity.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].Number < docs[j].Number
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Documentos
// ──────────────────────────────────────────────────────────────────────────────

type documentRepo struct{ st *state }

func (r *documentRepo) Create(_ context.Context, doc *entity.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if _, ok := r.st.documents[doc.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, d := range r.st.documents {
		if d.Number == doc.Number {
			return domain.ErrDuplicate
		}
	}
	touch(&doc.CreatedAt)
	touch(&doc.UpdatedAt)
	r.st.documents[doc.ID] = *doc
	return nil
}

func (r *documentRepo) Update(_ context.Context, doc *entity.Document) error {
	cur, ok := r.st.documents[doc.ID]
	if !ok || cur.DeletedAt != nil {
		return domain.NotFound("documento", doc.ID)
	}
	doc.UpdatedAt = time.Now()
	r.st.documents[doc.ID] = *doc
	return nil
}

func (r *documentRepo) GetByID(_ context.Context, id string) (*entity.Document, error) {
	d, ok := r.st.documents[id]
	if !ok || d.DeletedAt != nil {
		return nil, nil
	}
	return &d, nil
}

func (r *documentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	return r.GetByID(ctx, id)
}

func (r *documentRepo) ExistsNumber(_ context.Context, number string) (bool, error) {
	for _, d := range r.st.documents {
		if d.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *documentRepo) SoftDelete(_ context.Context, id string) error {
	d, ok := r.st.documents[id]
	if !ok || d.DeletedAt != nil {
		return domain.NotFound("documento", id)
	}
	now := time.Now()
	d.DeletedAt = &now
	r.st.documents[id] = d
	return nil
}

func (r *documentRepo) ListDerived(_ context.Context, id string, kind entity.Kind) ([]*entity.Document, error) {
	grouped := map[string]bool{}
	for _, o := range r.st.origins {
		if o.OriginDocumentID == id {
			grouped[o.DocumentID] = true
		}
	}
	var found []entity.Document
	for _, d := range r.st.documents {
		if d.DeletedAt != nil || (kind != "" && d.Kind != kind) {
			continue
		}
		if d.OriginDocumentID == id || grouped[d.ID] {
			found = append(found, d)
		}
	}
	sortDocuments(found)
	out := make([]*entity.Document, 0, len(found))
	for i := range found {
		out = append(out, &found[i])
	}
	return out, nil
}

func (r *documentRepo) CreateLine(_ context.Context, line *entity.DocumentLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	if _, ok := r.st.lines[line.ID]; ok {
		return domain.ErrDuplicate
	}
	r.st.lines[line.ID] = *line
	return nil
}

func (r *documentRepo) UpdateLine(_ context.Context, line *entity.DocumentLine) error {
	cur, ok := r.st.lines[line.ID]
	if !ok || cur.DocumentID != line.DocumentID {
		return domain.NotFound("línea", line.ID)
	}
	r.st.lines[line.ID] = *line
	return nil
}

func (r *documentRepo) DeleteLine(_ context.Context, documentID, lineID string) error {
	cur, ok := r.st.lines[lineID]
	if !ok || cur.DocumentID != documentID {
		return domain.NotFound("línea", lineID)
	}
	delete(r.st.lines, lineID)
	return nil
}

func (r *documentRepo) GetLine(_ context.Context, documentID, lineID string) (*entity.DocumentLine, error) {
	l, ok := r.st.lines[lineID]
	if !ok || l.DocumentID != documentID {
		return nil, nil
	}
	return &l, nil
}

func (r *documentRepo) ListLines(_ context.Context, documentID string) ([]*entity.DocumentLine, error) {
	var found []entity.DocumentLine
	for _, l := range r.st.lines {
		if l.DocumentID == documentID {
			found = append(found, l)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Position < found[j].Position })
	out := make([]*entity.DocumentLine, 0, len(found))
	for i := range found {
		out = append(out, &found[i])
	}
	return out, nil
}

func (r *documentRepo) AddOrigin(_ context.Context, origin *entity.DocumentOrigin) error {
	for _, o := range r.st.origins {
		if o.DocumentID == origin.DocumentID && o.OriginDocumentID == origin.OriginDocumentID {
			return domain.ErrDuplicate
		}
	}
	touch(&origin.CreatedAt)
	r.st.origins = append(r.st.origins, *origin)
	return nil
}

func (r *documentRepo) ListOrigins(_ context.Context, documentID string) ([]*entity.DocumentOrigin, error) {
	var out []*entity.DocumentOrigin
	for _, o := range r.st.origins {
		if o.DocumentID == documentID {
			o := o
			out = append(out, &o)
		}
	}
	return out, nil
}

func (r *documentRepo) DeleteOrigins(_ context.Context, documentID string) error {
	kept := r.st.origins[:0:0]
	for _, o := range r.st.origins {
		if o.DocumentID != documentID {
			kept = append(kept, o)
		}
	}
	r.st.origins = kept
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Numeración
// ──────────────────────────────────────────────────────────────────────────────

type counterRepo struct{ st *state }

func (r *counterRepo) ensure(defaults entity.NumberingCounter) entity.NumberingCounter {
	k := counterKey(defaults.Kind, defaults.Series, defaults.Year)
	c, ok := r.st.counters[k]
	if !ok {
		c = defaults
		c.ID = uuid.New().String()
		c.LastNumber = 0
	}
	return c
}

func (r *counterRepo) Increment(_ context.Context, defaults entity.NumberingCounter) (*entity.NumberingCounter, error) {
	c := r.ensure(defaults)
	c.LastNumber++
	c.UpdatedAt = time.Now()
	r.st.counters[counterKey(c.Kind, c.Series, c.Year)] = c
	return &c, nil
}

func (r *counterRepo) RaiseTo(_ context.Context, defaults entity.NumberingCounter, floor int64) error {
	c := r.ensure(defaults)
	if floor > c.LastNumber {
		c.LastNumber = floor
	}
	c.UpdatedAt = time.Now()
	r.st.counters[counterKey(c.Kind, c.Series, c.Year)] = c
	return nil
}

func (r *counterRepo) Get(_ context.Context, kind entity.Kind, series string, year int) (*entity.NumberingCounter, error) {
	c, ok := r.st.counters[counterKey(kind, series, year)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type seriesRepo struct{ st *state }

func (r *seriesRepo) FirstActiveBilling(_ context.Context) (*entity.Series, error) {
	codes := make([]string, 0, len(r.st.series))
	for code := range r.st.series {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		s := r.st.series[code]
		if s.Active && s.Billing {
			return &s, nil
		}
	}
	return nil, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Catálogo
// ──────────────────────────────────────────────────────────────────────────────

type productRepo struct{ st *state }

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *productRepo) GetByReference(_ context.Context, reference string) (*entity.Product, error) {
	for _, p := range r.st.products {
		if p.Reference == reference {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *productRepo) AdjustStock(_ context.Context, productID string, delta decimal.Decimal) error {
	p, ok := r.st.products[productID]
	if !ok {
		return domain.NotFound("producto", productID)
	}
	p.Stock = p.Stock.Add(delta)
	p.UpdatedAt = time.Now()
	r.st.products[productID] = p
	return nil
}

func (r *productRepo) UpdateCost(_ context.Context, productID string, cost decimal.Decimal) error {
	p, ok := r.st.products[productID]
	if !ok {
		return domain.NotFound("producto", productID)
	}
	p.Cost = cost
	r.st.products[productID] = p
	return nil
}

type terceroRepo struct{ st *state }

func (r *terceroRepo) GetByID(_ context.Context, id string) (*entity.Tercero, error) {
	t, ok := r.st.partners[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

type termRepo struct{ st *state }

func (r *termRepo) Create(_ context.Context, term *entity.PaymentTerm) error {
	if term.ID == "" {
		term.ID = uuid.New().String()
	}
	for _, t := range r.st.terms {
		if t.Code == term.Code {
			return domain.ErrDuplicate
		}
	}
	touch(&term.CreatedAt)
	touch(&term.UpdatedAt)
	cp := *term
	cp.Installments = append([]entity.Installment(nil), term.Installments...)
	r.st.terms[term.ID] = cp
	return nil
}

func (r *termRepo) Update(_ context.Context, term *entity.PaymentTerm) error {
	if _, ok := r.st.terms[term.ID]; !ok {
		return domain.NotFound("forma de pago", term.ID)
	}
	term.UpdatedAt = time.Now()
	cp := *term
	cp.Installments = append([]entity.Installment(nil), term.Installments...)
	r.st.terms[term.ID] = cp
	return nil
}

func (r *termRepo) GetByID(_ context.Context, id string) (*entity.PaymentTerm, error) {
	t, ok := r.st.terms[id]
	if !ok {
		return nil, nil
	}
	t.Installments = append([]entity.Installment(nil), t.Installments...)
	return &t, nil
}

func (r *termRepo) GetByCode(ctx context.Context, code string) (*entity.PaymentTerm, error) {
	for id, t := range r.st.terms {
		if t.Code == code {
			return r.GetByID(ctx, id)
		}
	}
	return nil, nil
}

func (r *termRepo) List(ctx context.Context, onlyActive bool) ([]*entity.PaymentTerm, error) {
	var out []*entity.PaymentTerm
	for id, t := range r.st.terms {
		if onlyActive && !t.Active {
			continue
		}
		cp, _ := r.GetByID(ctx, id)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type movementRepo struct{ st *state }

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	touch(&m.CreatedAt)
	r.st.movements = append(r.st.movements, *m)
	return nil
}

func (r *movementRepo) ListByDocument(_ context.Context, documentID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.st.movements {
		if m.DocumentID == documentID {
			m := m
			out = append(out, &m)
		}
	}
	return out, nil
}
