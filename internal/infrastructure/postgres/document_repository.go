package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `
	d.id, d.kind, d.number, d.numbering_year, d.series, d.date, d.due_date, d.partner_id, d.state,
	d.subtotal, d.discount, d.taxable_base, d.vat_amount, d.withholding_rate, d.withholding_amount,
	d.surcharge_amount, d.total, d.surcharge_applies, d.payment_term_id, d.origin_document_id,
	d.stock_applied, d.observations, d.created_by, d.created_at, d.updated_at, d.deleted_at`

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var (
		doc                   entity.Document
		kind, state           string
		partner, term, origin *string
	)
	err := row.Scan(
		&doc.ID, &kind, &doc.Number, &doc.NumberingYear, &doc.Series, &doc.Date, &doc.DueDate, &partner, &state,
		&doc.Subtotal, &doc.Discount, &doc.TaxableBase, &doc.VATAmount, &doc.WithholdingRate, &doc.WithholdingAmount,
		&doc.SurchargeAmount, &doc.Total, &doc.SurchargeApplies, &term, &origin,
		&doc.StockApplied, &doc.Observations, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt, &doc.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Kind = entity.Kind(kind)
	doc.State = entity.State(state)
	doc.PartnerID = derefStr(partner)
	doc.PaymentTermID = derefStr(term)
	doc.OriginDocumentID = derefStr(origin)
	return &doc, nil
}

// Create persiste la cabecera. Un número repetido (aunque el otro esté borrado) devuelve ErrDuplicate.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO documents (id, kind, number, series, date, due_date, partner_id, state,
			subtotal, discount, taxable_base, vat_amount, withholding_rate, withholding_amount,
			surcharge_amount, total, surcharge_applies, payment_term_id, origin_document_id,
			stock_applied, observations, created_by, created_at, updated_at, numbering_year)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, string(doc.Kind), doc.Number, doc.Series, doc.Date, doc.DueDate, nullIfEmpty(doc.PartnerID), string(doc.State),
		doc.Subtotal, doc.Discount, doc.TaxableBase, doc.VATAmount, doc.WithholdingRate, doc.WithholdingAmount,
		doc.SurchargeAmount, doc.Total, doc.SurchargeApplies, nullIfEmpty(doc.PaymentTermID), nullIfEmpty(doc.OriginDocumentID),
		doc.StockApplied, doc.Observations, doc.CreatedBy, doc.CreatedAt, doc.UpdatedAt, doc.NumberingYear,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("document number %s: %w", doc.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Update reescribe la cabecera completa de un documento vivo.
func (r *DocumentRepo) Update(ctx context.Context, doc *entity.Document) error {
	doc.UpdatedAt = time.Now()
	query := `
		UPDATE documents
		SET number = $2, series = $3, date = $4, due_date = $5, partner_id = $6, state = $7,
		    subtotal = $8, discount = $9, taxable_base = $10, vat_amount = $11,
		    withholding_rate = $12, withholding_amount = $13, surcharge_amount = $14, total = $15,
		    surcharge_applies = $16, payment_term_id = $17, origin_document_id = $18,
		    stock_applied = $19, observations = $20, updated_at = $21, numbering_year = $22
		WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, query,
		doc.ID, doc.Number, doc.Series, doc.Date, doc.DueDate, nullIfEmpty(doc.PartnerID), string(doc.State),
		doc.Subtotal, doc.Discount, doc.TaxableBase, doc.VATAmount,
		doc.WithholdingRate, doc.WithholdingAmount, doc.SurchargeAmount, doc.Total,
		doc.SurchargeApplies, nullIfEmpty(doc.PaymentTermID), nullIfEmpty(doc.OriginDocumentID),
		doc.StockApplied, doc.Observations, doc.UpdatedAt, doc.NumberingYear,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("document number %s: %w", doc.Number, domain.ErrDuplicate)
		}
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("documento", doc.ID)
	}
	return nil
}

// GetByID obtiene un documento vivo por ID.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	return r.get(ctx, `SELECT`+documentColumns+` FROM documents d WHERE d.id = $1 AND d.deleted_at IS NULL`, id)
}

// GetForUpdate igual que GetByID con SELECT ... FOR UPDATE.
func (r *DocumentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	return r.get(ctx, `SELECT`+documentColumns+` FROM documents d WHERE d.id = $1 AND d.deleted_at IS NULL FOR UPDATE`, id)
}

func (r *DocumentRepo) get(ctx context.Context, query, id string) (*entity.Document, error) {
	doc, err := scanDocument(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ExistsNumber incluye los documentos borrados: un número no se reutiliza nunca.
func (r *DocumentRepo) ExistsNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists number: %w", err)
	}
	return exists, nil
}

// SoftDelete marca deleted_at.
func (r *DocumentRepo) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `UPDATE documents SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("documento", id)
	}
	return nil
}

// ListDerived documentos vivos con origen simple id o con id en su conjunto de orígenes.
func (r *DocumentRepo) ListDerived(ctx context.Context, id string, kind entity.Kind) ([]*entity.Document, error) {
	query := `SELECT` + documentColumns + `
		FROM documents d
		WHERE d.deleted_at IS NULL
		  AND (d.origin_document_id = $1
		       OR EXISTS (SELECT 1 FROM document_origins o WHERE o.document_id = d.id AND o.origin_document_id = $1))
		  AND ($2 = '' OR d.kind = $2)
		ORDER BY d.date, d.number`
	rows, err := r.q.Query(ctx, query, id, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list derived: %w", err)
	}
	defer rows.Close()
	var list []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

// ──────────────────────────────────────────────────────────────────────────────
// Líneas
// ──────────────────────────────────────────────────────────────────────────────

const lineColumns = `
	id, document_id, position, product_id, reference, description, quantity, unit_price,
	discount_pct, vat_rate, surcharge_rate, gross_amount, discount_amount, subtotal,
	vat_amount, surcharge_amount, total`

func scanLine(row pgx.Row) (*entity.DocumentLine, error) {
	var (
		l       entity.DocumentLine
		product *string
	)
	err := row.Scan(
		&l.ID, &l.DocumentID, &l.Position, &product, &l.Reference, &l.Description, &l.Quantity, &l.UnitPrice,
		&l.DiscountPct, &l.VATRate, &l.SurchargeRate, &l.GrossAmount, &l.DiscountAmount, &l.Subtotal,
		&l.VATAmount, &l.SurchargeAmount, &l.Total,
	)
	if err != nil {
		return nil, err
	}
	l.ProductID = derefStr(product)
	return &l, nil
}

// CreateLine persiste una línea con sus importes ya calculados.
func (r *DocumentRepo) CreateLine(ctx context.Context, l *entity.DocumentLine) error {
	query := `INSERT INTO document_lines (` + lineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.DocumentID, l.Position, nullIfEmpty(l.ProductID), l.Reference, l.Description, l.Quantity, l.UnitPrice,
		l.DiscountPct, l.VATRate, l.SurchargeRate, l.GrossAmount, l.DiscountAmount, l.Subtotal,
		l.VATAmount, l.SurchargeAmount, l.Total,
	)
	if err != nil {
		return fmt.Errorf("insert document line: %w", err)
	}
	return nil
}

// UpdateLine reescribe una línea existente.
func (r *DocumentRepo) UpdateLine(ctx context.Context, l *entity.DocumentLine) error {
	query := `
		UPDATE document_lines
		SET position = $3, product_id = $4, reference = $5, description = $6, quantity = $7, unit_price = $8,
		    discount_pct = $9, vat_rate = $10, surcharge_rate = $11, gross_amount = $12, discount_amount = $13,
		    subtotal = $14, vat_amount = $15, surcharge_amount = $16, total = $17
		WHERE id = $1 AND document_id = $2`
	tag, err := r.q.Exec(ctx, query,
		l.ID, l.DocumentID, l.Position, nullIfEmpty(l.ProductID), l.Reference, l.Description, l.Quantity, l.UnitPrice,
		l.DiscountPct, l.VATRate, l.SurchargeRate, l.GrossAmount, l.DiscountAmount,
		l.Subtotal, l.VATAmount, l.SurchargeAmount, l.Total,
	)
	if err != nil {
		return fmt.Errorf("update document line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("línea", l.ID)
	}
	return nil
}

// DeleteLine borra físicamente la línea.
func (r *DocumentRepo) DeleteLine(ctx context.Context, documentID, lineID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM document_lines WHERE id = $1 AND document_id = $2`, lineID, documentID)
	if err != nil {
		return fmt.Errorf("delete document line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("línea", lineID)
	}
	return nil
}

// GetLine obtiene una línea del documento.
func (r *DocumentRepo) GetLine(ctx context.Context, documentID, lineID string) (*entity.DocumentLine, error) {
	row := r.q.QueryRow(ctx, `SELECT`+lineColumns+` FROM document_lines WHERE id = $1 AND document_id = $2`, lineID, documentID)
	l, err := scanLine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document line: %w", err)
	}
	return l, nil
}

// ListLines líneas ordenadas por posición.
func (r *DocumentRepo) ListLines(ctx context.Context, documentID string) ([]*entity.DocumentLine, error) {
	rows, err := r.q.Query(ctx, `SELECT`+lineColumns+` FROM document_lines WHERE document_id = $1 ORDER BY position, id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.DocumentLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document line: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// ──────────────────────────────────────────────────────────────────────────────
// Conjunto de orígenes
// ──────────────────────────────────────────────────────────────────────────────

// AddOrigin registra un origen de agrupación.
func (r *DocumentRepo) AddOrigin(ctx context.Context, o *entity.DocumentOrigin) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO document_origins (document_id, origin_document_id, processed_quantity, created_at)
		VALUES ($1, $2, $3, $4)`,
		o.DocumentID, o.OriginDocumentID, o.ProcessedQuantity, o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("origin %s: %w", o.OriginDocumentID, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert document origin: %w", err)
	}
	return nil
}

// ListOrigins orígenes del documento agrupado.
func (r *DocumentRepo) ListOrigins(ctx context.Context, documentID string) ([]*entity.DocumentOrigin, error) {
	rows, err := r.q.Query(ctx, `
		SELECT document_id, origin_document_id, processed_quantity, created_at
		FROM document_origins WHERE document_id = $1 ORDER BY created_at, origin_document_id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document origins: %w", err)
	}
	defer rows.Close()
	var list []*entity.DocumentOrigin
	for rows.Next() {
		var o entity.DocumentOrigin
		if err := rows.Scan(&o.DocumentID, &o.OriginDocumentID, &o.ProcessedQuantity, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document origin: %w", err)
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

// DeleteOrigins libera los orígenes del documento.
func (r *DocumentRepo) DeleteOrigins(ctx context.Context, documentID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM document_origins WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete document origins: %w", err)
	}
	return nil
}
