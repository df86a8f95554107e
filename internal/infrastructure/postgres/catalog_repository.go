package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/repository"
)

var (
	_ repository.SeriesRepository      = (*SeriesRepo)(nil)
	_ repository.TerceroRepository     = (*TerceroRepo)(nil)
	_ repository.PaymentTermRepository = (*PaymentTermRepo)(nil)
)

// SeriesRepo lectura de series.
type SeriesRepo struct {
	q Querier
}

// NewSeriesRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSeriesRepository(q Querier) *SeriesRepo {
	return &SeriesRepo{q: q}
}

// FirstActiveBilling primera serie activa de facturación por código.
func (r *SeriesRepo) FirstActiveBilling(ctx context.Context) (*entity.Series, error) {
	var s entity.Series
	err := r.q.QueryRow(ctx, `
		SELECT code, name, active, billing FROM series
		WHERE active AND billing ORDER BY code LIMIT 1`).Scan(&s.Code, &s.Name, &s.Active, &s.Billing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("first billing series: %w", err)
	}
	return &s, nil
}

// TerceroRepo lectura de terceros.
type TerceroRepo struct {
	q Querier
}

// NewTerceroRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTerceroRepository(q Querier) *TerceroRepo {
	return &TerceroRepo{q: q}
}

// GetByID obtiene un tercero por ID.
func (r *TerceroRepo) GetByID(ctx context.Context, id string) (*entity.Tercero, error) {
	var (
		t    entity.Tercero
		term *string
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, name, tax_id, is_client, is_supplier, is_employee, is_carrier,
		       surcharge_regime, withholding_rate, payment_term_id, created_at, updated_at
		FROM terceros WHERE id = $1`, id).Scan(
		&t.ID, &t.Name, &t.TaxID, &t.IsClient, &t.IsSupplier, &t.IsEmployee, &t.IsCarrier,
		&t.SurchargeRegime, &t.WithholdingRate, &term, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tercero: %w", err)
	}
	t.PaymentTermID = derefStr(term)
	return &t, nil
}

// PaymentTermRepo formas de pago; los vencimientos se guardan en una columna JSONB.
type PaymentTermRepo struct {
	q Querier
}

// NewPaymentTermRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentTermRepository(q Querier) *PaymentTermRepo {
	return &PaymentTermRepo{q: q}
}

const paymentTermColumns = `id, code, name, kind, installments, active, created_at, updated_at`

func scanPaymentTerm(row pgx.Row) (*entity.PaymentTerm, error) {
	var (
		t   entity.PaymentTerm
		raw []byte
	)
	if err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Kind, &raw, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &t.Installments); err != nil {
			return nil, fmt.Errorf("decode installments: %w", err)
		}
	}
	return &t, nil
}

func encodeInstallments(in []entity.Installment) ([]byte, error) {
	if in == nil {
		in = []entity.Installment{}
	}
	return json.Marshal(in)
}

// Create persiste la forma de pago. Código repetido = ErrDuplicate.
func (r *PaymentTermRepo) Create(ctx context.Context, t *entity.PaymentTerm) error {
	raw, err := encodeInstallments(t.Installments)
	if err != nil {
		return fmt.Errorf("encode installments: %w", err)
	}
	_, err = r.q.Exec(ctx, `INSERT INTO payment_terms (`+paymentTermColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Code, t.Name, t.Kind, raw, t.Active, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payment term %s: %w", t.Code, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert payment term: %w", err)
	}
	return nil
}

// Update reescribe la forma de pago.
func (r *PaymentTermRepo) Update(ctx context.Context, t *entity.PaymentTerm) error {
	raw, err := encodeInstallments(t.Installments)
	if err != nil {
		return fmt.Errorf("encode installments: %w", err)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE payment_terms SET code = $2, name = $3, kind = $4, installments = $5, active = $6, updated_at = now()
		WHERE id = $1`, t.ID, t.Code, t.Name, t.Kind, raw, t.Active)
	if err != nil {
		return fmt.Errorf("update payment term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("forma de pago", t.ID)
	}
	return nil
}

// GetByID obtiene una forma de pago por ID.
func (r *PaymentTermRepo) GetByID(ctx context.Context, id string) (*entity.PaymentTerm, error) {
	return r.getOne(ctx, `SELECT `+paymentTermColumns+` FROM payment_terms WHERE id = $1`, id)
}

// GetByCode obtiene una forma de pago por código.
func (r *PaymentTermRepo) GetByCode(ctx context.Context, code string) (*entity.PaymentTerm, error) {
	return r.getOne(ctx, `SELECT `+paymentTermColumns+` FROM payment_terms WHERE code = $1`, code)
}

func (r *PaymentTermRepo) getOne(ctx context.Context, query, arg string) (*entity.PaymentTerm, error) {
	t, err := scanPaymentTerm(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment term: %w", err)
	}
	return t, nil
}

// List formas de pago ordenadas por código.
func (r *PaymentTermRepo) List(ctx context.Context, onlyActive bool) ([]*entity.PaymentTerm, error) {
	rows, err := r.q.Query(ctx, `SELECT `+paymentTermColumns+` FROM payment_terms WHERE (NOT $1 OR active) ORDER BY code`, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("list payment terms: %w", err)
	}
	defer rows.Close()
	var list []*entity.PaymentTerm
	for rows.Next() {
		t, err := scanPaymentTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment term: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
