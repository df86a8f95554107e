package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/repository"
)

var _ repository.NumberingCounterRepository = (*NumberingCounterRepo)(nil)

// NumberingCounterRepo contadores de numeración sobre PostgreSQL.
// El incremento es un único upsert, así dos transacciones nunca leen el mismo valor.
type NumberingCounterRepo struct {
	q Querier
}

// NewNumberingCounterRepository construye el adaptador. Pasar pool o tx (Querier).
func NewNumberingCounterRepository(q Querier) *NumberingCounterRepo {
	return &NumberingCounterRepo{q: q}
}

const counterReturning = `RETURNING id, kind, series, year, last_number, format, padding, updated_at`

func scanCounter(row pgx.Row) (*entity.NumberingCounter, error) {
	var (
		c    entity.NumberingCounter
		kind string
	)
	if err := row.Scan(&c.ID, &kind, &c.Series, &c.Year, &c.LastNumber, &c.Format, &c.Padding, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Kind = entity.Kind(kind)
	return &c, nil
}

// Increment crea el contador con last_number = 1 o suma 1 al existente.
func (r *NumberingCounterRepo) Increment(ctx context.Context, d entity.NumberingCounter) (*entity.NumberingCounter, error) {
	query := `
		INSERT INTO numbering_counters (id, kind, series, year, last_number, format, padding, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6, now())
		ON CONFLICT (kind, series, year)
		DO UPDATE SET last_number = numbering_counters.last_number + 1, updated_at = now()
		` + counterReturning
	c, err := scanCounter(r.q.QueryRow(ctx, query, uuid.New().String(), string(d.Kind), d.Series, d.Year, d.Format, d.Padding))
	if err != nil {
		return nil, fmt.Errorf("increment counter: %w", err)
	}
	return c, nil
}

// RaiseTo sube last_number hasta floor; GREATEST garantiza que nunca baja.
func (r *NumberingCounterRepo) RaiseTo(ctx context.Context, d entity.NumberingCounter, floor int64) error {
	query := `
		INSERT INTO numbering_counters (id, kind, series, year, last_number, format, padding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (kind, series, year)
		DO UPDATE SET last_number = GREATEST(numbering_counters.last_number, EXCLUDED.last_number), updated_at = now()`
	_, err := r.q.Exec(ctx, query, uuid.New().String(), string(d.Kind), d.Series, d.Year, floor, d.Format, d.Padding)
	if err != nil {
		return fmt.Errorf("raise counter: %w", err)
	}
	return nil
}

// Get devuelve el contador o nil si aún no se ha emitido ningún número.
func (r *NumberingCounterRepo) Get(ctx context.Context, kind entity.Kind, series string, year int) (*entity.NumberingCounter, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, kind, series, year, last_number, format, padding, updated_at
		FROM numbering_counters WHERE kind = $1 AND series = $2 AND year = $3`, string(kind), series, year)
	c, err := scanCounter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get counter: %w", err)
	}
	return c, nil
}
