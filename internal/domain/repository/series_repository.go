package repository

import (
	"context"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// SeriesRepository define el puerto de lectura de series de numeración.
type SeriesRepository interface {
	// FirstActiveBilling primera serie activa de facturación por orden alfabético (nil si no hay).
	FirstActiveBilling(ctx context.Context) (*entity.Series, error)
}
