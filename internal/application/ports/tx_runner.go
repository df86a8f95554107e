package ports

import (
	"context"
	"time"

	"github.com/jhoicas/erp-documentos/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Documents repository.DocumentRepository
	Counters  repository.NumberingCounterRepository
	Series    repository.SeriesRepository
	Products  repository.ProductRepository
	Partners  repository.TerceroRepository
	Terms     repository.PaymentTermRepository
	Movements repository.StockMovementRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se deshace todo lo hecho dentro.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

// Clock fuente de la hora actual (inyectable en tests).
type Clock func() time.Time
