package repository

import (
	"context"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate igual que GetByID bloqueando la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	GetByReference(ctx context.Context, reference string) (*entity.Product, error)
	// AdjustStock suma delta (con signo) al stock en una sola sentencia.
	AdjustStock(ctx context.Context, productID string, delta decimal.Decimal) error
	// UpdateCost actualiza solo el costo (entradas de compra).
	UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error
}
