package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMovement registro de auditoría de cada variación de stock causada por un documento.
// Quantity lleva signo: negativo = salida, positivo = entrada.
type StockMovement struct {
	ID         string
	DocumentID string
	ProductID  string
	Quantity   decimal.Decimal
	Reversal   bool
	// CostBefore y CostAfter costo del producto antes y después del movimiento. Solo se
	// rellenan cuando el movimiento cambia el costo (entradas de compra y su reversión).
	CostBefore decimal.Decimal
	CostAfter  decimal.Decimal
	CreatedAt  time.Time
	CreatedBy  string
}
