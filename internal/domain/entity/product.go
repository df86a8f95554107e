package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product artículo del catálogo. Stock es la existencia global; solo lo modifican
// los documentos que mueven stock (albaranes y facturas) vía StockMovement.
type Product struct {
	ID        string
	Reference string // código único
	Name      string
	Price     decimal.Decimal // precio de venta por defecto
	Cost      decimal.Decimal
	VATRate   decimal.Decimal // IVA en porcentaje: 21, 10, 4, 0
	Stock     decimal.Decimal
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
