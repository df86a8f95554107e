package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tercero cliente, proveedor, empleado o transportista. Un mismo tercero puede tener varios roles.
type Tercero struct {
	ID              string
	Name            string
	TaxID           string // NIF/CIF
	IsClient        bool
	IsSupplier      bool
	IsEmployee      bool
	IsCarrier       bool
	SurchargeRegime bool            // recargo de equivalencia
	WithholdingRate decimal.Decimal // retención IRPF por defecto (%)
	PaymentTermID   string          // forma de pago por defecto ("" = ninguna)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
