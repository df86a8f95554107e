package entity

import "github.com/shopspring/decimal"

// DocumentLine línea de un documento. ProductID vacío = línea de texto libre.
// Los importes derivados se recalculan siempre antes de persistir.
type DocumentLine struct {
	ID            string
	DocumentID    string
	Position      int
	ProductID     string
	Reference     string
	Description   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	DiscountPct   decimal.Decimal
	VATRate       decimal.Decimal
	SurchargeRate decimal.Decimal

	GrossAmount     decimal.Decimal // cantidad x precio
	DiscountAmount  decimal.Decimal
	Subtotal        decimal.Decimal // base imponible de la línea
	VATAmount       decimal.Decimal
	SurchargeAmount decimal.Decimal
	Total           decimal.Decimal
}
