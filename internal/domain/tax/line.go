package tax

import "github.com/shopspring/decimal"

// LineAmounts importes persistidos de una línea, a 2 decimales.
type LineAmounts struct {
	Gross     decimal.Decimal
	Discount  decimal.Decimal
	Subtotal  decimal.Decimal
	VAT       decimal.Decimal
	Surcharge decimal.Decimal
	Total     decimal.Decimal
}

// ComputeLine calcula los importes derivados de una línea. Los valores de entrada de importes nunca se usan.
func ComputeLine(qty, price, discountPct, vatRate, surchargeRate decimal.Decimal) LineAmounts {
	sub := LineBase(qty, price, discountPct).Round(2)
	gross := qty.Mul(price).Round(2)
	a := LineAmounts{
		Gross:     gross,
		Discount:  gross.Sub(sub),
		Subtotal:  sub,
		VAT:       sub.Mul(vatRate).Div(hundred).Round(2),
		Surcharge: sub.Mul(surchargeRate).Div(hundred).Round(2),
	}
	a.Total = a.Subtotal.Add(a.VAT).Add(a.Surcharge)
	return a
}
