package lifecycle

import (
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/tax"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeLine rellena los importes derivados de la línea a partir de cantidad, precio, descuento y tipos.
func ComputeLine(l *entity.DocumentLine) {
	a := tax.ComputeLine(l.Quantity, l.UnitPrice, l.DiscountPct, l.VATRate, l.SurchargeRate)
	l.GrossAmount = a.Gross
	l.DiscountAmount = a.Discount
	l.Subtotal = a.Subtotal
	l.VATAmount = a.VAT
	l.SurchargeAmount = a.Surcharge
	l.Total = a.Total
}

// Recalculate rehace los totales de cabecera como suma simple de las líneas actuales.
// Los tipos sin líneas (recibos) conservan sus importes.
func Recalculate(doc *entity.Document, lines []*entity.DocumentLine) {
	if !doc.Spec().HasLines {
		return
	}
	var gross, disc, vat, sur decimal.Decimal
	for _, l := range lines {
		ComputeLine(l)
		gross = gross.Add(l.GrossAmount)
		disc = disc.Add(l.DiscountAmount)
		vat = vat.Add(l.VATAmount)
		sur = sur.Add(l.SurchargeAmount)
	}
	doc.Subtotal = gross
	doc.Discount = disc
	doc.TaxableBase = gross.Sub(disc)
	doc.VATAmount = vat
	doc.SurchargeAmount = sur
	doc.WithholdingAmount = doc.TaxableBase.Mul(doc.WithholdingRate).Div(hundred).Round(2)
	doc.Total = doc.TaxableBase.Add(doc.VATAmount).Sub(doc.WithholdingAmount).Add(doc.SurchargeAmount)
}

// TaxLines adapta las líneas al motor de impuestos.
func TaxLines(lines []*entity.DocumentLine) []tax.Line {
	out := make([]tax.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, tax.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice, DiscountPct: l.DiscountPct, VATRate: l.VATRate})
	}
	return out
}
