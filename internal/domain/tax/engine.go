// Package tax calcula el desglose de IVA y recargo de equivalencia de un documento.
package tax

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line datos mínimos de una línea para el cálculo de impuestos.
type Line struct {
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	VATRate     decimal.Decimal
}

// RateBreakdown acumulado por tipo de IVA. Importes a 3 decimales.
type RateBreakdown struct {
	VATRate         decimal.Decimal `json:"vat_rate"`
	Base            decimal.Decimal `json:"base"`
	VATAmount       decimal.Decimal `json:"vat_amount"`
	SurchargeRate   decimal.Decimal `json:"surcharge_rate"`
	SurchargeAmount decimal.Decimal `json:"surcharge_amount"`
	Total           decimal.Decimal `json:"total"`
}

// Result desglose completo. Los totales van redondeados a 2 decimales.
type Result struct {
	Rates          []RateBreakdown `json:"rates"`
	TaxableBase    decimal.Decimal `json:"taxable_base"`
	VATTotal       decimal.Decimal `json:"vat_total"`
	SurchargeTotal decimal.Decimal `json:"surcharge_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// SurchargeTable tipo de recargo de equivalencia por tipo de IVA (clave = IVA normalizado).
type SurchargeTable map[string]decimal.Decimal

// DefaultSurcharges tabla de recargo vigente: 21→5.2, 10→1.4, 4→0.5, 0→0.
func DefaultSurcharges() SurchargeTable {
	return SurchargeTable{
		"21": decimal.RequireFromString("5.2"),
		"10": decimal.RequireFromString("1.4"),
		"4":  decimal.RequireFromString("0.5"),
		"0":  decimal.Zero,
	}
}

// ParseSurcharges lee una tabla con formato "21:5.2,10:1.4". Las entradas se añaden sobre la tabla por defecto.
func ParseSurcharges(raw string) (SurchargeTable, error) {
	table := DefaultSurcharges()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return table, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		vat, sur, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("surcharge entry %q: expected vat:rate", pair)
		}
		v, err := decimal.NewFromString(strings.TrimSpace(vat))
		if err != nil {
			return nil, fmt.Errorf("surcharge entry %q: %w", pair, err)
		}
		s, err := decimal.NewFromString(strings.TrimSpace(sur))
		if err != nil {
			return nil, fmt.Errorf("surcharge entry %q: %w", pair, err)
		}
		table[key(v)] = s
	}
	return table, nil
}

func key(rate decimal.Decimal) string { return rate.String() }

// Engine calcula desgloses con una tabla de recargo inyectada.
type Engine struct {
	surcharges SurchargeTable
}

// NewEngine construye el motor. Con tabla nil usa DefaultSurcharges.
func NewEngine(table SurchargeTable) *Engine {
	if table == nil {
		table = DefaultSurcharges()
	}
	return &Engine{surcharges: table}
}

// SurchargeRate recargo asociado a un tipo de IVA (0 si no está en la tabla).
func (e *Engine) SurchargeRate(vatRate decimal.Decimal) decimal.Decimal {
	if r, ok := e.surcharges[key(vatRate)]; ok {
		return r
	}
	return decimal.Zero
}

// LineBase base de la línea a 3 decimales, con el descuento ya aplicado.
func LineBase(qty, price, discountPct decimal.Decimal) decimal.Decimal {
	base := qty.Mul(price).Round(3)
	if discountPct.IsPositive() {
		base = base.Mul(hundred.Sub(discountPct).Div(hundred)).Round(3)
	}
	return base
}

// Compute agrupa las líneas por tipo de IVA y calcula IVA y recargo una sola vez sobre la base
// sumada de cada tipo. withSurcharge indica que el tercero está en recargo de equivalencia.
func (e *Engine) Compute(lines []Line, withSurcharge bool) Result {
	byRate := make(map[string]*RateBreakdown)
	for _, l := range lines {
		k := key(l.VATRate)
		rb, ok := byRate[k]
		if !ok {
			rb = &RateBreakdown{VATRate: l.VATRate}
			byRate[k] = rb
		}
		rb.Base = rb.Base.Add(LineBase(l.Quantity, l.UnitPrice, l.DiscountPct))
	}

	res := Result{Rates: make([]RateBreakdown, 0, len(byRate))}
	var base, vat, sur decimal.Decimal
	for _, rb := range byRate {
		rb.VATAmount = rb.Base.Mul(rb.VATRate).Div(hundred).Round(3)
		if withSurcharge {
			rb.SurchargeRate = e.SurchargeRate(rb.VATRate)
			rb.SurchargeAmount = rb.Base.Mul(rb.SurchargeRate).Div(hundred).Round(3)
		}
		rb.Total = rb.Base.Add(rb.VATAmount).Add(rb.SurchargeAmount)
		base = base.Add(rb.Base)
		vat = vat.Add(rb.VATAmount)
		sur = sur.Add(rb.SurchargeAmount)
		res.Rates = append(res.Rates, *rb)
	}
	sort.Slice(res.Rates, func(i, j int) bool {
		return res.Rates[i].VATRate.GreaterThan(res.Rates[j].VATRate)
	})

	res.TaxableBase = base.Round(2)
	res.VATTotal = vat.Round(2)
	res.SurchargeTotal = sur.Round(2)
	res.GrandTotal = base.Add(vat).Add(sur).Round(2)
	return res
}
