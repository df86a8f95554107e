// Package payment expande una forma de pago en vencimientos concretos.
package payment

import (
	"time"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Due vencimiento calculado.
type Due struct {
	DueDate    time.Time       `json:"due_date"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	DaysOffset int             `json:"days_offset"`
}

// Schedule reparte total entre los vencimientos. Sin vencimientos devuelve uno del 100% en la fecha base.
// El último vencimiento absorbe el redondeo para que la suma sea exactamente total.
func Schedule(installments []entity.Installment, base time.Time, total decimal.Decimal) []Due {
	if len(installments) == 0 {
		return []Due{{DueDate: base, Amount: total, Percentage: hundred}}
	}
	out := make([]Due, 0, len(installments))
	assigned := decimal.Zero
	for i, in := range installments {
		amount := total.Mul(in.Percentage).Div(hundred).Round(2)
		if i == len(installments)-1 {
			amount = total.Sub(assigned)
		}
		assigned = assigned.Add(amount)
		out = append(out, Due{
			DueDate:    base.AddDate(0, 0, in.DaysOffset),
			Amount:     amount,
			Percentage: in.Percentage,
			DaysOffset: in.DaysOffset,
		})
	}
	return out
}
