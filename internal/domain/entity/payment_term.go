package entity

import (
	"strings"
	"time"

	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/shopspring/decimal"
)

// Installment vencimiento de una forma de pago. Se persiste como JSONB.
type Installment struct {
	DaysOffset int             `json:"days_offset"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PaymentTerm forma de pago con sus vencimientos en orden.
type PaymentTerm struct {
	ID           string
	Code         string
	Name         string
	Kind         string // contado, transferencia, recibo domiciliado...
	Installments []Installment
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var hundred = decimal.NewFromInt(100)

// Validate comprueba código, días y porcentajes. Una suma distinta de 100 no se rechaza.
func (t *PaymentTerm) Validate() error {
	if strings.TrimSpace(t.Code) == "" {
		return domain.Invalid("payment_term.code", "el código de la forma de pago es obligatorio")
	}
	for i, in := range t.Installments {
		if in.DaysOffset < 0 {
			return domain.Invalid("payment_term.days", "vencimiento %d: los días no pueden ser negativos", i+1)
		}
		if in.Percentage.IsNegative() || in.Percentage.GreaterThan(hundred) {
			return domain.Invalid("payment_term.percentage", "vencimiento %d: el porcentaje debe estar entre 0 y 100", i+1)
		}
	}
	return nil
}

// PercentageSum suma de porcentajes de los vencimientos.
func (t *PaymentTerm) PercentageSum() decimal.Decimal {
	sum := decimal.Zero
	for _, in := range t.Installments {
		sum = sum.Add(in.Percentage)
	}
	return sum
}

// BalancedPercentages indica si los porcentajes suman 100 (o no hay vencimientos).
func (t *PaymentTerm) BalancedPercentages() bool {
	return len(t.Installments) == 0 || t.PercentageSum().Equal(hundred)
}
