package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/payment"
)

// InstallmentDTO vencimiento de la forma de pago.
type InstallmentDTO struct {
	DaysOffset int             `json:"days_offset"`
	Percentage decimal.Decimal `json:"percentage"`
}

// CreatePaymentTermRequest body para POST /api/payment-terms.
type CreatePaymentTermRequest struct {
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	Kind         string           `json:"kind,omitempty"`
	Installments []InstallmentDTO `json:"installments"`
}

// PaymentTermResponse forma de pago en respuestas.
type PaymentTermResponse struct {
	ID           string           `json:"id"`
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	Kind         string           `json:"kind,omitempty"`
	Installments []InstallmentDTO `json:"installments"`
	Active       bool             `json:"active"`
	Balanced     bool             `json:"balanced"` // los porcentajes suman 100
}

// ScheduleRequest body para POST /api/payment-terms/:id/schedule.
type ScheduleRequest struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// ScheduleResponse vencimientos calculados.
type ScheduleResponse struct {
	Dues []DueDTO `json:"dues"`
}

// DueDTO vencimiento calculado.
type DueDTO struct {
	DueDate    string          `json:"due_date"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// ToPaymentTermResponse mapea entidad a respuesta.
func ToPaymentTermResponse(t *entity.PaymentTerm) PaymentTermResponse {
	out := PaymentTermResponse{
		ID: t.ID, Code: t.Code, Name: t.Name, Kind: t.Kind, Active: t.Active,
		Balanced:     t.BalancedPercentages(),
		Installments: make([]InstallmentDTO, 0, len(t.Installments)),
	}
	for _, in := range t.Installments {
		out.Installments = append(out.Installments, InstallmentDTO{DaysOffset: in.DaysOffset, Percentage: in.Percentage})
	}
	return out
}

// ToScheduleResponse mapea vencimientos calculados.
func ToScheduleResponse(dues []payment.Due) ScheduleResponse {
	out := ScheduleResponse{Dues: make([]DueDTO, 0, len(dues))}
	for _, d := range dues {
		out.Dues = append(out.Dues, DueDTO{DueDate: d.DueDate.Format(DateLayout), Amount: d.Amount, Percentage: d.Percentage})
	}
	return out
}
