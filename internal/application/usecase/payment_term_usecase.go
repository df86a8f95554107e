package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/erp-documentos/internal/application/dto"
	"github.com/jhoicas/erp-documentos/internal/application/ports"
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/payment"
)

// PaymentTermUseCase alta, listado y simulación de vencimientos de formas de pago.
type PaymentTermUseCase struct {
	tx  ports.TxRunner
	now ports.Clock
	log zerolog.Logger
}

// NewPaymentTermUseCase construye el caso de uso.
func NewPaymentTermUseCase(tx ports.TxRunner, log zerolog.Logger) *PaymentTermUseCase {
	return &PaymentTermUseCase{tx: tx, now: time.Now, log: log}
}

// Create crea una forma de pago. Si los porcentajes no suman 100 se avisa en el log y se guarda igual.
func (uc *PaymentTermUseCase) Create(ctx context.Context, in dto.CreatePaymentTermRequest) (*dto.PaymentTermResponse, error) {
	now := uc.now()
	term := &entity.PaymentTerm{
		ID:        uuid.New().String(),
		Code:      strings.TrimSpace(in.Code),
		Name:      in.Name,
		Kind:      in.Kind,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, i := range in.Installments {
		term.Installments = append(term.Installments, entity.Installment{DaysOffset: i.DaysOffset, Percentage: i.Percentage})
	}
	if err := term.Validate(); err != nil {
		return nil, err
	}
	if !term.BalancedPercentages() {
		uc.log.Warn().Str("code", term.Code).Str("sum", term.PercentageSum().String()).
			Msg("los porcentajes de la forma de pago no suman 100")
	}

	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		existing, err := r.Terms.GetByCode(ctx, term.Code)
		if err != nil {
			return fmt.Errorf("get payment term by code: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("forma de pago %s: %w", term.Code, domain.ErrDuplicate)
		}
		if err := r.Terms.Create(ctx, term); err != nil {
			return fmt.Errorf("insert payment term: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := dto.ToPaymentTermResponse(term)
	return &out, nil
}

// List lista las formas de pago, solo las activas si onlyActive.
func (uc *PaymentTermUseCase) List(ctx context.Context, onlyActive bool) ([]dto.PaymentTermResponse, error) {
	var list []*entity.PaymentTerm
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		list, err = r.Terms.List(ctx, onlyActive)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list payment terms: %w", err)
	}
	items := make([]dto.PaymentTermResponse, 0, len(list))
	for _, t := range list {
		items = append(items, dto.ToPaymentTermResponse(t))
	}
	return items, nil
}

// Schedule calcula los vencimientos que tendría un documento con esta forma de pago.
func (uc *PaymentTermUseCase) Schedule(ctx context.Context, id string, in dto.ScheduleRequest) (*dto.ScheduleResponse, error) {
	date, err := dto.ParseDate(in.Date, uc.now())
	if err != nil {
		return nil, domain.Invalid("schedule.date", "fecha inválida %q, formato esperado AAAA-MM-DD", in.Date)
	}
	if in.Total.IsNegative() {
		return nil, domain.Invalid("schedule.total", "el importe no puede ser negativo")
	}
	var term *entity.PaymentTerm
	err = uc.tx.Run(ctx, func(r ports.Repos) error {
		var err error
		term, err = r.Terms.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get payment term: %w", err)
	}
	if term == nil {
		return nil, domain.NotFound("forma de pago", id)
	}
	out := dto.ToScheduleResponse(payment.Schedule(term.Installments, date, in.Total))
	return &out, nil
}
