package repository

import (
	"context"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// PaymentTermRepository define el puerto de persistencia para formas de pago.
type PaymentTermRepository interface {
	Create(ctx context.Context, term *entity.PaymentTerm) error
	Update(ctx context.Context, term *entity.PaymentTerm) error
	GetByID(ctx context.Context, id string) (*entity.PaymentTerm, error)
	GetByCode(ctx context.Context, code string) (*entity.PaymentTerm, error)
	List(ctx context.Context, onlyActive bool) ([]*entity.PaymentTerm, error)
}
