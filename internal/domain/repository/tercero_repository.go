package repository

import (
	"context"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// TerceroRepository define el puerto de lectura de terceros.
type TerceroRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Tercero, error)
}
