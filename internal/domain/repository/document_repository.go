package repository

import (
	"context"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia para documentos, sus líneas y el conjunto de orígenes.
// Las lecturas devuelven nil, nil si el registro no existe o está borrado lógicamente.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Update(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Document, error)
	ExistsNumber(ctx context.Context, number string) (bool, error)
	SoftDelete(ctx context.Context, id string) error
	// ListDerived documentos vivos cuyo origen (simple o agrupado) es id. Si kind no es vacío filtra por tipo.
	ListDerived(ctx context.Context, id string, kind entity.Kind) ([]*entity.Document, error)

	CreateLine(ctx context.Context, line *entity.DocumentLine) error
	UpdateLine(ctx context.Context, line *entity.DocumentLine) error
	DeleteLine(ctx context.Context, documentID, lineID string) error
	GetLine(ctx context.Context, documentID, lineID string) (*entity.DocumentLine, error)
	ListLines(ctx context.Context, documentID string) ([]*entity.DocumentLine, error)

	AddOrigin(ctx context.Context, origin *entity.DocumentOrigin) error
	ListOrigins(ctx context.Context, documentID string) ([]*entity.DocumentOrigin, error)
	DeleteOrigins(ctx context.Context, documentID string) error
}
