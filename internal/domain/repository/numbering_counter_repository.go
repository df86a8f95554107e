package repository

import (
	"context"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// NumberingCounterRepository define el puerto de persistencia para contadores de numeración.
type NumberingCounterRepository interface {
	// Increment crea el contador a 0 si no existe (con el formato y relleno de defaults)
	// y lo incrementa en una sola operación atómica, devolviendo el contador resultante.
	Increment(ctx context.Context, defaults entity.NumberingCounter) (*entity.NumberingCounter, error)
	// RaiseTo lleva LastNumber a max(LastNumber, floor); nunca lo reduce.
	RaiseTo(ctx context.Context, defaults entity.NumberingCounter, floor int64) error
	Get(ctx context.Context, kind entity.Kind, series string, year int) (*entity.NumberingCounter, error)
}
