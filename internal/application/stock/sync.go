package stock

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-documentos/internal/application/ports"
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/inventory"
)

// SyncService aplica y revierte el efecto de un documento sobre el stock exactamente una vez.
// El cambio de existencias, los movimientos y el flag stock_applied van en la misma transacción.
type SyncService struct {
	tx  ports.TxRunner
	now ports.Clock
	log zerolog.Logger
}

// NewSyncService construye el servicio.
func NewSyncService(tx ports.TxRunner, log zerolog.Logger) *SyncService {
	return &SyncService{tx: tx, now: time.Now, log: log}
}

// Apply aplica el stock del documento en su propia transacción.
func (s *SyncService) Apply(ctx context.Context, documentID, userID string) (*entity.Document, error) {
	var out *entity.Document
	err := s.tx.Run(ctx, func(r ports.Repos) error {
		doc, err := s.ApplyInTx(ctx, r, documentID, userID)
		out = doc
		return err
	})
	return out, err
}

// Reverse revierte el stock del documento en su propia transacción.
func (s *SyncService) Reverse(ctx context.Context, documentID, userID string) (*entity.Document, error) {
	var out *entity.Document
	err := s.tx.Run(ctx, func(r ports.Repos) error {
		doc, err := s.ReverseInTx(ctx, r, documentID, userID)
		out = doc
		return err
	})
	return out, err
}

// ApplyInTx no hace nada si el stock ya está aplicado o el tipo no mueve stock.
// Una factura que procede de albaranes sale sin marcar el flag: el stock ya lo movieron ellos.
func (s *SyncService) ApplyInTx(ctx context.Context, r ports.Repos, documentID, userID string) (*entity.Document, error) {
	doc, err := r.Documents.GetForUpdate(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("lock document: %w", err)
	}
	if doc == nil {
		return nil, domain.NotFound("documento", documentID)
	}
	spec := doc.Spec()
	if doc.StockApplied || spec.Stock == entity.StockNone {
		return doc, nil
	}
	carried, err := s.stockCarriedByOrigin(ctx, r, doc)
	if err != nil {
		return nil, err
	}
	if carried {
		s.log.Debug().Str("document", doc.Number).Msg("stock ya aplicado por el albarán de origen")
		return doc, nil
	}

	if err := s.move(ctx, r, doc, decimal.NewFromInt(int64(spec.Stock)), false, userID); err != nil {
		return nil, err
	}
	doc.StockApplied = true
	if err := r.Documents.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("mark stock applied: %w", err)
	}
	s.log.Info().Str("document", doc.Number).Str("kind", string(doc.Kind)).Msg("stock aplicado")
	return doc, nil
}

// ReverseInTx deshace exactamente lo aplicado. No hace nada si el stock no está aplicado.
func (s *SyncService) ReverseInTx(ctx context.Context, r ports.Repos, documentID, userID string) (*entity.Document, error) {
	doc, err := r.Documents.GetForUpdate(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("lock document: %w", err)
	}
	if doc == nil {
		return nil, domain.NotFound("documento", documentID)
	}
	if !doc.StockApplied {
		return doc, nil
	}
	sign := decimal.NewFromInt(int64(-doc.Spec().Stock))
	if err := s.move(ctx, r, doc, sign, true, userID); err != nil {
		return nil, err
	}
	doc.StockApplied = false
	if err := r.Documents.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("mark stock reversed: %w", err)
	}
	s.log.Info().Str("document", doc.Number).Str("kind", string(doc.Kind)).Msg("stock revertido")
	return doc, nil
}

func (s *SyncService) stockCarriedByOrigin(ctx context.Context, r ports.Repos, doc *entity.Document) (bool, error) {
	carrier := doc.Spec().StockCarriedBy
	if carrier == "" {
		return false, nil
	}
	if doc.OriginDocumentID != "" {
		origin, err := r.Documents.GetByID(ctx, doc.OriginDocumentID)
		if err != nil {
			return false, fmt.Errorf("get origin document: %w", err)
		}
		return origin != nil && origin.Kind == carrier, nil
	}
	origins, err := r.Documents.ListOrigins(ctx, doc.ID)
	if err != nil {
		return false, fmt.Errorf("list origins: %w", err)
	}
	if len(origins) == 0 {
		return false, nil
	}
	for _, o := range origins {
		src, err := r.Documents.GetByID(ctx, o.OriginDocumentID)
		if err != nil {
			return false, fmt.Errorf("get origin document: %w", err)
		}
		if src == nil || src.Kind != carrier {
			return false, nil
		}
	}
	return true, nil
}

// move ajusta el stock de cada línea con producto por quantity*sign y registra el movimiento.
// Las entradas de compra recalculan el costo promedio del producto y su reversión lo restaura.
func (s *SyncService) move(ctx context.Context, r ports.Repos, doc *entity.Document, sign decimal.Decimal, reversal bool, userID string) error {
	lines, err := r.Documents.ListLines(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("list lines: %w", err)
	}
	if err := lockProducts(ctx, r, lines); err != nil {
		return err
	}
	var entries map[string]entryTotals
	if reversal && doc.Spec().Stock == entity.StockIncrease {
		if entries, err = s.appliedEntries(ctx, r, doc.ID, lines); err != nil {
			return err
		}
	}
	costRestored := make(map[string]bool)
	now := s.now()
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity.IsZero() {
			continue
		}
		product, err := r.Products.GetForUpdate(ctx, l.ProductID)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return domain.NotFound("producto", l.ProductID)
		}
		delta := l.Quantity.Mul(sign)
		mov := &entity.StockMovement{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			ProductID:  product.ID,
			Quantity:   delta,
			Reversal:   reversal,
			CreatedAt:  now,
			CreatedBy:  userID,
		}

		var cost decimal.Decimal
		changesCost := false
		switch {
		case !reversal && delta.IsPositive():
			cost = inventory.WeightedAverageCost(product.Stock, product.Cost, delta, lineUnitCost(l))
			changesCost = true
		case entries != nil && !costRestored[product.ID]:
			costRestored[product.ID] = true
			cost = entries[product.ID].restore(product)
			changesCost = true
		}
		if changesCost {
			if !cost.Equal(product.Cost) {
				if err := r.Products.UpdateCost(ctx, product.ID, cost); err != nil {
					return fmt.Errorf("update product cost: %w", err)
				}
			}
			mov.CostBefore, mov.CostAfter = product.Cost, cost
		}

		if err := r.Products.AdjustStock(ctx, product.ID, delta); err != nil {
			return fmt.Errorf("adjust stock: %w", err)
		}
		if err := r.Movements.Create(ctx, mov); err != nil {
			return fmt.Errorf("insert stock movement: %w", err)
		}
	}
	return nil
}

// lockProducts bloquea los productos del documento en orden de id antes de tocarlos.
func lockProducts(ctx context.Context, r ports.Repos, lines []*entity.DocumentLine) error {
	ids := make(map[string]bool)
	for _, l := range lines {
		if l.ProductID != "" && !l.Quantity.IsZero() {
			ids[l.ProductID] = true
		}
	}
	for _, id := range slices.Sorted(maps.Keys(ids)) {
		p, err := r.Products.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		if p == nil {
			return domain.NotFound("producto", id)
		}
	}
	return nil
}

// entryTotals entradas de un producto en la última aplicación del documento.
type entryTotals struct {
	movements []*entity.StockMovement // en orden de creación
	quantity  decimal.Decimal
	value     decimal.Decimal
}

// restore costo del producto sin las entradas del documento. Si ninguna entrada posterior ha
// tocado el costo se recupera el anterior exacto; si no, se descuenta del promedio.
func (e entryTotals) restore(p *entity.Product) decimal.Decimal {
	if n := len(e.movements); n > 0 && p.Cost.Equal(e.movements[n-1].CostAfter) {
		return e.movements[0].CostBefore
	}
	return inventory.ReverseWeightedAverageCost(p.Stock, p.Cost, e.quantity, e.value)
}

// appliedEntries agrupa por producto los movimientos de entrada de la última aplicación: los
// últimos k movimientos no revertidos, siendo k el número de líneas con ese producto.
func (s *SyncService) appliedEntries(ctx context.Context, r ports.Repos, documentID string, lines []*entity.DocumentLine) (map[string]entryTotals, error) {
	movs, err := r.Movements.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	out := make(map[string]entryTotals)
	count := make(map[string]int)
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity.IsZero() {
			continue
		}
		count[l.ProductID]++
		e := out[l.ProductID]
		e.quantity = e.quantity.Add(l.Quantity)
		e.value = e.value.Add(l.Quantity.Mul(lineUnitCost(l)))
		out[l.ProductID] = e
	}
	byProduct := make(map[string][]*entity.StockMovement)
	for _, m := range movs {
		if !m.Reversal && m.Quantity.IsPositive() {
			byProduct[m.ProductID] = append(byProduct[m.ProductID], m)
		}
	}
	for id, e := range out {
		list := byProduct[id]
		if k := count[id]; len(list) > k {
			list = list[len(list)-k:]
		}
		e.movements = list
		out[id] = e
	}
	return out, nil
}

// lineUnitCost costo unitario de una entrada: base de la línea entre cantidad (descuentos incluidos).
func lineUnitCost(l *entity.DocumentLine) decimal.Decimal {
	if !l.Subtotal.IsZero() && !l.Quantity.IsZero() {
		return l.Subtotal.Div(l.Quantity)
	}
	return l.UnitPrice
}
