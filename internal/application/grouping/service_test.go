package grouping_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-documentos/internal/application/grouping"
	"github.com/jhoicas/erp-documentos/internal/application/numbering"
	"github.com/jhoicas/erp-documentos/internal/application/ports"
	"github.com/jhoicas/erp-documentos/internal/application/receipts"
	"github.com/jhoicas/erp-documentos/internal/application/stock"
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/repository"
	"github.com/jhoicas/erp-documentos/internal/domain/lifecycle"
	"github.com/jhoicas/erp-documentos/internal/infrastructure/memory"
)

var today = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store *memory.Store
	svc   *grouping.Service
	stock *stock.SyncService
}

func newFixture(t *testing.T, autoReceipts bool) fixture {
	t.Helper()
	store := memory.NewStore()
	clock := func() time.Time { return today }
	seq := numbering.NewSequencer(store, numbering.Config{}, zerolog.Nop()).WithClock(clock)
	stockSvc := stock.NewSyncService(store, zerolog.Nop())
	gen := receipts.NewGenerator(store, seq, zerolog.Nop())
	svc := grouping.NewService(store, seq, stockSvc, gen, grouping.Config{AutoReceipts: autoReceipts}, zerolog.Nop()).WithClock(clock)
	store.PutProduct(entity.Product{ID: "p1", Reference: "R1", Stock: d("100")})
	store.PutPaymentTerm(entity.PaymentTerm{ID: "t1", Code: "30", Installments: []entity.Installment{{DaysOffset: 30, Percentage: d("100")}}})
	return fixture{store: store, svc: svc, stock: stockSvc}
}

// putNote crea un albarán con una línea y sus totales recalculados.
func (f fixture) putNote(id, partner, qty, price string) {
	doc := entity.Document{ID: id, Kind: entity.KindDeliveryNote, Number: "ALB-" + id, Series: "A", PartnerID: partner,
		State: entity.StateConfirmed, Date: today, PaymentTermID: "t1"}
	line := entity.DocumentLine{ID: id + "-l1", Position: 1, ProductID: "p1", Quantity: d(qty), UnitPrice: d(price), VATRate: d("21")}
	lp := &line
	lifecycle.Recalculate(&doc, []*entity.DocumentLine{lp})
	f.store.PutDocument(doc, line)
}

func TestGroup_AlbaranesEnFactura(t *testing.T) {
	f := newFixture(t, false)
	f.putNote("a", "c1", "2", "50")
	f.putNote("b", "c1", "1", "75")

	inv, err := f.svc.Group(context.Background(), grouping.Request{SourceIDs: []string{"a", "b"}, UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, entity.KindInvoice, inv.Kind)
	assert.Equal(t, "FAC-A2026-00001", inv.Number)
	assert.Equal(t, entity.StateDraft, inv.State)
	assert.Empty(t, inv.OriginDocumentID)
	assert.True(t, inv.TaxableBase.Equal(d("175")), "la base es la suma de los orígenes: %s", inv.TaxableBase)
	assert.True(t, inv.Total.Equal(d("211.75")))

	check, err := f.svc.CanUngroup(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Empty(t, f.store.Documents(entity.KindReceipt), "sin generación automática no hay recibos")
}

func TestGroup_TerceroDistintoNoCreaNada(t *testing.T) {
	f := newFixture(t, false)
	f.putNote("a", "c1", "2", "50")
	f.putNote("b", "c2", "1", "75")

	_, err := f.svc.Group(context.Background(), grouping.Request{SourceIDs: []string{"a", "b"}, UserID: "u1"})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "grouping.same_partner", vErr.Rule)
	assert.Empty(t, f.store.Documents(entity.KindInvoice))
	_, ok := f.store.Counter(entity.KindInvoice, "A", 2026)
	assert.False(t, ok)
}

func TestGroup_Validaciones(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.putNote("a", "c1", "1", "10")
	f.putNote("b", "c1", "1", "10")
	f.store.PutDocument(entity.Document{ID: "q", Kind: entity.KindQuote, Number: "PRE-1", PartnerID: "c1"})
	f.store.PutDocument(entity.Document{ID: "q2", Kind: entity.KindQuote, Number: "PRE-2", PartnerID: "c1"})
	f.store.PutDocument(entity.Document{ID: "x", Kind: entity.KindDeliveryNote, Number: "ALB-x", PartnerID: "c1", State: entity.StateCancelled})

	rule := func(err error) string {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return vErr.Rule
		}
		return ""
	}

	_, err := f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"a"}})
	assert.Equal(t, "grouping.min_sources", rule(err))

	_, err = f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"a", "a"}})
	assert.Equal(t, "grouping.duplicate_source", rule(err))

	_, err = f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"a", "nope"}})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"a", "q"}})
	assert.Equal(t, "grouping.same_type", rule(err))

	_, err = f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"a", "x"}})
	assert.Equal(t, "grouping.cancelled", rule(err))

	_, err = f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"q", "q2"}})
	assert.Equal(t, "grouping.pair_not_permitted", rule(err))

	_, err = f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"a", "b"}, Target: entity.KindReceipt})
	assert.Equal(t, "grouping.pair_not_permitted", rule(err))

	_, err = f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"a", "b"}})
	require.NoError(t, err)
	f.putNote("c", "c1", "1", "10")
	_, err = f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"a", "c"}})
	assert.Equal(t, "grouping.already_derived", rule(err))
}

func TestGroup_PedidosEnAlbaranConCantidadProcesada(t *testing.T) {
	f := newFixture(t, false)
	for _, id := range []string{"o1", "o2"} {
		f.store.PutDocument(entity.Document{ID: id, Kind: entity.KindOrder, Number: "PED-" + id, Series: "A", PartnerID: "c1", State: entity.StateConfirmed},
			entity.DocumentLine{ID: id + "-1", Position: 1, ProductID: "p1", Quantity: d("2"), UnitPrice: d("5")},
			entity.DocumentLine{ID: id + "-2", Position: 2, Description: "montaje", Quantity: d("1.5"), UnitPrice: d("20")},
		)
	}
	alb, err := f.svc.Group(context.Background(), grouping.Request{SourceIDs: []string{"o1", "o2"}, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, entity.KindDeliveryNote, alb.Kind)

	err = f.store.Run(context.Background(), func(r ports.Repos) error {
		origins, err := r.Documents.ListOrigins(context.Background(), alb.ID)
		require.NoError(t, err)
		require.Len(t, origins, 2)
		for _, o := range origins {
			assert.True(t, o.ProcessedQuantity.Equal(d("3.5")))
		}
		lines, err := r.Documents.ListLines(context.Background(), alb.ID)
		require.NoError(t, err)
		assert.Len(t, lines, 4)
		return nil
	})
	require.NoError(t, err)
}

func TestGroup_GeneraRecibosAutomaticamente(t *testing.T) {
	f := newFixture(t, true)
	f.putNote("a", "c1", "2", "50")
	f.putNote("b", "c1", "1", "75")

	inv, err := f.svc.Group(context.Background(), grouping.Request{SourceIDs: []string{"a", "b"}, UserID: "u1"})
	require.NoError(t, err)
	recs := f.store.Documents(entity.KindReceipt)
	require.Len(t, recs, 1)
	assert.Equal(t, "REC-A2026-00001", recs[0].Number)
	assert.Equal(t, inv.ID, recs[0].OriginDocumentID)
	assert.True(t, recs[0].Total.Equal(inv.Total))
}

func TestUngroup_LiberaOrigenesYRevierteStock(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.store.PutDocument(entity.Document{ID: "o1", Kind: entity.KindOrder, Number: "PED-1", Series: "A", PartnerID: "c1"},
		entity.DocumentLine{ID: "o1-1", Position: 1, ProductID: "p1", Quantity: d("4"), UnitPrice: d("1")})
	f.store.PutDocument(entity.Document{ID: "o2", Kind: entity.KindOrder, Number: "PED-2", Series: "A", PartnerID: "c1"},
		entity.DocumentLine{ID: "o2-1", Position: 1, ProductID: "p1", Quantity: d("6"), UnitPrice: d("1")})

	alb, err := f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"o1", "o2"}, UserID: "u1"})
	require.NoError(t, err)
	_, err = f.stock.Apply(ctx, alb.ID, "u1")
	require.NoError(t, err)
	p, _ := f.store.Product("p1")
	require.True(t, p.Stock.Equal(d("90")))

	require.NoError(t, f.svc.Ungroup(ctx, alb.ID, "u1"))
	p, _ = f.store.Product("p1")
	assert.True(t, p.Stock.Equal(d("100")))
	deleted, _ := f.store.Document(alb.ID)
	assert.NotNil(t, deleted.DeletedAt)

	// los pedidos vuelven a estar libres
	_, err = f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"o1", "o2"}, UserID: "u1"})
	assert.NoError(t, err)
}

func TestUngroup_RechazaConDerivadosOSinAgrupacion(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.putNote("a", "c1", "1", "10")
	f.putNote("b", "c1", "1", "10")
	inv, err := f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"a", "b"}, UserID: "u1"})
	require.NoError(t, err)

	f.store.PutDocument(entity.Document{ID: "r1", Kind: entity.KindReceipt, Number: "REC-X", OriginDocumentID: inv.ID, State: entity.StatePending})
	check, err := f.svc.CanUngroup(ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.Equal(t, "grouping.has_derived", check.Rule)
	err = f.svc.Ungroup(ctx, inv.ID, "u1")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	check, err = f.svc.CanUngroup(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "grouping.not_grouped", check.Rule)
}

// ──────────────────────────────────────────────────────────────────────────────
// Orden de bloqueo
// ──────────────────────────────────────────────────────────────────────────────

// lockRecorder anota los documentos bloqueados con GetForUpdate.
type lockRecorder struct {
	repository.DocumentRepository
	locked *[]string
}

func (l lockRecorder) GetForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	*l.locked = append(*l.locked, id)
	return l.DocumentRepository.GetForUpdate(ctx, id)
}

type recordingTx struct {
	store  *memory.Store
	locked []string
}

func (tx *recordingTx) Run(ctx context.Context, fn func(r ports.Repos) error) error {
	return tx.store.Run(ctx, func(r ports.Repos) error {
		r.Documents = lockRecorder{DocumentRepository: r.Documents, locked: &tx.locked}
		return fn(r)
	})
}

func TestGroup_BloqueaOrigenesEnOrdenDeID(t *testing.T) {
	f := newFixture(t, false)
	f.putNote("b", "c1", "1", "10")
	f.putNote("a", "c1", "1", "20")
	f.putNote("c", "c1", "1", "30")
	tx := &recordingTx{store: f.store}
	seq := numbering.NewSequencer(tx, numbering.Config{}, zerolog.Nop()).WithClock(func() time.Time { return today })
	svc := grouping.NewService(tx, seq, stock.NewSyncService(tx, zerolog.Nop()), receipts.NewGenerator(tx, seq, zerolog.Nop()),
		grouping.Config{}, zerolog.Nop()).WithClock(func() time.Time { return today })

	inv, err := svc.Group(context.Background(), grouping.Request{SourceIDs: []string{"c", "b", "a"}, UserID: "u1"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(tx.locked), 3)
	assert.Equal(t, []string{"a", "b", "c"}, tx.locked[:3])

	// las líneas conservan el orden de la petición
	err = f.store.Run(context.Background(), func(r ports.Repos) error {
		lines, err := r.Documents.ListLines(context.Background(), inv.ID)
		require.NoError(t, err)
		require.Len(t, lines, 3)
		assert.True(t, lines[0].UnitPrice.Equal(d("30")))
		assert.True(t, lines[2].UnitPrice.Equal(d("20")))
		return nil
	})
	require.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Compras
// ──────────────────────────────────────────────────────────────────────────────

func TestGroup_AlbaranesDeCompraEnFacturaDeCompra(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	for _, id := range []string{"ac1", "ac2"} {
		doc := entity.Document{ID: id, Kind: entity.KindPurchaseDeliveryNote, Number: "ACO-" + id, Series: "A",
			PartnerID: "pr1", State: entity.StateConfirmed, Date: today}
		line := entity.DocumentLine{ID: id + "-l1", Position: 1, ProductID: "p1", Quantity: d("5"), UnitPrice: d("2"), VATRate: d("21")}
		lifecycle.Recalculate(&doc, []*entity.DocumentLine{&line})
		f.store.PutDocument(doc, line)
		_, err := f.stock.Apply(ctx, id, "u1")
		require.NoError(t, err)
	}
	p, _ := f.store.Product("p1")
	require.True(t, p.Stock.Equal(d("110")))

	inv, err := f.svc.Group(ctx, grouping.Request{SourceIDs: []string{"ac1", "ac2"}, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, entity.KindPurchaseInvoice, inv.Kind)
	assert.Equal(t, "FCO-A2026-00001", inv.Number)
	assert.True(t, inv.TaxableBase.Equal(d("20")))

	got, err := f.stock.Apply(ctx, inv.ID, "u1")
	require.NoError(t, err)
	assert.False(t, got.StockApplied, "el stock ya entró con los albaranes")
	p, _ = f.store.Product("p1")
	assert.True(t, p.Stock.Equal(d("110")))
}

func TestGroup_PedidosDeCompraEnAlbaranDeCompra(t *testing.T) {
	f := newFixture(t, false)
	for _, id := range []string{"pc1", "pc2"} {
		f.store.PutDocument(entity.Document{ID: id, Kind: entity.KindPurchaseOrder, Number: "PCO-" + id, Series: "A", PartnerID: "pr1", State: entity.StateConfirmed},
			entity.DocumentLine{ID: id + "-1", Position: 1, ProductID: "p1", Quantity: d("3"), UnitPrice: d("4")})
	}
	alb, err := f.svc.Group(context.Background(), grouping.Request{SourceIDs: []string{"pc1", "pc2"}, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, entity.KindPurchaseDeliveryNote, alb.Kind)

	for _, id := range []string{"pc3", "pc4"} {
		f.store.PutDocument(entity.Document{ID: id, Kind: entity.KindPurchaseOrder, Number: "PCO-" + id, Series: "A", PartnerID: "pr1", State: entity.StateConfirmed},
			entity.DocumentLine{ID: id + "-1", Position: 1, ProductID: "p1", Quantity: d("1"), UnitPrice: d("4")})
	}
	_, err = f.svc.Group(context.Background(), grouping.Request{SourceIDs: []string{"pc3", "pc4"}, Target: entity.KindPurchaseInvoice})
	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "grouping.pair_not_permitted", vErr.Rule, "los pedidos de compra se agrupan solo en albarán")
}
