package documents_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-documentos/internal/application/documents"
	"github.com/jhoicas/erp-documentos/internal/application/dto"
	"github.com/jhoicas/erp-documentos/internal/application/numbering"
	"github.com/jhoicas/erp-documentos/internal/application/receipts"
	"github.com/jhoicas/erp-documentos/internal/application/stock"
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/lifecycle"
	"github.com/jhoicas/erp-documentos/internal/domain/tax"
	"github.com/jhoicas/erp-documentos/internal/infrastructure/memory"
)

var today = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func str(s string) *string { return &s }

func dec(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type fakePDF struct{ got documents.View }

func (f *fakePDF) GenerateDocumentPDF(_ context.Context, v documents.View) ([]byte, error) {
	f.got = v
	return []byte("%PDF-1.4"), nil
}

type fakeXML struct{}

func (fakeXML) ExportInvoice(_ context.Context, v documents.View) ([]byte, error) {
	return []byte("<Facturae>" + v.Document.Number + "</Facturae>"), nil
}

func newUseCase(t *testing.T, autoReceipts bool) (*memory.Store, *documents.UseCase, *fakePDF) {
	t.Helper()
	store := memory.NewStore()
	clock := func() time.Time { return today }
	seq := numbering.NewSequencer(store, numbering.Config{}, zerolog.Nop()).WithClock(clock)
	stockSvc := stock.NewSyncService(store, zerolog.Nop())
	gen := receipts.NewGenerator(store, seq, zerolog.Nop())
	pdf := &fakePDF{}
	uc := documents.NewUseCase(store, seq, stockSvc, gen, tax.NewEngine(nil), pdf, fakeXML{},
		documents.Config{AutoReceipts: autoReceipts, DefaultVATRate: d("21")}, zerolog.Nop()).WithClock(clock)

	store.PutProduct(entity.Product{ID: "p1", Reference: "TORN-8", Name: "Tornillo M8", Price: d("10"), VATRate: d("21"), Stock: d("100"), Active: true})
	store.PutProduct(entity.Product{ID: "p2", Reference: "LIB-1", Name: "Libro", Price: d("20"), VATRate: d("4"), Stock: d("5"), Active: true})
	store.PutPaymentTerm(entity.PaymentTerm{ID: "t1", Code: "30-60", Active: true, Installments: []entity.Installment{
		{DaysOffset: 30, Percentage: d("50")}, {DaysOffset: 60, Percentage: d("50")},
	}})
	store.PutPartner(entity.Tercero{ID: "c1", Name: "Ferretería Sol", IsClient: true, SurchargeRegime: true, WithholdingRate: d("15"), PaymentTermID: "t1"})
	store.PutPartner(entity.Tercero{ID: "c2", Name: "Talleres Norte", IsClient: true})
	return store, uc, pdf
}

func createOrder(t *testing.T, uc *documents.UseCase, partner string, lines ...dto.LineRequest) *documents.Detail {
	t.Helper()
	det, err := uc.Create(context.Background(), "u1", dto.CreateDocumentRequest{Kind: "order", PartnerID: partner, Lines: lines})
	require.NoError(t, err)
	return det
}

func rule(err error) string {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Rule
	}
	return ""
}

// ──────────────────────────────────────────────────────────────────────────────
// Alta
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_DatosDelProductoYTotales(t *testing.T) {
	_, uc, _ := newUseCase(t, false)

	det := createOrder(t, uc, "c2", dto.LineRequest{ProductID: str("p1"), Quantity: dec("2")})

	doc := det.Document
	assert.Equal(t, "PED-A2026-00001", doc.Number)
	assert.Equal(t, entity.StateDraft, doc.State)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), doc.Date)
	require.Len(t, det.Lines, 1)
	assert.Equal(t, "Tornillo M8", det.Lines[0].Description)
	assert.Equal(t, "TORN-8", det.Lines[0].Reference)
	assert.True(t, doc.TaxableBase.Equal(d("20")))
	assert.True(t, doc.VATAmount.Equal(d("4.2")))
	assert.True(t, doc.Total.Equal(d("24.2")))
}

func TestCreate_DefectosDelTercero(t *testing.T) {
	_, uc, _ := newUseCase(t, false)

	det := createOrder(t, uc, "c1", dto.LineRequest{ProductID: str("p1"), Quantity: dec("2")})

	doc := det.Document
	assert.True(t, doc.SurchargeApplies)
	assert.Equal(t, "t1", doc.PaymentTermID)
	assert.True(t, det.Lines[0].SurchargeRate.Equal(d("5.2")))
	assert.True(t, doc.SurchargeAmount.Equal(d("1.04")))
	assert.True(t, doc.WithholdingAmount.Equal(d("3")))
	// 20 + 4.2 - 3 + 1.04
	assert.True(t, doc.Total.Equal(d("22.24")), "total %s", doc.Total)
}

func TestCreate_Errores(t *testing.T) {
	store, uc, _ := newUseCase(t, false)
	ctx := context.Background()

	_, err := uc.Create(ctx, "u1", dto.CreateDocumentRequest{Kind: "", PartnerID: "c1"})
	assert.Equal(t, "document.kind", rule(err))

	_, err = uc.Create(ctx, "u1", dto.CreateDocumentRequest{Kind: "order", PartnerID: "nadie"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = uc.Create(ctx, "u1", dto.CreateDocumentRequest{Kind: "order", PartnerID: "c2", Date: "10/03/2026"})
	assert.Equal(t, "document.date", rule(err))

	_, err = uc.Create(ctx, "u1", dto.CreateDocumentRequest{Kind: "order", PartnerID: "c2",
		Lines: []dto.LineRequest{{ProductID: str("p1")}, {Quantity: dec("1")}}})
	assert.Equal(t, "line.description", rule(err))

	assert.Empty(t, store.Documents(entity.KindOrder), "un error deshace el alta completa")
	_, ok := store.Counter(entity.KindOrder, "A", 2026)
	assert.False(t, ok)
}

func TestImportExtracted_EmparejaPorReferencia(t *testing.T) {
	_, uc, _ := newUseCase(t, false)

	det, err := uc.ImportExtracted(context.Background(), "u1", dto.ImportRequest{
		Kind:             "purchase_invoice",
		MatchedPartnerID: "c2",
		Date:             "2026-02-01",
		Lines: []dto.ExtractedLine{
			{Description: "TORNILLO M8 CAJA", Reference: "TORN-8", Quantity: d("10"), UnitPrice: d("6"), VATRate: d("21")},
			{Description: "Portes", Quantity: d("1"), UnitPrice: d("12"), VATRate: d("21")},
		},
	})
	require.NoError(t, err)
	require.Len(t, det.Lines, 2)
	assert.Equal(t, "p1", det.Lines[0].ProductID)
	assert.True(t, det.Lines[0].UnitPrice.Equal(d("6")), "el precio extraído prevalece")
	assert.Empty(t, det.Lines[1].ProductID)
	assert.Equal(t, "FCO-A2026-00001", det.Document.Number)
	assert.True(t, det.Document.TaxableBase.Equal(d("72")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Líneas
// ──────────────────────────────────────────────────────────────────────────────

func TestLineas_AltaModificacionBaja(t *testing.T) {
	_, uc, _ := newUseCase(t, false)
	ctx := context.Background()
	det := createOrder(t, uc, "c2", dto.LineRequest{ProductID: str("p1"), Quantity: dec("1")})
	id := det.Document.ID

	det, err := uc.AddLine(ctx, id, dto.LineRequest{ProductID: str("p2"), Quantity: dec("2")})
	require.NoError(t, err)
	require.Len(t, det.Lines, 2)
	assert.Equal(t, 2, det.Lines[1].Position)
	// 10 + 40; IVA 2.1 + 1.6
	assert.True(t, det.Document.Total.Equal(d("53.7")), "total %s", det.Document.Total)

	det, err = uc.UpdateLine(ctx, id, det.Lines[1].ID, dto.LineRequest{DiscountPct: dec("50")})
	require.NoError(t, err)
	assert.True(t, det.Lines[1].Subtotal.Equal(d("20")))
	assert.True(t, det.Document.Discount.Equal(d("20")))
	assert.True(t, det.Document.Total.Equal(d("32.9")))

	det, err = uc.RemoveLine(ctx, id, det.Lines[0].ID)
	require.NoError(t, err)
	require.Len(t, det.Lines, 1)
	assert.True(t, det.Document.Total.Equal(d("20.8")))

	_, err = uc.RemoveLine(ctx, id, "no-existe")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateLine_QuitarProductoDejaLineaLibre(t *testing.T) {
	_, uc, _ := newUseCase(t, false)
	det := createOrder(t, uc, "c2", dto.LineRequest{ProductID: str("p1"), Quantity: dec("2")})

	det, err := uc.UpdateLine(context.Background(), det.Document.ID, det.Lines[0].ID,
		dto.LineRequest{ProductID: str(""), Description: str("Servicio libre")})
	require.NoError(t, err)
	require.Len(t, det.Lines, 1)
	assert.Empty(t, det.Lines[0].ProductID)
	assert.Equal(t, "Servicio libre", det.Lines[0].Description)
	assert.True(t, det.Lines[0].UnitPrice.Equal(d("10")), "conserva el precio")
	assert.True(t, det.Document.TaxableBase.Equal(d("20")))
}

func TestLineas_DocumentoConfirmadoBloqueado(t *testing.T) {
	_, uc, _ := newUseCase(t, false)
	ctx := context.Background()
	det := createOrder(t, uc, "c2", dto.LineRequest{ProductID: str("p1"), Quantity: dec("1")})

	_, err := uc.Confirm(ctx, det.Document.ID, "u1")
	require.NoError(t, err)

	_, err = uc.AddLine(ctx, det.Document.ID, dto.LineRequest{ProductID: str("p1")})
	assert.True(t, errors.Is(err, domain.ErrDocumentLocked))
	_, err = uc.UpdateLine(ctx, det.Document.ID, det.Lines[0].ID, dto.LineRequest{Quantity: dec("9")})
	assert.True(t, errors.Is(err, domain.ErrDocumentLocked))
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones
// ──────────────────────────────────────────────────────────────────────────────

func TestConfirmYCancel_AlbaranMueveStock(t *testing.T) {
	store, uc, _ := newUseCase(t, false)
	ctx := context.Background()
	det, err := uc.Create(ctx, "u1", dto.CreateDocumentRequest{Kind: "delivery_note", PartnerID: "c2",
		Lines: []dto.LineRequest{{ProductID: str("p1"), Quantity: dec("4")}}})
	require.NoError(t, err)

	det, err = uc.Confirm(ctx, det.Document.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateConfirmed, det.Document.State)
	assert.True(t, det.Document.StockApplied)
	p, _ := store.Product("p1")
	assert.True(t, p.Stock.Equal(d("96")))

	_, err = uc.Confirm(ctx, det.Document.ID, "u1")
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	det, err = uc.Cancel(ctx, det.Document.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateCancelled, det.Document.State)
	assert.False(t, det.Document.StockApplied)
	p, _ = store.Product("p1")
	assert.True(t, p.Stock.Equal(d("100")))
}

func TestTransiciones_PedidoYRecibo(t *testing.T) {
	store, uc, _ := newUseCase(t, false)
	ctx := context.Background()
	det := createOrder(t, uc, "c2", dto.LineRequest{ProductID: str("p1"), Quantity: dec("1")})
	id := det.Document.ID

	_, err := uc.Complete(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "un borrador no se sirve")
	_, err = uc.Confirm(ctx, id, "u1")
	require.NoError(t, err)
	det, err = uc.MarkPartial(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatePartial, det.Document.State)
	det, err = uc.Complete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompleted, det.Document.State)

	store.PutDocument(entity.Document{ID: "r1", Kind: entity.KindReceipt, Number: "REC-1", State: entity.StatePending})
	det, err = uc.Collect(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateCollected, det.Document.State)
	_, err = uc.Pay(ctx, "r1")
	assert.Error(t, err, "un recibo de venta no se paga")
}

// ──────────────────────────────────────────────────────────────────────────────
// Conversión y borrado
// ──────────────────────────────────────────────────────────────────────────────

func TestConvertTo_PedidoAFacturaConRecibos(t *testing.T) {
	store, uc, _ := newUseCase(t, true)
	ctx := context.Background()
	order := createOrder(t, uc, "c1", dto.LineRequest{ProductID: str("p1"), Quantity: dec("10")})

	inv, err := uc.ConvertTo(ctx, order.Document.ID, entity.KindInvoice, "u1")
	require.NoError(t, err)
	assert.Equal(t, "FAC-A2026-00001", inv.Document.Number)
	assert.Equal(t, order.Document.ID, inv.Document.OriginDocumentID)
	assert.True(t, inv.Document.Total.Equal(order.Document.Total))
	require.Len(t, inv.Receipts, 2)
	assert.Equal(t, "REC-A2026-00001-1", inv.Receipts[0].Number)

	src, _ := store.Document(order.Document.ID)
	assert.Equal(t, entity.StateDraft, src.State, "el origen no se modifica")
}

func TestConvertTo_PedidoDelAñoAnteriorNumeraRecibosEnElAñoActual(t *testing.T) {
	store, uc, _ := newUseCase(t, true)
	ctx := context.Background()
	order := entity.Document{ID: "ped-2025", Kind: entity.KindOrder, Number: "PED-A2025-00009", Series: "A",
		PartnerID: "c1", PaymentTermID: "t1", State: entity.StateDraft, Date: time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)}
	line := entity.DocumentLine{ID: "ped-2025-l1", DocumentID: "ped-2025", Position: 1, ProductID: "p1",
		Description: "Tornillo M8", Quantity: d("4"), UnitPrice: d("10"), VATRate: d("21")}
	lifecycle.Recalculate(&order, []*entity.DocumentLine{&line})
	store.PutDocument(order, line)

	inv, err := uc.ConvertTo(ctx, "ped-2025", entity.KindInvoice, "u1")
	require.NoError(t, err)
	assert.Equal(t, "FAC-A2026-00001", inv.Document.Number)
	assert.Equal(t, 2026, inv.Document.NumberingYear)
	require.Len(t, inv.Receipts, 2)
	assert.Equal(t, "REC-A2026-00001-1", inv.Receipts[0].Number)

	c, ok := store.Counter(entity.KindReceipt, "A", 2026)
	require.True(t, ok, "el contador de recibos del año de numeración existe")
	assert.Equal(t, int64(1), c.LastNumber)
	_, ok = store.Counter(entity.KindReceipt, "A", 2025)
	assert.False(t, ok, "no se crea contador en el año de la fecha del pedido")
}

func TestConvertTo_Rechazos(t *testing.T) {
	_, uc, _ := newUseCase(t, false)
	ctx := context.Background()
	order := createOrder(t, uc, "c2", dto.LineRequest{ProductID: str("p1"), Quantity: dec("1")})

	_, err := uc.ConvertTo(ctx, order.Document.ID, entity.KindQuote, "u1")
	assert.Equal(t, "conversion.not_permitted", rule(err))

	_, err = uc.Cancel(ctx, order.Document.ID, "u1")
	require.NoError(t, err)
	_, err = uc.ConvertTo(ctx, order.Document.ID, entity.KindInvoice, "u1")
	assert.Equal(t, "conversion.cancelled", rule(err))
}

func TestDelete_ConDerivadosYRevirtiendoStock(t *testing.T) {
	store, uc, _ := newUseCase(t, false)
	ctx := context.Background()
	alb, err := uc.Create(ctx, "u1", dto.CreateDocumentRequest{Kind: "delivery_note", PartnerID: "c2",
		Lines: []dto.LineRequest{{ProductID: str("p2"), Quantity: dec("2")}}})
	require.NoError(t, err)
	_, err = uc.Confirm(ctx, alb.Document.ID, "u1")
	require.NoError(t, err)

	inv, err := uc.ConvertTo(ctx, alb.Document.ID, entity.KindInvoice, "u1")
	require.NoError(t, err)
	err = uc.Delete(ctx, alb.Document.ID, "u1")
	assert.Equal(t, "document.has_derived", rule(err))

	require.NoError(t, uc.Delete(ctx, inv.Document.ID, "u1"))
	require.NoError(t, uc.Delete(ctx, alb.Document.ID, "u1"))
	p, _ := store.Product("p2")
	assert.True(t, p.Stock.Equal(d("5")))
	_, err = uc.Get(ctx, alb.Document.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// ──────────────────────────────────────────────────────────────────────────────
// Impuestos y representaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestTaxBreakdown_PorTipo(t *testing.T) {
	_, uc, _ := newUseCase(t, false)
	det := createOrder(t, uc, "c2",
		dto.LineRequest{ProductID: str("p1"), Quantity: dec("3")},
		dto.LineRequest{ProductID: str("p2"), Quantity: dec("1")},
	)

	res, err := uc.TaxBreakdown(context.Background(), det.Document.ID)
	require.NoError(t, err)
	require.Len(t, res.Rates, 2)
	assert.True(t, res.Rates[0].VATRate.Equal(d("21")))
	assert.True(t, res.Rates[0].Base.Equal(d("30")))
	assert.True(t, res.Rates[1].VATRate.Equal(d("4")))
	assert.True(t, res.GrandTotal.Equal(det.Document.Total))
}

func TestRenderPDF_YFacturae(t *testing.T) {
	_, uc, pdf := newUseCase(t, false)
	ctx := context.Background()
	order := createOrder(t, uc, "c1", dto.LineRequest{ProductID: str("p1"), Quantity: dec("1")})

	b, name, err := uc.RenderPDF(ctx, order.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_PED-A2026-00001.pdf", name)
	assert.NotEmpty(t, b)
	require.NotNil(t, pdf.got.Partner)
	assert.Equal(t, "Ferretería Sol", pdf.got.Partner.Name)
	assert.Len(t, pdf.got.Dues, 2)

	_, _, err = uc.ExportFacturae(ctx, order.Document.ID)
	assert.Equal(t, "facturae.not_invoice", rule(err))

	inv, err := uc.ConvertTo(ctx, order.Document.ID, entity.KindInvoice, "u1")
	require.NoError(t, err)
	b, name, err = uc.ExportFacturae(ctx, inv.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, "invoice_FAC-A2026-00001.xml", name)
	assert.Contains(t, string(b), "FAC-A2026-00001")
}

// ──────────────────────────────────────────────────────────────────────────────
// Edición de facturas con recibos
// ──────────────────────────────────────────────────────────────────────────────

func invoiceWithReceipts(t *testing.T, uc *documents.UseCase) *documents.Detail {
	t.Helper()
	order := createOrder(t, uc, "c1", dto.LineRequest{ProductID: str("p1"), Quantity: dec("10")})
	inv, err := uc.ConvertTo(context.Background(), order.Document.ID, entity.KindInvoice, "u1")
	require.NoError(t, err)
	require.Len(t, inv.Receipts, 2)
	return inv
}

func sumReceipts(recs []*entity.Document) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range recs {
		sum = sum.Add(r.Total)
	}
	return sum
}

func TestAddLine_FacturaRegeneraRecibos(t *testing.T) {
	_, uc, _ := newUseCase(t, true)
	ctx := context.Background()
	inv := invoiceWithReceipts(t, uc)
	before := inv.Document.Total

	det, err := uc.AddLine(ctx, inv.Document.ID, dto.LineRequest{ProductID: str("p1"), Quantity: dec("5")})
	require.NoError(t, err)
	assert.True(t, det.Document.Total.GreaterThan(before))
	require.Len(t, det.Receipts, 2)
	assert.True(t, sumReceipts(det.Receipts).Equal(det.Document.Total),
		"recibos %s, factura %s", sumReceipts(det.Receipts), det.Document.Total)
	assert.Equal(t, "REC-A2026-00001-1", det.Receipts[0].Number)

	live, err := uc.Derived(ctx, inv.Document.ID)
	require.NoError(t, err)
	assert.Len(t, live, 2, "los recibos anteriores quedan borrados")

	det, err = uc.RemoveLine(ctx, inv.Document.ID, det.Lines[1].ID)
	require.NoError(t, err)
	assert.True(t, sumReceipts(det.Receipts).Equal(before))
}

func TestAddLine_FacturaConReciboCobradoRechaza(t *testing.T) {
	_, uc, _ := newUseCase(t, true)
	ctx := context.Background()
	inv := invoiceWithReceipts(t, uc)

	_, err := uc.Collect(ctx, inv.Receipts[0].ID)
	require.NoError(t, err)

	_, err = uc.AddLine(ctx, inv.Document.ID, dto.LineRequest{ProductID: str("p1"), Quantity: dec("5")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	det, err := uc.Get(ctx, inv.Document.ID)
	require.NoError(t, err)
	assert.Len(t, det.Lines, 1, "la edición se deshace entera")
	assert.True(t, det.Document.Total.Equal(inv.Document.Total))
}
