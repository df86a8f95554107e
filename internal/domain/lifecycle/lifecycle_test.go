package lifecycle_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/lifecycle"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLine(qty, price, disc, vat string) *entity.DocumentLine {
	return &entity.DocumentLine{ID: "l-" + price, Quantity: d(qty), UnitPrice: d(price), DiscountPct: d(disc), VATRate: d(vat)}
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones
// ──────────────────────────────────────────────────────────────────────────────

func TestConfirm_SoloDesdeBorrador(t *testing.T) {
	doc := &entity.Document{Kind: entity.KindOrder, State: entity.StateDraft}
	require.NoError(t, lifecycle.Confirm(doc))
	assert.Equal(t, entity.StateConfirmed, doc.State)

	err := lifecycle.Confirm(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	var tErr *domain.TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "confirmed", tErr.From)
}

func TestCancel_Incondicional(t *testing.T) {
	for _, st := range []entity.State{entity.StateDraft, entity.StateConfirmed, entity.StateCompleted} {
		doc := &entity.Document{Kind: entity.KindOrder, State: st}
		lifecycle.Cancel(doc)
		assert.Equal(t, entity.StateCancelled, doc.State)
	}
}

func TestPedido_ParcialYCompleto(t *testing.T) {
	doc := &entity.Document{Kind: entity.KindOrder, State: entity.StateConfirmed}
	require.NoError(t, lifecycle.MarkPartial(doc))
	require.NoError(t, lifecycle.Complete(doc))
	assert.Equal(t, entity.StateCompleted, doc.State)

	inv := &entity.Document{Kind: entity.KindInvoice, State: entity.StateConfirmed}
	assert.True(t, errors.Is(lifecycle.Complete(inv), domain.ErrInvalidInput))
}

func TestRecibos_CobroYPago(t *testing.T) {
	rec := &entity.Document{Kind: entity.KindReceipt, State: entity.StatePending}
	require.NoError(t, lifecycle.Collect(rec))
	assert.Equal(t, entity.StateCollected, rec.State)
	assert.True(t, rec.State.Terminal())
	assert.True(t, errors.Is(lifecycle.Collect(rec), domain.ErrInvalidTransition))

	prec := &entity.Document{Kind: entity.KindPurchaseReceipt, State: entity.StateDraft}
	require.NoError(t, lifecycle.Pay(prec))
	assert.Equal(t, entity.StatePaid, prec.State)
}

// ──────────────────────────────────────────────────────────────────────────────
// Totales
// ──────────────────────────────────────────────────────────────────────────────

func TestRecalculate_Invariantes(t *testing.T) {
	doc := &entity.Document{Kind: entity.KindInvoice, WithholdingRate: d("15")}
	lines := []*entity.DocumentLine{
		newLine("2", "50", "10", "21"),
		newLine("1", "25", "0", "10"),
	}
	lifecycle.Recalculate(doc, lines)

	assert.True(t, doc.Subtotal.Equal(d("125")))
	assert.True(t, doc.Discount.Equal(d("10")))
	assert.True(t, doc.TaxableBase.Equal(doc.Subtotal.Sub(doc.Discount)))
	assert.True(t, doc.VATAmount.Equal(d("21.4")), doc.VATAmount.String()) // 90*0.21 + 25*0.10
	assert.True(t, doc.WithholdingAmount.Equal(d("17.25")))
	want := doc.TaxableBase.Add(doc.VATAmount).Sub(doc.WithholdingAmount).Add(doc.SurchargeAmount)
	assert.True(t, doc.Total.Equal(want))
	assert.True(t, lines[0].Subtotal.Equal(d("90")), "los importes de línea se recalculan")
}

func TestRecalculate_IgnoraImportesDeEntrada(t *testing.T) {
	l := newLine("1", "10", "0", "21")
	l.Total = d("9999")
	l.Subtotal = d("9999")
	doc := &entity.Document{Kind: entity.KindQuote}
	lifecycle.Recalculate(doc, []*entity.DocumentLine{l})
	assert.True(t, l.Total.Equal(d("12.1")))
	assert.True(t, doc.Total.Equal(d("12.1")))
}

func TestRecalculate_ReciboConservaImportes(t *testing.T) {
	rec := &entity.Document{Kind: entity.KindReceipt, Total: d("500"), TaxableBase: d("500")}
	lifecycle.Recalculate(rec, nil)
	assert.True(t, rec.Total.Equal(d("500")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Borradores derivados
// ──────────────────────────────────────────────────────────────────────────────

func TestCloneAsDraft_UnOrigen(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	src := &entity.Document{
		ID: "q1", Kind: entity.KindQuote, Number: "PRE-A2026-00001", Series: "A", PartnerID: "p1",
		State: entity.StateConfirmed, Date: now.AddDate(0, 0, -3), Observations: "urgente", PaymentTermID: "t1",
	}
	lines := []*entity.DocumentLine{newLine("2", "10", "0", "21"), newLine("1", "5", "0", "10")}
	lifecycle.Recalculate(src, lines)

	draft := lifecycle.CloneAsDraft(entity.KindOrder, []lifecycle.Source{{Doc: src, Lines: lines}}, "u1", now)

	doc := draft.Doc
	assert.NotEqual(t, src.ID, doc.ID)
	assert.Equal(t, entity.KindOrder, doc.Kind)
	assert.Equal(t, entity.StateDraft, doc.State)
	assert.Equal(t, "q1", doc.OriginDocumentID)
	assert.Empty(t, doc.Number)
	assert.Empty(t, draft.Origins)
	assert.Equal(t, src.PartnerID, doc.PartnerID)
	assert.Equal(t, src.Date, doc.Date)
	assert.Equal(t, "urgente", doc.Observations)
	assert.Equal(t, "t1", doc.PaymentTermID)
	assert.True(t, doc.Total.Equal(src.Total))

	require.Len(t, draft.Lines, 2)
	for i, l := range draft.Lines {
		assert.Equal(t, doc.ID, l.DocumentID)
		assert.Equal(t, i+1, l.Position)
		assert.NotEqual(t, lines[i].ID, l.ID)
		assert.True(t, l.Quantity.Equal(lines[i].Quantity))
	}
	assert.Equal(t, entity.StateConfirmed, src.State, "el origen no se modifica")
	assert.Equal(t, "q1", src.ID)
}

func TestCloneAsDraft_VariosOrigenes(t *testing.T) {
	now := time.Now()
	a := &entity.Document{ID: "a", Kind: entity.KindDeliveryNote, PartnerID: "p1"}
	b := &entity.Document{ID: "b", Kind: entity.KindDeliveryNote, PartnerID: "p1"}
	draft := lifecycle.CloneAsDraft(entity.KindInvoice, []lifecycle.Source{
		{Doc: a, Lines: []*entity.DocumentLine{newLine("2", "10", "0", "21"), newLine("3", "1", "0", "21")}},
		{Doc: b, Lines: []*entity.DocumentLine{newLine("1", "100", "0", "21")}},
	}, "u1", now)

	assert.Empty(t, draft.Doc.OriginDocumentID)
	require.Len(t, draft.Origins, 2)
	assert.True(t, draft.Origins[0].ProcessedQuantity.Equal(d("5")))
	assert.True(t, draft.Origins[1].ProcessedQuantity.Equal(d("1")))
	assert.Len(t, draft.Lines, 3)
	assert.Equal(t, 3, draft.Lines[2].Position)
	assert.True(t, draft.Doc.TaxableBase.Equal(d("123")))
}
