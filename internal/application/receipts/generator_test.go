package receipts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-documentos/internal/application/numbering"
	"github.com/jhoicas/erp-documentos/internal/application/receipts"
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/infrastructure/memory"
)

var invoiceDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T, installments ...entity.Installment) (*memory.Store, *receipts.Generator, *numbering.Sequencer) {
	t.Helper()
	store := memory.NewStore()
	store.PutPaymentTerm(entity.PaymentTerm{ID: "t1", Code: "30-60", Installments: installments, Active: true})
	store.PutDocument(entity.Document{
		ID: "inv", Kind: entity.KindInvoice, Number: "FAC-A2026-00012", Series: "A", PartnerID: "c1",
		State: entity.StateConfirmed, Date: invoiceDate, PaymentTermID: "t1",
		TaxableBase: decimal.RequireFromString("826.45"), Total: decimal.RequireFromString("1000.00"),
	})
	seq := numbering.NewSequencer(store, numbering.Config{}, zerolog.Nop()).
		WithClock(func() time.Time { return invoiceDate })
	return store, receipts.NewGenerator(store, seq, zerolog.Nop()), seq
}

func half(days int) entity.Installment {
	return entity.Installment{DaysOffset: days, Percentage: decimal.NewFromInt(50)}
}

func TestForcedNumber(t *testing.T) {
	assert.Equal(t, "REC-A2026-00012", receipts.ForcedNumber("FAC-A2026-00012", "FAC", "REC"))
	assert.Equal(t, "REC-2026/77", receipts.ForcedNumber("2026/77", "FAC", "REC"))
	n, ok := receipts.TrailingNumber("FAC-A2026-00012")
	assert.True(t, ok)
	assert.EqualValues(t, 12, n)
	_, ok = receipts.TrailingNumber("FAC-A")
	assert.False(t, ok)
}

func TestGenerate_DosVencimientos(t *testing.T) {
	store, gen, seq := setup(t, half(30), half(60))
	ctx := context.Background()

	recs, err := gen.Generate(ctx, "inv", "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "REC-A2026-00012-1", recs[0].Number)
	assert.Equal(t, "REC-A2026-00012-2", recs[1].Number)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), *recs[0].DueDate)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), *recs[1].DueDate)
	for _, rec := range recs {
		assert.Equal(t, entity.KindReceipt, rec.Kind)
		assert.Equal(t, entity.StatePending, rec.State)
		assert.Equal(t, "inv", rec.OriginDocumentID)
		assert.Equal(t, "c1", rec.PartnerID)
		assert.Equal(t, "u1", rec.CreatedBy)
		assert.True(t, rec.Total.Equal(decimal.NewFromInt(500)))
	}

	c, ok := store.Counter(entity.KindReceipt, "A", 2026)
	require.True(t, ok)
	assert.EqualValues(t, 12, c.LastNumber, "el contador de recibos se sube al número de la factura")

	next, err := seq.Next(ctx, entity.KindReceipt, "A")
	require.NoError(t, err)
	assert.Equal(t, "REC-A2026-00013", next)
}

func TestGenerate_UnVencimientoSinSufijo(t *testing.T) {
	_, gen, _ := setup(t)
	recs, err := gen.Generate(context.Background(), "inv", "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "REC-A2026-00012", recs[0].Number)
	assert.Equal(t, invoiceDate, *recs[0].DueDate)
	assert.True(t, recs[0].Total.Equal(decimal.RequireFromString("1000")))
}

func TestGenerate_YaGenerados(t *testing.T) {
	store, gen, _ := setup(t, half(30), half(60))
	_, err := gen.Generate(context.Background(), "inv", "u1")
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "inv", "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReceiptsAlreadyGenerated))
	assert.Len(t, store.Documents(entity.KindReceipt), 2)
}

func TestGenerate_Precondiciones(t *testing.T) {
	store, gen, _ := setup(t, half(30), half(60))
	ctx := context.Background()

	_, err := gen.Generate(ctx, "nope", "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	store.PutDocument(entity.Document{ID: "alb", Kind: entity.KindDeliveryNote, Number: "ALB-1", PaymentTermID: "t1"})
	_, err = gen.Generate(ctx, "alb", "u1")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "receipts.not_invoice", vErr.Rule)

	store.PutDocument(entity.Document{ID: "inv2", Kind: entity.KindInvoice, Number: "FAC-A2026-00013"})
	_, err = gen.Generate(ctx, "inv2", "u1")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "receipts.no_payment_term", vErr.Rule)

	store.PutDocument(entity.Document{ID: "inv3", Kind: entity.KindInvoice, Number: "FAC-A2026-00014", PaymentTermID: "borrada"})
	_, err = gen.Generate(ctx, "inv3", "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Empty(t, store.Documents(entity.KindReceipt))
}

func TestGenerate_CompraQuedaEnBorrador(t *testing.T) {
	store, gen, _ := setup(t, half(30), half(60))
	store.PutDocument(entity.Document{
		ID: "fco", Kind: entity.KindPurchaseInvoice, Number: "FCO-A2026-00003", Series: "A",
		Date: invoiceDate, PaymentTermID: "t1", Total: decimal.NewFromInt(80),
	})
	recs, err := gen.Generate(context.Background(), "fco", "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, entity.KindPurchaseReceipt, recs[0].Kind)
	assert.Equal(t, entity.StateDraft, recs[0].State)
	assert.Equal(t, "RCO-A2026-00003-1", recs[0].Number)
}

func TestRegenerate_ReemplazaPendientes(t *testing.T) {
	store, gen, _ := setup(t, half(30), half(60))
	ctx := context.Background()
	first, err := gen.Generate(ctx, "inv", "u1")
	require.NoError(t, err)

	store.PutPaymentTerm(entity.PaymentTerm{ID: "t1", Code: "30-60-90", Installments: []entity.Installment{
		{DaysOffset: 30, Percentage: decimal.NewFromInt(40)},
		{DaysOffset: 60, Percentage: decimal.NewFromInt(30)},
		{DaysOffset: 90, Percentage: decimal.NewFromInt(30)},
	}})
	second, err := gen.Regenerate(ctx, "inv", "u1")
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, "REC-A2026-00012-1", second[0].Number, "los números se reutilizan")

	old, ok := store.Document(first[0].ID)
	require.True(t, ok)
	assert.NotNil(t, old.DeletedAt)
	assert.NotEqual(t, "REC-A2026-00012-1", old.Number)
	assert.Len(t, store.Documents(entity.KindReceipt), 3)
}

func TestRegenerate_RechazaSiHayCobrados(t *testing.T) {
	store, gen, _ := setup(t, half(30), half(60))
	ctx := context.Background()
	recs, err := gen.Generate(ctx, "inv", "u1")
	require.NoError(t, err)

	collected, _ := store.Document(recs[0].ID)
	collected.State = entity.StateCollected
	store.PutDocument(collected)

	_, err = gen.Regenerate(ctx, "inv", "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Len(t, store.Documents(entity.KindReceipt), 2, "no se borra nada")
}
