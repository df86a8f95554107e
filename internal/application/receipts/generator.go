package receipts

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/erp-documentos/internal/application/numbering"
	"github.com/jhoicas/erp-documentos/internal/application/ports"
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/payment"
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// Generator materializa los vencimientos de la forma de pago de una factura como recibos.
type Generator struct {
	tx  ports.TxRunner
	seq *numbering.Sequencer
	now ports.Clock
	log zerolog.Logger
}

// NewGenerator construye el generador.
func NewGenerator(tx ports.TxRunner, seq *numbering.Sequencer, log zerolog.Logger) *Generator {
	return &Generator{tx: tx, seq: seq, now: time.Now, log: log}
}

// Generate crea los recibos de la factura en una transacción.
func (g *Generator) Generate(ctx context.Context, invoiceID, userID string) ([]*entity.Document, error) {
	var out []*entity.Document
	err := g.tx.Run(ctx, func(r ports.Repos) error {
		recs, err := g.GenerateInTx(ctx, r, invoiceID, userID)
		out = recs
		return err
	})
	return out, err
}

// Regenerate borra los recibos previos y los vuelve a generar en una transacción.
func (g *Generator) Regenerate(ctx context.Context, invoiceID, userID string) ([]*entity.Document, error) {
	var out []*entity.Document
	err := g.tx.Run(ctx, func(r ports.Repos) error {
		recs, err := g.RegenerateInTx(ctx, r, invoiceID, userID)
		out = recs
		return err
	})
	return out, err
}

// GenerateInTx valida la factura, expande la forma de pago y crea un recibo por vencimiento con
// número forzado derivado del de la factura. Después sube el contador de recibos para que la
// numeración automática no colisione.
func (g *Generator) GenerateInTx(ctx context.Context, r ports.Repos, invoiceID, userID string) ([]*entity.Document, error) {
	inv, err := r.Documents.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if inv == nil {
		return nil, domain.NotFound("factura", invoiceID)
	}
	spec := inv.Spec()
	if spec.ReceiptKind == "" {
		return nil, domain.Invalid("receipts.not_invoice", "el documento %s no es una factura", inv.Number)
	}
	if inv.PaymentTermID == "" {
		return nil, domain.Invalid("receipts.no_payment_term", "la factura %s no tiene forma de pago", inv.Number)
	}
	term, err := r.Terms.GetByID(ctx, inv.PaymentTermID)
	if err != nil {
		return nil, fmt.Errorf("get payment term: %w", err)
	}
	if term == nil {
		return nil, domain.NotFound("forma de pago", inv.PaymentTermID)
	}
	existing, err := r.Documents.ListDerived(ctx, inv.ID, spec.ReceiptKind)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%s: %w", inv.Number, domain.ErrReceiptsAlreadyGenerated)
	}
	if !term.BalancedPercentages() {
		g.log.Warn().Str("term", term.Code).Str("sum", term.PercentageSum().String()).Msg("los vencimientos no suman 100%")
	}

	receiptSpec := spec.ReceiptKind.Spec()
	base := ForcedNumber(inv.Number, spec.Prefix, receiptSpec.Prefix)
	dues := payment.Schedule(term.Installments, inv.Date, inv.Total)
	now := g.now()
	year := numberingYear(inv)

	out := make([]*entity.Document, 0, len(dues))
	for i, due := range dues {
		number := base
		if len(dues) > 1 {
			number = fmt.Sprintf("%s-%d", base, i+1)
		}
		exists, err := r.Documents.ExistsNumber(ctx, number)
		if err != nil {
			return nil, fmt.Errorf("check number: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("receipt number %s: %w", number, domain.ErrDuplicate)
		}
		dueDate := due.DueDate
		rec := &entity.Document{
			ID:               uuid.New().String(),
			Kind:             spec.ReceiptKind,
			Number:           number,
			NumberingYear:    year,
			Series:           inv.Series,
			Date:             inv.Date,
			DueDate:          &dueDate,
			PartnerID:        inv.PartnerID,
			State:            receiptSpec.InitialState,
			Subtotal:         due.Amount,
			TaxableBase:      due.Amount,
			Total:            due.Amount,
			PaymentTermID:    inv.PaymentTermID,
			OriginDocumentID: inv.ID,
			CreatedBy:        userID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := r.Documents.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("insert receipt: %w", err)
		}
		out = append(out, rec)
	}

	if floor, ok := TrailingNumber(inv.Number); ok {
		if err := g.seq.ReserveFloor(ctx, r, spec.ReceiptKind, inv.Series, year, floor); err != nil {
			return nil, err
		}
	}
	g.log.Info().Str("invoice", inv.Number).Int("receipts", len(out)).Msg("recibos generados")
	return out, nil
}

// RegenerateInTx borra lógicamente los recibos existentes y genera de nuevo. Si algún recibo ya
// está cobrado o pagado no toca nada. Los números de los recibos retirados se liberan con un sufijo.
func (g *Generator) RegenerateInTx(ctx context.Context, r ports.Repos, invoiceID, userID string) ([]*entity.Document, error) {
	inv, err := r.Documents.GetForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("lock invoice: %w", err)
	}
	if inv == nil {
		return nil, domain.NotFound("factura", invoiceID)
	}
	receiptKind := inv.Spec().ReceiptKind
	if receiptKind == "" {
		return nil, domain.Invalid("receipts.not_invoice", "el documento %s no es una factura", inv.Number)
	}
	existing, err := r.Documents.ListDerived(ctx, inv.ID, receiptKind)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	for _, rec := range existing {
		if rec.State == entity.StateCollected || rec.State == entity.StatePaid {
			return nil, fmt.Errorf("el recibo %s está %s: %w", rec.Number, rec.State, domain.ErrConflict)
		}
	}
	for _, rec := range existing {
		rec.Number = retiredNumber(rec)
		if err := r.Documents.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("retire receipt number: %w", err)
		}
		if err := r.Documents.SoftDelete(ctx, rec.ID); err != nil {
			return nil, fmt.Errorf("delete receipt: %w", err)
		}
	}
	if len(existing) > 0 {
		g.log.Info().Str("invoice", inv.Number).Int("receipts", len(existing)).Msg("recibos anteriores eliminados")
	}
	return g.GenerateInTx(ctx, r, invoiceID, userID)
}

// ForcedNumber sustituye el prefijo de factura por el de recibo. Si el número no lleva el prefijo
// se antepone el de recibo.
func ForcedNumber(invoiceNumber, invoicePrefix, receiptPrefix string) string {
	if strings.Contains(invoiceNumber, invoicePrefix) {
		return strings.Replace(invoiceNumber, invoicePrefix, receiptPrefix, 1)
	}
	return receiptPrefix + "-" + invoiceNumber
}

// TrailingNumber segmento numérico final del número de documento.
func TrailingNumber(number string) (int64, bool) {
	m := trailingDigits.FindStringSubmatch(number)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// numberingYear año del contador en el que se reserva la numeración de los recibos: el que emitió
// el número de la factura. Las facturas con número forzado o importado usan el año de su fecha.
func numberingYear(inv *entity.Document) int {
	if inv.NumberingYear > 0 {
		return inv.NumberingYear
	}
	return inv.Date.Year()
}

func retiredNumber(rec *entity.Document) string {
	suffix := rec.ID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return rec.Number + "~" + suffix
}
