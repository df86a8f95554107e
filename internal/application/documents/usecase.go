package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-documentos/internal/application/dto"
	"github.com/jhoicas/erp-documentos/internal/application/numbering"
	"github.com/jhoicas/erp-documentos/internal/application/ports"
	"github.com/jhoicas/erp-documentos/internal/application/receipts"
	"github.com/jhoicas/erp-documentos/internal/application/stock"
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/lifecycle"
	"github.com/jhoicas/erp-documentos/internal/domain/payment"
	"github.com/jhoicas/erp-documentos/internal/domain/tax"
)

// Config opciones del ciclo de vida.
type Config struct {
	AutoReceipts   bool            // generar recibos al convertir en factura con forma de pago
	DefaultVATRate decimal.Decimal // IVA de líneas sin producto ni tipo indicado
}

// UseCase ciclo de vida de los documentos: alta, líneas, transiciones, conversión y borrado.
// Cada operación es una única transacción.
type UseCase struct {
	tx       ports.TxRunner
	seq      *numbering.Sequencer
	stock    *stock.SyncService
	receipts *receipts.Generator
	taxes    *tax.Engine
	pdf      PDFGenerator
	xml      InvoiceExporter
	cfg      Config
	now      ports.Clock
	log      zerolog.Logger
}

// NewUseCase construye el caso de uso. pdf y xml pueden ser nil si no se exponen.
func NewUseCase(
	tx ports.TxRunner,
	seq *numbering.Sequencer,
	stockSvc *stock.SyncService,
	gen *receipts.Generator,
	taxes *tax.Engine,
	pdf PDFGenerator,
	xml InvoiceExporter,
	cfg Config,
	log zerolog.Logger,
) *UseCase {
	return &UseCase{
		tx:       tx,
		seq:      seq,
		stock:    stockSvc,
		receipts: gen,
		taxes:    taxes,
		pdf:      pdf,
		xml:      xml,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *UseCase) WithClock(c ports.Clock) *UseCase {
	uc.now = c
	return uc
}

// ──────────────────────────────────────────────────────────────────────────────
// Alta y consulta
// ──────────────────────────────────────────────────────────────────────────────

// Create crea un borrador numerado con los datos por defecto del tercero y las líneas indicadas.
func (uc *UseCase) Create(ctx context.Context, userID string, in dto.CreateDocumentRequest) (*Detail, error) {
	kind := entity.Kind(strings.TrimSpace(in.Kind))
	if !kind.Known() {
		return nil, domain.Invalid("document.kind", "tipo de documento desconocido: %q", in.Kind)
	}
	date, err := dto.ParseDate(in.Date, uc.today())
	if err != nil {
		return nil, domain.Invalid("document.date", "fecha inválida %q, formato esperado AAAA-MM-DD", in.Date)
	}

	var out *Detail
	err = uc.tx.Run(ctx, func(r ports.Repos) error {
		doc := &entity.Document{
			ID:           uuid.New().String(),
			Kind:         kind,
			Date:         date,
			PartnerID:    in.PartnerID,
			State:        kind.Spec().InitialState,
			Observations: in.Observations,
			CreatedBy:    userID,
		}
		if err := uc.applyPartnerDefaults(ctx, r, doc); err != nil {
			return err
		}
		if in.PaymentTermID != nil {
			doc.PaymentTermID = *in.PaymentTermID
		}
		if in.WithholdingRate != nil {
			doc.WithholdingRate = *in.WithholdingRate
		}
		if doc.PaymentTermID != "" {
			term, err := r.Terms.GetByID(ctx, doc.PaymentTermID)
			if err != nil {
				return fmt.Errorf("get payment term: %w", err)
			}
			if term == nil {
				return domain.NotFound("forma de pago", doc.PaymentTermID)
			}
		}

		series, err := uc.seq.ResolveSeries(ctx, r, in.Series)
		if err != nil {
			return err
		}
		doc.Series = series
		iss, err := uc.seq.Issue(ctx, r, kind, series)
		if err != nil {
			return err
		}
		doc.Number, doc.NumberingYear = iss.Number, iss.Year
		now := uc.now()
		doc.CreatedAt, doc.UpdatedAt = now, now
		if err := r.Documents.Create(ctx, doc); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}

		lines := make([]*entity.DocumentLine, 0, len(in.Lines))
		for i, req := range in.Lines {
			line, err := uc.buildLine(ctx, r, doc, req, i+1)
			if err != nil {
				return err
			}
			if err := r.Documents.CreateLine(ctx, line); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
			lines = append(lines, line)
		}
		lifecycle.Recalculate(doc, lines)
		if err := r.Documents.Update(ctx, doc); err != nil {
			return fmt.Errorf("update totals: %w", err)
		}
		out = &Detail{Document: doc, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("number", out.Document.Number).Str("kind", string(out.Document.Kind)).Msg("documento creado")
	return out, nil
}

// ImportExtracted crea un borrador a partir de líneas ya extraídas por OCR/IA. El producto se
// resuelve por el id emparejado y si no por la referencia; sin coincidencia queda como línea libre.
func (uc *UseCase) ImportExtracted(ctx context.Context, userID string, in dto.ImportRequest) (*Detail, error) {
	if in.MatchedPartnerID == "" {
		return nil, domain.Invalid("import.partner", "el documento importado no tiene tercero emparejado")
	}
	req := dto.CreateDocumentRequest{
		Kind:      in.Kind,
		Series:    in.Series,
		PartnerID: in.MatchedPartnerID,
		Date:      in.Date,
	}
	for _, l := range in.Lines {
		l := l
		lr := dto.LineRequest{
			Description: &l.Description,
			Quantity:    &l.Quantity,
			UnitPrice:   &l.UnitPrice,
			DiscountPct: &l.Discount,
			VATRate:     &l.VATRate,
		}
		if l.MatchedProductID != "" {
			lr.ProductID = &l.MatchedProductID
		}
		if l.Reference != "" {
			lr.Reference = &l.Reference
		}
		req.Lines = append(req.Lines, lr)
	}
	return uc.Create(ctx, userID, req)
}

// Get devuelve el documento con sus líneas.
func (uc *UseCase) Get(ctx context.Context, id string) (*Detail, error) {
	var out *Detail
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		doc, lines, err := loadWithLines(ctx, r, id, false)
		if err != nil {
			return err
		}
		out = &Detail{Document: doc, Lines: lines}
		return nil
	})
	return out, err
}

// Derived documentos vivos que proceden de id (conversiones, agrupaciones y recibos).
func (uc *UseCase) Derived(ctx context.Context, id string) ([]*entity.Document, error) {
	var out []*entity.Document
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		docs, err := r.Documents.ListDerived(ctx, id, "")
		out = docs
		return err
	})
	return out, err
}

// ──────────────────────────────────────────────────────────────────────────────
// Líneas
// ──────────────────────────────────────────────────────────────────────────────

// AddLine añade una línea al borrador y recalcula los totales.
func (uc *UseCase) AddLine(ctx context.Context, documentID string, in dto.LineRequest) (*Detail, error) {
	return uc.editLines(ctx, documentID, func(r ports.Repos, doc *entity.Document, lines []*entity.DocumentLine) ([]*entity.DocumentLine, error) {
		line, err := uc.buildLine(ctx, r, doc, in, nextPosition(lines))
		if err != nil {
			return nil, err
		}
		if err := r.Documents.CreateLine(ctx, line); err != nil {
			return nil, fmt.Errorf("insert line: %w", err)
		}
		return append(lines, line), nil
	})
}

// UpdateLine modifica los campos indicados de una línea y recalcula los totales.
func (uc *UseCase) UpdateLine(ctx context.Context, documentID, lineID string, in dto.LineRequest) (*Detail, error) {
	return uc.editLines(ctx, documentID, func(r ports.Repos, doc *entity.Document, lines []*entity.DocumentLine) ([]*entity.DocumentLine, error) {
		var line *entity.DocumentLine
		for _, l := range lines {
			if l.ID == lineID {
				line = l
			}
		}
		if line == nil {
			return nil, domain.NotFound("línea", lineID)
		}
		if in.ProductID != nil && *in.ProductID != line.ProductID {
			line.ProductID = *in.ProductID
			// sin producto la línea queda libre y conserva sus datos
			if line.ProductID != "" {
				if err := uc.applyProductDefaults(ctx, r, line, true); err != nil {
					return nil, err
				}
			}
		}
		mergeLine(line, in)
		line.SurchargeRate = uc.surchargeRate(doc, line.VATRate)
		lifecycle.ComputeLine(line)
		if err := r.Documents.UpdateLine(ctx, line); err != nil {
			return nil, fmt.Errorf("update line: %w", err)
		}
		return lines, nil
	})
}

// RemoveLine elimina una línea del borrador y recalcula los totales.
func (uc *UseCase) RemoveLine(ctx context.Context, documentID, lineID string) (*Detail, error) {
	return uc.editLines(ctx, documentID, func(r ports.Repos, doc *entity.Document, lines []*entity.DocumentLine) ([]*entity.DocumentLine, error) {
		kept := make([]*entity.DocumentLine, 0, len(lines))
		found := false
		for _, l := range lines {
			if l.ID == lineID {
				found = true
				continue
			}
			kept = append(kept, l)
		}
		if !found {
			return nil, domain.NotFound("línea", lineID)
		}
		if err := r.Documents.DeleteLine(ctx, documentID, lineID); err != nil {
			return nil, fmt.Errorf("delete line: %w", err)
		}
		return kept, nil
	})
}

// editLines bloquea el documento, exige borrador, aplica fn y vuelve a guardar los totales de cabecera.
func (uc *UseCase) editLines(ctx context.Context, documentID string, fn func(r ports.Repos, doc *entity.Document, lines []*entity.DocumentLine) ([]*entity.DocumentLine, error)) (*Detail, error) {
	var out *Detail
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		doc, lines, err := loadWithLines(ctx, r, documentID, true)
		if err != nil {
			return err
		}
		if !doc.Spec().HasLines {
			return domain.Invalid("document.no_lines", "los documentos de tipo %s no tienen líneas", doc.Kind)
		}
		if !lifecycle.Editable(doc) {
			return fmt.Errorf("%s (%s): %w", doc.Number, doc.State, domain.ErrDocumentLocked)
		}
		lines, err = fn(r, doc, lines)
		if err != nil {
			return err
		}
		lifecycle.Recalculate(doc, lines)
		if err := r.Documents.Update(ctx, doc); err != nil {
			return fmt.Errorf("update totals: %w", err)
		}
		out = &Detail{Document: doc, Lines: lines}
		recs, err := uc.refreshReceipts(ctx, r, doc)
		if err != nil {
			return err
		}
		out.Receipts = recs
		return nil
	})
	return out, err
}

// refreshReceipts vuelve a generar los recibos de una factura cuyo total ha cambiado. Si alguno
// está cobrado o pagado la edición entera se rechaza con ErrConflict.
func (uc *UseCase) refreshReceipts(ctx context.Context, r ports.Repos, doc *entity.Document) ([]*entity.Document, error) {
	rk := doc.Spec().ReceiptKind
	if rk == "" {
		return nil, nil
	}
	existing, err := r.Documents.ListDerived(ctx, doc.ID, rk)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	if len(existing) == 0 {
		return nil, nil
	}
	return uc.receipts.RegenerateInTx(ctx, r, doc.ID, doc.CreatedBy)
}

func (uc *UseCase) buildLine(ctx context.Context, r ports.Repos, doc *entity.Document, in dto.LineRequest, position int) (*entity.DocumentLine, error) {
	line := &entity.DocumentLine{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Position:   position,
		Quantity:   decimal.NewFromInt(1),
		VATRate:    uc.cfg.DefaultVATRate,
	}
	if in.ProductID != nil {
		line.ProductID = *in.ProductID
	} else if in.Reference != nil && *in.Reference != "" {
		p, err := r.Products.GetByReference(ctx, *in.Reference)
		if err != nil {
			return nil, fmt.Errorf("get product by reference: %w", err)
		}
		if p != nil {
			line.ProductID = p.ID
		}
	}
	if line.ProductID != "" {
		if err := uc.applyProductDefaults(ctx, r, line, false); err != nil {
			return nil, err
		}
	}
	mergeLine(line, in)
	if line.ProductID == "" && strings.TrimSpace(line.Description) == "" {
		return nil, domain.Invalid("line.description", "la línea %d necesita producto o descripción", position)
	}
	if line.DiscountPct.IsNegative() || line.DiscountPct.GreaterThan(decimal.NewFromInt(100)) {
		return nil, domain.Invalid("line.discount", "línea %d: el descuento debe estar entre 0 y 100", position)
	}
	line.SurchargeRate = uc.surchargeRate(doc, line.VATRate)
	lifecycle.ComputeLine(line)
	return line, nil
}

// applyProductDefaults copia referencia, descripción, precio e IVA del producto.
// Con overwrite=false solo se rellenan los campos vacíos.
func (uc *UseCase) applyProductDefaults(ctx context.Context, r ports.Repos, line *entity.DocumentLine, overwrite bool) error {
	p, err := r.Products.GetByID(ctx, line.ProductID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if p == nil {
		return domain.NotFound("producto", line.ProductID)
	}
	if overwrite || line.Reference == "" {
		line.Reference = p.Reference
	}
	if overwrite || line.Description == "" {
		line.Description = p.Name
	}
	line.UnitPrice = p.Price
	line.VATRate = p.VATRate
	return nil
}

func mergeLine(line *entity.DocumentLine, in dto.LineRequest) {
	if in.Reference != nil {
		line.Reference = *in.Reference
	}
	if in.Description != nil && *in.Description != "" {
		line.Description = *in.Description
	}
	if in.Quantity != nil {
		line.Quantity = *in.Quantity
	}
	if in.UnitPrice != nil {
		line.UnitPrice = *in.UnitPrice
	}
	if in.DiscountPct != nil {
		line.DiscountPct = *in.DiscountPct
	}
	if in.VATRate != nil {
		line.VATRate = *in.VATRate
	}
}

func (uc *UseCase) surchargeRate(doc *entity.Document, vat decimal.Decimal) decimal.Decimal {
	if !doc.SurchargeApplies {
		return decimal.Zero
	}
	return uc.taxes.SurchargeRate(vat)
}

func nextPosition(lines []*entity.DocumentLine) int {
	last := 0
	for _, l := range lines {
		if l.Position > last {
			last = l.Position
		}
	}
	return last + 1
}

// ──────────────────────────────────────────────────────────────────────────────
// Transiciones
// ──────────────────────────────────────────────────────────────────────────────

// Confirm confirma el borrador y aplica su stock en la misma transacción.
func (uc *UseCase) Confirm(ctx context.Context, id, userID string) (*Detail, error) {
	return uc.transition(ctx, id, func(r ports.Repos, doc *entity.Document) (*entity.Document, error) {
		if err := lifecycle.Confirm(doc); err != nil {
			return nil, err
		}
		if err := r.Documents.Update(ctx, doc); err != nil {
			return nil, fmt.Errorf("update document: %w", err)
		}
		return uc.stock.ApplyInTx(ctx, r, doc.ID, userID)
	})
}

// Cancel anula el documento y revierte su stock si estaba aplicado.
func (uc *UseCase) Cancel(ctx context.Context, id, userID string) (*Detail, error) {
	return uc.transition(ctx, id, func(r ports.Repos, doc *entity.Document) (*entity.Document, error) {
		lifecycle.Cancel(doc)
		if err := r.Documents.Update(ctx, doc); err != nil {
			return nil, fmt.Errorf("update document: %w", err)
		}
		return uc.stock.ReverseInTx(ctx, r, doc.ID, userID)
	})
}

// Complete marca un pedido como servido.
func (uc *UseCase) Complete(ctx context.Context, id string) (*Detail, error) {
	return uc.simpleTransition(ctx, id, lifecycle.Complete)
}

// MarkPartial marca un pedido como servido parcialmente.
func (uc *UseCase) MarkPartial(ctx context.Context, id string) (*Detail, error) {
	return uc.simpleTransition(ctx, id, lifecycle.MarkPartial)
}

// Collect cobra un recibo de venta.
func (uc *UseCase) Collect(ctx context.Context, id string) (*Detail, error) {
	return uc.simpleTransition(ctx, id, lifecycle.Collect)
}

// Pay paga un recibo de compra.
func (uc *UseCase) Pay(ctx context.Context, id string) (*Detail, error) {
	return uc.simpleTransition(ctx, id, lifecycle.Pay)
}

func (uc *UseCase) simpleTransition(ctx context.Context, id string, apply func(*entity.Document) error) (*Detail, error) {
	return uc.transition(ctx, id, func(r ports.Repos, doc *entity.Document) (*entity.Document, error) {
		if err := apply(doc); err != nil {
			return nil, err
		}
		if err := r.Documents.Update(ctx, doc); err != nil {
			return nil, fmt.Errorf("update document: %w", err)
		}
		return doc, nil
	})
}

func (uc *UseCase) transition(ctx context.Context, id string, fn func(r ports.Repos, doc *entity.Document) (*entity.Document, error)) (*Detail, error) {
	var out *Detail
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		doc, err := r.Documents.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}
		if doc == nil {
			return domain.NotFound("documento", id)
		}
		from := doc.State
		doc, err = fn(r, doc)
		if err != nil {
			return err
		}
		lines, err := r.Documents.ListLines(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("list lines: %w", err)
		}
		uc.log.Info().Str("number", doc.Number).Str("from", string(from)).Str("to", string(doc.State)).Msg("cambio de estado")
		out = &Detail{Document: doc, Lines: lines}
		return nil
	})
	return out, err
}

// ──────────────────────────────────────────────────────────────────────────────
// Conversión y borrado
// ──────────────────────────────────────────────────────────────────────────────

// ConvertTo crea un borrador de tipo target copiando cabecera y líneas del origen, que no se modifica.
// Si el destino es una factura con forma de pago se generan sus recibos cuando está activado.
func (uc *UseCase) ConvertTo(ctx context.Context, id string, target entity.Kind, userID string) (*Detail, error) {
	var out *Detail
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		src, lines, err := loadWithLines(ctx, r, id, false)
		if err != nil {
			return err
		}
		if src.State == entity.StateCancelled {
			return domain.Invalid("conversion.cancelled", "el documento %s está anulado", src.Number)
		}
		if !src.Spec().CanConvertTo(target) {
			return domain.Invalid("conversion.not_permitted", "no se puede convertir %s en %s", src.Kind, target)
		}

		draft := lifecycle.CloneAsDraft(target, []lifecycle.Source{{Doc: src, Lines: lines}}, userID, uc.now())
		doc := draft.Doc
		iss, err := uc.seq.Issue(ctx, r, target, doc.Series)
		if err != nil {
			return err
		}
		doc.Number, doc.NumberingYear = iss.Number, iss.Year
		if err := r.Documents.Create(ctx, doc); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		for _, l := range draft.Lines {
			if err := r.Documents.CreateLine(ctx, l); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		out = &Detail{Document: doc, Lines: draft.Lines}

		if uc.cfg.AutoReceipts && target.IsInvoice() && doc.PaymentTermID != "" {
			recs, err := uc.receipts.GenerateInTx(ctx, r, doc.ID, userID)
			if err != nil {
				return err
			}
			out.Receipts = recs
		}
		uc.log.Info().Str("from", src.Number).Str("to", doc.Number).Msg("documento convertido")
		return nil
	})
	return out, err
}

// Delete borra lógicamente el documento. Se rechaza si tiene derivados; el stock aplicado se revierte.
func (uc *UseCase) Delete(ctx context.Context, id, userID string) error {
	return uc.tx.Run(ctx, func(r ports.Repos) error {
		doc, err := r.Documents.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}
		if doc == nil {
			return domain.NotFound("documento", id)
		}
		derived, err := r.Documents.ListDerived(ctx, id, "")
		if err != nil {
			return fmt.Errorf("list derived: %w", err)
		}
		if len(derived) > 0 {
			return domain.Invalid("document.has_derived", "el documento %s tiene documentos derivados (%s)", doc.Number, derived[0].Number)
		}
		if doc.StockApplied {
			if _, err := uc.stock.ReverseInTx(ctx, r, id, userID); err != nil {
				return err
			}
		}
		if err := r.Documents.SoftDelete(ctx, id); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		uc.log.Info().Str("number", doc.Number).Msg("documento eliminado")
		return nil
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Impuestos y representaciones
// ──────────────────────────────────────────────────────────────────────────────

// TaxBreakdown desglose de impuestos por tipo de IVA.
func (uc *UseCase) TaxBreakdown(ctx context.Context, id string) (tax.Result, error) {
	v, err := uc.view(ctx, id)
	if err != nil {
		return tax.Result{}, err
	}
	return v.Taxes, nil
}

// RenderPDF genera el PDF del documento.
func (uc *UseCase) RenderPDF(ctx context.Context, id string) ([]byte, string, error) {
	if uc.pdf == nil {
		return nil, "", fmt.Errorf("pdf generator not configured")
	}
	v, err := uc.view(ctx, id)
	if err != nil {
		return nil, "", err
	}
	b, err := uc.pdf.GenerateDocumentPDF(ctx, v)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: %w", err)
	}
	return b, fileName(v.Document, "pdf"), nil
}

// ExportFacturae exporta una factura a XML Facturae.
func (uc *UseCase) ExportFacturae(ctx context.Context, id string) ([]byte, string, error) {
	if uc.xml == nil {
		return nil, "", fmt.Errorf("facturae exporter not configured")
	}
	v, err := uc.view(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !v.Document.Kind.IsInvoice() {
		return nil, "", domain.Invalid("facturae.not_invoice", "solo las facturas se exportan a Facturae (%s)", v.Document.Number)
	}
	b, err := uc.xml.ExportInvoice(ctx, v)
	if err != nil {
		return nil, "", fmt.Errorf("facturae: %w", err)
	}
	return b, fileName(v.Document, "xml"), nil
}

func (uc *UseCase) view(ctx context.Context, id string) (View, error) {
	var v View
	err := uc.tx.Run(ctx, func(r ports.Repos) error {
		doc, lines, err := loadWithLines(ctx, r, id, false)
		if err != nil {
			return err
		}
		v = View{Document: doc, Lines: lines}
		if doc.PartnerID != "" {
			if v.Partner, err = r.Partners.GetByID(ctx, doc.PartnerID); err != nil {
				return fmt.Errorf("get partner: %w", err)
			}
		}
		if doc.PaymentTermID != "" && doc.Spec().HasLines {
			term, err := r.Terms.GetByID(ctx, doc.PaymentTermID)
			if err != nil {
				return fmt.Errorf("get payment term: %w", err)
			}
			if term != nil {
				v.Dues = payment.Schedule(term.Installments, doc.Date, doc.Total)
			}
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}
	v.Taxes = uc.taxes.Compute(lifecycle.TaxLines(v.Lines), v.Document.SurchargeApplies)
	return v, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

func (uc *UseCase) applyPartnerDefaults(ctx context.Context, r ports.Repos, doc *entity.Document) error {
	if doc.PartnerID == "" {
		return nil
	}
	p, err := r.Partners.GetByID(ctx, doc.PartnerID)
	if err != nil {
		return fmt.Errorf("get partner: %w", err)
	}
	if p == nil {
		return domain.NotFound("tercero", doc.PartnerID)
	}
	doc.SurchargeApplies = p.SurchargeRegime
	doc.WithholdingRate = p.WithholdingRate
	doc.PaymentTermID = p.PaymentTermID
	return nil
}

func (uc *UseCase) today() time.Time {
	y, m, d := uc.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func loadWithLines(ctx context.Context, r ports.Repos, id string, lock bool) (*entity.Document, []*entity.DocumentLine, error) {
	var (
		doc *entity.Document
		err error
	)
	if lock {
		doc, err = r.Documents.GetForUpdate(ctx, id)
	} else {
		doc, err = r.Documents.GetByID(ctx, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get document: %w", err)
	}
	if doc == nil {
		return nil, nil, domain.NotFound("documento", id)
	}
	lines, err := r.Documents.ListLines(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list lines: %w", err)
	}
	return doc, lines, nil
}

func fileName(doc *entity.Document, ext string) string {
	return fmt.Sprintf("%s_%s.%s", doc.Kind, strings.ReplaceAll(doc.Number, "/", "-"), ext)
}
