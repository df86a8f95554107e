package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// DateLayout formato de fechas en requests y respuestas.
const DateLayout = "2006-01-02"

// CreateDocumentRequest body para POST /api/documents.
// Los campos opcionales vacíos toman el valor por defecto del tercero.
type CreateDocumentRequest struct {
	Kind            string           `json:"kind"`
	Series          string           `json:"series,omitempty"`
	PartnerID       string           `json:"partner_id"`
	Date            string           `json:"date,omitempty"` // YYYY-MM-DD; vacío = hoy
	PaymentTermID   *string          `json:"payment_term_id,omitempty"`
	WithholdingRate *decimal.Decimal `json:"withholding_rate,omitempty"`
	Observations    string           `json:"observations,omitempty"`
	Lines           []LineRequest    `json:"lines,omitempty"`
}

// LineRequest alta o modificación de línea. En modificación solo se aplican los campos presentes.
// Los importes derivados nunca se aceptan del cliente.
type LineRequest struct {
	ProductID   *string          `json:"product_id,omitempty"`
	Reference   *string          `json:"reference,omitempty"`
	Description *string          `json:"description,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountPct *decimal.Decimal `json:"discount_pct,omitempty"`
	VATRate     *decimal.Decimal `json:"vat_rate,omitempty"`
}

// ConvertRequest body para POST /api/documents/:id/convert.
type ConvertRequest struct {
	Target string `json:"target"`
}

// ExtractedLine línea extraída por el servicio de OCR/IA.
type ExtractedLine struct {
	Description      string          `json:"description"`
	Reference        string          `json:"reference,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Discount         decimal.Decimal `json:"discount"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	MatchedProductID string          `json:"matched_product_id,omitempty"`
}

// ImportRequest body para POST /api/documents/import.
type ImportRequest struct {
	Kind             string          `json:"kind"`
	Series           string          `json:"series,omitempty"`
	MatchedPartnerID string          `json:"matched_partner_id"`
	Date             string          `json:"date,omitempty"`
	Lines            []ExtractedLine `json:"lines"`
}

// DocumentResponse documento con sus líneas.
type DocumentResponse struct {
	ID                string             `json:"id"`
	Kind              string             `json:"kind"`
	Number            string             `json:"number"`
	Series            string             `json:"series"`
	Date              string             `json:"date"`
	DueDate           string             `json:"due_date,omitempty"`
	PartnerID         string             `json:"partner_id"`
	State             string             `json:"state"`
	Subtotal          decimal.Decimal    `json:"subtotal"`
	Discount          decimal.Decimal    `json:"discount"`
	TaxableBase       decimal.Decimal    `json:"taxable_base"`
	VATAmount         decimal.Decimal    `json:"vat_amount"`
	WithholdingRate   decimal.Decimal    `json:"withholding_rate"`
	WithholdingAmount decimal.Decimal    `json:"withholding_amount"`
	SurchargeAmount   decimal.Decimal    `json:"surcharge_amount"`
	Total             decimal.Decimal    `json:"total"`
	PaymentTermID     string             `json:"payment_term_id,omitempty"`
	OriginDocumentID  string             `json:"origin_document_id,omitempty"`
	StockApplied      bool               `json:"stock_applied"`
	Observations      string             `json:"observations,omitempty"`
	Lines             []LineResponse     `json:"lines,omitempty"`
	Receipts          []DocumentResponse `json:"receipts,omitempty"`
}

// LineResponse línea en respuestas.
type LineResponse struct {
	ID              string          `json:"id"`
	Position        int             `json:"position"`
	ProductID       string          `json:"product_id,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPct     decimal.Decimal `json:"discount_pct"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	SurchargeRate   decimal.Decimal `json:"surcharge_rate"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	VATAmount       decimal.Decimal `json:"vat_amount"`
	SurchargeAmount decimal.Decimal `json:"surcharge_amount"`
	Total           decimal.Decimal `json:"total"`
}

// ToDocumentResponse mapea entidad a respuesta.
func ToDocumentResponse(doc *entity.Document, lines []*entity.DocumentLine) DocumentResponse {
	out := DocumentResponse{
		ID:                doc.ID,
		Kind:              string(doc.Kind),
		Number:            doc.Number,
		Series:            doc.Series,
		Date:              formatDate(doc.Date),
		PartnerID:         doc.PartnerID,
		State:             string(doc.State),
		Subtotal:          doc.Subtotal,
		Discount:          doc.Discount,
		TaxableBase:       doc.TaxableBase,
		VATAmount:         doc.VATAmount,
		WithholdingRate:   doc.WithholdingRate,
		WithholdingAmount: doc.WithholdingAmount,
		SurchargeAmount:   doc.SurchargeAmount,
		Total:             doc.Total,
		PaymentTermID:     doc.PaymentTermID,
		OriginDocumentID:  doc.OriginDocumentID,
		StockApplied:      doc.StockApplied,
		Observations:      doc.Observations,
	}
	if doc.DueDate != nil {
		out.DueDate = formatDate(*doc.DueDate)
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, LineResponse{
			ID:              l.ID,
			Position:        l.Position,
			ProductID:       l.ProductID,
			Reference:       l.Reference,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPct:     l.DiscountPct,
			VATRate:         l.VATRate,
			SurchargeRate:   l.SurchargeRate,
			Subtotal:        l.Subtotal,
			VATAmount:       l.VATAmount,
			SurchargeAmount: l.SurchargeAmount,
			Total:           l.Total,
		})
	}
	return out
}

// ToDocumentList mapea una lista de documentos sin líneas.
func ToDocumentList(docs []*entity.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToDocumentResponse(d, nil))
	}
	return out
}

// ParseDate interpreta YYYY-MM-DD; vacío devuelve def.
func ParseDate(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	return time.Parse(DateLayout, s)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
