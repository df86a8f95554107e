// Package pdf implementa la representación gráfica de los documentos comerciales.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + NIF        │  Tipo + Número + Fecha        │
//	│  TERCERO: Nombre + NIF                                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Ref | Descripción | Cant | Precio | Dto | IVA | Base │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESGLOSE POR TIPO DE IVA          │  TOTALES               │
//	│  VENCIMIENTOS                                                │
//	│  FOOTER: QR de verificación + observaciones                  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-documentos/internal/application/documents"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var kindTitles = map[entity.Kind]string{
	entity.KindQuote:                "PRESUPUESTO",
	entity.KindOrder:                "PEDIDO",
	entity.KindDeliveryNote:         "ALBARÁN",
	entity.KindInvoice:              "FACTURA",
	entity.KindReceipt:              "RECIBO",
	entity.KindTicket:               "TICKET",
	entity.KindPurchaseOrder:        "PEDIDO A PROVEEDOR",
	entity.KindPurchaseDeliveryNote: "ALBARÁN DE PROVEEDOR",
	entity.KindPurchaseInvoice:      "FACTURA DE PROVEEDOR",
	entity.KindPurchaseReceipt:      "RECIBO DE PROVEEDOR",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// Issuer datos del emisor impresos en la cabecera.
type Issuer struct {
	Name    string
	TaxID   string
	Address string
}

var _ documents.PDFGenerator = (*MarotoPDFGenerator)(nil)

// MarotoPDFGenerator implementa documents.PDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	issuer Issuer
}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator(issuer Issuer) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{issuer: issuer}
}

// GenerateDocumentPDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateDocumentPDF(_ context.Context, v documents.View) ([]byte, error) {
	if v.Document == nil {
		return nil, fmt.Errorf("pdf: documento vacío")
	}
	doc := v.Document
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(Title(doc.Kind)+" "+doc.Number, true).
		WithAuthor(g.issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, g.issuer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partnerRow(v.Partner))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	if doc.Spec().HasLines {
		m.AddRows(tableHeaderRow())
		m.AddRows(tableLineRows(v.Lines)...)
		m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
		m.AddRows(breakdownRows(v)...)
	} else {
		m.AddRows(receiptRow(doc))
	}

	if len(v.Dues) > 0 {
		m.AddRows(duesRows(v)...)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(doc, g.issuer))

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// Title título impreso para el tipo de documento.
func Title(k entity.Kind) string {
	if t, ok := kindTitles[k]; ok {
		return t
	}
	return strings.ToUpper(strings.ReplaceAll(string(k), "_", " "))
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(doc *entity.Document, issuer Issuer) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(issuer.Name, "-"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("NIF: "+nonEmpty(issuer.TaxID, "-")+"   "+issuer.Address, props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(Title(doc.Kind), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(doc.Number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 6,
			}),
			text.New("Fecha: "+doc.Date.Format("02/01/2006")+"   Estado: "+string(doc.State), props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

func partnerRow(p *entity.Tercero) core.Row {
	name, taxID := "-", "-"
	if p != nil {
		name, taxID = p.Name, nonEmpty(p.TaxID, "-")
	}
	return row.New(12).Add(
		col.New(12).Add(
			text.New("TERCERO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(name+"   |   NIF: "+taxID, props.Text{Size: 9, Top: 6}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Ref.", 2, align.Left),
		h("Descripción", 4, align.Left),
		h("Cant.", 1, align.Right),
		h("Precio", 1, align.Right),
		h("Dto%", 1, align.Right),
		h("IVA%", 1, align.Right),
		h("Base", 2, align.Right),
	)
}

func tableLineRows(lines []*entity.DocumentLine) []core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	out := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		out = append(out, row.New(7).Add(
			cell(l.Reference, 2, align.Left),
			cell(l.Description, 4, align.Left),
			cell(l.Quantity.String(), 1, align.Right),
			cell(FormatMoney(l.UnitPrice), 1, align.Right),
			cell(l.DiscountPct.String(), 1, align.Right),
			cell(l.VATRate.String(), 1, align.Right),
			cell(FormatMoney(l.Subtotal), 2, align.Right),
		))
	}
	return out
}

// breakdownRows desglose por tipo de IVA (izquierda) y totales del documento (derecha).
func breakdownRows(v documents.View) []core.Row {
	doc := v.Document
	small := props.Text{Size: 8, Top: 1}
	right := props.Text{Size: 8, Top: 1, Align: align.Right, Right: 1}
	bold := props.Text{Size: 10, Top: 1, Align: align.Right, Right: 1, Style: fontstyle.Bold, Color: colorPrimary}

	rows := []core.Row{row.New(6).Add(
		col.New(6).Add(text.New("DESGLOSE DE IMPUESTOS", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1})),
		col.New(6),
	)}
	for _, rb := range v.Taxes.Rates {
		label := fmt.Sprintf("IVA %s%%  base %s  cuota %s", rb.VATRate, FormatMoney(rb.Base), FormatMoney(rb.VATAmount))
		if rb.SurchargeAmount.IsPositive() {
			label += fmt.Sprintf("  R.E. %s%% %s", rb.SurchargeRate, FormatMoney(rb.SurchargeAmount))
		}
		rows = append(rows, row.New(5).Add(col.New(8).Add(text.New(label, small)), col.New(4)))
	}

	totals := [][2]string{
		{"Importe bruto:", FormatMoney(doc.Subtotal)},
		{"Descuento:", FormatMoney(doc.Discount)},
		{"Base imponible:", FormatMoney(doc.TaxableBase)},
		{"IVA:", FormatMoney(doc.VATAmount)},
	}
	if doc.SurchargeAmount.IsPositive() {
		totals = append(totals, [2]string{"Recargo de equivalencia:", FormatMoney(doc.SurchargeAmount)})
	}
	if doc.WithholdingAmount.IsPositive() {
		totals = append(totals, [2]string{"Retención IRPF " + doc.WithholdingRate.String() + "%:", "-" + FormatMoney(doc.WithholdingAmount)})
	}
	for _, t := range totals {
		rows = append(rows, row.New(5).Add(col.New(6), col.New(3).Add(text.New(t[0], right)), col.New(3).Add(text.New(t[1], right))))
	}
	rows = append(rows, row.New(8).Add(
		col.New(6),
		col.New(3).Add(text.New("TOTAL:", bold)),
		col.New(3).Add(text.New(FormatMoney(doc.Total), bold)),
	))
	return rows
}

func receiptRow(doc *entity.Document) core.Row {
	due := "-"
	if doc.DueDate != nil {
		due = doc.DueDate.Format("02/01/2006")
	}
	return row.New(14).Add(
		col.New(6).Add(text.New("Vencimiento: "+due, props.Text{Size: 10, Top: 3})),
		col.New(6).Add(text.New("Importe: "+FormatMoney(doc.Total), props.Text{
			Size: 12, Top: 3, Style: fontstyle.Bold, Align: align.Right, Color: colorPrimary,
		})),
	)
}

func duesRows(v documents.View) []core.Row {
	rows := []core.Row{row.New(6).Add(col.New(12).Add(
		text.New("VENCIMIENTOS", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
	))}
	for _, d := range v.Dues {
		rows = append(rows, row.New(5).Add(
			col.New(4).Add(text.New(d.DueDate.Format("02/01/2006"), props.Text{Size: 8, Top: 1})),
			col.New(4).Add(text.New(d.Percentage.String()+"%", props.Text{Size: 8, Top: 1, Align: align.Right})),
			col.New(4).Add(text.New(FormatMoney(d.Amount), props.Text{Size: 8, Top: 1, Align: align.Right, Right: 1})),
		))
	}
	return rows
}

func footerRow(doc *entity.Document, issuer Issuer) core.Row {
	obs := doc.Observations
	if obs == "" {
		obs = "Conserve este documento como justificante."
	}
	return row.New(36).Add(
		col.New(3).Add(code.NewQr(VerificationData(doc, issuer), props.Rect{Percent: 90, Center: true})),
		col.New(9).Add(
			text.New("Observaciones", props.Text{Style: fontstyle.Bold, Size: 8, Top: 2, Left: 3, Color: colorPrimary}),
			text.New(obs, props.Text{Size: 8, Top: 8, Left: 3, Color: colorGray}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// VerificationData contenido del QR: NIF del emisor, número, fecha y total.
func VerificationData(doc *entity.Document, issuer Issuer) string {
	return strings.Join([]string{
		issuer.TaxID,
		doc.Number,
		doc.Date.Format("02-01-2006"),
		doc.Total.StringFixed(2),
	}, "|")
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// FormatMoney formato español con dos decimales: 1234.5 -> "1.234,50 €".
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + string(buf) + "," + frac + " €"
}
