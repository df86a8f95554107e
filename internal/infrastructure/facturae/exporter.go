// Package facturae exporta facturas al formato XML Facturae 3.2.2 (sin firma).
package facturae

import (
	"bytes"
	"context"
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-documentos/internal/application/documents"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

const (
	Namespace     = "http://www.facturae.gob.es/formato/Versiones/Facturaev3_2_2.xml"
	SchemaVersion = "3.2.2"
	currency      = "EUR"

	taxTypeVAT         = "01" // IVA
	taxTypeWithholding = "04" // IRPF
	paymentMeansDebit  = "02" // recibo domiciliado
)

// Company datos de la empresa que exporta. En ventas es el vendedor; en compras, el comprador.
type Company struct {
	Name  string
	TaxID string
}

var _ documents.InvoiceExporter = (*Exporter)(nil)

// Exporter implementa documents.InvoiceExporter con etree.
type Exporter struct {
	company Company
}

// NewExporter construye el exportador.
func NewExporter(company Company) *Exporter {
	return &Exporter{company: company}
}

// ExportInvoice serializa la factura con su desglose, líneas y vencimientos.
func (e *Exporter) ExportInvoice(_ context.Context, v documents.View) ([]byte, error) {
	doc := v.Document
	if doc == nil || !doc.Kind.IsInvoice() {
		return nil, fmt.Errorf("facturae: solo se exportan facturas")
	}

	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := x.CreateElement("fe:Facturae")
	root.CreateAttr("xmlns:fe", Namespace)

	e.fileHeader(root, doc)
	e.parties(root, doc, v.Partner)

	inv := root.CreateElement("Invoices").CreateElement("Invoice")
	header := inv.CreateElement("InvoiceHeader")
	header.CreateElement("InvoiceNumber").SetText(doc.Number)
	header.CreateElement("InvoiceSeriesCode").SetText(doc.Series)
	header.CreateElement("InvoiceDocumentType").SetText("FC")
	header.CreateElement("InvoiceClass").SetText("OO")

	issue := inv.CreateElement("InvoiceIssueData")
	issue.CreateElement("IssueDate").SetText(doc.Date.Format("2006-01-02"))
	issue.CreateElement("InvoiceCurrencyCode").SetText(currency)
	issue.CreateElement("TaxCurrencyCode").SetText(currency)
	issue.CreateElement("LanguageName").SetText("es")

	outputs := inv.CreateElement("TaxesOutputs")
	for _, rb := range v.Taxes.Rates {
		t := outputs.CreateElement("Tax")
		t.CreateElement("TaxTypeCode").SetText(taxTypeVAT)
		t.CreateElement("TaxRate").SetText(amount(rb.VATRate))
		t.CreateElement("TaxableBase").CreateElement("TotalAmount").SetText(amount(rb.Base))
		t.CreateElement("TaxAmount").CreateElement("TotalAmount").SetText(amount(rb.VATAmount))
		if rb.SurchargeAmount.IsPositive() {
			t.CreateElement("EquivalenceSurcharge").SetText(amount(rb.SurchargeRate))
			t.CreateElement("EquivalenceSurchargeAmount").CreateElement("TotalAmount").SetText(amount(rb.SurchargeAmount))
		}
	}
	if doc.WithholdingAmount.IsPositive() {
		t := inv.CreateElement("TaxesWithheld").CreateElement("Tax")
		t.CreateElement("TaxTypeCode").SetText(taxTypeWithholding)
		t.CreateElement("TaxRate").SetText(amount(doc.WithholdingRate))
		t.CreateElement("TaxableBase").CreateElement("TotalAmount").SetText(amount(doc.TaxableBase))
		t.CreateElement("TaxAmount").CreateElement("TotalAmount").SetText(amount(doc.WithholdingAmount))
	}

	totals := inv.CreateElement("InvoiceTotals")
	totals.CreateElement("TotalGrossAmount").SetText(amount(doc.Subtotal))
	totals.CreateElement("TotalGeneralDiscounts").SetText(amount(doc.Discount))
	totals.CreateElement("TotalGrossAmountBeforeTaxes").SetText(amount(doc.TaxableBase))
	totals.CreateElement("TotalTaxOutputs").SetText(amount(doc.VATAmount.Add(doc.SurchargeAmount)))
	totals.CreateElement("TotalTaxesWithheld").SetText(amount(doc.WithholdingAmount))
	totals.CreateElement("InvoiceTotal").SetText(amount(doc.Total))
	totals.CreateElement("TotalOutstandingAmount").SetText(amount(doc.Total))
	totals.CreateElement("TotalExecutableAmount").SetText(amount(doc.Total))

	items := inv.CreateElement("Items")
	for _, l := range v.Lines {
		item := items.CreateElement("InvoiceLine")
		if l.Reference != "" {
			item.CreateElement("ArticleCode").SetText(l.Reference)
		}
		item.CreateElement("ItemDescription").SetText(l.Description)
		item.CreateElement("Quantity").SetText(l.Quantity.String())
		item.CreateElement("UnitOfMeasure").SetText("01")
		item.CreateElement("UnitPriceWithoutTax").SetText(l.UnitPrice.StringFixed(6))
		item.CreateElement("TotalCost").SetText(amount(l.GrossAmount))
		if l.DiscountAmount.IsPositive() {
			d := item.CreateElement("DiscountsAndRebates").CreateElement("Discount")
			d.CreateElement("DiscountReason").SetText("Descuento de línea")
			d.CreateElement("DiscountRate").SetText(amount(l.DiscountPct))
			d.CreateElement("DiscountAmount").SetText(amount(l.DiscountAmount))
		}
		item.CreateElement("GrossAmount").SetText(amount(l.Subtotal))
		t := item.CreateElement("TaxesOutputs").CreateElement("Tax")
		t.CreateElement("TaxTypeCode").SetText(taxTypeVAT)
		t.CreateElement("TaxRate").SetText(amount(l.VATRate))
		t.CreateElement("TaxableBase").CreateElement("TotalAmount").SetText(amount(l.Subtotal))
		t.CreateElement("TaxAmount").CreateElement("TotalAmount").SetText(amount(l.VATAmount))
	}

	if len(v.Dues) > 0 {
		pd := inv.CreateElement("PaymentDetails")
		for _, d := range v.Dues {
			in := pd.CreateElement("Installment")
			in.CreateElement("InstallmentDueDate").SetText(d.DueDate.Format("2006-01-02"))
			in.CreateElement("InstallmentAmount").SetText(amount(d.Amount))
			in.CreateElement("PaymentMeans").SetText(paymentMeansDebit)
		}
	}
	if doc.Observations != "" {
		inv.CreateElement("AdditionalData").CreateElement("InvoiceAdditionalInformation").SetText(doc.Observations)
	}

	x.Indent(2)
	var out bytes.Buffer
	if _, err := x.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("facturae: serializar: %w", err)
	}
	return out.Bytes(), nil
}

func (e *Exporter) fileHeader(root *etree.Element, doc *entity.Document) {
	fh := root.CreateElement("FileHeader")
	fh.CreateElement("SchemaVersion").SetText(SchemaVersion)
	fh.CreateElement("Modality").SetText("I")
	fh.CreateElement("InvoiceIssuerType").SetText("EM")
	batch := fh.CreateElement("Batch")
	batch.CreateElement("BatchIdentifier").SetText(e.company.TaxID + doc.Number)
	batch.CreateElement("InvoicesCount").SetText("1")
	batch.CreateElement("TotalInvoicesAmount").CreateElement("TotalAmount").SetText(amount(doc.Total))
	batch.CreateElement("TotalOutstandingAmount").CreateElement("TotalAmount").SetText(amount(doc.Total))
	batch.CreateElement("TotalExecutableAmount").CreateElement("TotalAmount").SetText(amount(doc.Total))
	batch.CreateElement("InvoiceCurrencyCode").SetText(currency)
}

func (e *Exporter) parties(root *etree.Element, doc *entity.Document, partner *entity.Tercero) {
	own := Company{Name: e.company.Name, TaxID: e.company.TaxID}
	other := Company{}
	if partner != nil {
		other = Company{Name: partner.Name, TaxID: partner.TaxID}
	}
	seller, buyer := own, other
	if doc.Spec().Side == entity.SidePurchase {
		seller, buyer = other, own
	}
	parties := root.CreateElement("Parties")
	party(parties.CreateElement("SellerParty"), seller)
	party(parties.CreateElement("BuyerParty"), buyer)
}

func party(el *etree.Element, c Company) {
	ti := el.CreateElement("TaxIdentification")
	ti.CreateElement("PersonTypeCode").SetText("J")
	ti.CreateElement("ResidenceTypeCode").SetText("R")
	ti.CreateElement("TaxIdentificationNumber").SetText(c.TaxID)
	el.CreateElement("LegalEntity").CreateElement("CorporateName").SetText(c.Name)
}

func amount(d decimal.Decimal) string { return d.StringFixed(2) }
