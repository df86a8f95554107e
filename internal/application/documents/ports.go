package documents

import (
	"context"

	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/payment"
	"github.com/jhoicas/erp-documentos/internal/domain/tax"
)

// View datos de solo lectura que consumen los generadores de PDF y XML.
type View struct {
	Document *entity.Document
	Lines    []*entity.DocumentLine
	Partner  *entity.Tercero // nil si el documento no tiene tercero o ya no existe
	Taxes    tax.Result
	Dues     []payment.Due // vencimientos si el documento tiene forma de pago
}

// PDFGenerator genera la representación gráfica de un documento.
type PDFGenerator interface {
	GenerateDocumentPDF(ctx context.Context, v View) ([]byte, error)
}

// InvoiceExporter exporta una factura a XML Facturae.
type InvoiceExporter interface {
	ExportInvoice(ctx context.Context, v View) ([]byte, error)
}

// Detail documento con sus líneas.
type Detail struct {
	Document *entity.Document
	Lines    []*entity.DocumentLine
	Receipts []*entity.Document // recibos generados en la misma operación
}
