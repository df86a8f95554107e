// Package bootstrap arma el grafo de servicios a partir de la configuración.
// Lo comparten el servidor HTTP y el CLI.
package bootstrap

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-documentos/internal/application/documents"
	"github.com/jhoicas/erp-documentos/internal/application/grouping"
	"github.com/jhoicas/erp-documentos/internal/application/numbering"
	"github.com/jhoicas/erp-documentos/internal/application/ports"
	"github.com/jhoicas/erp-documentos/internal/application/receipts"
	"github.com/jhoicas/erp-documentos/internal/application/stock"
	"github.com/jhoicas/erp-documentos/internal/application/usecase"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
	"github.com/jhoicas/erp-documentos/internal/domain/tax"
	"github.com/jhoicas/erp-documentos/internal/infrastructure/facturae"
	"github.com/jhoicas/erp-documentos/internal/infrastructure/pdf"
	"github.com/jhoicas/erp-documentos/pkg/config"
	"github.com/jhoicas/erp-documentos/pkg/logger"
)

// Services servicios de aplicación listos para usar.
type Services struct {
	Sequencer    *numbering.Sequencer
	Stock        *stock.SyncService
	Receipts     *receipts.Generator
	Grouping     *grouping.Service
	Documents    *documents.UseCase
	PaymentTerms *usecase.PaymentTermUseCase
}

// NewServices construye los servicios sobre el TxRunner indicado (postgres o memoria).
func NewServices(cfg *config.Config, tx ports.TxRunner, log *logger.Logger) (*Services, error) {
	surcharges, err := tax.ParseSurcharges(cfg.Tax.Surcharges)
	if err != nil {
		return nil, fmt.Errorf("TAX_SURCHARGES: %w", err)
	}
	vat, err := decimal.NewFromString(cfg.Tax.DefaultVATRate)
	if err != nil {
		return nil, fmt.Errorf("TAX_DEFAULT_VAT_RATE: %w", err)
	}

	seq := numbering.NewSequencer(tx, NumberingConfig(cfg.Numbering), log.WithComponent("numbering"))
	stockSvc := stock.NewSyncService(tx, log.WithComponent("stock"))
	gen := receipts.NewGenerator(tx, seq, log.WithComponent("receipts"))

	company := cfg.Company
	docs := documents.NewUseCase(tx, seq, stockSvc, gen, tax.NewEngine(surcharges),
		pdf.NewMarotoPDFGenerator(pdf.Issuer{Name: company.Name, TaxID: company.TaxID, Address: company.Address}),
		facturae.NewExporter(facturae.Company{Name: company.Name, TaxID: company.TaxID}),
		documents.Config{AutoReceipts: cfg.Receipts.AutoGenerate, DefaultVATRate: vat},
		log.WithComponent("documents"))

	return &Services{
		Sequencer:    seq,
		Stock:        stockSvc,
		Receipts:     gen,
		Grouping:     grouping.NewService(tx, seq, stockSvc, gen, grouping.Config{AutoReceipts: cfg.Receipts.AutoGenerate}, log.WithComponent("grouping")),
		Documents:    docs,
		PaymentTerms: usecase.NewPaymentTermUseCase(tx, log.WithComponent("payment_terms")),
	}, nil
}

// NumberingConfig traduce la sección de configuración a la del secuenciador.
func NumberingConfig(c config.NumberingConfig) numbering.Config {
	out := numbering.Config{
		DefaultSeries: c.DefaultSeries,
		Format:        c.Format,
		Padding:       c.Padding,
		MaxAttempts:   c.MaxAttempts,
	}
	if len(c.Formats) > 0 {
		out.Formats = make(map[entity.Kind]string, len(c.Formats))
		for k, f := range c.Formats {
			out.Formats[entity.Kind(k)] = f
		}
	}
	return out
}
