package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/erp-documentos/internal/application/documents"
	"github.com/jhoicas/erp-documentos/internal/application/grouping"
	"github.com/jhoicas/erp-documentos/internal/application/numbering"
	"github.com/jhoicas/erp-documentos/internal/application/receipts"
	"github.com/jhoicas/erp-documentos/internal/application/stock"
	"github.com/jhoicas/erp-documentos/internal/application/usecase"
	"github.com/jhoicas/erp-documentos/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Documents    *documents.UseCase
	Stock        *stock.SyncService
	Grouping     *grouping.Service
	Receipts     *receipts.Generator
	Sequencer    *numbering.Sequencer
	PaymentTerms *usecase.PaymentTermUseCase
	JWTSecret    string
	ServiceName  string
	Log          zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	adminOnly := RequireRole(jwt.RoleAdmin)

	// Documents
	docs := protected.Group("/documents")
	docHandler := NewDocumentHandler(deps.Documents, deps.Stock, deps.Log)
	docs.Post("/", docHandler.Create)
	docs.Post("/import", docHandler.Import)
	docs.Get("/:id", docHandler.GetByID)
	docs.Get("/:id/derived", docHandler.Derived)
	docs.Delete("/:id", docHandler.Delete)
	docs.Post("/:id/lines", docHandler.AddLine)
	docs.Put("/:id/lines/:lineID", docHandler.UpdateLine)
	docs.Delete("/:id/lines/:lineID", docHandler.RemoveLine)
	docs.Post("/:id/confirm", docHandler.Confirm)
	docs.Post("/:id/cancel", docHandler.Cancel)
	docs.Post("/:id/complete", docHandler.Complete)
	docs.Post("/:id/partial", docHandler.MarkPartial)
	docs.Post("/:id/collect", docHandler.Collect)
	docs.Post("/:id/pay", docHandler.Pay)
	docs.Post("/:id/convert", docHandler.Convert)
	docs.Post("/:id/stock/apply", docHandler.ApplyStock)
	docs.Post("/:id/stock/reverse", docHandler.ReverseStock)
	docs.Get("/:id/taxes", docHandler.Taxes)
	docs.Get("/:id/pdf", docHandler.PDF)
	docs.Get("/:id/facturae", docHandler.Facturae)

	// Invoices, groupings, numbering
	groupingHandler := NewGroupingHandler(deps.Grouping, deps.Receipts, deps.Sequencer, deps.Log)
	invoices := protected.Group("/invoices")
	invoices.Post("/:id/receipts", groupingHandler.GenerateReceipts)
	invoices.Post("/:id/receipts/regenerate", adminOnly, groupingHandler.RegenerateReceipts)

	groupings := protected.Group("/groupings")
	groupings.Post("/", groupingHandler.Group)
	groupings.Get("/:id/can-ungroup", groupingHandler.CanUngroup)
	groupings.Delete("/:id", adminOnly, groupingHandler.Ungroup)

	protected.Post("/numbering/next", groupingHandler.NextNumber)

	// Payment terms
	terms := protected.Group("/payment-terms")
	termHandler := NewPaymentTermHandler(deps.PaymentTerms, deps.Log)
	terms.Post("/", termHandler.Create)
	terms.Get("/", termHandler.List)
	terms.Post("/:id/schedule", termHandler.Schedule)
}
