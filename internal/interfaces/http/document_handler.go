package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/erp-documentos/internal/application/documents"
	"github.com/jhoicas/erp-documentos/internal/application/dto"
	"github.com/jhoicas/erp-documentos/internal/application/stock"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// DocumentHandler maneja las peticiones HTTP de documentos comerciales (protegido).
type DocumentHandler struct {
	uc    *documents.UseCase
	stock *stock.SyncService
	log   zerolog.Logger
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(uc *documents.UseCase, stockSvc *stock.SyncService, log zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{uc: uc, stock: stockSvc, log: log}
}

func detailResponse(d *documents.Detail) dto.DocumentResponse {
	out := dto.ToDocumentResponse(d.Document, d.Lines)
	if len(d.Receipts) > 0 {
		out.Receipts = dto.ToDocumentList(d.Receipts)
	}
	return out
}

// Create godoc
// @Summary      Crear documento
// @Description  Numera el documento y calcula los totales a partir de las líneas.
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateDocumentRequest  true  "Documento"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/documents [post]
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if in.Kind == "" || in.PartnerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "kind y partner_id son requeridos"})
	}
	out, err := h.uc.Create(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(detailResponse(out))
}

// Import godoc
// @Summary      Importar líneas extraídas por OCR/IA
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ImportRequest  true  "Extracción"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/documents/import [post]
func (h *DocumentHandler) Import(c *fiber.Ctx) error {
	var in dto.ImportRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.ImportExtracted(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(detailResponse(out))
}

// GetByID godoc
// @Summary      Obtener documento con sus líneas
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(detailResponse(out))
}

// Derived godoc
// @Summary      Documentos derivados (conversiones, agrupaciones y recibos)
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {array}  dto.DocumentResponse
// @Router       /api/documents/{id}/derived [get]
func (h *DocumentHandler) Derived(c *fiber.Ctx) error {
	list, err := h.uc.Derived(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToDocumentList(list))
}

// Delete godoc
// @Summary      Borrado lógico
// @Description  Rechazado si existen documentos derivados. Revierte el stock aplicado.
// @Tags         documents
// @Security     Bearer
// @Param        id   path  string  true  "ID del documento"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [delete]
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), c.Params("id"), GetUserID(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Líneas ───────────────────────────────────────────────────────────────────

// AddLine godoc
// @Summary      Añadir línea (solo borradores)
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "ID del documento"
// @Param        body  body      dto.LineRequest  true  "Línea"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/lines [post]
func (h *DocumentHandler) AddLine(c *fiber.Ctx) error {
	var in dto.LineRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.AddLine(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(detailResponse(out))
}

// UpdateLine godoc
// @Summary      Modificar línea (solo borradores)
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path      string           true  "ID del documento"
// @Param        lineID  path      string           true  "ID de la línea"
// @Param        body    body      dto.LineRequest  true  "Campos a modificar"
// @Success      200     {object}  dto.DocumentResponse
// @Router       /api/documents/{id}/lines/{lineID} [put]
func (h *DocumentHandler) UpdateLine(c *fiber.Ctx) error {
	var in dto.LineRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.UpdateLine(c.UserContext(), c.Params("id"), c.Params("lineID"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(detailResponse(out))
}

// RemoveLine godoc
// @Summary      Eliminar línea (solo borradores)
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id      path      string  true  "ID del documento"
// @Param        lineID  path      string  true  "ID de la línea"
// @Success      200     {object}  dto.DocumentResponse
// @Router       /api/documents/{id}/lines/{lineID} [delete]
func (h *DocumentHandler) RemoveLine(c *fiber.Ctx) error {
	out, err := h.uc.RemoveLine(c.UserContext(), c.Params("id"), c.Params("lineID"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(detailResponse(out))
}

// ── Transiciones ─────────────────────────────────────────────────────────────

// Confirm godoc
// @Summary      Confirmar documento
// @Description  Borrador → confirmado. Aplica el stock en la misma transacción.
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/confirm [post]
func (h *DocumentHandler) Confirm(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.Confirm(c.UserContext(), c.Params("id"), GetUserID(c)))
}

// Cancel godoc
// @Summary      Anular documento
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Router       /api/documents/{id}/cancel [post]
func (h *DocumentHandler) Cancel(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.Cancel(c.UserContext(), c.Params("id"), GetUserID(c)))
}

// Complete marca un pedido como servido.
// @Router /api/documents/{id}/complete [post]
func (h *DocumentHandler) Complete(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.Complete(c.UserContext(), c.Params("id")))
}

// MarkPartial marca un pedido como servido parcialmente.
// @Router /api/documents/{id}/partial [post]
func (h *DocumentHandler) MarkPartial(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.MarkPartial(c.UserContext(), c.Params("id")))
}

// Collect cobra un recibo de venta.
// @Router /api/documents/{id}/collect [post]
func (h *DocumentHandler) Collect(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.Collect(c.UserContext(), c.Params("id")))
}

// Pay paga un recibo de compra.
// @Router /api/documents/{id}/pay [post]
func (h *DocumentHandler) Pay(c *fiber.Ctx) error {
	return h.respond(c)(h.uc.Pay(c.UserContext(), c.Params("id")))
}

func (h *DocumentHandler) respond(c *fiber.Ctx) func(*documents.Detail, error) error {
	return func(out *documents.Detail, err error) error {
		if err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(detailResponse(out))
	}
}

// Convert godoc
// @Summary      Convertir documento
// @Description  Crea un borrador del tipo destino copiando cabecera y líneas.
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string              true  "ID del documento origen"
// @Param        body  body      dto.ConvertRequest  true  "Tipo destino"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/convert [post]
func (h *DocumentHandler) Convert(c *fiber.Ctx) error {
	var in dto.ConvertRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if in.Target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "target es requerido"})
	}
	out, err := h.uc.ConvertTo(c.UserContext(), c.Params("id"), entity.Kind(in.Target), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(detailResponse(out))
}

// ── Stock ────────────────────────────────────────────────────────────────────

// ApplyStock godoc
// @Summary      Aplicar stock del documento
// @Description  Idempotente: un documento con el stock ya aplicado no vuelve a moverlo.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Router       /api/documents/{id}/stock/apply [post]
func (h *DocumentHandler) ApplyStock(c *fiber.Ctx) error {
	doc, err := h.stock.Apply(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc, nil))
}

// ReverseStock godoc
// @Summary      Revertir stock del documento
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Router       /api/documents/{id}/stock/reverse [post]
func (h *DocumentHandler) ReverseStock(c *fiber.Ctx) error {
	doc, err := h.stock.Reverse(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc, nil))
}

// ── Impuestos y representación ───────────────────────────────────────────────

// Taxes godoc
// @Summary      Desglose de impuestos por tipo de IVA
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  tax.Result
// @Router       /api/documents/{id}/taxes [get]
func (h *DocumentHandler) Taxes(c *fiber.Ctx) error {
	out, err := h.uc.TaxBreakdown(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// PDF godoc
// @Summary      Descargar PDF
// @Tags         documents
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {file}  binary
// @Router       /api/documents/{id}/pdf [get]
func (h *DocumentHandler) PDF(c *fiber.Ctx) error {
	raw, name, err := h.uc.RenderPDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return sendAttachment(c, raw, name, "application/pdf")
}

// Facturae godoc
// @Summary      Exportar factura en formato Facturae
// @Tags         documents
// @Security     Bearer
// @Produce      application/xml
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {file}  binary
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/facturae [get]
func (h *DocumentHandler) Facturae(c *fiber.Ctx) error {
	raw, name, err := h.uc.ExportFacturae(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return sendAttachment(c, raw, name, "application/xml")
}

func sendAttachment(c *fiber.Ctx, raw []byte, name, contentType string) error {
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(raw)
}
