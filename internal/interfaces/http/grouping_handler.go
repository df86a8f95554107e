package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/erp-documentos/internal/application/dto"
	"github.com/jhoicas/erp-documentos/internal/application/grouping"
	"github.com/jhoicas/erp-documentos/internal/application/numbering"
	"github.com/jhoicas/erp-documentos/internal/application/receipts"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// GroupingHandler agrupación de documentos, recibos de facturas y numeración manual.
type GroupingHandler struct {
	grouping *grouping.Service
	receipts *receipts.Generator
	seq      *numbering.Sequencer
	log      zerolog.Logger
}

// NewGroupingHandler construye el handler.
func NewGroupingHandler(g *grouping.Service, gen *receipts.Generator, seq *numbering.Sequencer, log zerolog.Logger) *GroupingHandler {
	return &GroupingHandler{grouping: g, receipts: gen, seq: seq, log: log}
}

// Group godoc
// @Summary      Agrupar documentos
// @Description  Varios albaranes del mismo cliente en una factura, o varios pedidos en un albarán.
// @Tags         groupings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.GroupRequest  true  "Orígenes"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/groupings [post]
func (h *GroupingHandler) Group(c *fiber.Ctx) error {
	var in dto.GroupRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	doc, err := h.grouping.Group(c.UserContext(), grouping.Request{
		SourceIDs: in.SourceIDs,
		Target:    entity.Kind(in.Target),
		UserID:    GetUserID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToDocumentResponse(doc, nil))
}

// CanUngroup godoc
// @Summary      Comprobar si un documento agrupado puede deshacerse
// @Tags         groupings
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del documento agrupado"
// @Success      200  {object}  grouping.UngroupCheck
// @Router       /api/groupings/{id}/can-ungroup [get]
func (h *GroupingHandler) CanUngroup(c *fiber.Ctx) error {
	out, err := h.grouping.CanUngroup(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Ungroup godoc
// @Summary      Deshacer agrupación (admin)
// @Tags         groupings
// @Security     Bearer
// @Param        id   path  string  true  "ID del documento agrupado"
// @Success      204
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/groupings/{id} [delete]
func (h *GroupingHandler) Ungroup(c *fiber.Ctx) error {
	if err := h.grouping.Ungroup(c.UserContext(), c.Params("id"), GetUserID(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GenerateReceipts godoc
// @Summary      Generar recibos de una factura
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path   string  true  "ID de la factura"
// @Success      201  {array}  dto.DocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/receipts [post]
func (h *GroupingHandler) GenerateReceipts(c *fiber.Ctx) error {
	list, err := h.receipts.Generate(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToDocumentList(list))
}

// RegenerateReceipts godoc
// @Summary      Regenerar recibos de una factura (admin)
// @Description  Rechazado si algún recibo previo está cobrado o pagado.
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path   string  true  "ID de la factura"
// @Success      200  {array}  dto.DocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/invoices/{id}/receipts/regenerate [post]
func (h *GroupingHandler) RegenerateReceipts(c *fiber.Ctx) error {
	list, err := h.receipts.Regenerate(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToDocumentList(list))
}

// NextNumber godoc
// @Summary      Emitir el siguiente número de un tipo y serie
// @Tags         numbering
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.NumberingRequest  true  "Tipo y serie"
// @Success      201   {object}  dto.NumberingResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/numbering/next [post]
func (h *GroupingHandler) NextNumber(c *fiber.Ctx) error {
	var in dto.NumberingRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if in.Kind == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "kind es requerido"})
	}
	num, err := h.seq.Next(c.UserContext(), entity.Kind(in.Kind), in.Series)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NumberingResponse{Number: num})
}
