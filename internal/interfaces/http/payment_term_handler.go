package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/erp-documentos/internal/application/dto"
	"github.com/jhoicas/erp-documentos/internal/application/usecase"
)

// PaymentTermHandler maneja las formas de pago (protegido).
type PaymentTermHandler struct {
	uc  *usecase.PaymentTermUseCase
	log zerolog.Logger
}

// NewPaymentTermHandler construye el handler.
func NewPaymentTermHandler(uc *usecase.PaymentTermUseCase, log zerolog.Logger) *PaymentTermHandler {
	return &PaymentTermHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Crear forma de pago
// @Tags         payment-terms
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreatePaymentTermRequest  true  "Forma de pago"
// @Success      201   {object}  dto.PaymentTermResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/payment-terms [post]
func (h *PaymentTermHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePaymentTermRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar formas de pago
// @Tags         payment-terms
// @Security     Bearer
// @Produce      json
// @Param        active  query  bool  false  "Solo activas"
// @Success      200     {array}  dto.PaymentTermResponse
// @Router       /api/payment-terms [get]
func (h *PaymentTermHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), c.QueryBool("active", false))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Schedule godoc
// @Summary      Calcular vencimientos
// @Tags         payment-terms
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string               true  "ID de la forma de pago"
// @Param        body  body      dto.ScheduleRequest  true  "Fecha base y total"
// @Success      200   {object}  dto.ScheduleResponse
// @Router       /api/payment-terms/{id}/schedule [post]
func (h *PaymentTermHandler) Schedule(c *fiber.Ctx) error {
	var in dto.ScheduleRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Schedule(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
