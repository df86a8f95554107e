package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound                 = errors.New("recurso no encontrado")
	ErrInvalidInput             = errors.New("entrada inválida")
	ErrDuplicate                = errors.New("recurso duplicado")
	ErrUnauthorized             = errors.New("no autorizado")
	ErrForbidden                = errors.New("acceso denegado")
	ErrConflict                 = errors.New("conflicto con el estado actual")
	ErrInsufficientStock        = errors.New("stock insuficiente")
	ErrInvalidTransition        = errors.New("transición de estado no permitida")
	ErrDocumentLocked           = errors.New("el documento no es editable en su estado actual")
	ErrNumberingExhausted       = errors.New("no se pudo obtener un número de documento libre")
	ErrReceiptsAlreadyGenerated = errors.New("la factura ya tiene recibos generados")
)

// ValidationError describe la regla de negocio violada. Envuelve ErrInvalidInput.
type ValidationError struct {
	Rule    string // identificador estable, ej. "grouping.same_partner"
	Message string // texto legible para el usuario
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid construye un ValidationError.
func Invalid(rule, format string, args ...any) error {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError identifica la entidad referenciada que no existe. Envuelve ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound construye un NotFoundError.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// TransitionError indica una acción no permitida desde el estado actual. Envuelve ErrInvalidTransition.
type TransitionError struct {
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("no se puede %s un documento en estado %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
