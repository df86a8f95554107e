// Package lifecycle contiene las reglas puras del ciclo de vida de un documento:
// transiciones de estado, recálculo de totales y construcción de borradores derivados.
package lifecycle

import (
	"github.com/jhoicas/erp-documentos/internal/domain"
	"github.com/jhoicas/erp-documentos/internal/domain/entity"
)

// Confirm pasa el documento de borrador a confirmado. Desde cualquier otro estado falla.
func Confirm(doc *entity.Document) error {
	if doc.State != entity.StateDraft {
		return &domain.TransitionError{From: string(doc.State), Action: "confirmar"}
	}
	doc.State = entity.StateConfirmed
	return nil
}

// Cancel anula el documento sea cual sea su estado.
func Cancel(doc *entity.Document) {
	doc.State = entity.StateCancelled
}

// Complete marca un pedido como servido.
func Complete(doc *entity.Document) error {
	if err := requireKind(doc, "completar", entity.KindOrder, entity.KindPurchaseOrder); err != nil {
		return err
	}
	if doc.State != entity.StateConfirmed && doc.State != entity.StatePartial {
		return &domain.TransitionError{From: string(doc.State), Action: "completar"}
	}
	doc.State = entity.StateCompleted
	return nil
}

// MarkPartial marca un pedido confirmado como servido parcialmente.
func MarkPartial(doc *entity.Document) error {
	if err := requireKind(doc, "servir parcialmente", entity.KindOrder, entity.KindPurchaseOrder); err != nil {
		return err
	}
	if doc.State != entity.StateConfirmed {
		return &domain.TransitionError{From: string(doc.State), Action: "servir parcialmente"}
	}
	doc.State = entity.StatePartial
	return nil
}

// Collect cobra un recibo de venta pendiente.
func Collect(doc *entity.Document) error {
	if err := requireKind(doc, "cobrar", entity.KindReceipt); err != nil {
		return err
	}
	if doc.State != entity.StatePending {
		return &domain.TransitionError{From: string(doc.State), Action: "cobrar"}
	}
	doc.State = entity.StateCollected
	return nil
}

// Pay paga un recibo de compra.
func Pay(doc *entity.Document) error {
	if err := requireKind(doc, "pagar", entity.KindPurchaseReceipt); err != nil {
		return err
	}
	if doc.State != entity.StateDraft && doc.State != entity.StatePending {
		return &domain.TransitionError{From: string(doc.State), Action: "pagar"}
	}
	doc.State = entity.StatePaid
	return nil
}

// Editable indica si se pueden modificar las líneas.
func Editable(doc *entity.Document) bool {
	return doc.State == entity.StateDraft
}

func requireKind(doc *entity.Document, action string, kinds ...entity.Kind) error {
	for _, k := range kinds {
		if doc.Kind == k {
			return nil
		}
	}
	return domain.Invalid("lifecycle.kind", "no se puede %s un documento de tipo %s", action, doc.Kind)
}
