package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// State estado del ciclo de vida de un documento.
type State string

// Estados de documento.
const (
	StateDraft     State = "draft"
	StateConfirmed State = "confirmed"
	StateCancelled State = "cancelled"
	StatePartial   State = "partial"   // pedido servido parcialmente
	StateCompleted State = "completed" // pedido servido
	StatePending   State = "pending"   // recibo pendiente de cobro
	StateCollected State = "collected" // recibo cobrado
	StatePaid      State = "paid"      // recibo pagado
)

// Terminal indica si el estado no admite más transiciones.
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateCollected || s == StatePaid
}

// Document cabecera de un documento comercial (presupuesto, pedido, albarán, factura, recibo, ticket).
// Invariantes: TaxableBase = Subtotal - Discount; Total = TaxableBase + VATAmount - WithholdingAmount + SurchargeAmount.
type Document struct {
	ID                string
	Kind              Kind
	Number            string // único global
	NumberingYear     int    // año del contador que emitió Number (0 = número forzado o importado)
	Series            string
	Date              time.Time
	DueDate           *time.Time // solo recibos
	PartnerID         string
	State             State
	Subtotal          decimal.Decimal
	Discount          decimal.Decimal
	TaxableBase       decimal.Decimal
	VATAmount         decimal.Decimal
	WithholdingRate   decimal.Decimal // IRPF %
	WithholdingAmount decimal.Decimal
	SurchargeAmount   decimal.Decimal
	Total             decimal.Decimal
	SurchargeApplies  bool   // tercero en recargo de equivalencia
	PaymentTermID     string // "" = sin forma de pago
	OriginDocumentID  string // conversión con un solo origen
	StockApplied      bool
	Observations      string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// Spec atajo a la definición del tipo.
func (d *Document) Spec() KindSpec { return d.Kind.Spec() }

// IsDeleted indica borrado lógico.
func (d *Document) IsDeleted() bool { return d.DeletedAt != nil }

// DocumentOrigin fila de la relación muchos-a-muchos de agrupación.
type DocumentOrigin struct {
	DocumentID        string
	OriginDocumentID  string
	ProcessedQuantity decimal.Decimal
	CreatedAt         time.Time
}
