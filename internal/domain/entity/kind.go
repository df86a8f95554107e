package entity

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind tipo de documento comercial.
type Kind string

// Tipos de documento de venta, compra y TPV.
const (
	KindQuote                Kind = "quote"
	KindOrder                Kind = "order"
	KindDeliveryNote         Kind = "delivery_note"
	KindInvoice              Kind = "invoice"
	KindReceipt              Kind = "receipt"
	KindTicket               Kind = "ticket"
	KindPurchaseOrder        Kind = "purchase_order"
	KindPurchaseDeliveryNote Kind = "purchase_delivery_note"
	KindPurchaseInvoice      Kind = "purchase_invoice"
	KindPurchaseReceipt      Kind = "purchase_receipt"
)

// Side lado comercial del documento.
type Side string

const (
	SideSales    Side = "sales"
	SidePurchase Side = "purchase"
)

// StockEffect signo con el que un documento mueve el stock de sus productos.
type StockEffect int

const (
	StockNone     StockEffect = 0
	StockDecrease StockEffect = -1
	StockIncrease StockEffect = 1
)

// KindSpec concentra todo lo que depende del tipo de documento: prefijo de numeración,
// efecto sobre el stock, conversiones y agrupaciones permitidas y recibo asociado.
type KindSpec struct {
	Kind         Kind
	Prefix       string
	Side         Side
	Stock        StockEffect
	HasLines     bool
	InitialState State
	// ConvertsTo destinos permitidos para la conversión con un solo origen.
	ConvertsTo []Kind
	// GroupsInto destino de la agrupación de varios documentos de este tipo ("" = no agrupable).
	GroupsInto Kind
	// ReceiptKind tipo de recibo que materializa los vencimientos (solo facturas).
	ReceiptKind Kind
	// StockCarriedBy tipo de origen que ya movió el stock (factura nacida de albarán).
	StockCarriedBy Kind
}

var kindRegistry = map[Kind]KindSpec{
	KindQuote: {
		Kind: KindQuote, Prefix: "PRE", Side: SideSales, HasLines: true, InitialState: StateDraft,
		ConvertsTo: []Kind{KindOrder, KindDeliveryNote, KindInvoice},
	},
	KindOrder: {
		Kind: KindOrder, Prefix: "PED", Side: SideSales, HasLines: true, InitialState: StateDraft,
		ConvertsTo: []Kind{KindDeliveryNote, KindInvoice},
		GroupsInto: KindDeliveryNote,
	},
	KindDeliveryNote: {
		Kind: KindDeliveryNote, Prefix: "ALB", Side: SideSales, Stock: StockDecrease, HasLines: true, InitialState: StateDraft,
		ConvertsTo: []Kind{KindInvoice},
		GroupsInto: KindInvoice,
	},
	KindInvoice: {
		Kind: KindInvoice, Prefix: "FAC", Side: SideSales, Stock: StockDecrease, HasLines: true, InitialState: StateDraft,
		ReceiptKind:    KindReceipt,
		StockCarriedBy: KindDeliveryNote,
	},
	KindReceipt: {
		Kind: KindReceipt, Prefix: "REC", Side: SideSales, InitialState: StatePending,
	},
	KindTicket: {
		Kind: KindTicket, Prefix: "TIC", Side: SideSales, HasLines: true, InitialState: StateDraft,
		ConvertsTo: []Kind{KindInvoice},
	},
	KindPurchaseOrder: {
		Kind: KindPurchaseOrder, Prefix: "PCO", Side: SidePurchase, HasLines: true, InitialState: StateDraft,
		ConvertsTo: []Kind{KindPurchaseDeliveryNote, KindPurchaseInvoice},
		GroupsInto: KindPurchaseDeliveryNote,
	},
	KindPurchaseDeliveryNote: {
		Kind: KindPurchaseDeliveryNote, Prefix: "ACO", Side: SidePurchase, Stock: StockIncrease, HasLines: true, InitialState: StateDraft,
		ConvertsTo: []Kind{KindPurchaseInvoice},
		GroupsInto: KindPurchaseInvoice,
	},
	KindPurchaseInvoice: {
		Kind: KindPurchaseInvoice, Prefix: "FCO", Side: SidePurchase, Stock: StockIncrease, HasLines: true, InitialState: StateDraft,
		ReceiptKind:    KindPurchaseReceipt,
		StockCarriedBy: KindPurchaseDeliveryNote,
	},
	KindPurchaseReceipt: {
		Kind: KindPurchaseReceipt, Prefix: "RCO", Side: SidePurchase, InitialState: StateDraft,
	},
}

var upperES = cases.Upper(language.Spanish)

// Spec devuelve la definición del tipo. Para tipos no registrados el prefijo son
// las tres primeras letras en mayúscula y el documento no mueve stock.
func (k Kind) Spec() KindSpec {
	if s, ok := kindRegistry[k]; ok {
		return s
	}
	return KindSpec{Kind: k, Prefix: fallbackPrefix(string(k)), Side: SideSales, HasLines: true, InitialState: StateDraft}
}

// Known indica si el tipo está en el registro.
func (k Kind) Known() bool {
	_, ok := kindRegistry[k]
	return ok
}

// IsInvoice indica si el tipo genera recibos.
func (k Kind) IsInvoice() bool { return k.Spec().ReceiptKind != "" }

// IsReceipt indica si el tipo es un recibo de cobro o pago.
func (k Kind) IsReceipt() bool { return k == KindReceipt || k == KindPurchaseReceipt }

// CanConvertTo indica si la conversión k → target está permitida.
func (s KindSpec) CanConvertTo(target Kind) bool {
	for _, t := range s.ConvertsTo {
		if t == target {
			return true
		}
	}
	return false
}

// Kinds devuelve los tipos registrados.
func Kinds() []Kind {
	return []Kind{
		KindQuote, KindOrder, KindDeliveryNote, KindInvoice, KindReceipt, KindTicket,
		KindPurchaseOrder, KindPurchaseDeliveryNote, KindPurchaseInvoice, KindPurchaseReceipt,
	}
}

func fallbackPrefix(name string) string {
	out := make([]rune, 0, 3)
	for _, r := range upperES.String(name) {
		if !unicode.IsLetter(r) {
			continue
		}
		out = append(out, r)
		if len(out) == 3 {
			break
		}
	}
	return string(out)
}

// NormalizeSeries limpia y pasa a mayúsculas un código de serie.
func NormalizeSeries(series string) string {
	out := make([]rune, 0, len(series))
	for _, r := range upperES.String(series) {
		if unicode.IsSpace(r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
