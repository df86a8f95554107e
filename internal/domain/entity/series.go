package entity

// Series serie de numeración. Billing marca las series válidas para facturar.
type Series struct {
	Code    string
	Name    string
	Active  bool
	Billing bool
}
