package entity

import "time"

// NumberingCounter contador por (tipo, serie, año). LastNumber nunca decrece.
type NumberingCounter struct {
	ID         string
	Kind       Kind
	Series     string
	Year       int
	LastNumber int64
	Format     string // plantilla con {TYPE}, {SERIES}, {YEAR}, {NUM}
	Padding    int
	UpdatedAt  time.Time
}
