package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost costo promedio ponderado tras una entrada de compra.
// Nuevo = ((stock * costo) + (entrada * costoEntrada)) / (stock + entrada)
func WeightedAverageCost(stock, cost, incoming, incomingCost decimal.Decimal) decimal.Decimal {
	sum := stock.Add(incoming)
	if sum.LessThanOrEqual(decimal.Zero) {
		return cost
	}
	if stock.IsNegative() {
		return incomingCost
	}
	return stock.Mul(cost).Add(incoming.Mul(incomingCost)).Div(sum).Round(4)
}

// ReverseWeightedAverageCost quita del promedio una entrada ya aplicada (valor = cantidad * costo).
// Nuevo = ((stock * costo) - valor) / (stock - salida). Si no queda stock o el resultado sería
// negativo se mantiene el costo actual.
func ReverseWeightedAverageCost(stock, cost, outgoing, outgoingValue decimal.Decimal) decimal.Decimal {
	remaining := stock.Sub(outgoing)
	if remaining.LessThanOrEqual(decimal.Zero) {
		return cost
	}
	v := stock.Mul(cost).Sub(outgoingValue).Div(remaining)
	if v.IsNegative() {
		return cost
	}
	return v.Round(4)
}
