package sim

// UnrealizedPL is the profit or loss of p marked at price.
func UnrealizedPL(p Position, price float64) float64 {
	return (price - p.EntryPrice) * p.Size * p.Side.Sign()
}
