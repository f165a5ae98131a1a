package resources

import "github.com/dmitrijs2005/autoservice/internal/client/models"

// IsLowStock reports whether p needs reordering: its quantity is at or
// below its own minimum, or below threshold when no minimum is set.
func IsLowStock(p models.SparePart, threshold float64) bool {
	if p.MinStock > 0 {
		return p.Quantity <= p.MinStock
	}
	return p.Quantity.Float64() < threshold
}

// LowStock returns the parts that need reordering, in input order.
func LowStock(parts []models.SparePart, threshold float64) []models.SparePart {
	var out []models.SparePart
	for _, p := range parts {
		if IsLowStock(p, threshold) {
			out = append(out, p)
		}
	}
	return out
}

// StockValue is the sum of quantity times unit price over parts.
func StockValue(parts []models.SparePart) float64 {
	var total float64
	for _, p := range parts {
		total += p.Quantity.Float64() * p.UnitPrice.Float64()
	}
	return total
}
