package domain

// Total sums price times quantity over items. Items without a product
// snapshot contribute nothing.
func Total(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		total += item.Product.Price * float64(item.Quantity)
	}
	return total
}

// Count sums quantities over items.
func Count(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
