package grocery

import (
	"math"

	"github.com/zombor/grocery-saver/internal/scanning"
)

// toCents converts an amount in major units to cents, rounding to the nearest cent
func toCents(amount float64) int {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return int(math.Round(amount * 100))
}

// itemsFromClassification flattens a classification into items, essentials first
func itemsFromClassification(c *scanning.Classification) []Item {
	items := make([]Item, 0, len(c.Essentials)+len(c.NonEssentials))
	for _, d := range c.Essentials {
		items = append(items, itemFromData(d, CategoryEssential))
	}
	for _, d := range c.NonEssentials {
		items = append(items, itemFromData(d, CategoryNonEssential))
	}
	return items
}

func itemFromData(d scanning.ItemData, c Category) Item {
	qty := d.Quantity
	if qty <= 0 {
		qty = 1
	}
	return Item{
		Name:     d.Item,
		Quantity: qty,
		Price:    toCents(d.Price),
		Category: c,
	}
}

// Summarize totals the items and works out the two savings scenarios:
// dropping every non-essential, and halving non-essential spend
func Summarize(items []Item) Summary {
	var s Summary
	for _, it := range items {
		switch it.Category {
		case CategoryEssential:
			s.EssentialsTotal += it.Price
		case CategoryNonEssential:
			s.NonEssentialsTotal += it.Price
		}
	}

	s.TotalSpent = s.EssentialsTotal + s.NonEssentialsTotal
	s.SaveRemoveAll = s.NonEssentialsTotal
	// Round half up in cents
	s.SaveHalf = (s.NonEssentialsTotal + 1) / 2

	if s.TotalSpent > 0 {
		s.SaveRemoveAllPercent = float64(s.SaveRemoveAll) / float64(s.TotalSpent) * 100
		s.SaveHalfPercent = float64(s.SaveHalf) / float64(s.TotalSpent) * 100
	}
	return s
}
