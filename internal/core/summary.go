package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Summary totals a list of transactions, keeping categories in first-seen order.
type Summary struct {
	Count      int
	Total      decimal.Decimal
	ByCategory []CategoryAmount
}

func Summarize(items []Transaction) Summary {
	s := Summary{Total: decimal.Zero}
	idx := map[string]int{}
	for _, t := range items {
		s.Count++
		s.Total = s.Total.Add(t.Amount)
		i, ok := idx[t.Category]
		if !ok {
			i = len(s.ByCategory)
			idx[t.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{Name: t.Category, Amount: decimal.Zero})
		}
		s.ByCategory[i].Amount = s.ByCategory[i].Amount.Add(t.Amount)
	}
	return s
}
