// ABOUTME: Aggregation of wishlist items into totals and per-dimension buckets
// ABOUTME: Buckets exist only for values that were actually observed

package wishlist

import "math"

// Bucket is the count and budget total for one dimension value.
type Bucket struct {
	Count  int   `json:"count"`
	Budget int64 `json:"budget"`
}

// Summary aggregates a set of items. Null budgets count as zero and budget
// sums saturate at math.MaxInt64.
type Summary struct {
	TotalItems  int                `json:"totalItems"`
	TotalBudget int64              `json:"totalBudget"`
	ByTimeframe map[string]*Bucket `json:"byTimeframe"`
	ByCategory  map[string]*Bucket `json:"byCategory"`
	ByStatus    map[string]*Bucket `json:"byStatus"`
	ByPriority  map[string]*Bucket `json:"byPriority"`
}

// NewSummary returns an empty summary with non-nil maps.
func NewSummary() *Summary {
	return &Summary{
		ByTimeframe: make(map[string]*Bucket),
		ByCategory:  make(map[string]*Bucket),
		ByStatus:    make(map[string]*Bucket),
		ByPriority:  make(map[string]*Bucket),
	}
}

// Add folds one item into the summary.
func (s *Summary) Add(item *Item) {
	var budget int64
	if item.Budget != nil {
		budget = *item.Budget
	}
	s.TotalItems++
	s.TotalBudget = addBudget(s.TotalBudget, budget)
	bump(s.ByTimeframe, string(item.Timeframe), budget)
	bump(s.ByCategory, string(item.Category), budget)
	bump(s.ByStatus, string(item.Status), budget)
	bump(s.ByPriority, string(item.Priority), budget)
}

func bump(m map[string]*Bucket, key string, budget int64) {
	b, ok := m[key]
	if !ok {
		b = &Bucket{}
		m[key] = b
	}
	b.Count++
	b.Budget = addBudget(b.Budget, budget)
}

// addBudget adds two non-negative budgets without wrapping.
func addBudget(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

// Summarize aggregates items in a single pass.
func Summarize(items []*Item) *Summary {
	s := NewSummary()
	for _, item := range items {
		s.Add(item)
	}
	return s
}
