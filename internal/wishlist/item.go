// ABOUTME: Wishlist item entity and the closed value sets for its enumerated fields
// ABOUTME: Values here must stay in sync with the CHECK constraints in the store schema

package wishlist

import (
	"encoding/json"
	"time"
)

// Timeframe is when the owner hopes to get the item.
type Timeframe string

const (
	TimeframeShort  Timeframe = "short-term"
	TimeframeMedium Timeframe = "medium-term"
	TimeframeLong   Timeframe = "long-term"
)

// Category groups items by kind.
type Category string

const (
	CategoryGadgets     Category = "gadgets"
	CategoryExperiences Category = "experiences"
	CategorySkills      Category = "skills"
	CategoryLifestyle   Category = "lifestyle"
	CategoryOther       Category = "other"
)

// Priority is how much the owner wants the item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Status tracks progress towards getting the item.
type Status string

const (
	StatusUnstarted   Status = "unstarted"
	StatusConsidering Status = "considering"
	StatusPurchased   Status = "purchased"
)

// DesireType describes how concrete the want is.
type DesireType string

const (
	DesireSpecificProduct DesireType = "specific-product"
	DesireGeneralImage    DesireType = "general-image"
	DesireProblemToSolve  DesireType = "problem-to-solve"
)

// Value lists in display order. Used for validation tags, schemas and the UI.
var (
	Timeframes  = []Timeframe{TimeframeShort, TimeframeMedium, TimeframeLong}
	Categories  = []Category{CategoryGadgets, CategoryExperiences, CategorySkills, CategoryLifestyle, CategoryOther}
	Priorities  = []Priority{PriorityHigh, PriorityMedium, PriorityLow}
	Statuses    = []Status{StatusUnstarted, StatusConsidering, StatusPurchased}
	DesireTypes = []DesireType{DesireSpecificProduct, DesireGeneralImage, DesireProblemToSolve}
)

// Defaults applied on create when the field is omitted.
const (
	DefaultStatus     = StatusUnstarted
	DefaultDesireType = DesireGeneralImage
)

// TimeLayout is the wire and storage format for timestamps: UTC with
// millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Field limits.
const (
	MaxNameLength = 200
	MaxMemoLength = 10000
	// MaxBudget is the largest integer a JSON number carries exactly.
	MaxBudget int64 = 1<<53 - 1
)

func (t Timeframe) Valid() bool  { return contains(Timeframes, t) }
func (c Category) Valid() bool   { return contains(Categories, c) }
func (p Priority) Valid() bool   { return contains(Priorities, p) }
func (s Status) Valid() bool     { return contains(Statuses, s) }
func (d DesireType) Valid() bool { return contains(DesireTypes, d) }

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Strings converts a typed value list to plain strings.
func Strings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// Item is a single wishlist entry.
type Item struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Timeframe  Timeframe  `json:"timeframe"`
	Category   Category   `json:"category"`
	Budget     *int64     `json:"budget"`
	Priority   Priority   `json:"priority"`
	Status     Status     `json:"status"`
	DesireType DesireType `json:"desireType"`
	Memo       *string    `json:"memo"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// MarshalJSON renders timestamps with TimeLayout.
func (it Item) MarshalJSON() ([]byte, error) {
	type plain Item
	return json.Marshal(struct {
		plain
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}{
		plain:     plain(it),
		CreatedAt: it.CreatedAt.UTC().Format(TimeLayout),
		UpdatedAt: it.UpdatedAt.UTC().Format(TimeLayout),
	})
}

// NewItem builds an item from validated create input, applying defaults.
// The caller assigns the ID and the timestamps.
func NewItem(in CreateInput) *Item {
	item := &Item{
		Name:       in.Name,
		Timeframe:  in.Timeframe,
		Category:   in.Category,
		Priority:   in.Priority,
		Status:     in.Status,
		DesireType: in.DesireType,
		Budget:     copyPtr(in.Budget),
		Memo:       copyPtr(in.Memo),
	}
	if item.Status == "" {
		item.Status = DefaultStatus
	}
	if item.DesireType == "" {
		item.DesireType = DefaultDesireType
	}
	return item
}

// Apply overwrites the fields present in u. Timestamps are left alone.
func (it *Item) Apply(u UpdateInput) {
	if u.Name != nil {
		it.Name = *u.Name
	}
	if u.Timeframe != nil {
		it.Timeframe = *u.Timeframe
	}
	if u.Category != nil {
		it.Category = *u.Category
	}
	if u.Priority != nil {
		it.Priority = *u.Priority
	}
	if u.Status != nil {
		it.Status = *u.Status
	}
	if u.DesireType != nil {
		it.DesireType = *u.DesireType
	}
	if u.Budget.Set {
		it.Budget = copyPtr(u.Budget.Value)
	}
	if u.Memo.Set {
		it.Memo = copyPtr(u.Memo.Value)
	}
}

// Clone returns a deep copy.
func (it *Item) Clone() *Item {
	c := *it
	c.Budget = copyPtr(it.Budget)
	c.Memo = copyPtr(it.Memo)
	return &c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
