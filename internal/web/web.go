// ABOUTME: Browser handler that lists wishlist items as an HTML page
// ABOUTME: Renders memos with goldmark and applies the same filters as the REST API

package web

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/wishlist/internal/store"
	"github.com/2389/wishlist/internal/wishlist"
)

const pageCSP = "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'; base-uri 'none'"

// Display labels for the enumerated fields.
var (
	timeframeLabels = map[wishlist.Timeframe]string{
		wishlist.TimeframeShort:  "Short term",
		wishlist.TimeframeMedium: "Medium term",
		wishlist.TimeframeLong:   "Long term",
	}
	categoryLabels = map[wishlist.Category]string{
		wishlist.CategoryGadgets:     "Gadgets",
		wishlist.CategoryExperiences: "Experiences",
		wishlist.CategorySkills:      "Skills",
		wishlist.CategoryLifestyle:   "Lifestyle",
		wishlist.CategoryOther:       "Other",
	}
	priorityLabels = map[wishlist.Priority]string{
		wishlist.PriorityHigh:   "High",
		wishlist.PriorityMedium: "Medium",
		wishlist.PriorityLow:    "Low",
	}
	statusLabels = map[wishlist.Status]string{
		wishlist.StatusUnstarted:   "Unstarted",
		wishlist.StatusConsidering: "Considering",
		wishlist.StatusPurchased:   "Purchased",
	}
	desireTypeLabels = map[wishlist.DesireType]string{
		wishlist.DesireSpecificProduct: "Specific product",
		wishlist.DesireGeneralImage:    "General image",
		wishlist.DesireProblemToSolve:  "Problem to solve",
	}
	sortLabels = map[wishlist.SortKey]string{
		wishlist.SortCreatedAt: "Created",
		wishlist.SortUpdatedAt: "Updated",
		wishlist.SortBudget:    "Budget",
		wishlist.SortPriority:  "Priority",
		wishlist.SortName:      "Name",
	}
)

// option is one entry of a filter select.
type option struct {
	Value    string
	Label    string
	Selected bool
}

// itemView is an item prepared for the template.
type itemView struct {
	ID         string
	Name       string
	Timeframe  string
	Category   string
	Priority   string
	Status     string
	DesireType string
	Budget     string
	Memo       template.HTML
	UpdatedAt  string
}

type pageData struct {
	Title       string
	Error       string
	Items       []itemView
	Count       int
	TotalBudget string
	Timeframes  []option
	Categories  []option
	Priorities  []option
	Statuses    []option
	DesireTypes []option
	Sorts       []option
	Ascending   bool
}

// Handler renders the wishlist page.
type Handler struct {
	items  store.ItemStore
	md     goldmark.Markdown
	tmpl   *template.Template
	logger *slog.Logger
}

// NewHandler creates the page handler backed by items.
func NewHandler(items store.ItemStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		items:  items,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		tmpl:   template.Must(template.ParseFS(templateFS, "templates/index.html")),
		logger: logger.With("component", "web"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	params := map[string]string{}
	for _, key := range []string{"timeframe", "category", "status", "priority", "desireType", "sort", "order"} {
		params[key] = q.Get(key)
	}

	data := pageData{Title: "Wishlist"}
	status := http.StatusOK

	filter, err := wishlist.ParseFilters(params)
	if err != nil {
		var ve *wishlist.ValidationError
		if errors.As(err, &ve) {
			data.Error = "Invalid filter: " + ve.Error()
		}
		status = http.StatusBadRequest
		filter, _ = wishlist.ParseFilters(nil)
	}
	data.Timeframes = options(wishlist.Timeframes, timeframeLabels, filter.Timeframe)
	data.Categories = options(wishlist.Categories, categoryLabels, filter.Category)
	data.Priorities = options(wishlist.Priorities, priorityLabels, filter.Priority)
	data.Statuses = options(wishlist.Statuses, statusLabels, filter.Status)
	data.DesireTypes = options(wishlist.DesireTypes, desireTypeLabels, filter.DesireType)
	data.Sorts = options(wishlist.SortKeys, sortLabels, filter.Sort)
	data.Ascending = filter.Order == wishlist.OrderAsc

	if status == http.StatusOK {
		items, err := h.items.ListItems(r.Context(), filter)
		if err != nil {
			h.logger.Error("failed to list items", "error", err)
			data.Error = "Failed to load items"
			status = http.StatusInternalServerError
		} else {
			summary := wishlist.Summarize(items)
			data.Count = summary.TotalItems
			data.TotalBudget = formatYen(&summary.TotalBudget)
			data.Items = make([]itemView, 0, len(items))
			for _, it := range items {
				data.Items = append(data.Items, h.view(it))
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", pageCSP)
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := h.tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render wishlist page", "error", err)
	}
}

func (h *Handler) view(it *wishlist.Item) itemView {
	v := itemView{
		ID:         it.ID,
		Name:       it.Name,
		Timeframe:  timeframeLabels[it.Timeframe],
		Category:   categoryLabels[it.Category],
		Priority:   priorityLabels[it.Priority],
		Status:     statusLabels[it.Status],
		DesireType: desireTypeLabels[it.DesireType],
		Budget:     formatYen(it.Budget),
		UpdatedAt:  it.UpdatedAt.UTC().Format("2006-01-02 15:04"),
	}
	if it.Memo != nil && strings.TrimSpace(*it.Memo) != "" {
		v.Memo = h.renderMarkdown(*it.Memo)
	}
	return v
}

// renderMarkdown converts a memo to HTML. goldmark omits raw HTML unless
// configured otherwise, so the output is safe to embed.
func (h *Handler) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(src), &buf); err != nil {
		h.logger.Warn("failed to render memo", "error", err)
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(buf.String())
}

func options[T ~string](values []T, labels map[T]string, selected T) []option {
	out := make([]option, 0, len(values))
	for _, v := range values {
		out = append(out, option{Value: string(v), Label: labels[v], Selected: v == selected})
	}
	return out
}

// formatYen renders an amount as "¥1,234", or "-" when nil.
func formatYen(amount *int64) string {
	if amount == nil {
		return "-"
	}
	digits := strconv.FormatInt(*amount, 10)
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-¥" + b.String()
	}
	return "¥" + b.String()
}
