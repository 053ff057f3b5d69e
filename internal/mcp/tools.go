// ABOUTME: Wishlist tool definitions and handlers for the MCP server
// ABOUTME: Arguments go through the same parsers as the REST API

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/2389/wishlist/internal/store"
	"github.com/2389/wishlist/internal/wishlist"
)

// tool pairs a declared schema with its handler.
type tool struct {
	def     mcp.Tool
	handler func(ctx context.Context, args json.RawMessage) (any, error)
	logger  *slog.Logger
}

// call runs the handler and wraps its outcome in a tool result. Failures
// become isError results, never JSON-RPC errors.
func (t *tool) call(ctx context.Context, args json.RawMessage) *mcp.CallToolResult {
	v, err := t.handler(ctx, args)
	if err != nil {
		return errorResult(t.errorMessage(err))
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(t.errorMessage(err))
	}
	return mcp.NewToolResultText(string(b))
}

func (t *tool) errorMessage(err error) string {
	var (
		nf *wishlist.NotFoundError
		ve *wishlist.ValidationError
	)
	switch {
	case errors.As(err, &nf):
		return nf.Error()
	case errors.As(err, &ve):
		return "validation failed: " + ve.Error()
	default:
		t.logger.Error("tool failed", "tool_name", t.def.Name, "error", err)
		return "Internal Server Error"
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return mcp.NewToolResultError(string(b))
}

// wishlistTools declares the six wishlist tools.
func (s *Server) wishlistTools() []tool {
	tools := []tool{
		{
			def: mcp.NewTool("list_wishlist_items",
				mcp.WithDescription("List and filter wishlist items. Returns all items matching the given filters."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithOpenWorldHintAnnotation(false),
				enumProp("timeframe", "Filter by timeframe", wishlist.Strings(wishlist.Timeframes), false),
				enumProp("category", "Filter by category", wishlist.Strings(wishlist.Categories), false),
				enumProp("status", "Filter by status", wishlist.Strings(wishlist.Statuses), false),
				enumProp("priority", "Filter by priority", wishlist.Strings(wishlist.Priorities), false),
				enumProp("desireType", "Filter by desire type", wishlist.Strings(wishlist.DesireTypes), false),
				enumProp("sort", "Sort key (defaults to createdAt)", wishlist.Strings(wishlist.SortKeys), false),
				enumProp("order", "Sort direction (defaults to desc)", []string{string(wishlist.OrderAsc), string(wishlist.OrderDesc)}, false),
			),
			handler: s.listItems,
		},
		{
			def: mcp.NewTool("get_wishlist_item",
				mcp.WithDescription("Get a single wishlist item by its ID."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithOpenWorldHintAnnotation(false),
				mcp.WithString("id", mcp.Required(), mcp.Description("The unique ID of the wishlist item")),
			),
			handler: s.getItem,
		},
		{
			def: mcp.NewTool("add_wishlist_item",
				mcp.WithDescription("Add a new item to the wishlist."),
				mcp.WithReadOnlyHintAnnotation(false),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(false),
				mcp.WithOpenWorldHintAnnotation(false),
				mcp.WithString("name", mcp.Required(), mcp.MinLength(1), mcp.MaxLength(wishlist.MaxNameLength), mcp.Description("Name of the item")),
				enumProp("timeframe", "Timeframe for the item", wishlist.Strings(wishlist.Timeframes), true),
				enumProp("category", "Category of the item", wishlist.Strings(wishlist.Categories), true),
				enumProp("priority", "Priority level", wishlist.Strings(wishlist.Priorities), true),
				mcp.WithNumber("budget", mcp.Min(0), mcp.Max(float64(wishlist.MaxBudget)), mcp.Description("Optional non-negative integer budget")),
				enumProp("desireType", "Kind of desire: a specific product, a general image, or a problem to solve (defaults to general-image)", wishlist.Strings(wishlist.DesireTypes), false),
				mcp.WithString("memo", mcp.MaxLength(wishlist.MaxMemoLength), mcp.Description("Optional memo (supports Markdown)")),
				enumProp("status", "Status (defaults to unstarted)", wishlist.Strings(wishlist.Statuses), false),
			),
			handler: s.addItem,
		},
		{
			def: mcp.NewTool("update_wishlist_item",
				mcp.WithDescription("Update an existing wishlist item. Only provided fields will be updated."),
				mcp.WithReadOnlyHintAnnotation(false),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithOpenWorldHintAnnotation(false),
				mcp.WithString("id", mcp.Required(), mcp.Description("The unique ID of the wishlist item to update")),
				mcp.WithString("name", mcp.MinLength(1), mcp.MaxLength(wishlist.MaxNameLength), mcp.Description("Updated name")),
				enumProp("timeframe", "Updated timeframe", wishlist.Strings(wishlist.Timeframes), false),
				enumProp("category", "Updated category", wishlist.Strings(wishlist.Categories), false),
				enumProp("priority", "Updated priority", wishlist.Strings(wishlist.Priorities), false),
				mcp.WithNumber("budget", mcp.Min(0), mcp.Max(float64(wishlist.MaxBudget)), mcp.Description("Updated budget (null to clear)")),
				enumProp("desireType", "Updated desire type", wishlist.Strings(wishlist.DesireTypes), false),
				mcp.WithString("memo", mcp.MaxLength(wishlist.MaxMemoLength), mcp.Description("Updated memo (supports Markdown, null to clear)")),
				enumProp("status", "Updated status", wishlist.Strings(wishlist.Statuses), false),
			),
			handler: s.updateItem,
		},
		{
			def: mcp.NewTool("delete_wishlist_item",
				mcp.WithDescription("Delete a wishlist item by its ID."),
				mcp.WithReadOnlyHintAnnotation(false),
				mcp.WithDestructiveHintAnnotation(true),
				mcp.WithIdempotentHintAnnotation(false),
				mcp.WithOpenWorldHintAnnotation(false),
				mcp.WithString("id", mcp.Required(), mcp.Description("The unique ID of the wishlist item to delete")),
			),
			handler: s.deleteItem,
		},
		{
			def: mcp.NewTool("summarize_wishlist",
				mcp.WithDescription("Get summary statistics of the wishlist including total items, budget, and breakdowns by timeframe, category, status, and priority."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithOpenWorldHintAnnotation(false),
			),
			handler: s.summarize,
		},
	}
	for i := range tools {
		tools[i].logger = s.logger
	}
	return tools
}

func enumProp(name, desc string, values []string, required bool) mcp.ToolOption {
	opts := []mcp.PropertyOption{mcp.Description(desc), mcp.Enum(values...)}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithString(name, opts...)
}

func (s *Server) listItems(ctx context.Context, args json.RawMessage) (any, error) {
	filter, err := wishlist.ParseFiltersJSON(args)
	if err != nil {
		return nil, err
	}
	return s.items.ListItems(ctx, filter)
}

func (s *Server) getItem(ctx context.Context, args json.RawMessage) (any, error) {
	id, err := parseID(args)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetItem(ctx, id)
	return item, notFound(id, err)
}

func (s *Server) addItem(ctx context.Context, args json.RawMessage) (any, error) {
	in, err := wishlist.ParseCreate(args)
	if err != nil {
		return nil, err
	}
	return s.items.CreateItem(ctx, in)
}

func (s *Server) updateItem(ctx context.Context, args json.RawMessage) (any, error) {
	id, err := parseID(args)
	if err != nil {
		return nil, err
	}
	up, err := wishlist.ParseUpdate(args)
	if err != nil {
		return nil, err
	}
	item, err := s.items.UpdateItem(ctx, id, up)
	return item, notFound(id, err)
}

func (s *Server) deleteItem(ctx context.Context, args json.RawMessage) (any, error) {
	id, err := parseID(args)
	if err != nil {
		return nil, err
	}
	if err := notFound(id, s.items.DeleteItem(ctx, id)); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "message": fmt.Sprintf("Item '%s' deleted", id)}, nil
}

func (s *Server) summarize(ctx context.Context, _ json.RawMessage) (any, error) {
	return s.items.Summarize(ctx)
}

// parseID reads the required "id" argument.
func parseID(args json.RawMessage) (string, error) {
	var v struct {
		ID *json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return "", fieldError("body", "must be a JSON object")
	}
	if v.ID == nil || bytes.Equal(*v.ID, []byte("null")) {
		return "", fieldError("id", "is required")
	}
	var id string
	if err := json.Unmarshal(*v.ID, &id); err != nil {
		return "", fieldError("id", "must be a string")
	}
	if id == "" {
		return "", fieldError("id", "is required")
	}
	return id, nil
}

func fieldError(field, reason string) error {
	return &wishlist.ValidationError{Fields: []wishlist.FieldError{{Field: field, Reason: reason}}}
}

// notFound converts store.ErrNotFound into the caller-facing error.
func notFound(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &wishlist.NotFoundError{ID: id}
	}
	return err
}
