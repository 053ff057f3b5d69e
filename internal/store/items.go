// ABOUTME: SQLite implementation of ItemStore (list, get, create, update, delete, summarize)
// ABOUTME: Updates run in a transaction; deletes are a single conditional DELETE

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/2389/wishlist/internal/wishlist"
	"github.com/google/uuid"
)

const itemColumns = `id, name, timeframe, category, budget, priority, status, desire_type, memo, created_at, updated_at`

// sortColumns maps sort keys to columns. Only values from this map are ever
// interpolated into SQL.
var sortColumns = map[wishlist.SortKey]string{
	wishlist.SortName:      "name",
	wishlist.SortCreatedAt: "created_at",
	wishlist.SortUpdatedAt: "updated_at",
	wishlist.SortBudget:    "budget",
	wishlist.SortPriority:  "priority",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanItem(row rowScanner) (*wishlist.Item, error) {
	var it wishlist.Item
	var budget sql.NullInt64
	var memo sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&it.ID, &it.Name, &it.Timeframe, &it.Category, &budget, &it.Priority,
		&it.Status, &it.DesireType, &memo, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if budget.Valid {
		b := budget.Int64
		it.Budget = &b
	}
	if memo.Valid {
		m := memo.String
		it.Memo = &m
	}

	var err error
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", it.ID, err)
	}
	if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at for %s: %w", it.ID, err)
	}
	return &it, nil
}

func getItem(ctx context.Context, q queryer, id string) (*wishlist.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM wishlist_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	return item, nil
}

func nullableInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// ListItems returns items matching every non-empty filter field, ordered by
// the filter's sort key and direction with id as tiebreaker.
func (s *SQLiteStore) ListItems(ctx context.Context, filter wishlist.ListFilter) ([]*wishlist.Item, error) {
	var args []any
	query := `SELECT ` + itemColumns + ` FROM wishlist_items WHERE 1=1`

	conds := []struct {
		column string
		value  string
	}{
		{"timeframe", string(filter.Timeframe)},
		{"category", string(filter.Category)},
		{"status", string(filter.Status)},
		{"priority", string(filter.Priority)},
		{"desire_type", string(filter.DesireType)},
	}
	for _, c := range conds {
		if c.value != "" {
			query += ` AND ` + c.column + ` = ?`
			args = append(args, c.value)
		}
	}

	column, ok := sortColumns[filter.Sort]
	if !ok {
		column = sortColumns[wishlist.SortCreatedAt]
	}
	direction := "DESC"
	if filter.Order == wishlist.OrderAsc {
		direction = "ASC"
	}
	query += ` ORDER BY ` + column + ` ` + direction + `, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []*wishlist.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// GetItem retrieves an item by ID.
func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*wishlist.Item, error) {
	return getItem(ctx, s.db, id)
}

// CreateItem persists a new item with a fresh ID and identical timestamps.
func (s *SQLiteStore) CreateItem(ctx context.Context, in wishlist.CreateInput) (*wishlist.Item, error) {
	item := wishlist.NewItem(in)
	item.ID = uuid.New().String()
	now := s.now()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wishlist_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.Name, item.Timeframe, item.Category, nullableInt(item.Budget), item.Priority,
		item.Status, item.DesireType, nullableString(item.Memo), formatTime(item.CreatedAt), formatTime(item.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Debug("item created", "id", item.ID)
	return getItem(ctx, s.db, item.ID)
}

// UpdateItem applies the supplied fields and refreshes updated_at. The read,
// write and re-read share one transaction.
func (s *SQLiteStore) UpdateItem(ctx context.Context, id string, in wishlist.UpdateInput) (*wishlist.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	item, err := getItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	item.Apply(in)
	now := s.now()
	if now.Before(item.UpdatedAt) {
		now = item.UpdatedAt
	}
	item.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		UPDATE wishlist_items
		SET name = ?, timeframe = ?, category = ?, budget = ?, priority = ?, status = ?,
			desire_type = ?, memo = ?, updated_at = ?
		WHERE id = ?
	`, item.Name, item.Timeframe, item.Category, nullableInt(item.Budget), item.Priority, item.Status,
		item.DesireType, nullableString(item.Memo), formatTime(item.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("updating item %s: %w", id, err)
	}

	updated, err := getItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}
	return updated, nil
}

// DeleteItem deletes an item by ID.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Summarize aggregates every item in one scan.
func (s *SQLiteStore) Summarize(ctx context.Context) (*wishlist.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT timeframe, category, status, priority, budget FROM wishlist_items`)
	if err != nil {
		return nil, fmt.Errorf("summarizing items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := wishlist.NewSummary()
	for rows.Next() {
		var it wishlist.Item
		var budget sql.NullInt64
		if err := rows.Scan(&it.Timeframe, &it.Category, &it.Status, &it.Priority, &budget); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		if budget.Valid {
			b := budget.Int64
			it.Budget = &b
		}
		summary.Add(&it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summarizing items: %w", err)
	}
	return summary, nil
}
