package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmhayes/tally/internal/common"
	"github.com/jmhayes/tally/internal/model"
)

// CreateCategory creates a new category for an owner.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.createCategoryTx(ctx, s.db, category)
}

func (s *SQLiteStorage) createCategoryTx(ctx context.Context, q queryable, category *model.Category) error {
	if err := validateCategory(category); err != nil {
		return err
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO categories (owner_id, name, type, parent_id, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`,
		category.OwnerID, category.Name, string(category.Type), category.ParentID, category.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: category %q", common.ErrDuplicateEntry, category.Name)
		}
		return translateErr(fmt.Errorf("failed to insert category: %w", err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category ID: %w", err)
	}
	category.ID = id
	category.IsActive = true

	slog.Info("created category", "name", category.Name, "id", id, "type", category.Type)
	return nil
}

const categoryColumns = `id, owner_id, name, type, parent_id, is_active, created_at`

// GetCategory returns a category by id, or nil when it does not exist.
func (s *SQLiteStorage) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoryTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getCategoryTx(ctx context.Context, q queryable, id int64) (*model.Category, error) {
	row := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ? AND is_active = 1`, id)
	category, err := scanCategory(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return category, nil
}

func scanCategory(scan func(...any) error) (*model.Category, error) {
	var (
		category model.Category
		typ      string
		parentID sql.NullInt64
	)
	err := scan(&category.ID, &category.OwnerID, &category.Name, &typ,
		&parentID, &category.IsActive, &category.CreatedAt)
	if err != nil {
		return nil, err
	}
	category.Type = model.CategoryType(typ)
	if parentID.Valid {
		category.ParentID = &parentID.Int64
	}
	return &category, nil
}

// ListCategories returns all active categories for an owner.
func (s *SQLiteStorage) ListCategories(ctx context.Context, ownerID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return s.listCategoriesTx(ctx, s.db, ownerID)
}

func (s *SQLiteStorage) listCategoriesTx(ctx context.Context, q queryable, ownerID string) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = ? AND is_active = 1 ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		category, scanErr := scanCategory(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan category: %w", scanErr)
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}
