package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"spendsync/internal/domain/category"
	"spendsync/internal/domain/owner"
)

type CategoryRepository struct {
	db *DB
}

func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindOrCreate relies on the (owner_id, name) constraint so concurrent
// imports resolve to the same row. The no-op update makes RETURNING yield
// the existing row on conflict.
func (r *CategoryRepository) FindOrCreate(ctx context.Context, ownerID int64, name string) (*category.Category, error) {
	name = category.NormalizeName(name)
	if name == "" {
		return nil, category.ErrEmptyName
	}

	query := `
		INSERT INTO categories (id, owner_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, owner_id, name, created_at
	`

	var c category.Category
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), ownerID, name).Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt,
	)
	if err != nil {
		if isOwnerReferenceError(err) {
			return nil, fmt.Errorf("failed to find or create category: %w", owner.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find or create category: %w", err)
	}

	return &c, nil
}

func (r *CategoryRepository) ListByOwnerID(ctx context.Context, ownerID int64) ([]*category.Category, error) {
	query := `
		SELECT id, owner_id, name, created_at
		FROM categories
		WHERE owner_id = $1
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*category.Category
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}
