package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/home-services-marketplace/internal/model"
)

// CategoryRepo provides data access for categories.
type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// Create inserts a category and fills in its ID and creation time.  A
// duplicate name or slug yields ErrConflict.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO categories (name, slug, description) VALUES (?,?,?)",
		c.Name, c.Slug, nullString(c.Description))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = created
	return nil
}

// GetByID returns ErrNotFound when the category does not exist.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (model.Category, error) {
	var (
		c    model.Category
		desc sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, slug, description, created_at FROM categories WHERE id=?", id).
		Scan(&c.ID, &c.Name, &c.Slug, &desc, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Category{}, ErrNotFound
		}
		return model.Category{}, err
	}
	c.Description = desc.String
	return c, nil
}

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, slug, description, created_at FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	out := make([]model.Category, 0)
	for rows.Next() {
		var (
			c    model.Category
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &desc, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Description = desc.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
