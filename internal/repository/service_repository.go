package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/home-services-marketplace/internal/model"
)

const serviceColumns = "id, name, description, category_id, base_price, price_unit, provider_id, is_active, created_at, updated_at"

// ServiceRepo provides data access for catalog services.
type ServiceRepo struct{ DB *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{DB: db} }

// Create inserts a service and reloads it so timestamps are populated.
func (r *ServiceRepo) Create(ctx context.Context, s *model.Service) error {
	var provider sql.NullInt64
	if s.ProviderID != nil {
		provider = sql.NullInt64{Int64: int64(*s.ProviderID), Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO services (name, description, category_id, base_price, price_unit, provider_id, is_active)
		 VALUES (?,?,?,?,?,?,?)`,
		s.Name, nullString(s.Description), s.CategoryID, s.BasePrice, string(s.PriceUnit), provider, s.IsActive)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*s = created
	return nil
}

// GetByID returns a service regardless of its active flag.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.Service, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+serviceColumns+" FROM services WHERE id=?", id)
	return scanService(row)
}

// Update overwrites the editable fields of a service.  Ownership and the
// active flag are left untouched.
func (r *ServiceRepo) Update(ctx context.Context, s *model.Service) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE services
		    SET name=?, description=?, category_id=?, base_price=?, price_unit=?
		  WHERE id=?`,
		s.Name, nullString(s.Description), s.CategoryID, s.BasePrice, string(s.PriceUnit), s.ID)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	if err := expectOneRow(res, ErrNotFound); err != nil {
		return err
	}
	updated, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = updated
	return nil
}

// SetActive flips the soft-delete flag.
func (r *ServiceRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE services SET is_active=? WHERE id=?", active, id)
	if err != nil {
		return fmt.Errorf("set service active: %w", err)
	}
	return expectOneRow(res, ErrNotFound)
}

// List returns services matching the filter, newest first.  Query matches
// name or description as a substring.
func (r *ServiceRepo) List(ctx context.Context, f model.ServiceFilter) ([]model.Service, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.ActiveOnly {
		where = append(where, "is_active=1")
	}
	if f.CategoryID != 0 {
		where = append(where, "category_id=?")
		args = append(args, f.CategoryID)
	}
	if f.ProviderID != 0 {
		where = append(where, "provider_id=?")
		args = append(args, f.ProviderID)
	}
	if f.ApprovedOnly {
		where = append(where, "(provider_id IS NULL OR EXISTS (SELECT 1 FROM users u WHERE u.id = services.provider_id AND u.provider_status = ?))")
		args = append(args, string(model.ProviderApproved))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(q) + "%"
		where = append(where, "(name LIKE ? OR description LIKE ?)")
		args = append(args, like, like)
	}
	query := "SELECT " + serviceColumns + " FROM services"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()
	out := make([]model.Service, 0)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanService(sc rowScanner) (model.Service, error) {
	var (
		s        model.Service
		desc     sql.NullString
		unit     string
		provider sql.NullInt64
	)
	err := sc.Scan(&s.ID, &s.Name, &desc, &s.CategoryID, &s.BasePrice, &unit,
		&provider, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Service{}, ErrNotFound
		}
		return model.Service{}, err
	}
	s.Description = desc.String
	s.PriceUnit = model.PriceUnit(unit)
	if provider.Valid {
		id := uint64(provider.Int64)
		s.ProviderID = &id
	}
	return s, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
