package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/home-services-marketplace/internal/model"
	"github.com/iliyamo/home-services-marketplace/internal/utils"
)

const userColumns = "id,name,email,password_hash,role,provider_status,service_type,contact,address,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, role model.Role, cost int) (uint64, error) {
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		strings.TrimSpace(name), email, hash, string(role))
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
	return scanAccount(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanAccount(row)
}

// RequestProvider turns a customer without an application into a provider
// awaiting approval.  The update is conditional on the account still being
// a plain customer; ErrConflict means another request won the race.
func (r *UserRepo) RequestProvider(ctx context.Context, id uint64, p model.ProviderProfile) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users
		    SET role=?, provider_status=?, service_type=?, contact=?, address=?
		  WHERE id=? AND role=? AND provider_status IS NULL`,
		string(model.RoleProvider), string(p.Status), p.ServiceType, p.Contact, p.Address,
		id, string(model.RoleCustomer))
	if err != nil {
		return fmt.Errorf("request provider: %w", err)
	}
	return expectOneRow(res, ErrConflict)
}

// SetProviderStatus records an admin decision on a provider application.
func (r *UserRepo) SetProviderStatus(ctx context.Context, id uint64, status model.ProviderStatus) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET provider_status=? WHERE id=? AND provider_status IS NOT NULL",
		string(status), id)
	if err != nil {
		return fmt.Errorf("set provider status: %w", err)
	}
	return expectOneRow(res, ErrNotFound)
}

// ListProviders returns accounts that carry a provider application, most
// recently updated first.  An empty status returns every application.
func (r *UserRepo) ListProviders(ctx context.Context, status model.ProviderStatus) ([]model.Account, error) {
	q := "SELECT " + userColumns + " FROM users WHERE provider_status IS NOT NULL"
	args := []interface{}{}
	if status != "" {
		q += " AND provider_status=?"
		args = append(args, string(status))
	}
	q += " ORDER BY updated_at DESC, id DESC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()
	out := make([]model.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// EnsureAdmin creates the bootstrap administrator when the email is free.
// It reports whether a row was created.  An existing non-admin account
// with the same email is an error.
func (r *UserRepo) EnsureAdmin(ctx context.Context, name, email, password string, cost int) (bool, error) {
	_, err := r.Create(ctx, name, email, password, model.RoleAdmin, cost)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, ErrEmailExists) {
		return false, err
	}
	existing, err := r.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing.Role != model.RoleAdmin {
		return false, fmt.Errorf("admin email %s belongs to a %s account", existing.Email, existing.Role)
	}
	return false, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(s rowScanner) (model.Account, error) {
	var (
		a           model.Account
		role        string
		status      sql.NullString
		serviceType sql.NullString
		contact     sql.NullString
		address     sql.NullString
	)
	err := s.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role,
		&status, &serviceType, &contact, &address, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, err
	}
	a.Role = model.Role(role)
	if status.Valid {
		a.Provider = &model.ProviderProfile{
			ServiceType: serviceType.String,
			Contact:     contact.String,
			Address:     address.String,
			Status:      model.ProviderStatus(status.String),
		}
	}
	return a, nil
}

func expectOneRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
