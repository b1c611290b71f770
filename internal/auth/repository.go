package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// AccountStore persists accounts. Find methods return nil, nil when nothing matches.
type AccountStore interface {
	Create(ctx context.Context, a NewAccount) (*Account, error)
	FindByIdentity(ctx context.Context, id Identity) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	SetActive(ctx context.Context, id int64, active bool) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	// Update writes the profile, contact, credential and role columns of a.
	Update(ctx context.Context, a *Account) (*Account, error)
}

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type AccountRepository struct {
	DB DB
}

func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

const accountColumns = `id, first_name, last_name, email, phone, password_hash, role, city, state, is_active, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, a NewAccount) (*Account, error) {
	var email, phone *string
	switch a.Identity.Channel {
	case ChannelEmail:
		email = &a.Identity.Value
	case ChannelPhone:
		phone = &a.Identity.Value
	default:
		return nil, fmt.Errorf("create account: unknown channel %q", a.Identity.Channel)
	}

	row := r.DB.QueryRow(ctx, `
		INSERT INTO accounts (first_name, last_name, email, phone, password_hash, role, city, state, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+accountColumns,
		a.FirstName, a.LastName, email, phone, a.PasswordHash, a.Role.String(), a.City, a.State, a.Active,
	)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) FindByIdentity(ctx context.Context, id Identity) (*Account, error) {
	var column string
	switch id.Channel {
	case ChannelEmail:
		column = "email"
	case ChannelPhone:
		column = "phone"
	default:
		return nil, nil
	}
	row := r.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+column+` = $1`, id.Value)
	return findOne(row)
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return findOne(row)
}

func (r *AccountRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.DB.Exec(ctx, `UPDATE accounts SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.DB.Exec(ctx, `UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) Update(ctx context.Context, a *Account) (*Account, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE accounts
		SET first_name = $2, last_name = $3, email = $4, phone = $5, password_hash = $6,
			role = $7, city = $8, state = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING `+accountColumns,
		a.ID, a.FirstName, a.LastName, a.Email, a.Phone, a.PasswordHash, a.Role.String(), a.City, a.State,
	)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrAccountNotFound
		case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}
	return account, nil
}

func findOne(row pgx.Row) (*Account, error) {
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		a            Account
		email, phone sql.NullString
		city, state  sql.NullString
		role         string
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(
		&a.ID,
		&a.FirstName,
		&a.LastName,
		&email,
		&phone,
		&a.PasswordHash,
		&role,
		&city,
		&state,
		&a.IsActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	parsed, ok := ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("account %d: unknown role %q", a.ID, role)
	}
	a.Role = parsed
	a.Email = nullStringPtr(email)
	a.Phone = nullStringPtr(phone)
	a.City = nullStringPtr(city)
	a.State = nullStringPtr(state)
	a.CreatedAt = createdAt
	a.UpdatedAt = updatedAt
	return &a, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}
