package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/tokobaju-api/internal/money"
)

// User is a row of the users table.
type User struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	FullName      string
	Role          string
	WalletBalance money.Amount
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateUserParams carries the columns for a new user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         string
}

// UpdateUserParams carries the columns an update may overwrite.
type UpdateUserParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         string
}

// Address is a row of the user_addresses table.
type Address struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Label         string
	RecipientName string
	PhoneNumber   string
	Street        string
	City          string
	Province      string
	PostalCode    string
	IsDefault     bool
	CreatedAt     time.Time
}

const userColumns = `id, email, password_hash, full_name, role, wallet_balance, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.WalletBalance, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUser inserts a user with a lower-cased email.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `INSERT INTO users (email, password_hash, full_name, role)
VALUES (lower($1), $2, $3, $4) RETURNING `+userColumns, arg.Email, arg.PasswordHash, arg.FullName, arg.Role))
	return u, wrapErr("create user", err)
}

// GetUser fetches a user by id.
func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, wrapErr("get user", err)
}

// GetUserByEmail fetches a user by email, ignoring case.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	return u, wrapErr("get user by email", err)
}

// ExistsUserWithRole reports whether any user holds role.
func (q *Queries) ExistsUserWithRole(ctx context.Context, role string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE role = $1)`, role).Scan(&exists)
	return exists, wrapErr("exists user with role", err)
}

// ListUsers returns users ordered by creation.
func (q *Queries) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	limit, offset = clampLimit(limit, offset)
	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, wrapErr("list users", err)
	}
	defer rows.Close()
	out := make([]User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapErr("list users", err)
		}
		out = append(out, u)
	}
	return out, wrapErr("list users", rows.Err())
}

// CountUsers returns the number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	return total, wrapErr("count users", err)
}

// UpdateUser overwrites profile columns. The wallet balance is not writable here.
func (q *Queries) UpdateUser(ctx context.Context, id uuid.UUID, arg UpdateUserParams) (User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `UPDATE users SET email = lower($2), password_hash = $3, full_name = $4,
role = $5, updated_at = now() WHERE id = $1 RETURNING `+userColumns,
		id, arg.Email, arg.PasswordHash, arg.FullName, arg.Role))
	return u, wrapErr("update user", err)
}

// AddWalletBalance credits amount to the wallet and returns the new balance.
func (q *Queries) AddWalletBalance(ctx context.Context, id uuid.UUID, amount money.Amount) (money.Amount, error) {
	var balance money.Amount
	err := q.db.QueryRow(ctx, `UPDATE users SET wallet_balance = wallet_balance + $2, updated_at = now()
WHERE id = $1 RETURNING wallet_balance`, id, amount).Scan(&balance)
	return balance, wrapErr("add wallet balance", err)
}

const addressColumns = `id, user_id, label, recipient_name, phone_number, street, city, province, postal_code, is_default, created_at`

func scanAddress(row pgx.Row) (Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.RecipientName, &a.PhoneNumber, &a.Street, &a.City,
		&a.Province, &a.PostalCode, &a.IsDefault, &a.CreatedAt)
	return a, err
}

// ListAddresses returns a user's addresses, default first.
func (q *Queries) ListAddresses(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	rows, err := q.db.Query(ctx, `SELECT `+addressColumns+` FROM user_addresses WHERE user_id = $1
ORDER BY is_default DESC, created_at ASC`, userID)
	if err != nil {
		return nil, wrapErr("list addresses", err)
	}
	defer rows.Close()
	var out []Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, wrapErr("list addresses", err)
		}
		out = append(out, a)
	}
	return out, wrapErr("list addresses", rows.Err())
}

// ClearDefaultAddress unsets the default flag on all of a user's addresses.
func (q *Queries) ClearDefaultAddress(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE user_addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID)
	return wrapErr("clear default address", err)
}

// CreateAddress inserts an address for arg.UserID.
func (q *Queries) CreateAddress(ctx context.Context, arg Address) (Address, error) {
	a, err := scanAddress(q.db.QueryRow(ctx, `INSERT INTO user_addresses (user_id, label, recipient_name, phone_number,
street, city, province, postal_code, is_default)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+addressColumns,
		arg.UserID, arg.Label, arg.RecipientName, arg.PhoneNumber, arg.Street, arg.City, arg.Province,
		arg.PostalCode, arg.IsDefault))
	return a, wrapErr("create address", err)
}

// DeleteAddress removes one of a user's addresses.
func (q *Queries) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM user_addresses WHERE id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		return wrapErr("delete address", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapErr("delete address", pgx.ErrNoRows)
	}
	return nil
}
