package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tokobaju-api/internal/activity"
	"github.com/noah-isme/tokobaju-api/internal/money"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

var (
	// ErrNotFound is returned when no user matches the id.
	ErrNotFound = errors.New("user not found")
	// ErrAddressNotFound is returned when the address does not belong to the user.
	ErrAddressNotFound = errors.New("address not found")
	// ErrEmailTaken is returned when an update collides with another account's email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidAmount is returned for non-positive top-ups.
	ErrInvalidAmount = errors.New("top-up amount must be positive")
)

// Querier is the user persistence used by Service.
type Querier interface {
	GetUser(ctx context.Context, id uuid.UUID) (store.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]store.User, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUser(ctx context.Context, id uuid.UUID, arg store.UpdateUserParams) (store.User, error)
	AddWalletBalance(ctx context.Context, id uuid.UUID, amount money.Amount) (money.Amount, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]store.Address, error)
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error
}

// AddressWriter is bound to the transaction that inserts an address.
type AddressWriter interface {
	ClearDefaultAddress(ctx context.Context, userID uuid.UUID) error
	CreateAddress(ctx context.Context, arg store.Address) (store.Address, error)
}

// TxFunc runs fn inside a database transaction.
type TxFunc func(ctx context.Context, fn func(w AddressWriter) error) error

// PgTx adapts store.RunInTx to TxFunc.
func PgTx(db store.TxBeginner, opts store.TxOptions) TxFunc {
	return func(ctx context.Context, fn func(w AddressWriter) error) error {
		return store.RunInTx(ctx, db, opts, func(q *store.Queries) error { return fn(q) })
	}
}

// User is the API view of an account. The password hash is never serialised.
type User struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	FullName      string       `json:"fullName"`
	Role          string       `json:"role"`
	WalletBalance money.Amount `json:"walletBalance"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// UpdateInput is the body of PUT /users/{id}. An empty password keeps the current hash.
type UpdateInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Password string `json:"password" validate:"omitempty,min=6,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=Admin Customer"`
}

// Address is a saved shipping address.
type Address struct {
	ID            string    `json:"id"`
	Label         string    `json:"label"`
	RecipientName string    `json:"recipientName"`
	PhoneNumber   string    `json:"phoneNumber"`
	Street        string    `json:"street"`
	City          string    `json:"city"`
	Province      string    `json:"province"`
	PostalCode    string    `json:"postalCode"`
	IsDefault     bool      `json:"isDefault"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AddressInput captures payload for creating an address.
type AddressInput struct {
	Label         string `json:"label" validate:"max=50"`
	RecipientName string `json:"recipientName" validate:"required,max=200"`
	PhoneNumber   string `json:"phoneNumber" validate:"required,max=32"`
	Street        string `json:"street" validate:"required,max=500"`
	City          string `json:"city" validate:"required,max=100"`
	Province      string `json:"province" validate:"max=100"`
	PostalCode    string `json:"postalCode" validate:"max=16"`
	IsDefault     bool   `json:"isDefault"`
}

// Service manages accounts, wallets and address books.
type Service struct {
	Q        Querier
	Tx       TxFunc
	Hash     func(password string) (string, error)
	Activity activity.Recorder
	Logger   zerolog.Logger
}

// List returns a page of users with the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]User, int64, error) {
	rows, err := s.Q.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Q.CountUsers(ctx)
	if err != nil {
		return nil, 0, err
	}
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, total, nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	row, err := s.Q.GetUser(ctx, id)
	if err != nil {
		return User{}, translate(err, ErrNotFound)
	}
	return fromRow(row), nil
}

// Update overwrites the profile. Role changes are honoured only when allowRole is set.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, allowRole bool) (User, error) {
	current, err := s.Q.GetUser(ctx, id)
	if err != nil {
		return User{}, translate(err, ErrNotFound)
	}
	params := store.UpdateUserParams{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: current.PasswordHash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         current.Role,
	}
	if allowRole && in.Role != "" {
		params.Role = in.Role
	}
	if in.Password != "" {
		if s.Hash == nil {
			return User{}, errors.New("user: password hasher not configured")
		}
		params.PasswordHash, err = s.Hash(in.Password)
		if err != nil {
			return User{}, fmt.Errorf("user: hash password: %w", err)
		}
	}
	row, err := s.Q.UpdateUser(ctx, id, params)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return User{}, fmt.Errorf("%w: %v", ErrEmailTaken, err)
		}
		return User{}, translate(err, ErrNotFound)
	}
	return fromRow(row), nil
}

// TopUp credits amount to the wallet and returns the new balance.
func (s *Service) TopUp(ctx context.Context, id uuid.UUID, amount money.Amount) (money.Amount, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	balance, err := s.Q.AddWalletBalance(ctx, id, amount)
	if err != nil {
		return 0, translate(err, ErrNotFound)
	}
	if s.Activity != nil {
		entry := activity.Entry{
			UserID:  id.String(),
			Action:  activity.ActionTopUp,
			Details: fmt.Sprintf("Wallet topped up by %d, balance %d", amount, balance),
		}
		if err := s.Activity.Record(ctx, entry); err != nil {
			s.Logger.Warn().Err(err).Str("user_id", id.String()).Msg("record top-up activity failed")
		}
	}
	return balance, nil
}

// Addresses lists a user's addresses, default first.
func (s *Service) Addresses(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	if _, err := s.Q.GetUser(ctx, userID); err != nil {
		return nil, translate(err, ErrNotFound)
	}
	rows, err := s.Q.ListAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Address, 0, len(rows))
	for _, row := range rows {
		out = append(out, addressFromRow(row))
	}
	return out, nil
}

// AddAddress stores a new address. A default address replaces the previous default.
func (s *Service) AddAddress(ctx context.Context, userID uuid.UUID, in AddressInput) (Address, error) {
	if _, err := s.Q.GetUser(ctx, userID); err != nil {
		return Address{}, translate(err, ErrNotFound)
	}
	existing, err := s.Q.ListAddresses(ctx, userID)
	if err != nil {
		return Address{}, err
	}
	isDefault := in.IsDefault || len(existing) == 0

	var created store.Address
	err = s.Tx(ctx, func(w AddressWriter) error {
		if isDefault {
			if err := w.ClearDefaultAddress(ctx, userID); err != nil {
				return err
			}
		}
		var err error
		created, err = w.CreateAddress(ctx, store.Address{
			UserID:        userID,
			Label:         strings.TrimSpace(in.Label),
			RecipientName: strings.TrimSpace(in.RecipientName),
			PhoneNumber:   strings.TrimSpace(in.PhoneNumber),
			Street:        strings.TrimSpace(in.Street),
			City:          strings.TrimSpace(in.City),
			Province:      strings.TrimSpace(in.Province),
			PostalCode:    strings.TrimSpace(in.PostalCode),
			IsDefault:     isDefault,
		})
		return err
	})
	if err != nil {
		return Address{}, err
	}
	return addressFromRow(created), nil
}

// DeleteAddress removes one address of the user.
func (s *Service) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	return translate(s.Q.DeleteAddress(ctx, userID, addressID), ErrAddressNotFound)
}

func fromRow(row store.User) User {
	return User{
		ID:            row.ID.String(),
		Email:         row.Email,
		FullName:      row.FullName,
		Role:          row.Role,
		WalletBalance: row.WalletBalance,
		CreatedAt:     row.CreatedAt,
	}
}

func addressFromRow(row store.Address) Address {
	return Address{
		ID:            row.ID.String(),
		Label:         row.Label,
		RecipientName: row.RecipientName,
		PhoneNumber:   row.PhoneNumber,
		Street:        row.Street,
		City:          row.City,
		Province:      row.Province,
		PostalCode:    row.PostalCode,
		IsDefault:     row.IsDefault,
		CreatedAt:     row.CreatedAt,
	}
}

func translate(err, sentinel error) error {
	if err != nil && errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return err
}
