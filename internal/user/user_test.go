package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tokobaju-api/internal/activity"
	"github.com/noah-isme/tokobaju-api/internal/common"
	"github.com/noah-isme/tokobaju-api/internal/money"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

type memUsers struct {
	mu        sync.Mutex
	users     map[uuid.UUID]store.User
	addresses map[uuid.UUID][]store.Address
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[uuid.UUID]store.User{}, addresses: map[uuid.UUID][]store.Address{}}
}

func (m *memUsers) add(email, role string) store.User {
	u := store.User{ID: uuid.New(), Email: email, PasswordHash: "old-hash", FullName: "Budi", Role: role, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u
}

func (m *memUsers) tx(ctx context.Context, fn func(w AddressWriter) error) error { return fn(m) }

func (m *memUsers) GetUser(_ context.Context, id uuid.UUID) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) ListUsers(context.Context, int, int) ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) CountUsers(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memUsers) UpdateUser(_ context.Context, id uuid.UUID, arg store.UpdateUserParams) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	for otherID, other := range m.users {
		if otherID != id && other.Email == arg.Email {
			return store.User{}, store.ErrConflict
		}
	}
	u.Email, u.PasswordHash, u.FullName, u.Role = arg.Email, arg.PasswordHash, arg.FullName, arg.Role
	m.users[id] = u
	return u, nil
}

func (m *memUsers) AddWalletBalance(_ context.Context, id uuid.UUID, amount money.Amount) (money.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	u.WalletBalance += amount
	m.users[id] = u
	return u.WalletBalance, nil
}

func (m *memUsers) ListAddresses(_ context.Context, userID uuid.UUID) ([]store.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Address(nil), m.addresses[userID]...), nil
}

func (m *memUsers) ClearDefaultAddress(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.addresses[userID] {
		m.addresses[userID][i].IsDefault = false
	}
	return nil
}

func (m *memUsers) CreateAddress(_ context.Context, arg store.Address) (store.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	arg.ID = uuid.New()
	arg.CreatedAt = time.Now()
	m.addresses[arg.UserID] = append(m.addresses[arg.UserID], arg)
	return arg, nil
}

func (m *memUsers) DeleteAddress(_ context.Context, userID, addressID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.addresses[userID]
	for i, a := range list {
		if a.ID == addressID {
			m.addresses[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type recorder struct{ entries []activity.Entry }

func (r *recorder) Record(_ context.Context, e activity.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func newService(m *memUsers) (*Service, *recorder) {
	rec := &recorder{}
	return &Service{
		Q:        m,
		Tx:       m.tx,
		Hash:     func(p string) (string, error) { return "hashed:" + p, nil },
		Activity: rec,
	}, rec
}

func request(ctx context.Context, method, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rc))
}

func as(id, role string) context.Context {
	return common.WithRole(common.WithUserID(context.Background(), id), role)
}

func TestUpdateKeepsPasswordWhenEmpty(t *testing.T) {
	m := newMemUsers()
	u := m.add("budi@example.com", common.RoleCustomer)
	svc, _ := newService(m)

	out, err := svc.Update(context.Background(), u.ID, UpdateInput{Email: "Budi.New@Example.com", FullName: "Budi S", Role: common.RoleAdmin}, false)
	require.NoError(t, err)
	require.Equal(t, "budi.new@example.com", out.Email)
	require.Equal(t, common.RoleCustomer, out.Role)
	require.Equal(t, "old-hash", m.users[u.ID].PasswordHash)

	_, err = svc.Update(context.Background(), u.ID, UpdateInput{Email: "budi@example.com", FullName: "Budi", Password: "rahasia123"}, true)
	require.NoError(t, err)
	require.Equal(t, "hashed:rahasia123", m.users[u.ID].PasswordHash)
}

func TestUpdateConflictAndMissing(t *testing.T) {
	m := newMemUsers()
	a := m.add("a@example.com", common.RoleCustomer)
	m.add("b@example.com", common.RoleCustomer)
	svc, _ := newService(m)

	_, err := svc.Update(context.Background(), a.ID, UpdateInput{Email: "b@example.com", FullName: "A"}, false)
	require.ErrorIs(t, err, ErrEmailTaken)
	_, err = svc.Update(context.Background(), uuid.New(), UpdateInput{Email: "c@example.com", FullName: "C"}, false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTopUp(t *testing.T) {
	m := newMemUsers()
	u := m.add("budi@example.com", common.RoleCustomer)
	svc, rec := newService(m)

	balance, err := svc.TopUp(context.Background(), u.ID, 50_000)
	require.NoError(t, err)
	require.Equal(t, money.Amount(50_000), balance)
	require.Len(t, rec.entries, 1)
	require.Equal(t, activity.ActionTopUp, rec.entries[0].Action)

	_, err = svc.TopUp(context.Background(), u.ID, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.TopUp(context.Background(), uuid.New(), 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTopUpHandlerBodies(t *testing.T) {
	m := newMemUsers()
	u := m.add("budi@example.com", common.RoleCustomer)
	svc, _ := newService(m)
	h := &Handler{Service: svc}
	params := map[string]string{"id": u.ID.String()}

	rec := httptest.NewRecorder()
	h.TopUp(rec, request(as(u.ID.String(), common.RoleCustomer), http.MethodPost, `25000`, params))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data":{"balance":25000}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.TopUp(rec, request(as(u.ID.String(), common.RoleCustomer), http.MethodPost, `{"amount":5000}`, params))
	require.JSONEq(t, `{"data":{"balance":30000}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.TopUp(rec, request(as(u.ID.String(), common.RoleCustomer), http.MethodPost, `-1`, params))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.TopUp(rec, request(as(uuid.NewString(), common.RoleCustomer), http.MethodPost, `100`, params))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAddressBook(t *testing.T) {
	m := newMemUsers()
	u := m.add("budi@example.com", common.RoleCustomer)
	svc, _ := newService(m)
	ctx := context.Background()

	first, err := svc.AddAddress(ctx, u.ID, AddressInput{RecipientName: "Budi", PhoneNumber: "0812", Street: "Jl. A", City: "Bandung"})
	require.NoError(t, err)
	require.True(t, first.IsDefault)

	second, err := svc.AddAddress(ctx, u.ID, AddressInput{RecipientName: "Budi", PhoneNumber: "0812", Street: "Jl. B", City: "Jakarta", IsDefault: true})
	require.NoError(t, err)
	require.True(t, second.IsDefault)

	list, err := svc.Addresses(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
		}
	}
	require.Equal(t, 1, defaults)

	require.NoError(t, svc.DeleteAddress(ctx, u.ID, uuid.MustParse(first.ID)))
	require.ErrorIs(t, svc.DeleteAddress(ctx, u.ID, uuid.MustParse(first.ID)), ErrAddressNotFound)
}

func TestHandlerAccess(t *testing.T) {
	m := newMemUsers()
	u := m.add("budi@example.com", common.RoleCustomer)
	svc, _ := newService(m)
	h := &Handler{Service: svc}
	params := map[string]string{"id": u.ID.String()}

	rec := httptest.NewRecorder()
	h.Get(rec, request(as(u.ID.String(), common.RoleCustomer), http.MethodGet, "", params))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "old-hash")

	rec = httptest.NewRecorder()
	h.Get(rec, request(as(uuid.NewString(), common.RoleAdmin), http.MethodGet, "", params))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, request(as(uuid.NewString(), common.RoleCustomer), http.MethodGet, "", params))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.AddAddress(rec, request(as(u.ID.String(), common.RoleCustomer), http.MethodPost, `{"recipientName":""}`, params))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, request(as(u.ID.String(), common.RoleAdmin), http.MethodGet, "", nil))
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	var resp struct {
		Data []User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
}
