// Package memory holds in-process implementations of the postgres
// repositories. Services are unit tested against it; transactions restore a
// snapshot when the callback fails.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"electroCare/domain"
)

type Store struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	nextID uint
	now    func() time.Time

	users        map[uint]domain.User
	wallets      map[uint]domain.Wallet
	transactions []domain.Transaction
	withdrawals  map[uint]domain.Withdrawal
	referrals    map[uint]domain.Referral
	repairs      map[uint]domain.RepairRequest
	sales        map[uint]domain.DeviceSale
	purchases    map[uint]domain.DevicePurchase
	applications map[uint]domain.RoleApplication
	shops        map[uint]domain.Shop
	sequences    map[string]int64
	tokens       map[string]string
}

func NewStore() *Store {
	return &Store{
		now:          time.Now,
		users:        map[uint]domain.User{},
		wallets:      map[uint]domain.Wallet{},
		withdrawals:  map[uint]domain.Withdrawal{},
		referrals:    map[uint]domain.Referral{},
		repairs:      map[uint]domain.RepairRequest{},
		sales:        map[uint]domain.DeviceSale{},
		purchases:    map[uint]domain.DevicePurchase{},
		applications: map[uint]domain.RoleApplication{},
		shops:        map[uint]domain.Shop{},
		sequences:    map[string]int64{},
		tokens:       map[string]string{},
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

type snapshot struct {
	nextID       uint
	users        map[uint]domain.User
	wallets      map[uint]domain.Wallet
	transactions []domain.Transaction
	withdrawals  map[uint]domain.Withdrawal
	referrals    map[uint]domain.Referral
	repairs      map[uint]domain.RepairRequest
	sales        map[uint]domain.DeviceSale
	purchases    map[uint]domain.DevicePurchase
	applications map[uint]domain.RoleApplication
	shops        map[uint]domain.Shop
	sequences    map[string]int64
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return snapshot{
		nextID:       s.nextID,
		users:        maps.Clone(s.users),
		wallets:      maps.Clone(s.wallets),
		transactions: append([]domain.Transaction(nil), s.transactions...),
		withdrawals:  maps.Clone(s.withdrawals),
		referrals:    maps.Clone(s.referrals),
		repairs:      maps.Clone(s.repairs),
		sales:        maps.Clone(s.sales),
		purchases:    maps.Clone(s.purchases),
		applications: maps.Clone(s.applications),
		shops:        maps.Clone(s.shops),
		sequences:    maps.Clone(s.sequences),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID = snap.nextID
	s.users = snap.users
	s.wallets = snap.wallets
	s.transactions = snap.transactions
	s.withdrawals = snap.withdrawals
	s.referrals = snap.referrals
	s.repairs = snap.repairs
	s.sales = snap.sales
	s.purchases = snap.purchases
	s.applications = snap.applications
	s.shops = snap.shops
	s.sequences = snap.sequences
}

type txKey struct{}

// Transactor serializes transactions and rolls the store back when the
// callback returns an error.
type Transactor struct {
	s *Store
}

func (s *Store) Transactor() *Transactor { return &Transactor{s: s} }

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}

	return nil
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, domain.ErrNotFound)
}

func sortDesc[T any](items []T, id func(T) uint) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) > id(items[j]) })
}

// Users

type UserRepository struct{ s *Store }

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email already exists: %w", domain.ErrConflict)
		}
	}

	user.ID = r.s.id()
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	r.s.users[user.ID] = *user

	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id uint) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, notFound("user")
	}

	return u, nil
}

func (r *UserRepository) find(match func(domain.User) bool) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if match(u) {
			return u, nil
		}
	}

	return domain.User{}, notFound("user")
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) FindByReferralCode(_ context.Context, code string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return code != "" && u.ReferralCode == code })
}

func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	return r.FindByRole(ctx, "")
}

func (r *UserRepository) FindByRole(_ context.Context, role string) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.User
	for _, u := range r.s.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *UserRepository) update(id uint, fn func(*domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return notFound("user")
	}
	fn(&u)
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u

	return nil
}

func (r *UserRepository) UpdateRole(_ context.Context, id uint, role string) error {
	return r.update(id, func(u *domain.User) { u.Role = role })
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uint, hash string) error {
	return r.update(id, func(u *domain.User) { u.Password = hash })
}

func (r *UserRepository) UpdateEmailVerification(_ context.Context, id uint, verified bool) error {
	return r.update(id, func(u *domain.User) { u.IsVerified = verified })
}

// Tokens

type TokenRepository struct{ s *Store }

func (s *Store) Tokens() *TokenRepository { return &TokenRepository{s: s} }

func (r *TokenRepository) StoreToken(_ context.Context, userID, token string, _ time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for t, uid := range r.s.tokens {
		if uid == userID {
			delete(r.s.tokens, t)
		}
	}
	r.s.tokens[token] = userID

	return nil
}

func (r *TokenRepository) ValidateToken(_ context.Context, token string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	uid, ok := r.s.tokens[token]
	if !ok {
		return "", fmt.Errorf("token expired or revoked: %w", domain.ErrUnauthorized)
	}

	return uid, nil
}

func (r *TokenRepository) DeleteToken(_ context.Context, _ string, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.tokens, token)
	return nil
}

// Referrals

type ReferralRepository struct{ s *Store }

func (s *Store) Referrals() *ReferralRepository { return &ReferralRepository{s: s} }

func (r *ReferralRepository) Create(_ context.Context, ref *domain.Referral) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ref.ID = r.s.id()
	ref.CreatedAt = r.s.now()
	r.s.referrals[ref.ID] = *ref

	return nil
}

func (r *ReferralRepository) FindPendingByReferredForUpdate(_ context.Context, referredID uint) (domain.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, ref := range r.s.referrals {
		if ref.ReferredID == referredID && ref.Status == domain.ReferralPending {
			return ref, nil
		}
	}

	return domain.Referral{}, notFound("referral")
}

func (r *ReferralRepository) Complete(_ context.Context, id uint, points int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ref, ok := r.s.referrals[id]
	if !ok || ref.Status != domain.ReferralPending {
		return fmt.Errorf("referral already completed: %w", domain.ErrConflict)
	}
	ref.Status = domain.ReferralCompleted
	ref.PointsAwarded = points
	ref.CompletedAt = &at
	r.s.referrals[id] = ref

	return nil
}

func (r *ReferralRepository) All() []domain.Referral {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return mapValues(r.s.referrals)
}

func mapValues[K comparable, V any](m map[K]V) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}

	return out
}

// Sequences

type SequenceRepository struct{ s *Store }

func (s *Store) Sequences() *SequenceRepository { return &SequenceRepository{s: s} }

func (r *SequenceRepository) Next(_ context.Context, scope, period string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := scope + "|" + period
	r.s.sequences[key]++

	return r.s.sequences[key], nil
}
