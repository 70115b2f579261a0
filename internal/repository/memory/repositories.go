package memory

import (
	"context"
	"fmt"
	"strings"

	"electroCare/domain"
)

// Wallets

type WalletRepository struct{ s *Store }

func (s *Store) Wallets() *WalletRepository { return &WalletRepository{s: s} }

func (r *WalletRepository) Create(_ context.Context, wallet *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, w := range r.s.wallets {
		if w.UserID == wallet.UserID {
			return fmt.Errorf("wallet already exists: %w", domain.ErrConflict)
		}
	}

	wallet.ID = r.s.id()
	wallet.CreatedAt = r.s.now()
	wallet.UpdatedAt = wallet.CreatedAt
	r.s.wallets[wallet.ID] = *wallet

	return nil
}

func (r *WalletRepository) FindByUserID(_ context.Context, userID uint) (domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, w := range r.s.wallets {
		if w.UserID == userID {
			return w, nil
		}
	}

	return domain.Wallet{}, notFound("wallet")
}

func (r *WalletRepository) FindByUserIDForUpdate(ctx context.Context, userID uint) (domain.Wallet, error) {
	return r.FindByUserID(ctx, userID)
}

func (r *WalletRepository) Update(_ context.Context, wallet *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.wallets[wallet.ID]; !ok {
		return notFound("wallet")
	}
	if wallet.Reserved.GreaterThan(wallet.Balance) || wallet.Balance.IsNegative() || wallet.Points < 0 {
		return fmt.Errorf("wallet check constraint violated: %w", domain.ErrConflict)
	}
	wallet.UpdatedAt = r.s.now()
	r.s.wallets[wallet.ID] = *wallet

	return nil
}

func (r *WalletRepository) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx.ID = r.s.id()
	tx.CreatedAt = r.s.now()
	r.s.transactions = append(r.s.transactions, *tx)

	return nil
}

func (r *WalletRepository) ListTransactions(_ context.Context, userID uint) ([]domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Transaction
	for _, tx := range r.s.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sortDesc(out, func(t domain.Transaction) uint { return t.ID })

	return out, nil
}

func (r *WalletRepository) CreateWithdrawal(_ context.Context, w *domain.Withdrawal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w.ID = r.s.id()
	w.CreatedAt = r.s.now()
	w.UpdatedAt = w.CreatedAt
	if w.Status == "" {
		w.Status = domain.WithdrawalPending
	}
	r.s.withdrawals[w.ID] = *w

	return nil
}

func (r *WalletRepository) FindWithdrawalForUpdate(_ context.Context, id uint) (domain.Withdrawal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.withdrawals[id]
	if !ok {
		return domain.Withdrawal{}, notFound("withdrawal")
	}

	return w, nil
}

func (r *WalletRepository) UpdateWithdrawal(_ context.Context, w *domain.Withdrawal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.withdrawals[w.ID]; !ok {
		return notFound("withdrawal")
	}
	w.UpdatedAt = r.s.now()
	r.s.withdrawals[w.ID] = *w

	return nil
}

func (r *WalletRepository) ListWithdrawals(_ context.Context, status string) ([]domain.Withdrawal, error) {
	return r.filterWithdrawals(func(w domain.Withdrawal) bool { return status == "" || w.Status == status }), nil
}

func (r *WalletRepository) ListWithdrawalsByUser(_ context.Context, userID uint) ([]domain.Withdrawal, error) {
	return r.filterWithdrawals(func(w domain.Withdrawal) bool { return w.UserID == userID }), nil
}

func (r *WalletRepository) filterWithdrawals(match func(domain.Withdrawal) bool) []domain.Withdrawal {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Withdrawal
	for _, w := range r.s.withdrawals {
		if match(w) {
			out = append(out, w)
		}
	}
	sortDesc(out, func(w domain.Withdrawal) uint { return w.ID })

	return out
}

// Repairs

type RepairRepository struct{ s *Store }

func (s *Store) Repairs() *RepairRepository { return &RepairRepository{s: s} }

func (r *RepairRepository) Create(_ context.Context, repair *domain.RepairRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.repairs {
		if existing.RequestID == repair.RequestID {
			return fmt.Errorf("request id %s already exists: %w", repair.RequestID, domain.ErrConflict)
		}
	}

	repair.ID = r.s.id()
	repair.CreatedAt = r.s.now()
	repair.UpdatedAt = repair.CreatedAt
	r.s.repairs[repair.ID] = *repair

	return nil
}

func (r *RepairRepository) FindByID(_ context.Context, id uint) (domain.RepairRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	repair, ok := r.s.repairs[id]
	if !ok {
		return domain.RepairRequest{}, notFound("repair request")
	}

	return repair, nil
}

func (r *RepairRepository) FindByIDForUpdate(ctx context.Context, id uint) (domain.RepairRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *RepairRepository) Update(_ context.Context, repair *domain.RepairRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.repairs[repair.ID]; !ok {
		return notFound("repair request")
	}
	repair.UpdatedAt = r.s.now()
	r.s.repairs[repair.ID] = *repair

	return nil
}

func (r *RepairRepository) ListByUser(_ context.Context, userID uint) ([]domain.RepairRequest, error) {
	return r.filter(func(rr domain.RepairRequest) bool { return rr.UserID == userID }), nil
}

func (r *RepairRepository) ListAll(_ context.Context) ([]domain.RepairRequest, error) {
	return r.filter(func(domain.RepairRequest) bool { return true }), nil
}

func (r *RepairRepository) ListForShop(_ context.Context, shopUserID uint) ([]domain.RepairRequest, error) {
	return r.filter(func(rr domain.RepairRequest) bool {
		return rr.Status == domain.RepairPending || rr.Status == domain.RepairAssigned || isID(rr.ShopID, shopUserID)
	}), nil
}

func (r *RepairRepository) ListForDelivery(_ context.Context, deliveryUserID uint) ([]domain.RepairRequest, error) {
	return r.filter(func(rr domain.RepairRequest) bool {
		open := rr.Delivery && (rr.Status == domain.RepairPending || rr.Status == domain.RepairAccepted)
		return open || isID(rr.DeliveryPersonID, deliveryUserID)
	}), nil
}

func (r *RepairRepository) ListForTechnician(_ context.Context, technicianID uint) ([]domain.RepairRequest, error) {
	return r.filter(func(rr domain.RepairRequest) bool {
		return (rr.Status == domain.RepairPending && rr.TechnicianID == nil) || isID(rr.TechnicianID, technicianID)
	}), nil
}

func (r *RepairRepository) filter(match func(domain.RepairRequest) bool) []domain.RepairRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.RepairRequest
	for _, rr := range r.s.repairs {
		if match(rr) {
			out = append(out, rr)
		}
	}
	sortDesc(out, func(rr domain.RepairRequest) uint { return rr.ID })

	return out
}

func isID(p *uint, id uint) bool {
	return p != nil && *p == id
}

// Device sales and purchases

type DeviceSaleRepository struct{ s *Store }

func (s *Store) DeviceSales() *DeviceSaleRepository { return &DeviceSaleRepository{s: s} }

func (r *DeviceSaleRepository) Create(_ context.Context, sale *domain.DeviceSale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.sales {
		if existing.SerialNumber == sale.SerialNumber {
			return fmt.Errorf("serial number %s already exists: %w", sale.SerialNumber, domain.ErrConflict)
		}
	}

	sale.ID = r.s.id()
	sale.CreatedAt = r.s.now()
	sale.UpdatedAt = sale.CreatedAt
	r.s.sales[sale.ID] = *sale

	return nil
}

func (r *DeviceSaleRepository) FindByID(_ context.Context, id uint) (domain.DeviceSale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sale, ok := r.s.sales[id]
	if !ok {
		return domain.DeviceSale{}, notFound("device sale")
	}

	return sale, nil
}

func (r *DeviceSaleRepository) FindByIDForUpdate(ctx context.Context, id uint) (domain.DeviceSale, error) {
	return r.FindByID(ctx, id)
}

func (r *DeviceSaleRepository) Update(_ context.Context, sale *domain.DeviceSale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sales[sale.ID]; !ok {
		return notFound("device sale")
	}
	sale.UpdatedAt = r.s.now()
	r.s.sales[sale.ID] = *sale

	return nil
}

func (r *DeviceSaleRepository) ListApproved(_ context.Context, category string) ([]domain.DeviceSale, error) {
	return r.filter(func(s domain.DeviceSale) bool {
		return s.Status == domain.SaleStatusApproved && s.Condition != domain.ConditionUnusable &&
			(category == "" || s.Category == category)
	}), nil
}

func (r *DeviceSaleRepository) ListByUser(_ context.Context, userID uint) ([]domain.DeviceSale, error) {
	return r.filter(func(s domain.DeviceSale) bool { return s.UserID == userID }), nil
}

func (r *DeviceSaleRepository) ListPending(_ context.Context) ([]domain.DeviceSale, error) {
	return r.filter(func(s domain.DeviceSale) bool { return s.Status == domain.SaleStatusPending }), nil
}

func (r *DeviceSaleRepository) filter(match func(domain.DeviceSale) bool) []domain.DeviceSale {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.DeviceSale
	for _, s := range r.s.sales {
		if match(s) {
			out = append(out, s)
		}
	}
	sortDesc(out, func(s domain.DeviceSale) uint { return s.ID })

	return out
}

func (r *DeviceSaleRepository) CreatePurchase(_ context.Context, p *domain.DevicePurchase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p.ID = r.s.id()
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	r.s.purchases[p.ID] = *p

	return nil
}

func (r *DeviceSaleRepository) FindPurchaseForUpdate(_ context.Context, id uint) (domain.DevicePurchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.purchases[id]
	if !ok {
		return domain.DevicePurchase{}, notFound("purchase")
	}

	return p, nil
}

func (r *DeviceSaleRepository) UpdatePurchase(_ context.Context, p *domain.DevicePurchase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.purchases[p.ID]; !ok {
		return notFound("purchase")
	}
	p.UpdatedAt = r.s.now()
	r.s.purchases[p.ID] = *p

	return nil
}

func (r *DeviceSaleRepository) ListPurchases(_ context.Context, status string) ([]domain.DevicePurchase, error) {
	return r.filterPurchases(func(p domain.DevicePurchase) bool { return status == "" || p.Status == status }), nil
}

func (r *DeviceSaleRepository) ListPurchasesByBuyer(_ context.Context, buyerID uint) ([]domain.DevicePurchase, error) {
	return r.filterPurchases(func(p domain.DevicePurchase) bool { return p.BuyerID == buyerID }), nil
}

func (r *DeviceSaleRepository) filterPurchases(match func(domain.DevicePurchase) bool) []domain.DevicePurchase {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.DevicePurchase
	for _, p := range r.s.purchases {
		if match(p) {
			out = append(out, p)
		}
	}
	sortDesc(out, func(p domain.DevicePurchase) uint { return p.ID })

	return out
}

// Shops

type ShopRepository struct{ s *Store }

func (s *Store) Shops() *ShopRepository { return &ShopRepository{s: s} }

func (r *ShopRepository) Create(_ context.Context, shop *domain.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.shops {
		if existing.Code == shop.Code {
			return fmt.Errorf("shop code %s already exists: %w", shop.Code, domain.ErrConflict)
		}
	}

	shop.ID = r.s.id()
	shop.CreatedAt = r.s.now()
	shop.UpdatedAt = shop.CreatedAt
	r.s.shops[shop.ID] = *shop

	return nil
}

func (r *ShopRepository) FindAll(_ context.Context) ([]domain.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := mapValues(r.s.shops)
	sortDesc(out, func(s domain.Shop) uint { return s.ID })

	return out, nil
}

func (r *ShopRepository) FindByLocation(_ context.Context, location string) (domain.Shop, error) {
	want := strings.ToLower(strings.TrimSpace(location))
	return r.findOne(func(s domain.Shop) bool { return strings.ToLower(s.Location) == want })
}

func (r *ShopRepository) FindByOwner(_ context.Context, ownerID uint) (domain.Shop, error) {
	return r.findOne(func(s domain.Shop) bool { return s.OwnerID == ownerID })
}

func (r *ShopRepository) findOne(match func(domain.Shop) bool) (domain.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, s := range r.s.shops {
		if match(s) {
			return s, nil
		}
	}

	return domain.Shop{}, notFound("shop")
}

// Role applications

type RoleApplicationRepository struct{ s *Store }

func (s *Store) RoleApplications() *RoleApplicationRepository {
	return &RoleApplicationRepository{s: s}
}

func (r *RoleApplicationRepository) Create(_ context.Context, app *domain.RoleApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.applications {
		if existing.UserID == app.UserID && existing.Status == domain.ApplicationPending {
			return fmt.Errorf("application already pending: %w", domain.ErrConflict)
		}
	}

	app.ID = r.s.id()
	app.CreatedAt = r.s.now()
	app.UpdatedAt = app.CreatedAt
	if app.Status == "" {
		app.Status = domain.ApplicationPending
	}
	r.s.applications[app.ID] = *app

	return nil
}

func (r *RoleApplicationRepository) HasPending(_ context.Context, userID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, app := range r.s.applications {
		if app.UserID == userID && app.Status == domain.ApplicationPending {
			return true, nil
		}
	}

	return false, nil
}

func (r *RoleApplicationRepository) FindByIDForUpdate(_ context.Context, id uint) (domain.RoleApplication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	app, ok := r.s.applications[id]
	if !ok {
		return domain.RoleApplication{}, notFound("application")
	}

	return app, nil
}

func (r *RoleApplicationRepository) Update(_ context.Context, app *domain.RoleApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.applications[app.ID]; !ok {
		return notFound("application")
	}
	app.UpdatedAt = r.s.now()
	r.s.applications[app.ID] = *app

	return nil
}

func (r *RoleApplicationRepository) ListByStatus(_ context.Context, status string) ([]domain.RoleApplication, error) {
	return r.filter(func(a domain.RoleApplication) bool { return status == "" || a.Status == status }), nil
}

func (r *RoleApplicationRepository) ListByUser(_ context.Context, userID uint) ([]domain.RoleApplication, error) {
	return r.filter(func(a domain.RoleApplication) bool { return a.UserID == userID }), nil
}

func (r *RoleApplicationRepository) filter(match func(domain.RoleApplication) bool) []domain.RoleApplication {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.RoleApplication
	for _, a := range r.s.applications {
		if match(a) {
			out = append(out, a)
		}
	}
	sortDesc(out, func(a domain.RoleApplication) uint { return a.ID })

	return out
}
