package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/store"
	"stockledger/backend/internal/xid"
)

const minPasswordLength = 8

// CreateUser signs up a new account. Only admins add users; non-admin
// accounts must belong to a store.
func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.UserProfile, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.UserProfile{}, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	role := strings.ToLower(strings.TrimSpace(req.Role))
	storeID := strings.TrimSpace(req.StoreID)
	if username == "" || !domain.ValidRole(role) {
		return domain.UserProfile{}, fmt.Errorf("%w: username and a valid role are required", store.ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return domain.UserProfile{}, fmt.Errorf("%w: password must be at least %d characters", store.ErrInvalidInput, minPasswordLength)
	}
	if storeID == "" {
		if role != domain.RoleAdmin {
			return domain.UserProfile{}, fmt.Errorf("%w: store_id is required for %s users", store.ErrInvalidInput, role)
		}
		storeID = s.warehouseID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserProfile{}, err
	}
	user := domain.UserAccount{
		Username:    username,
		DisplayName: defaultString(strings.TrimSpace(req.DisplayName), username),
		Password:    string(hash),
		Role:        role,
		StoreID:     storeID,
		LedgerToken: xid.Token(),
		Active:      true,
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.UserProfile{}, err
	}

	s.logAudit(ctx, storeID, "user_create", "user", username, "role="+role)
	return s.profile(user), nil
}

func (s *Service) DeleteUser(ctx context.Context, username string) error {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if username == actor.Username {
		return fmt.Errorf("%w: cannot delete your own account", store.ErrInvalidInput)
	}
	if err := s.repo.DeleteUser(ctx, username); err != nil {
		return err
	}
	s.logAudit(ctx, "", "user_delete", "user", username, "")
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]domain.UserProfile, 0, len(users))
	for _, u := range users {
		p := s.profile(u)
		p.LedgerURL = ""
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Profile returns the caller's account with its ledger link.
func (s *Service) Profile(ctx context.Context) (domain.UserProfile, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.UserProfile{}, err
	}
	user, err := s.repo.GetUser(ctx, actor.Username)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return s.profile(*user), nil
}

// RotateLedgerToken invalidates the caller's ledger link and issues a new one.
func (s *Service) RotateLedgerToken(ctx context.Context) (domain.UserProfile, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.UserProfile{}, err
	}
	token := xid.Token()
	if err := s.repo.UpdateLedgerToken(ctx, actor.Username, token); err != nil {
		return domain.UserProfile{}, err
	}
	user, err := s.repo.GetUser(ctx, actor.Username)
	if err != nil {
		return domain.UserProfile{}, err
	}
	s.logAudit(ctx, user.StoreID, "ledger_token_rotate", "user", user.Username, "")
	return s.profile(*user), nil
}

func (s *Service) profile(u domain.UserAccount) domain.UserProfile {
	p := domain.UserProfile{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		StoreID:     u.StoreID,
		CreatedAt:   u.CreatedAt,
	}
	if u.LedgerToken != "" {
		p.LedgerURL = s.LedgerURL(u.LedgerToken)
	}
	return p
}

func (s *Service) LedgerURL(token string) string {
	return s.publicBaseURL + "/ledger/" + token
}

// LedgerView is the read-only store ledger behind a QR link. It needs no
// session; the token is the credential.
func (s *Service) LedgerView(ctx context.Context, token string) (domain.LedgerView, error) {
	user, err := s.repo.GetUserByLedgerToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return domain.LedgerView{}, err
	}

	products, err := s.productStock(ctx, user.StoreID)
	if err != nil {
		return domain.LedgerView{}, err
	}
	stocked := make([]domain.ProductStock, 0, len(products))
	for _, p := range products {
		if p.TotalStock > 0 || p.ExpiredStock > 0 {
			stocked = append(stocked, p)
		}
	}
	batches, err := s.repo.ListBatches(ctx, user.StoreID, "")
	if err != nil {
		return domain.LedgerView{}, err
	}
	bills, err := s.repo.ListBills(ctx, user.StoreID, time.Time{}, 20)
	if err != nil {
		return domain.LedgerView{}, err
	}
	orders, err := s.repo.ListOrders(ctx, domain.OrderFilter{StoreID: user.StoreID, OpenOnly: true})
	if err != nil {
		return domain.LedgerView{}, err
	}

	return domain.LedgerView{
		StoreID:     user.StoreID,
		Owner:       user.DisplayName,
		Products:    stocked,
		Batches:     batches,
		RecentBills: bills,
		OpenOrders:  orders,
		GeneratedAt: s.now(),
	}, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, storeID string, limit int) ([]domain.AuditLog, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, strings.TrimSpace(storeID), limit)
}
